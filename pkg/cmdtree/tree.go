// Package cmdtree defines the command tree of the xrcfgctl shell.
//
// Tab completion, ? help, prefix resolution and "did you mean" suggestions
// are all derived from OperationalTree.
package cmdtree

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

// Node defines a completion tree node with description, children, and optional dynamic values.
type Node struct {
	Desc      string
	Children  map[string]*Node
	DynamicFn func(m *config.BaseModel) []string
	// Args marks a node that takes free-form arguments (file names,
	// numbers, comments) after its own word.
	Args bool
}

// Candidate holds a command name and its description for display.
type Candidate struct {
	Name string
	Desc string
}

func interfaceNames(m *config.BaseModel) []string {
	if m == nil {
		return nil
	}
	return m.InterfaceNames()
}

func interfaceTypes(m *config.BaseModel) []string {
	if m == nil {
		return nil
	}
	return m.InterfaceTypes()
}

func domainTags(m *config.BaseModel) []string {
	if m == nil {
		return nil
	}
	tags := make([]string, 0, len(m.Domains))
	for _, d := range m.Domains {
		tags = append(tags, strconv.Itoa(d.VLAN))
	}
	return tags
}

// OperationalTree is the xrcfgctl command tree.
var OperationalTree = map[string]*Node{
	"show": {Desc: "Show information", Children: map[string]*Node{
		"configuration": {Desc: "Show active configuration", Children: map[string]*Node{
			"flat": {Desc: "One line per statement with its full path"},
		}},
		"simplified": {Desc: "Show configuration in switchport form"},
		"lint":       {Desc: "Show sub-interface and bridge-domain findings"},
		"compare": {Desc: "Show differences from the candidate change", Children: map[string]*Node{
			"rollback": {Desc: "Compare against rollback N", Args: true},
		}},
		"candidate":     {Desc: "Show the candidate change input"},
		"history":       {Desc: "Show commit history"},
		"interface":     {Desc: "Show one interface and its VLANs", DynamicFn: interfaceNames},
		"summary":       {Desc: "Show interfaces and VLAN ranges [type]", DynamicFn: interfaceTypes},
		"bridge-domain": {Desc: "Show one bridge-domain by VLAN tag", DynamicFn: domainTags},
		"events": {Desc: "Show recent events [N]", Args: true, Children: map[string]*Node{
			"type": {Desc: "Filter by event type", Children: map[string]*Node{
				"parse":    {Desc: "Configuration parsed"},
				"analyze":  {Desc: "Configuration analyzed"},
				"generate": {Desc: "Change commands generated"},
				"reject":   {Desc: "Change input rejected"},
				"commit":   {Desc: "Change committed"},
				"rollback": {Desc: "Rollback applied"},
				"set_base": {Desc: "Base configuration replaced"},
				"log":      {Desc: "Daemon warnings"},
			}},
			"interface": {Desc: "Filter by interface", DynamicFn: interfaceNames},
		}},
		"status": {Desc: "Show daemon status"},
	}},
	"load": {Desc: "Load configuration from file", Children: map[string]*Node{
		"change": {Desc: "Set the candidate change from <file>", Args: true},
	}},
	"generate": {Desc: "Generate commands for a change <file> without staging it", Args: true},
	"preview":  {Desc: "Show commands the candidate change generates"},
	"commit": {Desc: "Commit the candidate change", Children: map[string]*Node{
		"check":   {Desc: "Validate without applying"},
		"comment": {Desc: "Add comment to commit", Args: true},
	}},
	"rollback": {Desc: "Discard the candidate, or revert to rollback N", Args: true},
	"help":     {Desc: "Show help"},
	"quit":     {Desc: "Exit the shell"},
	"exit":     {Desc: "Exit the shell"},
}

// --- Helper functions ---

// KeysFromTree returns a sorted list of keys from a Node map.
func KeysFromTree(tree map[string]*Node) []string {
	keys := KeysOf(tree)
	sort.Strings(keys)
	return keys
}

// HelpCandidates returns Candidates from a tree's children for help display.
func HelpCandidates(tree map[string]*Node) []Candidate {
	candidates := make([]Candidate, 0, len(tree))
	for name, node := range tree {
		candidates = append(candidates, Candidate{Name: name, Desc: node.Desc})
	}
	return candidates
}

// CompleteFromTree walks the tree to find completion candidates for the given words and partial.
func CompleteFromTree(tree map[string]*Node, words []string, partial string, m *config.BaseModel) []string {
	cands := CompleteFromTreeWithDesc(tree, words, partial, m)
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}

// CompleteFromTreeWithDesc walks the tree returning name+description pairs.
func CompleteFromTreeWithDesc(tree map[string]*Node, words []string, partial string, m *config.BaseModel) []Candidate {
	current := tree
	var currentNode *Node
	dynamicConsumed := false
	for _, w := range words {
		dynamicConsumed = false
		node, ok := current[w]
		if !ok {
			// Word not in static children: if parent has DynamicFn,
			// treat as a dynamic value and stay at same children level.
			if currentNode != nil && (currentNode.DynamicFn != nil || currentNode.Args) {
				dynamicConsumed = true
				continue
			}
			return nil
		}
		currentNode = node
		if node.Children == nil {
			if node.DynamicFn != nil && m != nil {
				var candidates []Candidate
				for _, name := range node.DynamicFn(m) {
					if strings.HasPrefix(name, partial) {
						candidates = append(candidates, Candidate{Name: name, Desc: "(configured)"})
					}
				}
				return candidates
			}
			if node.Args {
				dynamicConsumed = true
				continue
			}
			return nil
		}
		current = node.Children
	}

	var candidates []Candidate
	for name, node := range current {
		if strings.HasPrefix(name, partial) {
			candidates = append(candidates, Candidate{Name: name, Desc: node.Desc})
		}
	}
	if !dynamicConsumed && currentNode != nil && currentNode.DynamicFn != nil && m != nil {
		for _, name := range currentNode.DynamicFn(m) {
			if strings.HasPrefix(name, partial) {
				candidates = append(candidates, Candidate{Name: name, Desc: "(configured)"})
			}
		}
	}
	return candidates
}

// LookupDesc finds the description for a candidate name given the command path words.
func LookupDesc(words []string, name string) string {
	current := OperationalTree
	var currentNode *Node
	for _, w := range words {
		node, ok := current[w]
		if !ok {
			// Dynamic value: skip but stay at same children level.
			if currentNode != nil && currentNode.DynamicFn != nil {
				continue
			}
			return ""
		}
		currentNode = node
		if node.Children == nil {
			return ""
		}
		current = node.Children
	}
	if node, ok := current[name]; ok {
		return node.Desc
	}
	return ""
}

// UnknownCommandError reports a word that matches no command.
type UnknownCommandError struct {
	Word string
	// Suggestions are the closest known words, best first.
	Suggestions []string
}

func (e *UnknownCommandError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown command: %s", e.Word)
	}
	return fmt.Sprintf("unknown command: %s (did you mean %s?)", e.Word, strings.Join(e.Suggestions, ", "))
}

// AmbiguousCommandError reports a prefix matching several commands.
type AmbiguousCommandError struct {
	Word    string
	Matches []string
}

func (e *AmbiguousCommandError) Error() string {
	return fmt.Sprintf("ambiguous command: %s matches %s", e.Word, strings.Join(e.Matches, ", "))
}

// Resolve expands unambiguous prefixes of command words ("sh conf" ->
// "show configuration"). Words after a dynamic or argument-taking node
// pass through unchanged.
func Resolve(tree map[string]*Node, words []string) ([]string, error) {
	out := make([]string, 0, len(words))
	current := tree
	for i, w := range words {
		if current == nil {
			return append(out, words[i:]...), nil
		}
		node, ok := current[w]
		name := w
		if !ok {
			matches := FilterPrefix(KeysFromTree(current), w)
			switch len(matches) {
			case 1:
				name = matches[0]
				node = current[name]
			case 0:
				return nil, &UnknownCommandError{Word: w, Suggestions: Suggest(current, w)}
			default:
				return nil, &AmbiguousCommandError{Word: w, Matches: matches}
			}
		}
		out = append(out, name)
		if node.DynamicFn != nil || node.Args {
			// Keyword children still resolve; anything else is a value.
			if i+1 < len(words) {
				if _, ok := node.Children[words[i+1]]; !ok && len(FilterPrefix(KeysOf(node.Children), words[i+1])) != 1 {
					return append(out, words[i+1:]...), nil
				}
			}
		}
		current = node.Children
	}
	return out, nil
}

// Suggest returns up to three commands of tree closest to word.
func Suggest(tree map[string]*Node, word string) []string {
	if word == "" {
		return nil
	}
	ranks := fuzzy.RankFindFold(word, KeysOf(tree))
	if len(ranks) == 0 {
		// Fall back to edit distance for typos that are not subsequences.
		keys := KeysFromTree(tree)
		type scored struct {
			name string
			dist int
		}
		var near []scored
		for _, k := range keys {
			if d := fuzzy.LevenshteinDistance(strings.ToLower(word), k); d <= 2 {
				near = append(near, scored{k, d})
			}
		}
		sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })
		var out []string
		for _, c := range near {
			out = append(out, c.name)
		}
		return firstN(out, 3)
	}
	sort.Sort(ranks)
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return firstN(out, 3)
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// WriteHelp prints aligned completion candidates to w.
// The entire output is built as a single string and written in one call
// so that readline's wrapWriter triggers only one Refresh cycle.
func WriteHelp(w io.Writer, candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	maxWidth := 20
	for _, c := range candidates {
		if len(c.Name)+2 > maxWidth {
			maxWidth = len(c.Name) + 2
		}
	}
	var sb strings.Builder
	sb.WriteString("Possible completions:\n")
	for _, c := range candidates {
		if c.Desc != "" {
			fmt.Fprintf(&sb, "  %-*s %s\n", maxWidth, c.Name, c.Desc)
		} else {
			fmt.Fprintf(&sb, "  %s\n", c.Name)
		}
	}
	io.WriteString(w, sb.String())
}

// WriteTreeHelp writes self-generating help for a tree path.
func WriteTreeHelp(w io.Writer, header string, tree map[string]*Node, path ...string) {
	fmt.Fprintln(w, header)
	current := tree
	for _, p := range path {
		node, ok := current[p]
		if !ok {
			return
		}
		if node.Children == nil {
			return
		}
		current = node.Children
	}
	WriteHelp(w, HelpCandidates(current))
}

// CommonPrefix returns the longest shared prefix among the given strings.
func CommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// KeysOf returns an unsorted list of keys from a Node map.
func KeysOf(m map[string]*Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// FilterPrefix returns only items that start with the given prefix.
func FilterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		return items
	}
	var result []string
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			result = append(result, item)
		}
	}
	return result
}
