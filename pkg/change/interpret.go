package change

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

var (
	interfaceRe   = regexp.MustCompile(`^interface\s+(\S+)$`)
	descriptionRe = regexp.MustCompile(`^description\s+(.+)$`)
	modeRe        = regexp.MustCompile(`^switchport mode\s+(.+)$`)
	trunkRe       = regexp.MustCompile(`^switchport trunk allowed vlan (add|remove)\s+(.+)$`)
	trunkNoneRe   = regexp.MustCompile(`^switchport trunk allowed vlan none$`)
	vlanNamedRe   = regexp.MustCompile(`^vlan\s+(\S+)\s+name\s+(.+)$`)
	vlanBareRe    = regexp.MustCompile(`^vlan\s+(\S+)(?:\s+name)?\s*$`)
)

// ParseInput normalizes the indentation of a change input and parses it.
func ParseInput(input string) *config.ConfigTree {
	return config.Parse(config.NormalizeIndent(input))
}

// Interpret turns a parsed change input into a DirectiveSet and validates
// it against base. The first problem found is returned as a
// *ValidationError.
func Interpret(tree *config.ConfigTree, base *config.BaseModel) (*DirectiveSet, error) {
	set, err := collect(tree)
	if err != nil {
		return nil, err
	}
	if err := validate(set, base); err != nil {
		return nil, err
	}
	return set, nil
}

// collect performs the syntactic pass, in document order.
func collect(tree *config.ConfigTree) (*DirectiveSet, error) {
	set := newDirectiveSet()
	for _, node := range tree.Children {
		switch {
		case node.Text == "vlan database":
			for _, child := range node.Children {
				if err := collectVLAN(child, set); err != nil {
					return nil, err
				}
			}
		case strings.HasPrefix(node.Text, "vlan "):
			if err := collectVLAN(node, set); err != nil {
				return nil, err
			}
		case interfaceRe.MatchString(node.Text):
			name := interfaceRe.FindStringSubmatch(node.Text)[1]
			if err := collectInterface(name, node, set); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

func collectVLAN(node *config.Node, set *DirectiveSet) error {
	if !strings.HasPrefix(node.Text, "vlan ") {
		return nil
	}
	if m := vlanNamedRe.FindStringSubmatch(node.Text); m != nil {
		id, err := parseVLAN(m[1], m[1])
		if err != nil {
			ve := err.(*ValidationError)
			ve.Line = node.Line
			return ve
		}
		set.VLANs[id] = &VLANEntry{ID: id, Name: strings.TrimSpace(m[2]), Line: node.Line}
		return nil
	}
	if m := vlanBareRe.FindStringSubmatch(node.Text); m != nil {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return &ValidationError{Kind: InvalidVlanID, Text: m[1], Line: node.Line}
		}
		return &ValidationError{Kind: VlanNameRequired, VLAN: id, Line: node.Line}
	}
	return &ValidationError{Kind: InvalidVlanID, Text: node.Text, Line: node.Line}
}

func collectInterface(name string, node *config.Node, set *DirectiveSet) error {
	if strings.Contains(name, ".") {
		return &ValidationError{Kind: InvalidInterfaceName, Interface: name, Text: name, Line: node.Line}
	}
	if config.IsBVIName(name) {
		if _, ok := config.BVINumber(name); !ok {
			return &ValidationError{Kind: InvalidInterfaceName, Interface: name, Text: name, Line: node.Line}
		}
	}

	_, known := set.byName[name]
	d := set.ensureInterface(name, node.Line)

	if node.IsLeaf {
		if !d.IsBVI() {
			return &ValidationError{Kind: EmptyInterfaceBlock, Interface: name, Line: node.Line}
		}
		if !known {
			d.Bare = true
		}
		return nil
	}
	d.Bare = false

	if d.IsBVI() {
		for _, child := range node.Children {
			if child.IsLeaf && child.Text == "exit" {
				continue
			}
			if m := descriptionRe.FindStringSubmatch(child.Text); m != nil && child.IsLeaf {
				setDescription(d, strings.TrimSpace(m[1]), child.Line)
				continue
			}
			d.Passthrough = append(d.Passthrough, statementOf(child))
		}
		return nil
	}

	recognized := 0
	for _, child := range node.Children {
		if child.IsLeaf && child.Text == "exit" {
			continue
		}
		if err := collectStatement(d, child); err != nil {
			return err
		}
		recognized++
	}
	if recognized == 0 {
		return &ValidationError{Kind: EmptyInterfaceBlock, Interface: name, Line: node.Line}
	}
	return nil
}

func setDescription(d *InterfaceDirective, desc string, line int) {
	d.Description = desc
	d.HasDescription = true
	d.DescriptionLine = line
	d.Passthrough = append(d.Passthrough, Statement{Text: "description " + desc, Line: line})
}

func statementOf(n *config.Node) Statement {
	return Statement{Text: n.Text, Line: n.Line, Children: n.Children}
}

func collectStatement(d *InterfaceDirective, n *config.Node) error {
	text := n.Text
	if !n.IsLeaf {
		d.Passthrough = append(d.Passthrough, statementOf(n))
		return nil
	}

	switch {
	case descriptionRe.MatchString(text):
		setDescription(d, strings.TrimSpace(descriptionRe.FindStringSubmatch(text)[1]), n.Line)
	case text == "switchport mode trunk":
		d.TrunkMode = true
	case modeRe.MatchString(text):
		mode := modeRe.FindStringSubmatch(text)[1]
		return &ValidationError{Kind: UnsupportedSwitchportMode, Interface: d.Name, Text: mode, Line: n.Line}
	case strings.HasPrefix(text, "switchport access"):
		return &ValidationError{Kind: UnsupportedSwitchportMode, Interface: d.Name, Text: "access", Line: n.Line}
	case trunkNoneRe.MatchString(text):
		d.Ops = append(d.Ops, VLANOp{Kind: OpClear, Line: n.Line})
	case trunkRe.MatchString(text):
		m := trunkRe.FindStringSubmatch(text)
		vlans, err := ParseVLANList(m[2])
		if err != nil {
			ve := err.(*ValidationError)
			ve.Interface = d.Name
			ve.Line = n.Line
			return ve
		}
		kind := OpAdd
		if m[1] == "remove" {
			kind = OpRemove
		}
		d.Ops = append(d.Ops, VLANOp{Kind: kind, VLANs: vlans, Line: n.Line})
	case strings.HasPrefix(text, "switchport"):
		return &ValidationError{Kind: UnsupportedSwitchportMode, Interface: d.Name, Text: text, Line: n.Line}
	default:
		d.Passthrough = append(d.Passthrough, statementOf(n))
	}
	return nil
}

// validate performs the semantic pass: interfaces in order of first
// reference, operations in document order.
func validate(set *DirectiveSet, base *config.BaseModel) error {
	for _, d := range set.Interfaces {
		if d.IsBVI() {
			if base.Domain(d.BVI) == nil {
				if _, ok := set.VLANs[d.BVI]; !ok {
					return &ValidationError{Kind: VlanNotInDatabase, Interface: d.Name, VLAN: d.BVI, Line: d.Line}
				}
			}
			continue
		}

		bif := base.Interface(d.Name)
		if bif != nil && bif.Bundle != nil && d.HasVLANOps() {
			return &ValidationError{
				Kind:      BundledInterfaceRejected,
				Interface: d.Name,
				BundleID:  bif.Bundle.ID,
				Line:      d.Ops[0].Line,
			}
		}

		current := base.AttachedVLANs(d.Name)
		toAdd := lo.Without(d.DesiredVLANs(current), current...)
		for _, op := range d.Ops {
			switch op.Kind {
			case OpRemove:
				for _, v := range op.VLANs {
					if lo.Contains(current, v) {
						continue
					}
					line := op.Line
					if bif != nil && bif.Declared {
						line = bif.Line
					}
					return &ValidationError{Kind: VlanNotPresentInBase, Interface: d.Name, VLAN: v, Line: line}
				}
			case OpAdd:
				for _, v := range op.VLANs {
					if !lo.Contains(toAdd, v) {
						continue
					}
					if _, ok := set.VLANs[v]; ok || base.Domain(v) != nil {
						continue
					}
					return &ValidationError{Kind: VlanNotInDatabase, Interface: d.Name, VLAN: v, Line: op.Line}
				}
			}
		}

		if !d.HasDescription && (bif == nil || !bif.HasDescription) {
			return &ValidationError{Kind: MissingDescription, Interface: d.Name, Line: d.Line}
		}
	}
	return nil
}
