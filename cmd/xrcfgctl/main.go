// xrcfgctl is the remote CLI client for xrcfgd.
//
// It connects to the xrcfgd gRPC API and provides an interactive shell
// for staging switchport-style changes, previewing the generated IOS-XR
// commands and committing them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/change"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/cmdtree"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/grpcapi"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/logging"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "xrcfgd gRPC address")
	flag.Parse()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "xrcfgctl: connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	client := grpcapi.NewClient(conn)

	// Verify connectivity
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	st, err := client.GetStatus(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "xrcfgctl: cannot reach xrcfgd at %s: %v\n", *addr, err)
		os.Exit(1)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "xrcfg"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = "remote"
	}

	c := &ctl{
		client:   client,
		hostname: hostname,
		username: username,
	}
	c.refreshModel()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.prompt(),
		HistoryFile:     "/tmp/xrcfgctl_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{ctl: c},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "xrcfgctl: readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()
	c.rl = rl

	fmt.Printf("xrcfgctl: connected to xrcfgd (uptime: %s)\n", st.GetFields()["uptime"].GetStringValue())
	fmt.Println("Type '?' for help")
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.dispatch(line); err != nil {
			if err == errExit {
				break
			}
			fmt.Fprintf(os.Stderr, "error: %s\n", describeError(err))
		}
	}
}

var errExit = errors.New("exit")

type ctl struct {
	client   *grpcapi.Client
	rl       *readline.Instance
	hostname string
	username string
	// model mirrors the active configuration for completion and the
	// interface and bridge-domain views.
	model *config.BaseModel
}

func (c *ctl) prompt() string {
	return fmt.Sprintf("%s@%s# ", c.username, c.hostname)
}

func (c *ctl) refreshModel() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	text, err := c.client.GetConfig(ctx, "text")
	if err != nil {
		return
	}
	c.model = config.Extract(config.Parse(text))
}

// describeError renders gRPC errors without the status prefix.
func describeError(err error) string {
	if st, ok := status.FromError(err); ok {
		if kind := grpcapi.ErrorKind(err); kind != "" {
			return fmt.Sprintf("%s [%s]", st.Message(), kind)
		}
		return st.Message()
	}
	return err.Error()
}

func (c *ctl) dispatch(line string) error {
	if strings.HasSuffix(line, "?") {
		c.showContextHelp(strings.TrimSuffix(line, "?"))
		return nil
	}

	parts, err := cmdtree.Resolve(cmdtree.OperationalTree, strings.Fields(line))
	if err != nil {
		return err
	}

	switch parts[0] {
	case "show":
		return c.handleShow(parts[1:])

	case "load":
		if len(parts) < 3 || parts[1] != "change" {
			return fmt.Errorf("usage: load change <file>")
		}
		return c.loadChange(parts[2])

	case "generate":
		if len(parts) < 2 {
			return fmt.Errorf("usage: generate <file>")
		}
		return c.generate(parts[1])

	case "preview":
		return c.preview()

	case "commit":
		return c.handleCommit(parts[1:])

	case "rollback":
		return c.handleRollback(parts[1:])

	case "quit", "exit":
		return errExit

	case "help":
		cmdtree.WriteTreeHelp(os.Stdout, "Commands:", cmdtree.OperationalTree)
		return nil

	default:
		return fmt.Errorf("unknown command: %s", parts[0])
	}
}

func (c *ctl) handleShow(args []string) error {
	if len(args) == 0 {
		cmdtree.WriteTreeHelp(os.Stdout, "show: specify what to show", cmdtree.OperationalTree, "show")
		return nil
	}
	ctx := context.Background()

	switch args[0] {
	case "configuration":
		format := "text"
		if len(args) > 1 && args[1] == "flat" {
			format = "flat"
		}
		return c.printConfig(ctx, format)

	case "simplified", "lint":
		return c.printConfig(ctx, args[0])

	case "compare":
		if len(args) > 1 && args[1] == "rollback" {
			if len(args) < 3 {
				return fmt.Errorf("usage: show compare rollback <N>")
			}
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid rollback number: %s", args[2])
			}
			diff, err := c.client.ShowRollback(ctx, int32(n))
			if err != nil {
				return err
			}
			printOrEmpty(diff, "no differences")
			return nil
		}
		diff, err := c.client.ShowCompare(ctx)
		if err != nil {
			return err
		}
		printOrEmpty(diff, "no differences")
		return nil

	case "candidate":
		cand, err := c.client.GetCandidate(ctx)
		if err != nil {
			return err
		}
		printOrEmpty(cand, "no candidate change")
		return nil

	case "history":
		return c.showHistory(ctx)

	case "interface":
		if len(args) < 2 {
			return fmt.Errorf("usage: show interface <name>")
		}
		return c.showInterface(args[1])

	case "summary":
		typ := ""
		if len(args) > 1 {
			typ = args[1]
		}
		return c.showSummary(typ)

	case "bridge-domain":
		if len(args) < 2 {
			return fmt.Errorf("usage: show bridge-domain <vlan>")
		}
		return c.showBridgeDomain(args[1])

	case "events":
		return c.showEvents(ctx, args[1:])

	case "status":
		return c.showStatus(ctx)

	default:
		return fmt.Errorf("unknown show target: %s", args[0])
	}
}

func printOrEmpty(text, empty string) {
	if strings.TrimSpace(text) == "" {
		fmt.Println(empty)
		return
	}
	fmt.Print(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Println()
	}
}

func (c *ctl) printConfig(ctx context.Context, format string) error {
	text, err := c.client.GetConfig(ctx, format)
	if err != nil {
		return err
	}
	printOrEmpty(text, "no configuration")
	return nil
}

func (c *ctl) showHistory(ctx context.Context) error {
	st, err := c.client.ListHistory(ctx)
	if err != nil {
		return err
	}
	var out struct {
		Entries []struct {
			Index     int    `json:"index"`
			ID        string `json:"id"`
			Timestamp string `json:"timestamp"`
			Comment   string `json:"comment"`
		} `json:"entries"`
	}
	if err := grpcapi.DecodeStruct(st, &out); err != nil {
		return err
	}
	if len(out.Entries) == 0 {
		fmt.Println("no history")
		return nil
	}
	for _, e := range out.Entries {
		fmt.Printf("%3d  %s  %s  %s\n", e.Index, e.Timestamp, e.ID, e.Comment)
	}
	return nil
}

func (c *ctl) showInterface(name string) error {
	c.refreshModel()
	if c.model == nil {
		return fmt.Errorf("configuration not available")
	}
	ifc := c.model.Interface(name)
	if ifc == nil || !ifc.Declared {
		return fmt.Errorf("interface %s not found", name)
	}
	fmt.Printf("Interface %s (line %d)\n", ifc.Name, ifc.Line)
	if ifc.HasDescription {
		fmt.Printf("  Description: %s\n", ifc.Description)
	}
	if ifc.Bundle != nil {
		fmt.Printf("  Member of:   %s\n", ifc.Bundle.Owner())
	}
	if vlans := c.model.AttachedVLANs(name); len(vlans) > 0 {
		fmt.Printf("  VLANs:       %s\n", change.FormatVLANRanges(vlans))
	}
	for _, sub := range ifc.SubInterfaces {
		domain := "-"
		if d := c.model.MemberDomain(sub.Name()); d != nil {
			domain = d.Name()
		}
		fmt.Printf("  %-28s dot1q %-5d %-12s %s\n", sub.Name(), sub.Encapsulation, domain, sub.Description)
	}
	return nil
}

func (c *ctl) showSummary(typ string) error {
	c.refreshModel()
	if c.model == nil {
		return fmt.Errorf("configuration not available")
	}
	return writeSummary(os.Stdout, c.model, typ)
}

// writeSummary lists declared interfaces of one type (all when typ is
// empty) with their attached VLANs in range form.
func writeSummary(w io.Writer, m *config.BaseModel, typ string) error {
	names := m.InterfacesOfType(typ)
	if len(names) == 0 {
		if typ != "" {
			return fmt.Errorf("no interfaces of type %s", typ)
		}
		fmt.Fprintln(w, "no interfaces")
		return nil
	}
	fmt.Fprintf(w, "%-28s %-24s %s\n", "Interface", "VLANs", "Description")
	for _, name := range names {
		vlans := change.FormatVLANRanges(m.AttachedVLANs(name))
		fmt.Fprintf(w, "%-28s %-24s %s\n", name, vlans, m.Interface(name).Description)
	}
	return nil
}

func (c *ctl) showBridgeDomain(arg string) error {
	vlan, err := strconv.Atoi(strings.TrimPrefix(arg, config.BridgeGroupName))
	if err != nil {
		return fmt.Errorf("invalid VLAN: %s", arg)
	}
	c.refreshModel()
	if c.model == nil {
		return fmt.Errorf("configuration not available")
	}
	d := c.model.Domain(vlan)
	if d == nil {
		return fmt.Errorf("bridge-domain %s%d not found", config.BridgeGroupName, vlan)
	}
	fmt.Printf("Bridge-domain %s (line %d)\n", d.Name(), d.Line)
	if d.HasDescription {
		fmt.Printf("  Description: %s\n", d.Description)
	}
	for _, m := range d.Members {
		if m.Routed {
			fmt.Printf("  routed interface %s\n", m.Name)
			continue
		}
		fmt.Printf("  interface %s\n", m.Name)
	}
	return nil
}

func (c *ctl) showEvents(ctx context.Context, args []string) error {
	limit := 50
	filter := map[string]string{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "type":
			if i+1 < len(args) {
				i++
				filter["type"] = args[i]
			}
		case "interface":
			if i+1 < len(args) {
				i++
				filter["interface"] = args[i]
			}
		default:
			if v, err := strconv.Atoi(args[i]); err == nil {
				limit = v
			}
		}
	}

	st, err := c.client.RecentEvents(ctx, limit, filter)
	if err != nil {
		return err
	}
	var out struct {
		Events []logging.EventRecord `json:"events"`
	}
	if err := grpcapi.DecodeStruct(st, &out); err != nil {
		return err
	}
	if len(out.Events) == 0 {
		fmt.Println("no events recorded")
		return nil
	}
	for _, e := range out.Events {
		detail := e.Message
		if e.Kind != "" {
			detail = fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}
		fmt.Printf("%s %-8s %-6s %s\n", e.Time.Format(time.DateTime), e.Type, e.Source, detail)
	}
	fmt.Printf("(%d events shown)\n", len(out.Events))
	return nil
}

func (c *ctl) showStatus(ctx context.Context) error {
	st, err := c.client.GetStatus(ctx)
	if err != nil {
		return err
	}
	f := st.GetFields()
	fmt.Printf("Version:         %s\n", f["version"].GetStringValue())
	fmt.Printf("Uptime:          %s\n", f["uptime"].GetStringValue())
	fmt.Printf("Interfaces:      %d\n", int(f["interfaces"].GetNumberValue()))
	fmt.Printf("Bridge-domains:  %d\n", int(f["bridge_domains"].GetNumberValue()))
	fmt.Printf("History entries: %d\n", int(f["history_size"].GetNumberValue()))
	fmt.Printf("Candidate:       %v\n", f["dirty"].GetBoolValue())
	return nil
}

func (c *ctl) loadChange(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := c.client.SetChange(context.Background(), string(data))
	if err != nil {
		return err
	}
	printOrEmpty(out, "change generates no commands")
	return nil
}

func (c *ctl) generate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	st, err := c.client.GenerateChangeConfig(context.Background(), "", string(data))
	if err != nil {
		return err
	}
	printOrEmpty(st.GetFields()["changeOutput"].GetStringValue(), "change generates no commands")
	return nil
}

func (c *ctl) preview() error {
	ctx := context.Background()
	cand, err := c.client.GetCandidate(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cand) == "" {
		fmt.Println("no candidate change")
		return nil
	}
	st, err := c.client.GenerateChangeConfig(ctx, "", cand)
	if err != nil {
		return err
	}
	printOrEmpty(st.GetFields()["changeOutput"].GetStringValue(), "change generates no commands")
	return nil
}

func (c *ctl) handleCommit(args []string) error {
	ctx := context.Background()
	if len(args) > 0 && args[0] == "check" {
		if err := c.client.CommitCheck(ctx); err != nil {
			return fmt.Errorf("commit check failed: %s", describeError(err))
		}
		fmt.Println("configuration check succeeds")
		return nil
	}

	var comment string
	if len(args) > 1 && args[0] == "comment" {
		comment = strings.Join(args[1:], " ")
	}
	st, err := c.client.Commit(ctx, comment)
	if err != nil {
		return fmt.Errorf("commit failed: %s", describeError(err))
	}
	if msg := st.GetFields()["message"].GetStringValue(); msg != "" {
		fmt.Println(msg)
		return nil
	}
	c.refreshModel()
	fmt.Println("commit complete")
	return nil
}

func (c *ctl) handleRollback(args []string) error {
	n := 0
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid rollback number: %s", args[0])
		}
		n = v
	}
	st, err := c.client.Rollback(context.Background(), int32(n))
	if err != nil {
		return err
	}
	c.refreshModel()
	fmt.Println(st.GetFields()["message"].GetStringValue())
	return nil
}

// --- Completion ---

type completer struct {
	ctl *ctl
}

// Do implements readline.AutoCompleter.
func (rc *completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	words, partial := splitPartial(text)

	cands := cmdtree.CompleteFromTree(cmdtree.OperationalTree, words, partial, rc.ctl.model)
	if len(cands) == 0 {
		return nil, 0
	}

	var result [][]rune
	for _, c := range cands {
		suffix := c[len(partial):]
		result = append(result, []rune(suffix+" "))
	}
	return result, len(partial)
}

// splitPartial separates the completed words of text from the word being
// typed.
func splitPartial(text string) ([]string, string) {
	words := strings.Fields(text)
	trailingSpace := len(text) > 0 && text[len(text)-1] == ' '
	if trailingSpace || len(words) == 0 {
		return words, ""
	}
	return words[:len(words)-1], words[len(words)-1]
}

// --- Context help ---

func (c *ctl) showContextHelp(prefix string) {
	words, partial := splitPartial(prefix)
	if resolved, err := cmdtree.Resolve(cmdtree.OperationalTree, words); err == nil {
		words = resolved
	}

	cands := cmdtree.CompleteFromTreeWithDesc(cmdtree.OperationalTree, words, partial, c.model)
	if len(cands) == 0 {
		fmt.Println("  (no help available)")
		if partial != "" {
			var unk *cmdtree.UnknownCommandError
			if _, err := cmdtree.Resolve(cmdtree.OperationalTree, append(words, partial)); errors.As(err, &unk) && len(unk.Suggestions) > 0 {
				fmt.Printf("  did you mean: %s\n", strings.Join(unk.Suggestions, ", "))
			}
		}
		return
	}
	cmdtree.WriteHelp(c.rl.Stdout(), cands)
}
