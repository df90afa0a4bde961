// xrcfg is the offline command-line front end of the config builder.
//
// It reads IOS-XR base configurations and switchport-style change inputs
// from files or stdin and prints parse trees, analyses, lint reports and
// generated change commands.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/engine"
)

// Build-time variables - can be set via ldflags
var version = "dev"

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	base    string
	change  string
	asJSON  bool
	verbose bool

	stdin  io.Reader
	stdout io.Writer
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	o := &options{stdin: stdin, stdout: stdout}

	root := &cobra.Command{
		Use:   "xrcfg",
		Short: "Build IOS-XR switch configuration from switchport-style changes",
		Long: `xrcfg parses IOS-XR base configurations, reports bridge-domain and
sub-interface findings, and translates switchport-style change inputs into
the IOS-XR commands that implement them. Use "-" to read a file from stdin.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if o.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)

	root.PersistentFlags().StringVarP(&o.base, "base", "b", "", "base configuration file (\"-\" for stdin)")
	root.PersistentFlags().StringVarP(&o.change, "change", "c", "", "change input file (\"-\" for stdin)")
	root.PersistentFlags().BoolVar(&o.asJSON, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "parse [file]",
			Short: "Parse a configuration and print it normalized",
			Args:  cobra.MaximumNArgs(1),
			RunE:  o.runParse,
		},
		&cobra.Command{
			Use:   "analyze [file]",
			Short: "Summarize bridge-domains and print the simplified configuration",
			Args:  cobra.MaximumNArgs(1),
			RunE:  o.runAnalyze,
		},
		&cobra.Command{
			Use:   "lint [file]",
			Short: "Report sub-interface and bridge-domain inconsistencies",
			Args:  cobra.MaximumNArgs(1),
			RunE:  o.runLint,
		},
		&cobra.Command{
			Use:   "generate",
			Short: "Print the IOS-XR commands for a change against a base",
			Args:  cobra.NoArgs,
			RunE:  o.runGenerate,
		},
		&cobra.Command{
			Use:   "apply",
			Short: "Print the base configuration as it looks after a change",
			Args:  cobra.NoArgs,
			RunE:  o.runApply,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "xrcfg %s\n", version)
			},
		},
	)
	return root
}

// read loads path, or stdin for "-".
func (o *options) read(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(o.stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// configArg picks the positional file, then --base, then stdin.
func (o *options) configArg(args []string) (string, error) {
	switch {
	case len(args) == 1:
		return o.read(args[0])
	case o.base != "":
		return o.read(o.base)
	default:
		return o.read("-")
	}
}

func (o *options) baseAndChange() (string, string, error) {
	if o.change == "" {
		return "", "", fmt.Errorf("--change is required")
	}
	if o.base == "-" && o.change == "-" {
		return "", "", fmt.Errorf("--base and --change cannot both read stdin")
	}
	var base string
	if o.base != "" {
		var err error
		if base, err = o.read(o.base); err != nil {
			return "", "", err
		}
	}
	change, err := o.read(o.change)
	if err != nil {
		return "", "", err
	}
	return base, change, nil
}

func (o *options) writeJSON(v any) error {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *options) writeText(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(o.stdout, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(o.stdout)
	}
}

func (o *options) runParse(cmd *cobra.Command, args []string) error {
	text, err := o.configArg(args)
	if err != nil {
		return err
	}
	if o.asJSON {
		return o.writeJSON(engine.ParseConfig(text))
	}
	o.writeText(config.Parse(text).Format())
	return nil
}

func (o *options) runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := o.configArg(args)
	if err != nil {
		return err
	}
	a := engine.AnalyzeConfig(text)
	if o.asJSON {
		return o.writeJSON(a)
	}
	for _, d := range a.Domains {
		fmt.Fprintf(o.stdout, "VLAN%-5d %-20s %s\n", d.VLANTag, d.Description, strings.Join(append(d.Interfaces, d.Routed...), " "))
	}
	if len(a.Domains) > 0 {
		fmt.Fprintln(o.stdout)
	}
	o.writeText(a.SimplifiedConfig)
	if a.LintOutput != "" {
		fmt.Fprintln(o.stdout)
		o.writeText(a.LintOutput)
	}
	return nil
}

func (o *options) runLint(cmd *cobra.Command, args []string) error {
	text, err := o.configArg(args)
	if err != nil {
		return err
	}
	a := engine.AnalyzeConfig(text)
	if o.asJSON {
		return o.writeJSON(a.Findings)
	}
	o.writeText(a.LintOutput)
	return nil
}

func (o *options) runGenerate(cmd *cobra.Command, args []string) error {
	base, change, err := o.baseAndChange()
	if err != nil {
		return err
	}
	c, err := engine.GenerateChangeConfig(base, change)
	if err != nil {
		return err
	}
	if o.asJSON {
		return o.writeJSON(c)
	}
	o.writeText(c.ChangeOutput)
	return nil
}

func (o *options) runApply(cmd *cobra.Command, args []string) error {
	base, change, err := o.baseAndChange()
	if err != nil {
		return err
	}
	newBase, output, err := engine.ApplyChangeConfig(base, change)
	if err != nil {
		return err
	}
	if o.asJSON {
		return o.writeJSON(map[string]string{"config": newBase, "changeOutput": output})
	}
	o.writeText(newBase)
	return nil
}
