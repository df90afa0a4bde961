package simplify

import (
	"fmt"
	"strings"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

// Finding is an advisory lint result.
type Finding struct {
	// Subject is the block the finding belongs to, for example
	// "interface Te0/0/0/1.300 l2transport".
	Subject string `json:"subject"`
	Message string `json:"message"`
	Line    int    `json:"line"`
}

// Lint checks sub-interfaces and bridge-domains for tag mismatches and
// missing rewrite statements. Findings are grouped by subject: all
// sub-interfaces first, then bridge-domains, in model order.
func Lint(m *config.BaseModel) []Finding {
	var out []Finding
	for _, ifc := range m.Interfaces {
		for _, sub := range ifc.SubInterfaces {
			subject := fmt.Sprintf("interface %s l2transport", sub.Name())
			if sub.Encapsulation != sub.VLAN {
				out = append(out, Finding{
					Subject: subject,
					Message: "sub-interface number does not match encapsulation tag",
					Line:    sub.Line,
				})
			}
			if !sub.Rewrite {
				out = append(out, Finding{
					Subject: subject,
					Message: config.RewritePopSymmetric + " is missing",
					Line:    sub.Line,
				})
			}
		}
	}

	for _, d := range m.Domains {
		subject := "bridge-domain " + d.Name()
		for _, mem := range d.Members {
			if n, ok := config.BVINumber(mem.Name); ok {
				if n != d.VLAN {
					out = append(out, Finding{
						Subject: subject,
						Message: "BVI number differs from bridge-domain tag: " + mem.Name,
						Line:    mem.Line,
					})
				}
				continue
			}
			_, vlan, err := config.SplitSubInterface(mem.Name)
			if err != nil || vlan != d.VLAN {
				out = append(out, Finding{
					Subject: subject,
					Message: "sub-interface number differs from bridge-domain tag: " + mem.Name,
					Line:    mem.Line,
				})
			}
		}
	}
	return out
}

// LintText renders findings as "--- subject ---" headers, each followed by
// its messages. Empty when there are no findings.
func (r Result) LintText() string {
	return FormatFindings(r.Findings)
}

// FormatFindings renders findings grouped by consecutive subject.
func FormatFindings(findings []Finding) string {
	var b strings.Builder
	for i, f := range findings {
		if i == 0 || findings[i-1].Subject != f.Subject {
			fmt.Fprintf(&b, "--- %s ---\n", f.Subject)
		}
		b.WriteString(f.Message)
		b.WriteByte('\n')
	}
	return b.String()
}
