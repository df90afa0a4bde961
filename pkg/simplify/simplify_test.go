package simplify

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

func render(text string) Result {
	return Render(config.Extract(config.Parse(text)))
}

func TestRenderSingleInterface(t *testing.T) {
	base := `interface HundredGigE0/0/0/10
  description uplink
  mtu 9000
  bundle id 100 mode active
  no shutdown
!
interface HundredGigE0/0/0/10.500 l2transport
  description mgmt,uplink
  encapsulation dot1q 500
  rewrite ingress tag pop 1 symmetric
!
l2vpn
  bridge group VLAN
    bridge-domain VLAN500
      description mgmt
      interface HundredGigE0/0/0/10.500
      !
    !
  !
!`
	want := "interface HundredGigE0/0/0/10\n" +
		"  description uplink\n" +
		"  mtu 9000\n" +
		"  bundle id 100 mode active\n" +
		"  no shutdown\n" +
		"  switchport mode trunk\n" +
		"  switchport trunk allowed vlan add 500\n" +
		"\n" +
		"vlan database\n" +
		"  vlan 500 name mgmt"

	res := render(base)
	if diff := cmp.Diff(want, res.Text); diff != "" {
		t.Errorf("Text mismatch (-want +got):\n%s", diff)
	}
	if len(res.Findings) != 0 {
		t.Errorf("unexpected findings: %v", res.Findings)
	}
	if res.LintText() != "" {
		t.Errorf("LintText() = %q, want empty", res.LintText())
	}
}

const lintBase = `interface Bundle-Ether100
 description core
!
interface TenGigE0/0/0/1
 description member-a
 bundle id 100 mode active
!
interface Bundle-Ether100.300 l2transport
 encapsulation dot1q 300
 rewrite ingress tag pop 1 symmetric
!
interface Bundle-Ether100.301 l2transport
 encapsulation dot1q 302
!
interface TenGigE0/0/0/2.400 l2transport
 encapsulation dot1q 400
 rewrite ingress tag pop 1 symmetric
!
interface BVI300
 description gw
 ipv4 address 192.0.2.1 255.255.255.0
!
l2vpn
 bridge group VLAN
  bridge-domain VLAN300
   description web
   interface Bundle-Ether100.300
   interface Bundle-Ether100.301
   routed interface BVI301
  !
  bridge-domain VLAN400
   interface TenGigE0/0/0/2.400
  !
 !
!`

func TestRenderGroupsBundleMembers(t *testing.T) {
	want := `interface Bundle-Ether100
  description core
  switchport mode trunk
  switchport trunk allowed vlan add 300
  switchport trunk allowed vlan add 301

interface TenGigE0/0/0/1
  description member-a
  bundle id 100 mode active

interface TenGigE0/0/0/2
  switchport mode trunk
  switchport trunk allowed vlan add 400

interface BVI300
  description gw
  ipv4 address 192.0.2.1 255.255.255.0

vlan database
  vlan 300 name web
  vlan 400`

	if diff := cmp.Diff(want, render(lintBase).Text); diff != "" {
		t.Errorf("Text mismatch (-want +got):\n%s", diff)
	}
}

func TestLint(t *testing.T) {
	res := render(lintBase)
	want := []Finding{
		{Subject: "interface Bundle-Ether100.301 l2transport", Message: "sub-interface number does not match encapsulation tag", Line: 12},
		{Subject: "interface Bundle-Ether100.301 l2transport", Message: "rewrite ingress tag pop 1 symmetric is missing", Line: 12},
		{Subject: "bridge-domain VLAN300", Message: "sub-interface number differs from bridge-domain tag: Bundle-Ether100.301", Line: 28},
		{Subject: "bridge-domain VLAN300", Message: "BVI number differs from bridge-domain tag: BVI301", Line: 29},
	}
	if diff := cmp.Diff(want, res.Findings); diff != "" {
		t.Fatalf("Findings mismatch (-want +got):\n%s", diff)
	}

	wantText := `--- interface Bundle-Ether100.301 l2transport ---
sub-interface number does not match encapsulation tag
rewrite ingress tag pop 1 symmetric is missing
--- bridge-domain VLAN300 ---
sub-interface number differs from bridge-domain tag: Bundle-Ether100.301
BVI number differs from bridge-domain tag: BVI301
`
	if diff := cmp.Diff(wantText, res.LintText()); diff != "" {
		t.Errorf("LintText mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderMergesRepeatedDomain(t *testing.T) {
	base := `interface TenGigE0/0/0/1
 description a
!
interface TenGigE0/0/0/1.300 l2transport
 encapsulation dot1q 300
!
l2vpn
 bridge group VLAN
  bridge-domain VLAN300
   interface TenGigE0/0/0/1.300
  !
  bridge-domain VLAN300
   description web
  !
 !
!`
	want := "interface TenGigE0/0/0/1\n" +
		"  description a\n" +
		"  switchport mode trunk\n" +
		"  switchport trunk allowed vlan add 300\n" +
		"\n" +
		"vlan database\n" +
		"  vlan 300 name web"
	if diff := cmp.Diff(want, render(base).Text); diff != "" {
		t.Errorf("Text mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderEmpty(t *testing.T) {
	res := render("hostname sw1\n")
	if res.Text != "" || len(res.Findings) != 0 {
		t.Errorf("Render() = %+v, want empty", res)
	}
}

// Every statement of a declared interface survives simplification verbatim.
func TestRenderKeepsPassthrough(t *testing.T) {
	m := config.Extract(config.Parse(lintBase))
	out := config.Parse(Render(m).Text)

	for _, ifc := range m.Interfaces {
		if !ifc.Declared {
			continue
		}
		block := out.FindChild("interface " + ifc.Name)
		if block == nil {
			t.Fatalf("interface %s missing from simplified text", ifc.Name)
		}
		for _, st := range ifc.Statements {
			if block.FindChild(st.Text) == nil {
				t.Errorf("interface %s: statement %q lost", ifc.Name, st.Text)
			}
		}
	}
}
