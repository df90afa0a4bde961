package change

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

func lines(s ...string) string { return strings.Join(s, "\n") }

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name: "add and remove",
			input: `vlan database
  vlan 500 name new
interface FortyGigE0/0/0/46
  switchport mode trunk
  switchport trunk allowed vlan add 500
  switchport trunk allowed vlan remove 300
`,
			want: lines(
				"no interface FortyGigE0/0/0/46.300 l2transport",
				"",
				"interface FortyGigE0/0/0/46.500 l2transport",
				"  description new,To:server1",
				"  encapsulation dot1q 500",
				"  rewrite ingress tag pop 1 symmetric",
				"exit",
				"",
				"l2vpn",
				"  bridge group VLAN",
				"    bridge-domain VLAN300",
				"      description old",
				"      no interface FortyGigE0/0/0/46.300",
				"    exit",
				"    bridge-domain VLAN500",
				"      description new",
				"      interface FortyGigE0/0/0/46.500",
				"      exit",
				"    exit",
				"  exit",
				"exit",
			),
		},
		{
			name: "none removes everything",
			input: `interface FortyGigE0/0/0/46
  switchport trunk allowed vlan none
`,
			want: lines(
				"no interface FortyGigE0/0/0/46.300 l2transport",
				"no interface FortyGigE0/0/0/46.400 l2transport",
				"",
				"l2vpn",
				"  bridge group VLAN",
				"    bridge-domain VLAN300",
				"      description old",
				"      no interface FortyGigE0/0/0/46.300",
				"    exit",
				"    bridge-domain VLAN400",
				"      description web",
				"      no interface FortyGigE0/0/0/46.400",
				"    exit",
				"  exit",
				"exit",
			),
		},
		{
			name: "none then add",
			input: `vlan database
  vlan 500 name new
interface FortyGigE0/0/0/46
  switchport trunk allowed vlan none
  switchport trunk allowed vlan add 500
`,
			want: lines(
				"no interface FortyGigE0/0/0/46.300 l2transport",
				"no interface FortyGigE0/0/0/46.400 l2transport",
				"",
				"interface FortyGigE0/0/0/46.500 l2transport",
				"  description new,To:server1",
				"  encapsulation dot1q 500",
				"  rewrite ingress tag pop 1 symmetric",
				"exit",
				"",
				"l2vpn",
				"  bridge group VLAN",
				"    bridge-domain VLAN300",
				"      description old",
				"      no interface FortyGigE0/0/0/46.300",
				"    exit",
				"    bridge-domain VLAN400",
				"      description web",
				"      no interface FortyGigE0/0/0/46.400",
				"    exit",
				"    bridge-domain VLAN500",
				"      description new",
				"      interface FortyGigE0/0/0/46.500",
				"      exit",
				"    exit",
				"  exit",
				"exit",
			),
		},
		{
			name: "new interface into existing domain",
			input: `interface TenGigE0/0/0/9
  description To:db
  switchport trunk allowed vlan add 400
`,
			want: lines(
				"interface TenGigE0/0/0/9",
				"  description To:db",
				"exit",
				"",
				"interface TenGigE0/0/0/9.400 l2transport",
				"  description web,To:db",
				"  encapsulation dot1q 400",
				"  rewrite ingress tag pop 1 symmetric",
				"exit",
				"",
				"l2vpn",
				"  bridge group VLAN",
				"    bridge-domain VLAN400",
				"      description web",
				"      interface TenGigE0/0/0/9.400",
				"      exit",
				"    exit",
				"  exit",
				"exit",
			),
		},
		{
			name: "two interfaces with descriptions and deltas",
			input: `vlan database
  vlan 500 name new
interface FortyGigE0/0/0/46
  description To:server1-b
  switchport trunk allowed vlan remove 400
  switchport trunk allowed vlan add 500
interface TenGigE0/0/0/9
  description To:db
  switchport trunk allowed vlan add 500
`,
			want: lines(
				"interface FortyGigE0/0/0/46",
				"  description To:server1-b",
				"exit",
				"",
				"interface TenGigE0/0/0/9",
				"  description To:db",
				"exit",
				"",
				"no interface FortyGigE0/0/0/46.400 l2transport",
				"",
				"interface FortyGigE0/0/0/46.500 l2transport",
				"  description new,To:server1-b",
				"  encapsulation dot1q 500",
				"  rewrite ingress tag pop 1 symmetric",
				"exit",
				"",
				"interface TenGigE0/0/0/9.500 l2transport",
				"  description new,To:db",
				"  encapsulation dot1q 500",
				"  rewrite ingress tag pop 1 symmetric",
				"exit",
				"",
				"l2vpn",
				"  bridge group VLAN",
				"    bridge-domain VLAN400",
				"      description web",
				"      no interface FortyGigE0/0/0/46.400",
				"    exit",
				"    bridge-domain VLAN500",
				"      description new",
				"      interface FortyGigE0/0/0/46.500",
				"      exit",
				"      interface TenGigE0/0/0/9.500",
				"      exit",
				"    exit",
				"  exit",
				"exit",
			),
		},
		{
			name: "passthrough only",
			input: `interface HundredGigE0/0/0/1
  description To:server2
  mru 9216
`,
			want: lines(
				"interface HundredGigE0/0/0/1",
				"  description To:server2",
				"  mru 9216",
				"exit",
			),
		},
		{
			name: "existing statements are skipped",
			input: `interface FortyGigE0/0/0/46
  description To:server1
  mtu 9216
  shutdown
`,
			want: lines(
				"interface FortyGigE0/0/0/46",
				"  shutdown",
				"exit",
			),
		},
		{
			name: "nested passthrough",
			input: `interface FortyGigE0/0/0/46
  service-policy input
    police rate 1 gbps
`,
			want: lines(
				"interface FortyGigE0/0/0/46",
				"  service-policy input",
				"    police rate 1 gbps",
				"exit",
			),
		},
		{
			name: "new bvi",
			input: `vlan database
  vlan 500 name new
interface BVI500
  ipv4 address 10.0.0.1 255.255.255.0
`,
			want: lines(
				"interface BVI500",
				"  ipv4 address 10.0.0.1 255.255.255.0",
				"exit",
				"",
				"l2vpn",
				"  bridge group VLAN",
				"    bridge-domain VLAN500",
				"      description new",
				"      routed interface BVI500",
				"      exit",
				"    exit",
				"  exit",
				"exit",
			),
		},
		{
			name: "bvi already routed",
			input: `interface BVI300
  description gw
`,
			want: lines(
				"interface BVI300",
				"  description gw",
				"exit",
			),
		},
		{
			name: "bvi routed into existing domain",
			input: `interface BVI400
`,
			want: lines(
				"l2vpn",
				"  bridge group VLAN",
				"    bridge-domain VLAN400",
				"      description web",
				"      routed interface BVI400",
				"      exit",
				"    exit",
				"  exit",
				"exit",
			),
		},
		{
			name: "remove then add is a no-op",
			input: `interface FortyGigE0/0/0/46
  switchport trunk allowed vlan remove 300
  switchport trunk allowed vlan add 300
`,
			want: "",
		},
		{
			name: "clear overrides earlier add",
			input: `interface FortyGigE0/0/0/46
  switchport trunk allowed vlan add 600
  switchport trunk allowed vlan none
`,
			want: lines(
				"no interface FortyGigE0/0/0/46.300 l2transport",
				"no interface FortyGigE0/0/0/46.400 l2transport",
				"",
				"l2vpn",
				"  bridge group VLAN",
				"    bridge-domain VLAN300",
				"      description old",
				"      no interface FortyGigE0/0/0/46.300",
				"    exit",
				"    bridge-domain VLAN400",
				"      description web",
				"      no interface FortyGigE0/0/0/46.400",
				"    exit",
				"  exit",
				"exit",
			),
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(testBase, tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateError(t *testing.T) {
	out, err := Generate(testBase, "interface HundredGigE0/0/0/10\n  switchport trunk allowed vlan add 400")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, IsKind(err, BundledInterfaceRejected))
}

// Whatever precedes "none" must not change the result.
func TestGenerateNoneDominates(t *testing.T) {
	const tail = "  switchport trunk allowed vlan none\n  switchport trunk allowed vlan add 500\n"
	header := "vlan database\n  vlan 500 name new\n  vlan 600 name other\ninterface FortyGigE0/0/0/46\n"

	want, err := Generate(testBase, header+tail)
	require.NoError(t, err)

	prefixes := []string{
		"  switchport trunk allowed vlan add 600\n",
		"  switchport trunk allowed vlan remove 300\n",
		"  switchport trunk allowed vlan remove 300 400\n  switchport trunk allowed vlan add 600\n",
		"  switchport trunk allowed vlan none\n  switchport trunk allowed vlan add 300\n",
	}
	for _, prefix := range prefixes {
		got, err := Generate(testBase, header+prefix+tail)
		require.NoError(t, err, prefix)
		assert.Equal(t, want, got, prefix)
	}
}

func TestPlanRemovalOfMembershipOnly(t *testing.T) {
	base := `interface TenGigE0/0/0/5
 description To:legacy
!
l2vpn
 bridge group VLAN
  bridge-domain VLAN700
   description legacy
   interface TenGigE0/0/0/5.700
  !
 !
!`
	got, err := Generate(base, "interface TenGigE0/0/0/5\n  switchport trunk allowed vlan none")
	require.NoError(t, err)
	want := lines(
		"l2vpn",
		"  bridge group VLAN",
		"    bridge-domain VLAN700",
		"      description legacy",
		"      no interface TenGigE0/0/0/5.700",
		"    exit",
		"  exit",
		"exit",
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	input := `vlan database
  vlan 500 name new
interface FortyGigE0/0/0/46
  switchport trunk allowed vlan none
  switchport trunk allowed vlan add 500
interface HundredGigE0/0/0/1
  description To:server2
  mru 9216
interface BVI500
  ipv4 address 10.0.0.1 255.255.255.0
interface TenGigE0/0/0/9
  description To:db
  switchport trunk allowed vlan add 400
`
	tree := config.Parse(testBase)
	base := config.Extract(tree)
	set, err := Interpret(ParseInput(input), base)
	require.NoError(t, err)
	plan := NewPlan(base, set)
	require.False(t, plan.Empty())

	applied := Apply(tree, plan)
	next := applied.Format()
	got, err := Generate(next, input)
	require.NoError(t, err)
	assert.Equal(t, "", got, "second pass over:\n%s", next)

	m := config.Extract(config.Parse(next))
	assert.Equal(t, []int{500}, m.AttachedVLANs("FortyGigE0/0/0/46"))
	assert.Equal(t, []int{400}, m.AttachedVLANs("TenGigE0/0/0/9"))
	bd := m.Domain(500)
	require.NotNil(t, bd)
	assert.Equal(t, "new", bd.Description)
	assert.True(t, bd.HasMember("BVI500"))
	assert.False(t, m.Domain(300).HasMember("FortyGigE0/0/0/46.300"))
	sub := m.Interface("FortyGigE0/0/0/46").SubInterface(500)
	require.NotNil(t, sub)
	assert.Equal(t, 500, sub.Encapsulation)
	assert.True(t, sub.Rewrite)
	assert.Equal(t, "new,To:server1", sub.Description)
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	tree := config.Parse(testBase)
	before := tree.Format()
	base := config.Extract(tree)
	set, err := Interpret(ParseInput("interface FortyGigE0/0/0/46\n  switchport trunk allowed vlan none"), base)
	require.NoError(t, err)
	Apply(tree, NewPlan(base, set))
	assert.Equal(t, before, tree.Format())
}

func TestApplyRemovesMemberFromRepeatedDomain(t *testing.T) {
	baseText := `interface TenGigE0/0/0/1
 description To:db
!
interface TenGigE0/0/0/1.300 l2transport
 description web,To:db
 encapsulation dot1q 300
 rewrite ingress tag pop 1 symmetric
!
l2vpn
 bridge group VLAN
  bridge-domain VLAN300
   description web
  !
  bridge-domain VLAN300
   interface TenGigE0/0/0/1.300
   !
  !
 !
!`
	tree := config.Parse(baseText)
	base := config.Extract(tree)
	require.True(t, base.Domain(300).HasMember("TenGigE0/0/0/1.300"))

	set, err := Interpret(ParseInput("interface TenGigE0/0/0/1\n  switchport trunk allowed vlan remove 300"), base)
	require.NoError(t, err)
	applied := config.Extract(Apply(tree, NewPlan(base, set)))

	assert.False(t, applied.Domain(300).HasMember("TenGigE0/0/0/1.300"))
	assert.Nil(t, applied.MemberDomain("TenGigE0/0/0/1.300"))
	assert.Empty(t, applied.AttachedVLANs("TenGigE0/0/0/1"))
}
