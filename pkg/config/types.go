package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BaseModel is the semantic view of a base configuration, extracted from
// a ConfigTree. It is built once and never mutated afterwards.
type BaseModel struct {
	// Interfaces in document order of first declaration. Parents that are
	// only referenced by a sub-interface appear with Declared == false.
	Interfaces []*Interface
	// Domains in declaration order.
	Domains []*BridgeDomain

	byName  map[string]*Interface
	byVLAN  map[int]*BridgeDomain
	members map[string]*BridgeDomain // member name -> domain
}

// Interface is a physical, bundle or BVI interface.
type Interface struct {
	Name string
	// Declared is false for parents that only own sub-interfaces.
	Declared bool
	Line     int

	Description     string
	HasDescription  bool
	DescriptionLine int

	// Statements holds every child of the interface block in source order,
	// description included.
	Statements []*Node

	Bundle *BundleMembership

	SubInterfaces []*SubInterface
}

// BundleMembership records a "bundle id N mode ..." statement.
type BundleMembership struct {
	ID   int
	Line int
}

// Owner returns the name of the bundle interface.
func (b *BundleMembership) Owner() string {
	return fmt.Sprintf("Bundle-Ether%d", b.ID)
}

// IsBVI reports whether the interface is a bridged virtual interface.
func (i *Interface) IsBVI() bool {
	_, ok := BVINumber(i.Name)
	return ok
}

// Passthrough returns the interface statements other than description.
func (i *Interface) Passthrough() []*Node {
	var out []*Node
	for _, n := range i.Statements {
		if n.IsLeaf && strings.HasPrefix(n.Text, "description ") {
			continue
		}
		out = append(out, n)
	}
	return out
}

// HasStatement reports whether the interface block contains text verbatim.
func (i *Interface) HasStatement(text string) bool {
	return findChild(i.Statements, text) != nil
}

// SubInterface returns the sub-interface for vlan, or nil.
func (i *Interface) SubInterface(vlan int) *SubInterface {
	for _, s := range i.SubInterfaces {
		if s.VLAN == vlan {
			return s
		}
	}
	return nil
}

// SubInterface is an l2transport sub-interface, "<parent>.<vlan>".
type SubInterface struct {
	Parent string
	VLAN   int
	Line   int

	// Encapsulation is the dot1q tag; 0 when absent.
	Encapsulation int
	Description   string
	Rewrite       bool
}

// Name returns the full sub-interface name.
func (s *SubInterface) Name() string {
	return fmt.Sprintf("%s.%d", s.Parent, s.VLAN)
}

// BridgeDomain is an l2vpn bridge-domain named VLAN<tag>.
type BridgeDomain struct {
	VLAN           int
	Description    string
	HasDescription bool
	Line           int
	Members        []Member
}

// Name returns the bridge-domain name.
func (d *BridgeDomain) Name() string {
	return fmt.Sprintf("%s%d", BridgeGroupName, d.VLAN)
}

// HasMember reports whether name is attached to the domain.
func (d *BridgeDomain) HasMember(name string) bool {
	for _, m := range d.Members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Member is a bridge-domain attachment.
type Member struct {
	Name   string
	Routed bool // "routed interface BVI<n>"
	Line   int
}

func newBaseModel() *BaseModel {
	return &BaseModel{
		byName:  make(map[string]*Interface),
		byVLAN:  make(map[int]*BridgeDomain),
		members: make(map[string]*BridgeDomain),
	}
}

// Interface returns the named interface, or nil.
func (m *BaseModel) Interface(name string) *Interface {
	return m.byName[name]
}

// Domain returns the bridge-domain for vlan, or nil.
func (m *BaseModel) Domain(vlan int) *BridgeDomain {
	return m.byVLAN[vlan]
}

// MemberDomain returns the domain a member is attached to, or nil.
func (m *BaseModel) MemberDomain(member string) *BridgeDomain {
	return m.members[member]
}

// AttachedVLANs returns the sorted VLANs attached to a base interface,
// either as l2transport sub-interfaces or as bridge-domain members.
func (m *BaseModel) AttachedVLANs(name string) []int {
	set := make(map[int]struct{})
	if ifc := m.byName[name]; ifc != nil {
		for _, s := range ifc.SubInterfaces {
			set[s.VLAN] = struct{}{}
		}
	}
	for _, d := range m.Domains {
		for _, mem := range d.Members {
			if mem.Routed {
				continue
			}
			base, vlan, err := SplitSubInterface(mem.Name)
			if err == nil && base == name {
				set[vlan] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// HasSubInterface reports whether "<name>.<vlan> l2transport" is declared.
func (m *BaseModel) HasSubInterface(name string, vlan int) bool {
	ifc := m.byName[name]
	return ifc != nil && ifc.SubInterface(vlan) != nil
}

// SplitSubInterface splits "<base>.<n>" into its parts.
func SplitSubInterface(name string) (string, int, error) {
	m := subInterfaceNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", 0, fmt.Errorf("invalid ifname: %s", name)
	}
	vlan, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid ifname: %s", name)
	}
	return m[1], vlan, nil
}

// BVINumber returns n for an interface named "BVI<n>".
func BVINumber(name string) (int, bool) {
	m := bviNameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsBVIName reports whether name uses the BVI prefix, valid or not.
func IsBVIName(name string) bool {
	return strings.HasPrefix(name, "BVI")
}
