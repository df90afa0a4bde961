package change

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

// Plan is the computed difference between a base model and the desired
// state of a DirectiveSet.
type Plan struct {
	// Blocks are base-interface statements to emit, in order of first
	// reference.
	Blocks    []InterfaceBlock
	Removals  []Removal
	Additions []Addition
	// Domains touched by any membership change, tag ascending.
	Domains []*DomainChange
}

// InterfaceBlock is an "interface <name>" block of changed statements.
type InterfaceBlock struct {
	Name       string
	Statements []Statement
}

// Removal drops an l2transport sub-interface.
type Removal struct {
	Interface string
	VLAN      int
	// SubInterface is false when only a bridge-domain membership exists.
	SubInterface bool
}

// Name returns the sub-interface name.
func (r Removal) Name() string { return fmt.Sprintf("%s.%d", r.Interface, r.VLAN) }

// Addition creates an l2transport sub-interface.
type Addition struct {
	Interface   string
	VLAN        int
	Description string
}

// Name returns the sub-interface name.
func (a Addition) Name() string { return fmt.Sprintf("%s.%d", a.Interface, a.VLAN) }

// DomainChange is the membership delta of one bridge-domain.
type DomainChange struct {
	VLAN           int
	New            bool
	Description    string
	HasDescription bool
	Removed        []string
	Added          []string
	AddedRouted    []string
}

// Empty reports whether the plan produces no commands.
func (p *Plan) Empty() bool {
	return len(p.Blocks) == 0 && len(p.Removals) == 0 && len(p.Additions) == 0 && len(p.Domains) == 0
}

// NewPlan computes the plan for a validated DirectiveSet.
func NewPlan(base *config.BaseModel, set *DirectiveSet) *Plan {
	p := &Plan{}
	domains := make(map[int]*DomainChange)
	domain := func(vlan int) *DomainChange {
		if dc, ok := domains[vlan]; ok {
			return dc
		}
		dc := &DomainChange{VLAN: vlan}
		existing := base.Domain(vlan)
		dc.New = existing == nil
		if name, ok := set.VLANName(vlan); ok {
			dc.Description, dc.HasDescription = name, true
		} else if existing != nil && existing.HasDescription {
			dc.Description, dc.HasDescription = existing.Description, true
		}
		domains[vlan] = dc
		return dc
	}

	for _, d := range set.Interfaces {
		bif := base.Interface(d.Name)

		if stmts := changedStatements(bif, d.Passthrough); len(stmts) > 0 {
			p.Blocks = append(p.Blocks, InterfaceBlock{Name: d.Name, Statements: stmts})
		}

		if d.IsBVI() {
			bd := base.Domain(d.BVI)
			if bd == nil || !bd.HasMember(d.Name) {
				dc := domain(d.BVI)
				dc.AddedRouted = append(dc.AddedRouted, d.Name)
			}
			continue
		}
		if !d.HasVLANOps() {
			continue
		}

		current := base.AttachedVLANs(d.Name)
		desired := d.DesiredVLANs(current)

		for _, v := range lo.Without(current, desired...) {
			r := Removal{Interface: d.Name, VLAN: v, SubInterface: base.HasSubInterface(d.Name, v)}
			p.Removals = append(p.Removals, r)
			if bd := base.MemberDomain(r.Name()); bd != nil {
				dc := domain(bd.VLAN)
				dc.Removed = append(dc.Removed, r.Name())
			}
		}

		ifDesc := d.Description
		if !d.HasDescription && bif != nil {
			ifDesc = bif.Description
		}
		for _, v := range lo.Without(desired, current...) {
			a := Addition{Interface: d.Name, VLAN: v, Description: ifDesc}
			if name, ok := vlanName(base, set, v); ok {
				a.Description = name + "," + ifDesc
			}
			p.Additions = append(p.Additions, a)
			dc := domain(v)
			dc.Added = append(dc.Added, a.Name())
		}
	}

	for _, dc := range domains {
		p.Domains = append(p.Domains, dc)
	}
	sort.Slice(p.Domains, func(i, j int) bool { return p.Domains[i].VLAN < p.Domains[j].VLAN })
	return p
}

// vlanName prefers the vlan database of the change input, then the
// description of an existing bridge-domain.
func vlanName(base *config.BaseModel, set *DirectiveSet, vlan int) (string, bool) {
	if name, ok := set.VLANName(vlan); ok {
		return name, true
	}
	if bd := base.Domain(vlan); bd != nil && bd.HasDescription {
		return bd.Description, true
	}
	return "", false
}

// changedStatements drops statements already present verbatim on the base
// interface.
func changedStatements(bif *config.Interface, stmts []Statement) []Statement {
	var out []Statement
	for _, st := range stmts {
		if bif != nil && hasStatement(bif.Statements, st) {
			continue
		}
		out = append(out, st)
	}
	return out
}

func hasStatement(nodes []*config.Node, st Statement) bool {
	for _, n := range nodes {
		if n.Text != st.Text {
			continue
		}
		if len(st.Children) == 0 {
			return true
		}
		a := &config.ConfigTree{Children: n.Children}
		b := &config.ConfigTree{Children: st.Children}
		if a.Format() == b.Format() {
			return true
		}
	}
	return false
}
