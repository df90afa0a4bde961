// Package change interprets change input against a base model, validates
// it and generates the device commands that move the base to the desired
// state.
package change

import (
	"sort"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
)

// OpKind is the kind of a trunk VLAN operation.
type OpKind int

const (
	OpAdd OpKind = iota
	OpRemove
	OpClear
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpClear:
		return "none"
	}
	return "unknown"
}

// VLANOp is one "switchport trunk allowed vlan ..." statement.
type VLANOp struct {
	Kind  OpKind
	VLANs []int // empty for OpClear
	Line  int
}

// Statement is a passthrough line from the change input.
type Statement struct {
	Text     string
	Line     int
	Children []*config.Node // set for nested blocks
}

// InterfaceDirective collects everything the change input says about one
// base interface.
type InterfaceDirective struct {
	Name string
	Line int // declaration line in the change input

	Description     string
	HasDescription  bool
	DescriptionLine int

	// Passthrough holds description and unrecognized statements in order.
	Passthrough []Statement
	TrunkMode   bool
	Ops         []VLANOp

	// BVI is n for "interface BVI<n>", 0 otherwise.
	BVI int
	// Bare is set for a BVI declared without a block.
	Bare bool
}

// IsBVI reports whether the directive targets a BVI.
func (d *InterfaceDirective) IsBVI() bool { return d.BVI > 0 }

// HasVLANOps reports whether any trunk operation was given.
func (d *InterfaceDirective) HasVLANOps() bool { return len(d.Ops) > 0 }

// DesiredVLANs folds the operations, in order, over current.
// OpClear discards everything accumulated so far.
func (d *InterfaceDirective) DesiredVLANs(current []int) []int {
	set := make(map[int]struct{}, len(current))
	for _, v := range current {
		set[v] = struct{}{}
	}
	for _, op := range d.Ops {
		switch op.Kind {
		case OpClear:
			clear(set)
		case OpAdd:
			for _, v := range op.VLANs {
				set[v] = struct{}{}
			}
		case OpRemove:
			for _, v := range op.VLANs {
				delete(set, v)
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

// VLANEntry is a "vlan <id> name <name>" line of the vlan database.
type VLANEntry struct {
	ID   int
	Name string
	Line int
}

// DirectiveSet is the interpreted change input.
type DirectiveSet struct {
	// Interfaces in order of first reference.
	Interfaces []*InterfaceDirective
	VLANs      map[int]*VLANEntry

	byName map[string]*InterfaceDirective
}

func newDirectiveSet() *DirectiveSet {
	return &DirectiveSet{
		VLANs:  make(map[int]*VLANEntry),
		byName: make(map[string]*InterfaceDirective),
	}
}

// Interface returns the directive for name, or nil.
func (s *DirectiveSet) Interface(name string) *InterfaceDirective {
	return s.byName[name]
}

func (s *DirectiveSet) ensureInterface(name string, line int) *InterfaceDirective {
	if d, ok := s.byName[name]; ok {
		return d
	}
	d := &InterfaceDirective{Name: name, Line: line}
	if n, ok := config.BVINumber(name); ok {
		d.BVI = n
	}
	s.byName[name] = d
	s.Interfaces = append(s.Interfaces, d)
	return d
}

// VLANName returns the vlan database name for id.
func (s *DirectiveSet) VLANName(id int) (string, bool) {
	if e, ok := s.VLANs[id]; ok {
		return e.Name, true
	}
	return "", false
}
