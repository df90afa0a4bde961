package config

import (
	"strconv"
	"strings"
)

// Extract builds the BaseModel from a parsed tree. It never fails:
// statements it does not recognize stay in the interface passthrough or
// are ignored outside interfaces.
func Extract(tree *ConfigTree) *BaseModel {
	m := newBaseModel()

	for _, node := range tree.Children {
		switch {
		case subInterfaceHeaderRe.MatchString(node.Text):
			compileSubInterface(node, m)
		case interfaceHeaderRe.MatchString(node.Text):
			compileInterface(node, m)
		case node.Text == L2VPNHeader && node.IsBlock():
			compileL2VPN(node, m)
		}
	}
	return m
}

// ensureInterface returns the named interface, creating an undeclared
// entry at the end of the document order when it is new.
func (m *BaseModel) ensureInterface(name string) *Interface {
	if ifc, ok := m.byName[name]; ok {
		return ifc
	}
	ifc := &Interface{Name: name}
	m.byName[name] = ifc
	m.Interfaces = append(m.Interfaces, ifc)
	return ifc
}

func compileInterface(node *Node, m *BaseModel) {
	name := interfaceHeaderRe.FindStringSubmatch(node.Text)[1]
	ifc := m.ensureInterface(name)
	if !ifc.Declared {
		ifc.Declared = true
		ifc.Line = node.Line
	}

	for _, child := range node.Children {
		if child.IsLeaf && child.Text == "exit" {
			continue
		}
		ifc.Statements = append(ifc.Statements, child)
		if !child.IsLeaf {
			continue
		}
		if desc, ok := strings.CutPrefix(child.Text, "description "); ok {
			ifc.Description = desc
			ifc.HasDescription = true
			ifc.DescriptionLine = child.Line
			continue
		}
		if sm := bundleIDRe.FindStringSubmatch(child.Text); sm != nil {
			id, err := strconv.Atoi(sm[1])
			if err == nil {
				ifc.Bundle = &BundleMembership{ID: id, Line: child.Line}
			}
		}
	}
}

func compileSubInterface(node *Node, m *BaseModel) {
	sm := subInterfaceHeaderRe.FindStringSubmatch(node.Text)
	vlan, err := strconv.Atoi(sm[2])
	if err != nil {
		return
	}
	parent := m.ensureInterface(sm[1])
	sub := parent.SubInterface(vlan)
	if sub == nil {
		sub = &SubInterface{Parent: sm[1], VLAN: vlan, Line: node.Line}
		parent.SubInterfaces = append(parent.SubInterfaces, sub)
	}

	for _, child := range node.Children {
		if !child.IsLeaf {
			continue
		}
		switch {
		case child.Text == RewritePopSymmetric:
			sub.Rewrite = true
		case encapsulationRe.MatchString(child.Text):
			tag, err := strconv.Atoi(encapsulationRe.FindStringSubmatch(child.Text)[1])
			if err == nil {
				sub.Encapsulation = tag
			}
		default:
			if desc, ok := strings.CutPrefix(child.Text, "description "); ok {
				sub.Description = desc
			}
		}
	}
}

func compileL2VPN(node *Node, m *BaseModel) {
	for _, group := range node.Children {
		if group.Text != BridgeGroupHeader {
			continue
		}
		for _, bd := range group.Children {
			sm := bridgeDomainRe.FindStringSubmatch(bd.Text)
			if sm == nil {
				continue
			}
			vlan, err := strconv.Atoi(sm[1])
			if err != nil {
				continue
			}
			compileBridgeDomain(bd, vlan, m)
		}
	}
}

func compileBridgeDomain(node *Node, vlan int, m *BaseModel) {
	d := m.byVLAN[vlan]
	if d == nil {
		d = &BridgeDomain{VLAN: vlan, Line: node.Line}
		m.byVLAN[vlan] = d
		m.Domains = append(m.Domains, d)
	}

	for _, child := range node.Children {
		if desc, ok := strings.CutPrefix(child.Text, "description "); ok && child.IsLeaf {
			d.Description = desc
			d.HasDescription = true
			continue
		}
		var mem Member
		if sm := memberRe.FindStringSubmatch(child.Text); sm != nil {
			mem = Member{Name: sm[1], Line: child.Line}
		} else if sm := routedMemberRe.FindStringSubmatch(child.Text); sm != nil {
			mem = Member{Name: sm[1], Routed: true, Line: child.Line}
		} else {
			continue
		}
		if d.HasMember(mem.Name) {
			continue
		}
		d.Members = append(d.Members, mem)
		if _, ok := m.members[mem.Name]; !ok {
			m.members[mem.Name] = d
		}
	}
}
