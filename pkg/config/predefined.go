package config

import (
	"regexp"
	"sort"
	"strings"
)

// Statements and names with fixed meaning in switch-style IOS-XR configs.
const (
	// RewritePopSymmetric is the only rewrite form the builder understands.
	RewritePopSymmetric = "rewrite ingress tag pop 1 symmetric"
	// BridgeGroupName is the bridge group holding every VLAN domain.
	BridgeGroupName = "VLAN"

	L2VPNHeader       = "l2vpn"
	BridgeGroupHeader = "bridge group " + BridgeGroupName
	BundleOwnerPrefix = "Bundle-Ether"
)

var (
	subInterfaceHeaderRe = regexp.MustCompile(`^interface ([^.\s]+)\.(\d+) l2transport$`)
	interfaceHeaderRe    = regexp.MustCompile(`^interface (\S+)$`)
	encapsulationRe      = regexp.MustCompile(`^encapsulation dot1q (\d+)$`)
	bundleIDRe           = regexp.MustCompile(`^bundle id (\d+)(?:\s+mode\s+\S+)?$`)
	bridgeDomainRe       = regexp.MustCompile(`^bridge-domain ` + BridgeGroupName + `(\d+)$`)
	memberRe             = regexp.MustCompile(`^interface (\S+)$`)
	routedMemberRe       = regexp.MustCompile(`^routed interface (\S+)$`)
	subInterfaceNameRe   = regexp.MustCompile(`^([^.]+)\.(\d+)$`)
	bviNameRe            = regexp.MustCompile(`^BVI(\d+)$`)
)

// PredefinedInterfaceTypes lists IOS-XR interface name prefixes. Interfaces
// are grouped by these in summaries and shell completion.
var PredefinedInterfaceTypes = []string{
	"GigabitEthernet",
	"TenGigE",
	"TwentyFiveGigE",
	"FortyGigE",
	"FiftyGigE",
	"HundredGigE",
	"TwoHundredGigE",
	"FourHundredGigE",
	"Bundle-Ether",
	"BVI",
	"Loopback",
	"MgmtEth",
}

// InterfaceType returns the predefined type prefix of name, or "".
func InterfaceType(name string) string {
	best := ""
	for _, p := range PredefinedInterfaceTypes {
		if strings.HasPrefix(name, p) && len(p) > len(best) {
			best = p
		}
	}
	return best
}

// InterfaceNames returns the names of declared interfaces, sorted.
func (m *BaseModel) InterfaceNames() []string {
	var names []string
	for _, ifc := range m.Interfaces {
		if ifc.Declared {
			names = append(names, ifc.Name)
		}
	}
	sort.Strings(names)
	return names
}

// InterfaceTypes returns the predefined types of declared interfaces, sorted.
func (m *BaseModel) InterfaceTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for _, name := range m.InterfaceNames() {
		t := InterfaceType(name)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// InterfacesOfType returns declared interface names of type typ, sorted.
// An empty typ matches every interface.
func (m *BaseModel) InterfacesOfType(typ string) []string {
	var names []string
	for _, name := range m.InterfaceNames() {
		if typ == "" || InterfaceType(name) == typ {
			names = append(names, name)
		}
	}
	return names
}
