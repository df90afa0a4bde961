package change

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a validation failure.
type Kind int

const (
	EmptyInterfaceBlock Kind = iota + 1
	UnsupportedSwitchportMode
	MissingDescription
	InvalidVlanRange
	InvalidVlanID
	VlanNotInDatabase
	VlanNotPresentInBase
	BundledInterfaceRejected
	VlanNameRequired
	InvalidInterfaceName
)

var kindNames = map[Kind]string{
	EmptyInterfaceBlock:       "EmptyInterfaceBlock",
	UnsupportedSwitchportMode: "UnsupportedSwitchportMode",
	MissingDescription:        "MissingDescription",
	InvalidVlanRange:          "InvalidVlanRange",
	InvalidVlanID:             "InvalidVlanID",
	VlanNotInDatabase:         "VlanNotInDatabase",
	VlanNotPresentInBase:      "VlanNotPresentInBase",
	BundledInterfaceRejected:  "BundledInterfaceRejected",
	VlanNameRequired:          "VlanNameRequired",
	InvalidInterfaceName:      "InvalidInterfaceName",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ValidationError is the first problem found in a change input. Fields
// not relevant to Kind are zero.
type ValidationError struct {
	Kind      Kind
	Interface string
	VLAN      int
	BundleID  int
	// Text is the offending token or mode, verbatim.
	Text string
	// Line is 1-based; 0 when no line applies.
	Line int
}

func (e *ValidationError) Error() string {
	msg := e.message()
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	return msg
}

func (e *ValidationError) message() string {
	switch e.Kind {
	case EmptyInterfaceBlock:
		return fmt.Sprintf("interface block must contain supported statements: %s", e.Interface)
	case UnsupportedSwitchportMode:
		if e.Text == "access" {
			return fmt.Sprintf("switchport access is not supported: %s", e.Interface)
		}
		if strings.HasPrefix(e.Text, "switchport") {
			return fmt.Sprintf("%s is not supported: %s", e.Text, e.Interface)
		}
		return fmt.Sprintf("switchport mode %s is not supported: %s", e.Text, e.Interface)
	case MissingDescription:
		return fmt.Sprintf("interface requires description: %s", e.Interface)
	case InvalidVlanRange:
		return fmt.Sprintf("invalid VLAN range: %s", e.Text)
	case InvalidVlanID:
		return fmt.Sprintf("invalid VLAN id: %s", e.Text)
	case VlanNotInDatabase:
		return fmt.Sprintf("VLAN %d is not defined in vlan database", e.VLAN)
	case VlanNotPresentInBase:
		return fmt.Sprintf("cannot remove VLAN %d from interface %s: VLAN not present in base config", e.VLAN, e.Interface)
	case BundledInterfaceRejected:
		return fmt.Sprintf("cannot configure VLANs on %s: interface belongs to Bundle %d, configure Bundle-Ether%d instead",
			e.Interface, e.BundleID, e.BundleID)
	case VlanNameRequired:
		if e.VLAN > 0 {
			return fmt.Sprintf("VLAN %d name is required", e.VLAN)
		}
		return "vlan name is required"
	case InvalidInterfaceName:
		return fmt.Sprintf("invalid interface name: %s", e.Text)
	}
	return "invalid change input"
}

// IsKind reports whether err is a ValidationError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}

// AsValidationError unwraps err to a ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
