package change

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Valid 802.1Q VLAN ids.
const (
	MinVLAN = 1
	MaxVLAN = 4094
)

// ParseVLANList expands a VLAN list such as "300 302-305,310" into
// individual ids in token order, without duplicates. Tokens are separated
// by whitespace or commas.
func ParseVLANList(list string) ([]int, error) {
	tokens := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(tokens) == 0 {
		return nil, &ValidationError{Kind: InvalidVlanID, Text: strings.TrimSpace(list)}
	}

	var vlans []int
	for _, tok := range tokens {
		first, last, isRange := strings.Cut(tok, "-")
		if !isRange {
			v, err := parseVLAN(tok, tok)
			if err != nil {
				return nil, err
			}
			vlans = append(vlans, v)
			continue
		}
		start, err1 := strconv.Atoi(first)
		end, err2 := strconv.Atoi(last)
		if err1 != nil || err2 != nil {
			return nil, &ValidationError{Kind: InvalidVlanID, Text: tok}
		}
		// A reversed range is a range error even when its ends are out of bounds.
		if start > end {
			return nil, &ValidationError{Kind: InvalidVlanRange, Text: tok}
		}
		if !validVLAN(start) || !validVLAN(end) {
			return nil, &ValidationError{Kind: InvalidVlanID, Text: tok}
		}
		for v := start; v <= end; v++ {
			vlans = append(vlans, v)
		}
	}
	return lo.Uniq(vlans), nil
}

func parseVLAN(s, token string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || !validVLAN(v) {
		return 0, &ValidationError{Kind: InvalidVlanID, Text: token}
	}
	return v, nil
}

func validVLAN(v int) bool {
	return v >= MinVLAN && v <= MaxVLAN
}

// FormatVLANRanges compresses VLAN ids into "300-302 305" form.
// An empty set renders as "-".
func FormatVLANRanges(vlans []int) string {
	if len(vlans) == 0 {
		return "-"
	}
	sorted := append([]int(nil), vlans...)
	sort.Ints(sorted)
	sorted = lo.Uniq(sorted)

	var segments []string
	start, prev := sorted[0], sorted[0]
	flush := func() {
		if start == prev {
			segments = append(segments, strconv.Itoa(start))
		} else {
			segments = append(segments, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, v := range sorted[1:] {
		if v != prev+1 {
			flush()
			start = v
		}
		prev = v
	}
	flush()
	return strings.Join(segments, " ")
}
