package domain

import "sort"

// AttrName is a closed enumeration of the Exchange-style group
// attributes the reconciler manages. Values are the raw directory
// attribute names.
type AttrName string

const (
	AttrAuthOrig             AttrName = "authOrig"
	AttrUnauthOrig           AttrName = "unauthOrig"
	AttrRejectPerms          AttrName = "dLMemRejectPerms"
	AttrSubmitPerms          AttrName = "dLMemSubmitPerms"
	AttrRequireAuth          AttrName = "msExchRequireAuthToSendTo"
	AttrHideFromAddressLists AttrName = "msExchHideFromAddressLists"
)

// CompareRule says how an attribute's current and desired values are
// compared: scalars compare their single value, lists compare as
// order-insensitive sets.
type CompareRule int

const (
	CompareScalar CompareRule = iota
	CompareList
)

// attrRules maps each managed attribute to its comparison rule.
var attrRules = map[AttrName]CompareRule{
	AttrAuthOrig:             CompareList,
	AttrUnauthOrig:           CompareList,
	AttrRejectPerms:          CompareList,
	AttrSubmitPerms:          CompareList,
	AttrRequireAuth:          CompareScalar,
	AttrHideFromAddressLists: CompareScalar,
}

// Rule returns the comparison rule for a managed attribute. Unknown
// names default to scalar comparison.
func (a AttrName) Rule() CompareRule {
	if r, ok := attrRules[a]; ok {
		return r
	}
	return CompareScalar
}

// ManagedAttrs lists the managed attribute names in a fixed order, for
// deterministic diffing and reporting.
func ManagedAttrs() []AttrName {
	return []AttrName{
		AttrAuthOrig,
		AttrUnauthOrig,
		AttrRejectPerms,
		AttrSubmitPerms,
		AttrRequireAuth,
		AttrHideFromAddressLists,
	}
}

// AttributeSet maps attribute names to values. Directory attributes are
// list-valued on the wire, so scalars are single-element slices and an
// unset attribute is an empty slice.
type AttributeSet map[AttrName][]string

// Get returns the values for an attribute, nil when unset.
func (s AttributeSet) Get(name AttrName) []string { return s[name] }

// normalize produces the canonical comparison form for a value list:
// lists are sorted and deduplicated, scalars collapse empty slices and
// [""] to nothing.
func normalize(rule CompareRule, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	if rule == CompareList {
		sort.Strings(out)
		dedup := out[:0]
		var prev string
		for i, v := range out {
			if i == 0 || v != prev {
				dedup = append(dedup, v)
			}
			prev = v
		}
		out = dedup
	}
	return out
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AttrChange records one attribute moving from its current values to
// the desired values.
type AttrChange struct {
	Name   AttrName
	Before []string
	After  []string
}

// DiffAttributes compares desired against current per attribute rule and
// returns only the mismatching subset, in ManagedAttrs order. An
// attribute absent from desired is left alone.
func DiffAttributes(current, desired AttributeSet) []AttrChange {
	var changes []AttrChange
	for _, name := range ManagedAttrs() {
		want, ok := desired[name]
		if !ok {
			continue
		}
		rule := name.Rule()
		cur := normalize(rule, current[name])
		des := normalize(rule, want)
		if !equalValues(cur, des) {
			changes = append(changes, AttrChange{Name: name, Before: cur, After: des})
		}
	}
	return changes
}
