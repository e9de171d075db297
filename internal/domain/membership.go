package domain

import "sort"

// MemberID is the opaque handle the directory service returns for a
// resolved identity — a distinguished name. Comparison is exact; the
// directory adapter is responsible for returning canonical DNs.
type MemberID string

// MemberSet is a deduplicated set of directory identities. Set
// operations are order-independent; Sorted gives a deterministic view
// for diffing and reports.
type MemberSet map[MemberID]struct{}

// NewMemberSet builds a set from the given identities, dropping
// duplicates.
func NewMemberSet(ids ...MemberID) MemberSet {
	s := make(MemberSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts an identity into the set.
func (s MemberSet) Add(id MemberID) { s[id] = struct{}{} }

// Contains reports whether the identity is in the set.
func (s MemberSet) Contains(id MemberID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the set size.
func (s MemberSet) Len() int { return len(s) }

// Sorted returns the identities in lexical order.
func (s MemberSet) Sorted() []MemberID {
	out := make([]MemberID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Minus returns the identities present in s but not in other.
func (s MemberSet) Minus(other MemberSet) MemberSet {
	out := make(MemberSet)
	for id := range s {
		if !other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Delta is the pair of add/remove sets transforming current membership
// into target membership. Derived each run, never persisted.
type Delta struct {
	ToAdd    MemberSet
	ToRemove MemberSet
}

// NewDelta computes target − current and current − target.
func NewDelta(target, current MemberSet) Delta {
	return Delta{
		ToAdd:    target.Minus(current),
		ToRemove: current.Minus(target),
	}
}

// Empty reports whether the delta contains no operations.
func (d Delta) Empty() bool {
	return d.ToAdd.Len() == 0 && d.ToRemove.Len() == 0
}
