package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemberSet_DeduplicatesAndSorts(t *testing.T) {
	s := NewMemberSet("CN=b", "CN=a", "CN=b", "CN=c")
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []MemberID{"CN=a", "CN=b", "CN=c"}, s.Sorted())
}

func TestNewDelta(t *testing.T) {
	target := NewMemberSet("CN=a", "CN=b")
	current := NewMemberSet("CN=b", "CN=c")

	d := NewDelta(target, current)
	assert.Equal(t, []MemberID{"CN=a"}, d.ToAdd.Sorted())
	assert.Equal(t, []MemberID{"CN=c"}, d.ToRemove.Sorted())
	assert.False(t, d.Empty())
}

func TestNewDelta_DisjointSets(t *testing.T) {
	target := NewMemberSet("CN=a", "CN=b", "CN=c")
	current := NewMemberSet("CN=b", "CN=c", "CN=d")

	d := NewDelta(target, current)
	for id := range d.ToAdd {
		assert.False(t, d.ToRemove.Contains(id))
	}
}

func TestNewDelta_EqualSetsAreEmpty(t *testing.T) {
	target := NewMemberSet("CN=a")
	current := NewMemberSet("CN=a")
	assert.True(t, NewDelta(target, current).Empty())
}

func TestNewDelta_EmptyTargetRemovesAll(t *testing.T) {
	current := NewMemberSet("CN=a", "CN=b")
	d := NewDelta(NewMemberSet(), current)
	assert.Equal(t, 0, d.ToAdd.Len())
	assert.Equal(t, 2, d.ToRemove.Len())
}
