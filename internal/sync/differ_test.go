package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

func rosterOf(emails ...string) *domain.ReducedRoster {
	r := &domain.ReducedRoster{Columns: []string{"email"}}
	for _, e := range emails {
		r.Records = append(r.Records, domain.RosterRecord{Values: map[string]string{"email": e}})
	}
	return r
}

func TestDiffer_DuplicateAndBadEmail(t *testing.T) {
	// Roster [a@x.com, a@x.com, bad], current {B}: a resolves to A, bad
	// does not. Expect toAdd={A}, toRemove={B}, failedLookups=[bad].
	dir := &mockDirectory{
		resolveEmailFn: func(_ context.Context, email string) (domain.MemberID, error) {
			if email == "a@x.com" {
				return "CN=A,OU=People,DC=x,DC=com", nil
			}
			return "", domain.ErrNotFound("no directory identity for %s", email)
		},
		listMembersFn: func(_ context.Context, _ domain.MemberID) (domain.MemberSet, error) {
			return domain.NewMemberSet("CN=B,OU=People,DC=x,DC=com"), nil
		},
	}
	d := NewDiffer(dir, "email", testLogger())
	ctx := context.Background()

	target, failed := d.TargetSet(ctx, rosterOf("a@x.com", "a@x.com", "bad"))
	assert.Equal(t, []string{"bad"}, failed)
	assert.Equal(t, 1, target.Len())

	delta, _, err := d.Diff(ctx, "CN=g,DC=x,DC=com", target)
	require.NoError(t, err)
	assert.Equal(t, []domain.MemberID{"CN=A,OU=People,DC=x,DC=com"}, delta.ToAdd.Sorted())
	assert.Equal(t, []domain.MemberID{"CN=B,OU=People,DC=x,DC=com"}, delta.ToRemove.Sorted())
}

func TestDiffer_CaseVariantEmailsResolveOnce(t *testing.T) {
	var resolved []string
	dir := &mockDirectory{
		resolveEmailFn: func(_ context.Context, email string) (domain.MemberID, error) {
			resolved = append(resolved, email)
			return "CN=A,OU=People,DC=x,DC=com", nil
		},
	}
	d := NewDiffer(dir, "email", testLogger())

	target, failed := d.TargetSet(context.Background(), rosterOf("Alice@x.com", "alice@x.com", "ALICE@X.COM"))
	assert.Empty(t, failed)
	assert.Equal(t, 1, target.Len())
	assert.Equal(t, []string{"Alice@x.com"}, resolved, "case variants are one lookup")
}

func TestDiffer_BlankEmailsSkippedSilently(t *testing.T) {
	dir := &mockDirectory{
		resolveEmailFn: func(_ context.Context, email string) (domain.MemberID, error) {
			return domain.MemberID("CN=" + email), nil
		},
	}
	d := NewDiffer(dir, "email", testLogger())

	target, failed := d.TargetSet(context.Background(), rosterOf("", "   ", "a@x.com"))
	assert.Empty(t, failed)
	assert.Equal(t, 1, target.Len())
}

func TestDiffer_EmptyRosterEmptiesGroup(t *testing.T) {
	// Explicit design risk: an empty roster removes every current
	// member.
	current := domain.NewMemberSet("CN=A", "CN=B", "CN=C")
	dir := &mockDirectory{
		listMembersFn: func(_ context.Context, _ domain.MemberID) (domain.MemberSet, error) {
			return current, nil
		},
	}
	d := NewDiffer(dir, "email", testLogger())

	target, failed := d.TargetSet(context.Background(), rosterOf())
	assert.Empty(t, failed)
	assert.Equal(t, 0, target.Len())

	delta, _, err := d.Diff(context.Background(), "CN=g", target)
	require.NoError(t, err)
	assert.Equal(t, 0, delta.ToAdd.Len())
	assert.Equal(t, 3, delta.ToRemove.Len())
}

func TestDiffer_AddRemoveDisjoint(t *testing.T) {
	dir := &mockDirectory{
		resolveEmailFn: func(_ context.Context, email string) (domain.MemberID, error) {
			return domain.MemberID("CN=" + email), nil
		},
		listMembersFn: func(_ context.Context, _ domain.MemberID) (domain.MemberSet, error) {
			return domain.NewMemberSet("CN=a@x.com", "CN=old@x.com"), nil
		},
	}
	d := NewDiffer(dir, "email", testLogger())
	ctx := context.Background()

	target, _ := d.TargetSet(ctx, rosterOf("a@x.com", "new@x.com"))
	delta, _, err := d.Diff(ctx, "CN=g", target)
	require.NoError(t, err)

	for id := range delta.ToAdd {
		assert.False(t, delta.ToRemove.Contains(id), "identity %s in both sets", id)
	}
	assert.Equal(t, []domain.MemberID{"CN=new@x.com"}, delta.ToAdd.Sorted())
	assert.Equal(t, []domain.MemberID{"CN=old@x.com"}, delta.ToRemove.Sorted())
}

func TestDiffer_ApplyThenRecomputeIsFixedPoint(t *testing.T) {
	emails := map[string]domain.MemberID{
		"a@x.com": "CN=A",
		"b@x.com": "CN=B",
	}
	fake := newFakeDirectory(&domain.Group{DN: "CN=g", Name: "g"}, emails, "CN=Old")
	d := NewDiffer(fake, "email", testLogger())
	ctx := context.Background()
	in := rosterOf("a@x.com", "b@x.com")

	target, _ := d.TargetSet(ctx, in)
	delta, _, err := d.Diff(ctx, "CN=g", target)
	require.NoError(t, err)
	require.False(t, delta.Empty())

	for _, id := range delta.ToAdd.Sorted() {
		require.NoError(t, fake.AddMember(ctx, "CN=g", id))
	}
	for _, id := range delta.ToRemove.Sorted() {
		require.NoError(t, fake.RemoveMember(ctx, "CN=g", id))
	}

	// Same roster again: no work left.
	target2, _ := d.TargetSet(ctx, in)
	delta2, _, err := d.Diff(ctx, "CN=g", target2)
	require.NoError(t, err)
	assert.True(t, delta2.Empty())
}
