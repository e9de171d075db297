package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

func noChangeLog() *ChangeLog {
	return NewChangeLog(nil, "", false, testLogger(), time.Now)
}

func TestEnsureGroup_NoUpdateWhenAttributesMatch(t *testing.T) {
	dir := &mockDirectory{
		getGroupFn: func(_ context.Context, _ string) (*domain.Group, error) {
			return &domain.Group{
				DN:   "CN=g,OU=Groups,DC=x,DC=com",
				Name: "g",
				Attributes: domain.AttributeSet{
					domain.AttrAuthOrig: {"CN=mgr,DC=x,DC=com"},
				},
			}, nil
		},
	}
	r := NewReconciler(dir, testLogger())
	rc := &domain.RunContext{}

	spec := domain.GroupSpec{
		Name: "g",
		Attributes: domain.AttributeSet{
			domain.AttrAuthOrig: {"CN=mgr,DC=x,DC=com"},
		},
	}
	_, err := r.EnsureGroup(context.Background(), spec, rc, noChangeLog())
	require.NoError(t, err)
	assert.Zero(t, dir.replaceCalls, "matching attributes must not issue an update call")
	assert.Empty(t, rc.AttrChanges)
}

func TestEnsureGroup_NullAuthOrigGetsSingleUpdate(t *testing.T) {
	// Group exists with authOrig unset, config wants authOrig = X:
	// exactly one modify containing only authOrig.
	var gotChanges []domain.AttrChange
	dir := &mockDirectory{
		getGroupFn: func(_ context.Context, _ string) (*domain.Group, error) {
			return &domain.Group{DN: "CN=g", Name: "g", Attributes: domain.AttributeSet{}}, nil
		},
		replaceAttrsFn: func(_ context.Context, _ domain.MemberID, changes []domain.AttrChange) error {
			gotChanges = changes
			return nil
		},
	}
	r := NewReconciler(dir, testLogger())
	rc := &domain.RunContext{}

	spec := domain.GroupSpec{
		Name:       "g",
		Attributes: domain.AttributeSet{domain.AttrAuthOrig: {"X"}},
	}
	_, err := r.EnsureGroup(context.Background(), spec, rc, noChangeLog())
	require.NoError(t, err)

	assert.Equal(t, 1, dir.replaceCalls)
	require.Len(t, gotChanges, 1)
	assert.Equal(t, domain.AttrAuthOrig, gotChanges[0].Name)
	assert.Equal(t, []string{"X"}, gotChanges[0].After)
	assert.Len(t, rc.AttrChanges, 1)
}

func TestEnsureGroup_ListOrderDoesNotTriggerUpdate(t *testing.T) {
	dir := &mockDirectory{
		getGroupFn: func(_ context.Context, _ string) (*domain.Group, error) {
			return &domain.Group{DN: "CN=g", Name: "g", Attributes: domain.AttributeSet{
				domain.AttrRejectPerms: {"CN=b", "CN=a"},
			}}, nil
		},
	}
	r := NewReconciler(dir, testLogger())

	spec := domain.GroupSpec{
		Name:       "g",
		Attributes: domain.AttributeSet{domain.AttrRejectPerms: {"CN=a", "CN=b"}},
	}
	_, err := r.EnsureGroup(context.Background(), spec, &domain.RunContext{}, noChangeLog())
	require.NoError(t, err)
	assert.Zero(t, dir.replaceCalls)
}

func TestEnsureGroup_CreatesMissingGroup(t *testing.T) {
	created := false
	dir := &mockDirectory{
		getGroupFn: func(_ context.Context, name string) (*domain.Group, error) {
			return nil, domain.ErrNotFound("group %s does not exist", name)
		},
		createGroupFn: func(_ context.Context, spec domain.GroupSpec) (*domain.Group, error) {
			created = true
			return &domain.Group{DN: "CN=g,OU=Groups", Name: spec.Name, Attributes: domain.AttributeSet{}}, nil
		},
	}
	r := NewReconciler(dir, testLogger())
	rc := &domain.RunContext{}

	_, err := r.EnsureGroup(context.Background(), domain.GroupSpec{Name: "g"}, rc, noChangeLog())
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, rc.GroupCreated)
}

func TestEnsureGroup_CreateFailureIsFatal(t *testing.T) {
	dir := &mockDirectory{
		getGroupFn: func(_ context.Context, name string) (*domain.Group, error) {
			return nil, domain.ErrNotFound("group %s does not exist", name)
		},
		createGroupFn: func(_ context.Context, _ domain.GroupSpec) (*domain.Group, error) {
			return nil, domain.ErrDirectory("create group", "insufficient rights")
		},
	}
	r := NewReconciler(dir, testLogger())

	_, err := r.EnsureGroup(context.Background(), domain.GroupSpec{Name: "g"}, &domain.RunContext{}, noChangeLog())
	require.Error(t, err)
}

func TestApplyDelta_OperationCounts(t *testing.T) {
	// Duplicate emails collapsed upstream means exactly one add per
	// identity: verify by counting operations, not final membership.
	dir := &mockDirectory{}
	r := NewReconciler(dir, testLogger())
	rc := &domain.RunContext{}

	delta := domain.Delta{
		ToAdd:    domain.NewMemberSet("CN=A"),
		ToRemove: domain.NewMemberSet("CN=B"),
	}
	r.ApplyDelta(context.Background(), "CN=g", delta, rc, noChangeLog())

	assert.Equal(t, []domain.MemberID{"CN=A"}, dir.addCalls)
	assert.Equal(t, []domain.MemberID{"CN=B"}, dir.removeCalls)
	assert.Equal(t, []domain.MemberID{"CN=A"}, rc.Added)
	assert.Equal(t, []domain.MemberID{"CN=B"}, rc.Removed)
}

func TestApplyDelta_MemberFailureDoesNotStopLoop(t *testing.T) {
	dir := &mockDirectory{
		addMemberFn: func(_ context.Context, _, member domain.MemberID) error {
			if member == "CN=bad" {
				return domain.ErrDirectory("add member", "object not found")
			}
			return nil
		},
	}
	r := NewReconciler(dir, testLogger())
	rc := &domain.RunContext{}

	delta := domain.Delta{
		ToAdd:    domain.NewMemberSet("CN=bad", "CN=good"),
		ToRemove: domain.NewMemberSet(),
	}
	r.ApplyDelta(context.Background(), "CN=g", delta, rc, noChangeLog())

	assert.Len(t, dir.addCalls, 2, "failure must not short-circuit the batch")
	assert.Equal(t, []domain.MemberID{"CN=good"}, rc.Added)
	require.Len(t, rc.MemberErrors, 1)
	assert.Equal(t, domain.ChangeAddMember, rc.MemberErrors[0].Op)
	assert.Equal(t, domain.MemberID("CN=bad"), rc.MemberErrors[0].Member)
}

func TestApplyDelta_ChangeLevelHistory(t *testing.T) {
	store := &mockHistory{}
	log := NewChangeLog(store, "run-1", true, testLogger(), time.Now)
	dir := &mockDirectory{}
	r := NewReconciler(dir, testLogger())

	delta := domain.Delta{
		ToAdd:    domain.NewMemberSet("CN=A"),
		ToRemove: domain.NewMemberSet("CN=B"),
	}
	r.ApplyDelta(context.Background(), "CN=g", delta, &domain.RunContext{}, log)

	require.Len(t, store.changes, 2)
	assert.Equal(t, domain.ChangeAddMember, store.changes[0].Op)
	assert.Equal(t, "CN=A", store.changes[0].Target)
	assert.Equal(t, "run-1", store.changes[0].RunID)
	assert.Equal(t, domain.ChangeRemoveMember, store.changes[1].Op)
}
