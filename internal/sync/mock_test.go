package sync

import (
	"context"
	"io"
	"log/slog"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// === Directory mock ===

type mockDirectory struct {
	resolveEmailFn func(ctx context.Context, email string) (domain.MemberID, error)
	getGroupFn     func(ctx context.Context, name string) (*domain.Group, error)
	createGroupFn  func(ctx context.Context, spec domain.GroupSpec) (*domain.Group, error)
	replaceAttrsFn func(ctx context.Context, group domain.MemberID, changes []domain.AttrChange) error
	listMembersFn  func(ctx context.Context, group domain.MemberID) (domain.MemberSet, error)
	addMemberFn    func(ctx context.Context, group, member domain.MemberID) error
	removeMemberFn func(ctx context.Context, group, member domain.MemberID) error

	replaceCalls int
	addCalls     []domain.MemberID
	removeCalls  []domain.MemberID
}

func (m *mockDirectory) ResolveEmail(ctx context.Context, email string) (domain.MemberID, error) {
	if m.resolveEmailFn != nil {
		return m.resolveEmailFn(ctx, email)
	}
	panic("unexpected call to mockDirectory.ResolveEmail")
}

func (m *mockDirectory) GetGroup(ctx context.Context, name string) (*domain.Group, error) {
	if m.getGroupFn != nil {
		return m.getGroupFn(ctx, name)
	}
	panic("unexpected call to mockDirectory.GetGroup")
}

func (m *mockDirectory) CreateGroup(ctx context.Context, spec domain.GroupSpec) (*domain.Group, error) {
	if m.createGroupFn != nil {
		return m.createGroupFn(ctx, spec)
	}
	panic("unexpected call to mockDirectory.CreateGroup")
}

func (m *mockDirectory) ReplaceAttributes(ctx context.Context, group domain.MemberID, changes []domain.AttrChange) error {
	m.replaceCalls++
	if m.replaceAttrsFn != nil {
		return m.replaceAttrsFn(ctx, group, changes)
	}
	return nil
}

func (m *mockDirectory) ListMembers(ctx context.Context, group domain.MemberID) (domain.MemberSet, error) {
	if m.listMembersFn != nil {
		return m.listMembersFn(ctx, group)
	}
	panic("unexpected call to mockDirectory.ListMembers")
}

func (m *mockDirectory) AddMember(ctx context.Context, group, member domain.MemberID) error {
	m.addCalls = append(m.addCalls, member)
	if m.addMemberFn != nil {
		return m.addMemberFn(ctx, group, member)
	}
	return nil
}

func (m *mockDirectory) RemoveMember(ctx context.Context, group, member domain.MemberID) error {
	m.removeCalls = append(m.removeCalls, member)
	if m.removeMemberFn != nil {
		return m.removeMemberFn(ctx, group, member)
	}
	return nil
}

// fakeDirectory is a stateful in-memory directory for end-to-end
// service tests: emails resolve via a fixed table, membership mutations
// apply to a live set.
type fakeDirectory struct {
	emails  map[string]domain.MemberID
	group   *domain.Group
	members domain.MemberSet
}

func newFakeDirectory(group *domain.Group, emails map[string]domain.MemberID, members ...domain.MemberID) *fakeDirectory {
	return &fakeDirectory{
		emails:  emails,
		group:   group,
		members: domain.NewMemberSet(members...),
	}
}

func (f *fakeDirectory) ResolveEmail(_ context.Context, email string) (domain.MemberID, error) {
	if id, ok := f.emails[email]; ok {
		return id, nil
	}
	return "", domain.ErrNotFound("no directory identity for %s", email)
}

func (f *fakeDirectory) GetGroup(_ context.Context, name string) (*domain.Group, error) {
	if f.group == nil {
		return nil, domain.ErrNotFound("group %s does not exist", name)
	}
	return f.group, nil
}

func (f *fakeDirectory) CreateGroup(_ context.Context, spec domain.GroupSpec) (*domain.Group, error) {
	f.group = &domain.Group{
		DN:         domain.MemberID("CN=" + spec.Name + "," + spec.OUPath),
		Name:       spec.Name,
		Mail:       spec.Mail,
		Attributes: domain.AttributeSet{},
	}
	return f.group, nil
}

func (f *fakeDirectory) ReplaceAttributes(_ context.Context, _ domain.MemberID, changes []domain.AttrChange) error {
	for _, ch := range changes {
		f.group.Attributes[ch.Name] = ch.After
	}
	return nil
}

func (f *fakeDirectory) ListMembers(_ context.Context, _ domain.MemberID) (domain.MemberSet, error) {
	out := domain.NewMemberSet()
	for id := range f.members {
		out.Add(id)
	}
	return out, nil
}

func (f *fakeDirectory) AddMember(_ context.Context, _, member domain.MemberID) error {
	f.members.Add(member)
	return nil
}

func (f *fakeDirectory) RemoveMember(_ context.Context, _, member domain.MemberID) error {
	delete(f.members, member)
	return nil
}

// === Notifier mock ===

type mockNotifier struct {
	sendFn func(ctx context.Context, n domain.Notification) error
	sent   []domain.Notification
}

func (m *mockNotifier) Send(ctx context.Context, n domain.Notification) error {
	m.sent = append(m.sent, n)
	if m.sendFn != nil {
		return m.sendFn(ctx, n)
	}
	return nil
}

// === HistoryStore mock ===

type mockHistory struct {
	runs     []domain.RunRecord
	changes  []domain.ChangeRecord
	snapshot map[string]string
}

func (m *mockHistory) AppendRun(_ context.Context, rec *domain.RunRecord) error {
	m.runs = append(m.runs, *rec)
	return nil
}

func (m *mockHistory) FinalizeRun(_ context.Context, rec *domain.RunRecord) error {
	for i := range m.runs {
		if m.runs[i].ID == rec.ID {
			m.runs[i].EntryCount = rec.EntryCount
			m.runs[i].Status = rec.Status
			m.runs[i].LogExcerpt = rec.LogExcerpt
			m.runs[i].RosterCSV = rec.RosterCSV
			return nil
		}
	}
	return domain.ErrNotFound("run %s not found", rec.ID)
}

func (m *mockHistory) AppendChange(_ context.Context, rec *domain.ChangeRecord) error {
	m.changes = append(m.changes, *rec)
	return nil
}

func (m *mockHistory) ListRunDates(_ context.Context) ([]string, error) {
	return nil, nil
}

func (m *mockHistory) ListChanges(_ context.Context, _ string) ([]domain.ChangeRecord, error) {
	return nil, nil
}

func (m *mockHistory) GetChange(_ context.Context, _ string) (*domain.ChangeRecord, error) {
	return nil, domain.ErrNotFound("change not found")
}

func (m *mockHistory) RosterSnapshot(_ context.Context, date string) (string, error) {
	if csv, ok := m.snapshot[date]; ok {
		return csv, nil
	}
	return "", &domain.RollbackTargetError{Date: date}
}
