package domain

import "context"

// Directory is the narrow surface of the directory service the
// synchronizer needs. Implementations must return canonical DNs so
// MemberSet comparisons are exact.
type Directory interface {
	// ResolveEmail resolves a mail address to the identity's DN.
	// Returns NotFoundError when no object matches.
	ResolveEmail(ctx context.Context, email string) (MemberID, error)

	// GetGroup looks up the group by name. Returns NotFoundError when
	// the group does not exist.
	GetGroup(ctx context.Context, name string) (*Group, error)

	// CreateGroup creates the group per spec. Not atomic with a prior
	// GetGroup; callers own the check-then-create race.
	CreateGroup(ctx context.Context, spec GroupSpec) (*Group, error)

	// ReplaceAttributes applies the given changes to the group in a
	// single batched modify.
	ReplaceAttributes(ctx context.Context, group MemberID, changes []AttrChange) error

	// ListMembers returns the group's current membership.
	ListMembers(ctx context.Context, group MemberID) (MemberSet, error)

	AddMember(ctx context.Context, group, member MemberID) error
	RemoveMember(ctx context.Context, group, member MemberID) error
}

// Notification is one outbound message with optional file attachments.
// Attachment paths that do not exist are skipped by the implementation.
type Notification struct {
	Subject     string
	Body        string
	Attachments []string
}

// Notifier dispatches a notification over the configured transport.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// HistoryStore persists run- and change-level history and serves the
// rollback queries. Run rows are inserted once (as pending, before any
// change row references them) and finalized in place; change rows are
// append-only.
type HistoryStore interface {
	AppendRun(ctx context.Context, rec *RunRecord) error

	// FinalizeRun sets the run's entry count, status, log excerpt, and
	// roster snapshot. Returns NotFoundError for an unknown run ID.
	FinalizeRun(ctx context.Context, rec *RunRecord) error

	AppendChange(ctx context.Context, rec *ChangeRecord) error

	// ListRunDates returns distinct run dates, most recent first. An
	// empty store yields an empty slice, not an error.
	ListRunDates(ctx context.Context) ([]string, error)

	// ListChanges returns the changes recorded on the given calendar
	// date in chronological order.
	ListChanges(ctx context.Context, date string) ([]ChangeRecord, error)

	// GetChange returns one change by ID.
	GetChange(ctx context.Context, id string) (*ChangeRecord, error)

	// RosterSnapshot returns the archived reduced-roster CSV for the
	// most recent successful run on the given date. Returns
	// RollbackTargetError when no snapshot exists.
	RosterSnapshot(ctx context.Context, date string) (string, error)
}
