package domain

import "time"

// Run statuses persisted in the history store. A run row is inserted
// as pending at run start so change rows can reference it, then
// finalized to success or failure.
const (
	RunStatusPending = "pending"
	RunStatusSuccess = "success"
	RunStatusFailure = "failure"
)

// Change operations persisted at change-level history granularity.
const (
	ChangeAddMember    = "add_member"
	ChangeRemoveMember = "remove_member"
	ChangeSetAttribute = "set_attribute"
)

// MemberError records a single add/remove operation that failed. The
// run continues past it; the reporter surfaces the aggregate.
type MemberError struct {
	Op     string // ChangeAddMember or ChangeRemoveMember
	Member MemberID
	Err    string
}

// RunContext carries the accumulated outcome of one invocation through
// the stages. Each stage fills in its part; the reporter reads the
// whole. Replaces the source's shared mutable counters.
type RunContext struct {
	ID        string
	StartedAt time.Time
	InputPath string
	InputMod  time.Time // input file modification time, zero if unknown

	EntryCount    int
	FailedLookups []string // emails that did not resolve
	AttrChanges   []AttrChange
	Added         []MemberID
	Removed       []MemberID
	MemberErrors  []MemberError
	FinalSize     int
	GroupCreated  bool
}

// RunRecord is one append-only history row per invocation, including
// failed ones.
type RunRecord struct {
	ID         string
	RunDate    string // calendar date, YYYY-MM-DD
	StartedAt  time.Time
	InputPath  string
	EntryCount int
	Status     string
	LogExcerpt string
	RosterCSV  string // raw reduced roster snapshot
}

// ChangeRecord is one append-only audit row per mutating operation,
// written only at change-level history granularity.
type ChangeRecord struct {
	ID        string
	RunID     string
	Timestamp time.Time
	Op        string
	Target    string // member DN, or attribute name for set_attribute
	Before    string
	After     string
}
