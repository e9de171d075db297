package sync

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

// ChangeLog writes per-mutation audit rows when change-level history is
// enabled. Writes are best-effort: a failed audit row is logged and
// never blocks the mutation that succeeded.
type ChangeLog struct {
	store   domain.HistoryStore // nil disables
	runID   string
	enabled bool
	logger  *slog.Logger
	now     func() time.Time
}

func NewChangeLog(store domain.HistoryStore, runID string, enabled bool, logger *slog.Logger, now func() time.Time) *ChangeLog {
	return &ChangeLog{store: store, runID: runID, enabled: enabled && store != nil, logger: logger, now: now}
}

func (l *ChangeLog) Record(ctx context.Context, op, target, before, after string) {
	if !l.enabled {
		return
	}
	rec := &domain.ChangeRecord{
		ID:        uuid.New().String(),
		RunID:     l.runID,
		Timestamp: l.now(),
		Op:        op,
		Target:    target,
		Before:    before,
		After:     after,
	}
	if err := l.store.AppendChange(ctx, rec); err != nil {
		l.logger.Warn("change record write failed", "op", op, "target", target, "error", err)
	}
}

// Reconciler applies group existence/attribute state and membership
// deltas to the directory. Both responsibilities are idempotent.
type Reconciler struct {
	dir    domain.Directory
	logger *slog.Logger
}

func NewReconciler(dir domain.Directory, logger *slog.Logger) *Reconciler {
	return &Reconciler{dir: dir, logger: logger}
}

// EnsureGroup guarantees the group exists and its managed attributes
// match the spec. The existence check and create are not atomic; a
// concurrent create can still collide (known limitation, single
// invocation assumed). Creation and attribute-update failures are
// fatal. Only differing attributes are sent, in one batched modify; a
// full match is logged as a no-op and issues no call.
func (r *Reconciler) EnsureGroup(ctx context.Context, spec domain.GroupSpec, rc *domain.RunContext, changes *ChangeLog) (*domain.Group, error) {
	group, err := r.dir.GetGroup(ctx, spec.Name)
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		group, err = r.dir.CreateGroup(ctx, spec)
		if err != nil {
			return nil, err
		}
		rc.GroupCreated = true
	}

	diff := domain.DiffAttributes(group.Attributes, spec.Attributes)
	if len(diff) == 0 {
		r.logger.Info("group attributes up to date", "group", spec.Name)
		return group, nil
	}

	if err := r.dir.ReplaceAttributes(ctx, group.DN, diff); err != nil {
		return nil, err
	}
	for _, ch := range diff {
		r.logger.Info("attribute updated",
			"group", spec.Name, "attribute", string(ch.Name),
			"before", strings.Join(ch.Before, ";"), "after", strings.Join(ch.After, ";"))
		changes.Record(ctx, domain.ChangeSetAttribute, string(ch.Name),
			strings.Join(ch.Before, ";"), strings.Join(ch.After, ";"))
	}
	rc.AttrChanges = diff
	return group, nil
}

// ApplyDelta applies adds then removes as individual operations, in
// sorted order for determinism. A failed operation is recorded on the
// RunContext and the loop continues; there is no transactional
// grouping and nothing is rolled back.
func (r *Reconciler) ApplyDelta(ctx context.Context, group domain.MemberID, delta domain.Delta, rc *domain.RunContext, changes *ChangeLog) {
	for _, id := range delta.ToAdd.Sorted() {
		if err := r.dir.AddMember(ctx, group, id); err != nil {
			r.logger.Warn("add member failed", "member", string(id), "error", err)
			rc.MemberErrors = append(rc.MemberErrors, domain.MemberError{
				Op: domain.ChangeAddMember, Member: id, Err: err.Error(),
			})
			continue
		}
		r.logger.Info("member added", "dn", string(id))
		rc.Added = append(rc.Added, id)
		changes.Record(ctx, domain.ChangeAddMember, string(id), "", string(group))
	}

	for _, id := range delta.ToRemove.Sorted() {
		if err := r.dir.RemoveMember(ctx, group, id); err != nil {
			r.logger.Warn("remove member failed", "member", string(id), "error", err)
			rc.MemberErrors = append(rc.MemberErrors, domain.MemberError{
				Op: domain.ChangeRemoveMember, Member: id, Err: err.Error(),
			})
			continue
		}
		r.logger.Info("member removed", "dn", string(id))
		rc.Removed = append(rc.Removed, id)
		changes.Record(ctx, domain.ChangeRemoveMember, string(id), string(group), "")
	}
}
