package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/chrisskurda/csv-to-dg/internal/config"
	"github.com/chrisskurda/csv-to-dg/internal/domain"
	"github.com/chrisskurda/csv-to-dg/internal/roster"
)

// Service orchestrates one invocation end-to-end: reduce, diff,
// reconcile, report, history. Single-threaded and synchronous; the
// design assumes at most one invocation runs at a time.
type Service struct {
	cfg      *config.Config
	dir      domain.Directory
	notifier domain.Notifier     // nil when notifications are disabled
	history  domain.HistoryStore // nil when history persistence is disabled
	reducer  *roster.Reducer
	logger   *slog.Logger
	logPath  string // dated log file, attached to notifications

	now func() time.Time
}

func New(
	cfg *config.Config,
	dir domain.Directory,
	notifier domain.Notifier,
	history domain.HistoryStore,
	reducer *roster.Reducer,
	logger *slog.Logger,
	logPath string,
) *Service {
	return &Service{
		cfg:      cfg,
		dir:      dir,
		notifier: notifier,
		history:  history,
		reducer:  reducer,
		logger:   logger,
		logPath:  logPath,
		now:      time.Now,
	}
}

func (s *Service) newRunContext(inputPath string) *domain.RunContext {
	return &domain.RunContext{
		ID:        uuid.New().String(),
		StartedAt: s.now(),
		InputPath: inputPath,
	}
}

// Sync runs a normal reconciliation against the live export.
func (s *Service) Sync(ctx context.Context) error {
	rc := s.newRunContext(s.cfg.Roster.InputPath)
	s.beginRun(ctx, rc)

	reduced, outPath, err := s.reducer.Reduce(s.cfg.Roster.InputPath, rc.StartedAt)
	if err != nil {
		return s.fail(ctx, rc, err)
	}
	rc.EntryCount = reduced.Len()
	if fi, err := os.Stat(s.cfg.Roster.InputPath); err == nil {
		rc.InputMod = fi.ModTime()
	}

	if err := s.reconcile(ctx, rc, reduced); err != nil {
		return s.fail(ctx, rc, err)
	}

	s.finish(ctx, rc, reduced, outPath)
	s.reducer.Prune(s.cfg.Roster.RetentionDays, rc.StartedAt)
	return nil
}

// Rollback re-runs reconciliation against the archived roster for the
// given date, re-synchronizing membership to that historical state. It
// does not undo individual changes.
func (s *Service) Rollback(ctx context.Context, date string) error {
	if s.history == nil {
		return domain.ErrValidation("rollback requires history persistence (history.enabled)")
	}

	snapshot, err := s.history.RosterSnapshot(ctx, date)
	if err != nil {
		return err
	}
	reduced, err := roster.Parse(snapshot)
	if err != nil {
		return err
	}

	rc := s.newRunContext("history:" + date)
	rc.EntryCount = reduced.Len()
	s.beginRun(ctx, rc)
	s.logger.Info("rollback run", "date", date, "entries", reduced.Len())

	if err := s.reconcile(ctx, rc, reduced); err != nil {
		return s.fail(ctx, rc, err)
	}

	s.finish(ctx, rc, reduced, "")
	return nil
}

// reconcile runs ensure-group, diff, and delta application, filling in
// the RunContext as it goes.
func (s *Service) reconcile(ctx context.Context, rc *domain.RunContext, reduced *domain.ReducedRoster) error {
	changes := NewChangeLog(
		s.history, rc.ID,
		s.cfg.History.Granularity == config.GranularityChange,
		s.logger, s.now,
	)
	reconciler := NewReconciler(s.dir, s.logger)
	differ := NewDiffer(s.dir, s.cfg.Roster.EmailColumn, s.logger)

	group, err := reconciler.EnsureGroup(ctx, s.cfg.GroupSpec(), rc, changes)
	if err != nil {
		return err
	}

	target, failed := differ.TargetSet(ctx, reduced)
	rc.FailedLookups = failed

	delta, current, err := differ.Diff(ctx, group.DN, target)
	if err != nil {
		return err
	}
	if delta.Empty() {
		s.logger.Info("membership already in sync", "group", group.Name, "size", current.Len())
	}

	reconciler.ApplyDelta(ctx, group.DN, delta, rc, changes)

	if final, err := s.dir.ListMembers(ctx, group.DN); err == nil {
		rc.FinalSize = final.Len()
	} else {
		s.logger.Warn("final membership listing failed", "error", err)
		rc.FinalSize = current.Len() + len(rc.Added) - len(rc.Removed)
	}
	return nil
}

// finish reports a successful run: notification (log-and-continue on
// failure) and the success history row.
func (s *Service) finish(ctx context.Context, rc *domain.RunContext, reduced *domain.ReducedRoster, outPath string) {
	report := BuildReport(rc, s.cfg.Group.Name, s.cfg.Group.Mail)
	s.logger.Info("run complete",
		"entries", rc.EntryCount, "added", len(rc.Added), "removed", len(rc.Removed),
		"failed_lookups", len(rc.FailedLookups), "failed_ops", len(rc.MemberErrors))

	s.notify(ctx, s.subject(rc, false), report, s.logPath, outPath)
	s.finalizeRun(ctx, rc, domain.RunStatusSuccess, reduced.RawCSV)
}

// fail reports a fatal error: log, best-effort failure notification,
// and a failure history row with an empty entry count.
func (s *Service) fail(ctx context.Context, rc *domain.RunContext, runErr error) error {
	s.logger.Error("run failed", "error", runErr)

	body := BuildFailureReport(rc, s.cfg.Group.Name, runErr)
	s.notify(ctx, s.subject(rc, true), body, s.logPath)

	rc.EntryCount = 0
	s.finalizeRun(ctx, rc, domain.RunStatusFailure, "")
	return runErr
}

// notify dispatches when enabled. Failures are logged and never mask
// the run result, on both the success and failure paths.
func (s *Service) notify(ctx context.Context, subject, body string, attachments ...string) {
	if s.notifier == nil {
		return
	}
	paths := make([]string, 0, len(attachments))
	for _, p := range attachments {
		if p != "" {
			paths = append(paths, p)
		}
	}
	n := domain.Notification{Subject: subject, Body: body, Attachments: paths}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn("notification dispatch failed", "error", err)
	}
}

func (s *Service) subject(rc *domain.RunContext, failed bool) string {
	subject := s.cfg.Notify.Subject
	if subject == "" {
		subject = "Distribution group sync"
	}
	subject = fmt.Sprintf("%s %s", subject, rc.StartedAt.Format(roster.DateLayout))
	if failed {
		subject += " FAILED"
	}
	return subject
}

// beginRun inserts the pending run row before any work happens, so
// change-level records written during reconciliation have a parent row
// to reference.
func (s *Service) beginRun(ctx context.Context, rc *domain.RunContext) {
	if s.history == nil {
		return
	}
	rec := &domain.RunRecord{
		ID:        rc.ID,
		RunDate:   rc.StartedAt.Format(roster.DateLayout),
		StartedAt: rc.StartedAt,
		InputPath: rc.InputPath,
		Status:    domain.RunStatusPending,
	}
	if err := s.history.AppendRun(ctx, rec); err != nil {
		s.logger.Warn("run record write failed", "error", err)
	}
}

func (s *Service) finalizeRun(ctx context.Context, rc *domain.RunContext, status, rosterCSV string) {
	if s.history == nil {
		return
	}
	rec := &domain.RunRecord{
		ID:         rc.ID,
		EntryCount: rc.EntryCount,
		Status:     status,
		LogExcerpt: logExcerpt(s.logPath),
		RosterCSV:  rosterCSV,
	}
	if err := s.history.FinalizeRun(ctx, rec); err != nil {
		s.logger.Warn("run record finalize failed", "error", err)
	}
}

// logExcerpt returns the tail of the run's log file for the history
// row, empty when the file is missing.
func logExcerpt(path string) string {
	const tailBytes = 4096
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return ""
	}
	if len(data) > tailBytes {
		data = data[len(data)-tailBytes:]
	}
	return string(data)
}
