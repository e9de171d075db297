// Package sync holds the membership differ, the directory reconciler,
// and the run orchestrator.
package sync

import (
	"context"
	"log/slog"
	"strings"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

// Differ resolves a reduced roster into a target membership set and
// computes the delta against current group membership.
type Differ struct {
	dir         domain.Directory
	emailColumn string
	logger      *slog.Logger
}

func NewDiffer(dir domain.Directory, emailColumn string, logger *slog.Logger) *Differ {
	return &Differ{dir: dir, emailColumn: emailColumn, logger: logger}
}

// TargetSet resolves every roster email to a directory identity.
// Blank emails are skipped silently; resolution failures are returned
// as failed lookups and never abort the batch. Duplicate emails
// collapse into one identity; mail addresses compare
// case-insensitively, so case variants count as duplicates too.
func (d *Differ) TargetSet(ctx context.Context, r *domain.ReducedRoster) (domain.MemberSet, []string) {
	target := domain.NewMemberSet()
	var failed []string
	seen := make(map[string]struct{}, len(r.Records))

	for _, rec := range r.Records {
		email := strings.TrimSpace(rec.Get(d.emailColumn))
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		id, err := d.dir.ResolveEmail(ctx, email)
		if err != nil {
			d.logger.Warn("lookup failed", "email", email, "error", err)
			failed = append(failed, email)
			continue
		}
		target.Add(id)
	}
	return target, failed
}

// Diff fetches current membership and computes toAdd/toRemove. An empty
// target set removes every current member.
func (d *Differ) Diff(ctx context.Context, group domain.MemberID, target domain.MemberSet) (domain.Delta, domain.MemberSet, error) {
	current, err := d.dir.ListMembers(ctx, group)
	if err != nil {
		return domain.Delta{}, nil, err
	}
	return domain.NewDelta(target, current), current, nil
}
