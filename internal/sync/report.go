package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

// BuildReport assembles the deterministic end-of-run summary. Sections
// appear in a fixed order; lists are already sorted by the stages that
// produced them.
func BuildReport(rc *domain.RunContext, groupName, groupMail string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Distribution group sync report\n")
	fmt.Fprintf(&b, "==============================\n\n")
	fmt.Fprintf(&b, "Run:        %s\n", rc.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Input:      %s\n", rc.InputPath)
	if !rc.InputMod.IsZero() {
		fmt.Fprintf(&b, "Modified:   %s\n", rc.InputMod.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Entries:    %d\n", rc.EntryCount)
	fmt.Fprintf(&b, "Group:      %s <%s>\n", groupName, groupMail)
	if rc.GroupCreated {
		fmt.Fprintf(&b, "Group was created this run.\n")
	}

	fmt.Fprintf(&b, "\nAttribute changes: %d\n", len(rc.AttrChanges))
	for _, ch := range rc.AttrChanges {
		fmt.Fprintf(&b, "  %s: [%s] -> [%s]\n",
			string(ch.Name), strings.Join(ch.Before, ";"), strings.Join(ch.After, ";"))
	}

	fmt.Fprintf(&b, "\nMembers added:   %d\n", len(rc.Added))
	fmt.Fprintf(&b, "Members removed: %d\n", len(rc.Removed))
	fmt.Fprintf(&b, "Final size:      %d\n", rc.FinalSize)

	fmt.Fprintf(&b, "\nFailed lookups: %d\n", len(rc.FailedLookups))
	for _, email := range rc.FailedLookups {
		fmt.Fprintf(&b, "  %s\n", email)
	}

	if len(rc.MemberErrors) > 0 {
		fmt.Fprintf(&b, "\nFailed operations: %d\n", len(rc.MemberErrors))
		for _, me := range rc.MemberErrors {
			fmt.Fprintf(&b, "  %s %s: %s\n", me.Op, string(me.Member), me.Err)
		}
	}

	return b.String()
}

// BuildFailureReport renders the fatal-error notification body.
func BuildFailureReport(rc *domain.RunContext, groupName string, runErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Distribution group sync FAILED\n")
	fmt.Fprintf(&b, "==============================\n\n")
	fmt.Fprintf(&b, "Run:    %s\n", rc.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Input:  %s\n", rc.InputPath)
	fmt.Fprintf(&b, "Group:  %s\n", groupName)
	fmt.Fprintf(&b, "\nError: %v\n", runErr)
	return b.String()
}
