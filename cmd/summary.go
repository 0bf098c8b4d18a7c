package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/Re4zOon/repo-maintainer/internal/model"
)

func printNotifySummary(w io.Writer, s model.NotifySummary) {
	fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint("Notification pass"))
	fmt.Fprintf(w, "  stale branches:       %d\n", s.StaleBranches)
	fmt.Fprintf(w, "  stale merge requests: %d\n", s.StaleRequests)
	fmt.Fprintf(w, "  emails sent:          %s\n", color.GreenString("%d", s.EmailsSent))
	fmt.Fprintf(w, "  emails skipped:       %d\n", s.EmailsSkipped)
	if s.EmailsFailed > 0 {
		fmt.Fprintf(w, "  emails failed:        %s\n", color.RedString("%d", s.EmailsFailed))
	}
	for _, recipient := range s.Recipients {
		fmt.Fprintf(w, "    → %s\n", recipient)
	}
}

func printCommentSummary(w io.Writer, s model.CommentSummary) {
	fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint("Reminder-comment pass"))
	fmt.Fprintf(w, "  comments posted:  %s\n", color.GreenString("%d", s.Posted))
	fmt.Fprintf(w, "  comments skipped: %d\n", s.Skipped)
	if s.Failed > 0 {
		fmt.Fprintf(w, "  comments failed:  %s\n", color.RedString("%d", s.Failed))
	}
	for _, c := range s.Commented {
		fmt.Fprintf(w, "    → %s !%d %s\n", c.ProjectName, c.Number, c.Title)
	}
}

func printArchiveSummary(w io.Writer, s model.ArchiveSummary) {
	fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint("Archive pass"))
	fmt.Fprintf(w, "  requests archived: %s\n", color.GreenString("%d", s.RequestsArchived))
	fmt.Fprintf(w, "  branches archived: %s\n", color.GreenString("%d", s.BranchesArchived))
	if s.SkippedOptOut > 0 {
		fmt.Fprintf(w, "  opted out:         %d\n", s.SkippedOptOut)
	}
	if s.RequestsFailed+s.BranchesFailed > 0 {
		fmt.Fprintf(w, "  failed:            %s\n", color.RedString("%d", s.RequestsFailed+s.BranchesFailed))
	}
	for _, item := range s.Archived {
		if item.Number > 0 {
			fmt.Fprintf(w, "    → %s !%d (%s)\n", item.ProjectName, item.Number, item.ArchivePath)
		} else {
			fmt.Fprintf(w, "    → %s %s (%s)\n", item.ProjectName, item.BranchName, item.ArchivePath)
		}
	}
	for _, item := range s.Failed {
		if item.Number > 0 {
			fmt.Fprintf(w, "    %s %s !%d: %s\n", color.RedString("✗"), item.ProjectName, item.Number, item.Reason)
		} else {
			fmt.Fprintf(w, "    %s %s %s: %s\n", color.RedString("✗"), item.ProjectName, item.BranchName, item.Reason)
		}
	}
}
