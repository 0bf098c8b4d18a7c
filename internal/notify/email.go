package notify

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Re4zOon/repo-maintainer/internal/model"
)

//go:embed email.html.tmpl
var emailTemplate string

var emailTmpl = template.Must(template.New("email").Parse(emailTemplate))

type emailRequest struct {
	ProjectName  string
	Number       int
	Title        string
	WebURL       string
	SourceBranch string
	AuthorName   string
	LastActivity string
}

type emailBranch struct {
	ProjectName string
	BranchName  string
	AuthorName  string
	LastCommit  string
}

type emailData struct {
	Greeting     string
	Requests     []emailRequest
	Branches     []emailBranch
	CleanupWeeks int
}

// Subject builds the subject line from the item mix.
func Subject(items *model.RecipientItems) string {
	switch {
	case len(items.Requests) > 0 && len(items.Branches) > 0:
		return fmt.Sprintf("[Action Required] %d Stale Item(s) Require Attention", items.Len())
	case len(items.Requests) > 0:
		return fmt.Sprintf("[Action Required] %d Stale Merge/Pull Request(s) Require Attention", len(items.Requests))
	default:
		return fmt.Sprintf("[Action Required] %d Stale Branch(es) Require Attention", len(items.Branches))
	}
}

// RenderEmail produces the HTML body for one recipient's item set. The
// greeting is already rendered by the message pool.
func RenderEmail(greeting string, items *model.RecipientItems, cleanupWeeks int) (string, error) {
	data := emailData{
		Greeting:     greeting,
		CleanupWeeks: cleanupWeeks,
	}
	for _, r := range items.Requests {
		data.Requests = append(data.Requests, emailRequest{
			ProjectName:  r.ProjectName,
			Number:       r.Number,
			Title:        r.Title,
			WebURL:       r.WebURL,
			SourceBranch: r.SourceBranch,
			AuthorName:   r.AuthorName,
			LastActivity: r.LastActivity.Format("2006-01-02 15:04 MST"),
		})
	}
	for _, b := range items.Branches {
		data.Branches = append(data.Branches, emailBranch{
			ProjectName: b.ProjectName,
			BranchName:  b.BranchName,
			AuthorName:  b.AuthorName,
			LastCommit:  b.LastCommit.Format("2006-01-02 15:04 MST"),
		})
	}

	var buf strings.Builder
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering email: %w", err)
	}
	return buf.String(), nil
}
