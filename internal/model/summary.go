package model

// FailedItem records one item an operation could not complete, with a
// human-readable reason for the end-of-run report.
type FailedItem struct {
	Type        ItemType
	ProjectName string
	BranchName  string
	Number      int
	Reason      string
}

// NotifySummary is the end-of-run report for the notification pass.
type NotifySummary struct {
	StaleBranches int
	StaleRequests int
	EmailsSent    int
	EmailsSkipped int
	EmailsFailed  int
	Recipients    []string
}

// CommentedRequest identifies a request that received a reminder comment.
type CommentedRequest struct {
	ProjectID   string
	ProjectName string
	Number      int
	Title       string
}

// CommentSummary is the end-of-run report for the reminder-comment pass.
type CommentSummary struct {
	Posted    int
	Skipped   int
	Failed    int
	Commented []CommentedRequest
}

// ArchiveResult captures the outcome of the three-phase archive
// operation for a single item. Archived reports a successful export;
// Success additionally requires the destructive phases to have
// completed (close for requests, delete always).
type ArchiveResult struct {
	ProjectName string
	BranchName  string
	Number      int // 0 for bare branches
	Archived    bool
	Closed      bool
	Deleted     bool
	Success     bool
	ArchivePath string
	Err         string
}

// ArchiveSummary is the end-of-run report for the archive pass.
type ArchiveSummary struct {
	BranchesArchived int
	BranchesFailed   int
	RequestsArchived int
	RequestsFailed   int
	Archived         []ArchiveResult
	Failed           []FailedItem
	SkippedOptOut    int
}
