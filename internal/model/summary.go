package model

// Cleanup actions applied to a sender's messages.
const (
	ActionNone   = "none"
	ActionLabel  = "label"
	ActionTrash  = "trash"
	ActionDelete = "delete"
)

// Sender statuses reported per outcome.
const (
	StatusUnsubscribed = "unsubscribed"
	StatusFailed       = "failed"
	StatusPlanned      = "planned"
	StatusNoLink       = "no-link"
	StatusKnown        = "already-attempted"
)

// SenderOutcome is what happened (or would happen, in preview) to one sender.
type SenderOutcome struct {
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Messages int    `json:"messages" yaml:"messages"`
	Link     string `json:"link,omitempty" yaml:"link,omitempty"`
	Status   string `json:"status" yaml:"status"`
	Action   string `json:"action" yaml:"action"`
}

// RunSummary accumulates counters for one batch run. In preview mode the
// cleanup counters hold the number of actions that would have been taken.
type RunSummary struct {
	Preview       bool            `json:"preview" yaml:"preview"`
	Scanned       int             `json:"scanned" yaml:"scanned"`
	FetchFailed   int             `json:"fetch_failed" yaml:"fetch_failed"`
	Senders       int             `json:"senders" yaml:"senders"`
	Processed     int             `json:"processed" yaml:"processed"`
	Skipped       int             `json:"skipped" yaml:"skipped"`
	NoLinks       int             `json:"no_links" yaml:"no_links"`
	Duplicates    int             `json:"duplicates" yaml:"duplicates"`
	Succeeded     int             `json:"succeeded" yaml:"succeeded"`
	Failed        int             `json:"failed" yaml:"failed"`
	Labeled       int             `json:"labeled" yaml:"labeled"`
	Trashed       int             `json:"trashed" yaml:"trashed"`
	Deleted       int             `json:"deleted" yaml:"deleted"`
	CleanupFailed int             `json:"cleanup_failed" yaml:"cleanup_failed"`
	Outcomes      []SenderOutcome `json:"outcomes" yaml:"outcomes"`
}
