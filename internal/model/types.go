package model

import "strings"

// MessageStub is a search hit; only the ID is known until the message is fetched.
type MessageStub struct {
	ID string
}

// HeaderField is a single message header as returned by the mail service.
type HeaderField struct {
	Name  string
	Value string
}

// Headers keeps the original header order. Lookups ignore case.
type Headers []HeaderField

// Get returns the first value for name, or "" when absent.
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for name in header order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Part is one node of a message body tree. Leaves carry base64url data,
// branches (multipart/*) carry sub-parts.
type Part struct {
	MimeType string
	Data     string
	Parts    []*Part
}

// IsLeaf reports whether the part has no children.
func (p *Part) IsLeaf() bool { return len(p.Parts) == 0 }

// Message is a fully fetched message. It lives for one run only.
type Message struct {
	ID      string
	Headers Headers
	Payload *Part
	Snippet string
}

// SenderGroup aggregates messages by canonical sender email.
type SenderGroup struct {
	Name     string
	Email    string     // canonical: lower-cased, trimmed
	Messages []*Message // search order, newest first
}

// Representative returns the message used for link extraction.
func (g SenderGroup) Representative() *Message {
	if len(g.Messages) == 0 {
		return nil
	}
	return g.Messages[0]
}

// MessageIDs returns the IDs of all grouped messages.
func (g SenderGroup) MessageIDs() []string {
	ids := make([]string, 0, len(g.Messages))
	for _, m := range g.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}

// HistoryRecord is the persisted outcome of the last unsubscribe attempt for a sender.
type HistoryRecord struct {
	Name      string `json:"name" yaml:"name" db:"name"`
	Email     string `json:"email" yaml:"email" db:"email"`
	Attempted bool   `json:"attempted" yaml:"attempted" db:"attempted"`
	Success   bool   `json:"success" yaml:"success" db:"success"`
	Timestamp string `json:"timestamp" yaml:"timestamp" db:"attempted_at"` // RFC3339
	URL       string `json:"url" yaml:"url" db:"url"`
}
