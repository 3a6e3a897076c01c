package gmail

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	gmailv1 "google.golang.org/api/gmail/v1"

	"mailsweep/internal/model"
	"mailsweep/internal/throttle"
)

// Search scopes.
const (
	ScopeInbox = "inbox"
	ScopeAll   = "all"
)

// Gmail caps list pages at 500 results.
const maxPageSize = 500

// Mailbox adapts the Gmail API to the operations the sweeper needs. Every
// remote call first waits on the instance throttle.
type Mailbox struct {
	svc      *gmailv1.Service
	user     string
	scope    string
	throttle *throttle.Throttle
	labelIDs map[string]string
	logger   *log.Logger
}

// NewMailbox wraps svc. minInterval is the minimum gap between API calls.
func NewMailbox(svc *gmailv1.Service, scope string, minInterval time.Duration, logger *log.Logger) *Mailbox {
	return &Mailbox{
		svc:      svc,
		user:     "me",
		scope:    scope,
		throttle: throttle.New(minInterval),
		labelIDs: make(map[string]string),
		logger:   logger,
	}
}

// Search lists up to max message IDs matching the Gmail query, newest first.
func (m *Mailbox) Search(ctx context.Context, query string, max int64) ([]model.MessageStub, error) {
	var out []model.MessageStub
	pageToken := ""
	for max <= 0 || int64(len(out)) < max {
		if err := m.throttle.Wait(ctx); err != nil {
			return out, err
		}
		size := int64(maxPageSize)
		if max > 0 && max-int64(len(out)) < size {
			size = max - int64(len(out))
		}
		call := m.svc.Users.Messages.List(m.user).Q(query).MaxResults(size)
		if m.scope == ScopeInbox {
			call = call.LabelIds("INBOX")
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return out, fmt.Errorf("list messages: %w", err)
		}
		for _, msg := range resp.Messages {
			out = append(out, model.MessageStub{ID: msg.Id})
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	if max > 0 && int64(len(out)) > max {
		out = out[:max]
	}
	m.logger.Debug("search complete", "query", query, "found", len(out))
	return out, nil
}

// Get fetches the full message (headers and body tree).
func (m *Mailbox) Get(ctx context.Context, id string) (*model.Message, error) {
	if err := m.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	msg, err := m.svc.Users.Messages.Get(m.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return toModel(msg), nil
}

// Label adds the named label to a message, creating the label on first use.
func (m *Mailbox) Label(ctx context.Context, id, name string) error {
	labelID, err := m.ensureLabel(ctx, name)
	if err != nil {
		return err
	}
	if err := m.throttle.Wait(ctx); err != nil {
		return err
	}
	req := &gmailv1.ModifyMessageRequest{AddLabelIds: []string{labelID}}
	if _, err := m.svc.Users.Messages.Modify(m.user, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("label message %s: %w", id, err)
	}
	return nil
}

// Trash moves a message to the trash.
func (m *Mailbox) Trash(ctx context.Context, id string) error {
	if err := m.throttle.Wait(ctx); err != nil {
		return err
	}
	if _, err := m.svc.Users.Messages.Trash(m.user, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("trash message %s: %w", id, err)
	}
	return nil
}

// Delete permanently removes a message.
func (m *Mailbox) Delete(ctx context.Context, id string) error {
	if err := m.throttle.Wait(ctx); err != nil {
		return err
	}
	if err := m.svc.Users.Messages.Delete(m.user, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}

func (m *Mailbox) ensureLabel(ctx context.Context, name string) (string, error) {
	if id, ok := m.labelIDs[name]; ok {
		return id, nil
	}
	if err := m.throttle.Wait(ctx); err != nil {
		return "", err
	}
	labels, err := m.svc.Users.Labels.List(m.user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	for _, l := range labels.Labels {
		if l.Name == name {
			m.labelIDs[name] = l.Id
			return l.Id, nil
		}
	}

	if err := m.throttle.Wait(ctx); err != nil {
		return "", err
	}
	created, err := m.svc.Users.Labels.Create(m.user, &gmailv1.Label{
		Name:                  name,
		MessageListVisibility: "show",
		LabelListVisibility:   "labelShow",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	m.logger.Info("created label", "label", name)
	m.labelIDs[name] = created.Id
	return created.Id, nil
}
