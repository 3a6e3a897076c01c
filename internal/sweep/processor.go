// Package sweep runs one unsubscribe batch: search, group by sender, extract
// links, invoke them, record the attempt and clean up the sender's messages.
package sweep

import (
	"context"
	"errors"
	"sort"

	"github.com/charmbracelet/log"

	"mailsweep/internal/config"
	"mailsweep/internal/extract"
	"mailsweep/internal/model"
)

// Mailbox is the mail service as seen by the processor.
type Mailbox interface {
	Search(ctx context.Context, query string, max int64) ([]model.MessageStub, error)
	Get(ctx context.Context, id string) (*model.Message, error)
	Label(ctx context.Context, id, name string) error
	Trash(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Invoker requests an unsubscribe URL and reports success.
type Invoker interface {
	Invoke(ctx context.Context, url string) bool
}

// History remembers which senders were already attempted.
type History interface {
	IsKnown(email string) bool
	Get(email string) (model.HistoryRecord, bool)
	Record(ctx context.Context, email, name string, success bool, url string) error
}

// Options control one run.
type Options struct {
	Query        string
	MaxEmails    int64
	Strategy     string
	Cleanup      string
	ForceCleanup bool
	Preview      bool
	Label        string
}

// Processor wires the collaborators of a run. It is not safe for concurrent
// use; runs are sequential by construction.
type Processor struct {
	mailbox Mailbox
	invoker Invoker
	history History
	opts    Options
	logger  *log.Logger
}

// New returns a processor. An empty label defaults to "Unsubscribed".
func New(mailbox Mailbox, invoker Invoker, history History, opts Options, logger *log.Logger) *Processor {
	if opts.Label == "" {
		opts.Label = "Unsubscribed"
	}
	if opts.Strategy == "" {
		opts.Strategy = config.StrategySender
	}
	if opts.Cleanup == "" {
		opts.Cleanup = config.CleanupKeep
	}
	return &Processor{mailbox: mailbox, invoker: invoker, history: history, opts: opts, logger: logger}
}

// Run executes the configured strategy. Per-item failures are logged and
// counted; the only error returned is the context's, together with the
// partial summary.
func (p *Processor) Run(ctx context.Context) (model.RunSummary, error) {
	sum := model.RunSummary{Preview: p.opts.Preview}

	stubs, err := p.mailbox.Search(ctx, p.opts.Query, p.opts.MaxEmails)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sum, ctxErr
		}
		p.logger.Error("search failed", "query", p.opts.Query, "err", err)
		return sum, nil
	}
	sum.Scanned = len(stubs)
	p.logger.Info("messages found", "query", p.opts.Query, "count", len(stubs))

	if p.opts.Strategy == config.StrategyMessage {
		err = p.runPerMessage(ctx, stubs, &sum)
	} else {
		err = p.runPerSender(ctx, stubs, &sum)
	}
	return sum, err
}

func (p *Processor) runPerSender(ctx context.Context, stubs []model.MessageStub, sum *model.RunSummary) error {
	msgs := make([]*model.Message, 0, len(stubs))
	for _, stub := range stubs {
		msg, err := p.fetch(ctx, stub.ID, sum)
		if err != nil {
			return err
		}
		if msg != nil {
			msgs = append(msgs, msg)
		}
	}

	groups := GroupBySender(msgs)
	sum.Senders = len(groups)
	p.logTopSenders(groups)

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger := p.logger.With("sender", g.Email)
		res := p.resolve(ctx, g.Name, g.Email, g.Representative(), sum, logger)
		outcome := model.SenderOutcome{
			Name:     g.Name,
			Email:    g.Email,
			Messages: len(g.Messages),
			Link:     res.link,
			Status:   res.status,
			Action:   res.action,
		}
		sum.Outcomes = append(sum.Outcomes, outcome)
		if err := p.apply(ctx, res.action, g.MessageIDs(), sum, logger); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) runPerMessage(ctx context.Context, stubs []model.MessageStub, sum *model.RunSummary) error {
	seen := make(map[string]int) // canonical email -> index into sum.Outcomes
	var order []model.SenderGroup
	for _, stub := range stubs {
		msg, err := p.fetch(ctx, stub.ID, sum)
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		name, email := senderOf(msg)
		logger := p.logger.With("sender", email)

		i, ok := seen[email]
		if ok {
			sum.Duplicates++
			sum.Outcomes[i].Messages++
			order[i].Messages = append(order[i].Messages, msg)
		} else {
			res := p.resolve(ctx, name, email, msg, sum, logger)
			i = len(sum.Outcomes)
			seen[email] = i
			sum.Outcomes = append(sum.Outcomes, model.SenderOutcome{
				Name:     name,
				Email:    email,
				Messages: 1,
				Link:     res.link,
				Status:   res.status,
				Action:   res.action,
			})
			order = append(order, model.SenderGroup{Name: name, Email: email, Messages: []*model.Message{msg}})
		}
		if err := p.apply(ctx, sum.Outcomes[i].Action, []string{msg.ID}, sum, logger); err != nil {
			return err
		}
	}
	sum.Senders = len(seen)

	sort.SliceStable(order, func(i, j int) bool {
		return len(order[i].Messages) > len(order[j].Messages)
	})
	p.logTopSenders(order)
	return nil
}

// fetch returns (nil, nil) for a message that could not be retrieved.
func (p *Processor) fetch(ctx context.Context, id string, sum *model.RunSummary) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg, err := p.mailbox.Get(ctx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		sum.FetchFailed++
		p.logger.Warn("fetch failed", "id", id, "err", err)
		return nil, nil
	}
	return msg, nil
}

type resolution struct {
	link   string
	status string
	action string
}

// resolve decides what to do with one sender, invoking the unsubscribe link
// in live mode. rep is the message links are extracted from.
func (p *Processor) resolve(ctx context.Context, name, email string, rep *model.Message, sum *model.RunSummary, logger *log.Logger) resolution {
	if p.history.IsKnown(email) {
		rec, _ := p.history.Get(email)
		sum.Skipped++
		logger.Info("already attempted, skipping unsubscribe", "success", rec.Success, "at", rec.Timestamp)
		return resolution{link: rec.URL, status: model.StatusKnown, action: p.decide(true, rec.Success)}
	}

	links := extract.FromMessage(rep)
	if links.Len() == 0 {
		sum.NoLinks++
		logger.Info("no unsubscribe link")
		return resolution{status: model.StatusNoLink, action: p.decide(false, false)}
	}

	sum.Processed++
	link := links.Best()
	if p.opts.Preview {
		logger.Info("would unsubscribe", "name", name, "url", link, "candidates", links.Len())
		return resolution{link: link, status: model.StatusPlanned, action: p.decide(true, true)}
	}

	ok := p.invoker.Invoke(ctx, link)
	if ctx.Err() != nil {
		// Interrupted mid-request; the attempt is not recorded.
		return resolution{link: link, status: model.StatusFailed, action: model.ActionNone}
	}
	if err := p.history.Record(ctx, email, name, ok, link); err != nil {
		logger.Error("history write failed", "err", err)
	}
	if ok {
		sum.Succeeded++
		logger.Info("unsubscribed", "url", link)
		return resolution{link: link, status: model.StatusUnsubscribed, action: p.decide(true, true)}
	}
	sum.Failed++
	logger.Warn("unsubscribe failed", "url", link)
	return resolution{link: link, status: model.StatusFailed, action: p.decide(true, false)}
}

// decide is the cleanup matrix.
func (p *Processor) decide(linksFound, success bool) string {
	switch p.opts.Cleanup {
	case config.CleanupTrash, config.CleanupDelete:
		if !linksFound && !p.opts.ForceCleanup {
			return model.ActionNone
		}
		if p.opts.Cleanup == config.CleanupDelete {
			return model.ActionDelete
		}
		return model.ActionTrash
	default:
		if linksFound && success {
			return model.ActionLabel
		}
		return model.ActionNone
	}
}

// apply runs action on every id. Individual failures are counted and logged.
func (p *Processor) apply(ctx context.Context, action string, ids []string, sum *model.RunSummary, logger *log.Logger) error {
	if action == model.ActionNone {
		return nil
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.opts.Preview {
			count(sum, action)
			continue
		}
		var err error
		switch action {
		case model.ActionLabel:
			err = p.mailbox.Label(ctx, id, p.opts.Label)
		case model.ActionTrash:
			err = p.mailbox.Trash(ctx, id)
		case model.ActionDelete:
			err = p.mailbox.Delete(ctx, id)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			sum.CleanupFailed++
			logger.Warn("cleanup failed", "action", action, "id", id, "err", err)
			continue
		}
		count(sum, action)
	}
	if !p.opts.Preview {
		logger.Debug("cleanup applied", "action", action, "messages", len(ids))
	}
	return nil
}

func count(sum *model.RunSummary, action string) {
	switch action {
	case model.ActionLabel:
		sum.Labeled++
	case model.ActionTrash:
		sum.Trashed++
	case model.ActionDelete:
		sum.Deleted++
	}
}

func (p *Processor) logTopSenders(groups []model.SenderGroup) {
	for i, g := range groups {
		if i == 10 {
			break
		}
		p.logger.Info("top sender", "rank", i+1, "name", g.Name, "email", g.Email, "messages", len(g.Messages))
	}
}
