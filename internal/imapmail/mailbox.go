// Package imapmail implements the mailbox operations over plain IMAP for
// accounts that are not reachable through the Gmail API.
package imapmail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"

	"mailsweep/internal/model"
	"mailsweep/internal/throttle"
)

// Config describes one IMAP account.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// StartTLS dials in plain text and upgrades; otherwise implicit TLS.
	StartTLS bool
	// Mailbox is searched for scope "inbox".
	Mailbox string
	// AllMailbox is searched for scope "all".
	AllMailbox string
	// TrashMailbox receives trashed messages.
	TrashMailbox string
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = 993
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// conn is the subset of *client.Client the mailbox uses.
type conn interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	UidMove(seqset *imap.SeqSet, dest string) error
	UidCopy(seqset *imap.SeqSet, dest string) error
	UidExpunge(seqset *imap.SeqSet) error
	Support(capability string) (bool, error)
	Logout() error
}

// session adds UID EXPUNGE from the UIDPLUS extension to the base client.
type session struct {
	*client.Client
	uidplus *uidplus.Client
}

func newSession(c *client.Client) session {
	return session{Client: c, uidplus: uidplus.NewClient(c)}
}

func (s session) UidExpunge(seqset *imap.SeqSet) error {
	return s.uidplus.UidExpunge(seqset, nil)
}

const capUIDPlus = "UIDPLUS"

// ErrNoUIDExpunge is returned for deletes on servers without UIDPLUS. A plain
// EXPUNGE would also remove every other \Deleted message in the mailbox.
var ErrNoUIDExpunge = errors.New("server lacks UIDPLUS, cannot expunge a single message")

// Mailbox serves Search/Get/Label/Trash/Delete over one selected IMAP
// mailbox. Message IDs are decimal UIDs within that mailbox.
type Mailbox struct {
	c            conn
	uidExpunge   bool
	trashMailbox string
	throttle     *throttle.Throttle
	logger       *log.Logger
}

// Dial connects, logs in and selects the mailbox matching scope.
func Dial(ctx context.Context, cfg Config, scope string, minInterval time.Duration, logger *log.Logger) (*Mailbox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		c   *client.Client
		err error
	)
	if cfg.StartTLS {
		c, err = client.Dial(cfg.addr())
		if err == nil {
			err = c.StartTLS(&tls.Config{ServerName: cfg.Host})
		}
	} else {
		c, err = client.DialTLS(cfg.addr(), &tls.Config{ServerName: cfg.Host})
	}
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", cfg.addr(), err)
	}
	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	mb, err := newMailbox(newSession(c), cfg, scope, minInterval, logger)
	if err != nil {
		_ = c.Logout()
		return nil, err
	}
	return mb, nil
}

func newMailbox(c conn, cfg Config, scope string, minInterval time.Duration, logger *log.Logger) (*Mailbox, error) {
	name := cfg.Mailbox
	if name == "" {
		name = "INBOX"
	}
	if scope == "all" && cfg.AllMailbox != "" {
		name = cfg.AllMailbox
	}
	// Read-write so flags and expunge work.
	if _, err := c.Select(name, false); err != nil {
		return nil, fmt.Errorf("imap select %q: %w", name, err)
	}
	trash := cfg.TrashMailbox
	if trash == "" {
		trash = "Trash"
	}
	uidExpunge, err := c.Support(capUIDPlus)
	if err != nil {
		return nil, fmt.Errorf("imap capability: %w", err)
	}
	logger.Debug("imap mailbox selected", "mailbox", name, "trash", trash, "uidplus", uidExpunge)
	return &Mailbox{
		c:            c,
		uidExpunge:   uidExpunge,
		trashMailbox: trash,
		throttle:     throttle.New(minInterval),
		logger:       logger,
	}, nil
}

// Close logs out.
func (m *Mailbox) Close() error {
	return m.c.Logout()
}

// Search runs a TEXT search and returns at most max UIDs, newest first.
func (m *Mailbox) Search(ctx context.Context, query string, max int64) ([]model.MessageStub, error) {
	if err := m.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	criteria := imap.NewSearchCriteria()
	if query != "" {
		criteria.Text = []string{query}
	}
	criteria.WithoutFlags = []string{imap.DeletedFlag}
	uids, err := m.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}

	// Higher UIDs were delivered later.
	out := make([]model.MessageStub, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		if max > 0 && int64(len(out)) >= max {
			break
		}
		out = append(out, model.MessageStub{ID: strconv.FormatUint(uint64(uids[i]), 10)})
	}
	return out, nil
}

// Get fetches the full RFC 822 message without setting \Seen.
func (m *Mailbox) Get(ctx context.Context, id string) (*model.Message, error) {
	seq, err := seqSet(id)
	if err != nil {
		return nil, err
	}
	if err := m.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.c.UidFetch(seq, items, messages)
	}()

	var raw []byte
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil || raw != nil {
			continue
		}
		raw, err = io.ReadAll(literal)
		if err != nil {
			err = fmt.Errorf("read message %s: %w", id, err)
		}
	}
	if ferr := <-done; ferr != nil {
		return nil, fmt.Errorf("imap fetch %s: %w", id, ferr)
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("imap fetch %s: %w", id, ErrNotFound)
	}
	return Parse(id, raw)
}

// ErrNotFound is returned when a UID no longer exists.
var ErrNotFound = errors.New("message not found")

// Label adds name as an IMAP keyword.
func (m *Mailbox) Label(ctx context.Context, id, name string) error {
	return m.addFlags(ctx, id, name)
}

// Trash moves the message to the trash mailbox, falling back to
// copy + \Deleted + UID EXPUNGE on servers without MOVE.
func (m *Mailbox) Trash(ctx context.Context, id string) error {
	seq, err := seqSet(id)
	if err != nil {
		return err
	}
	if err := m.throttle.Wait(ctx); err != nil {
		return err
	}
	moveErr := m.c.UidMove(seq, m.trashMailbox)
	if moveErr == nil {
		return nil
	}
	if !m.uidExpunge {
		return fmt.Errorf("imap trash %s: move failed (%v) and %w", id, moveErr, ErrNoUIDExpunge)
	}
	m.logger.Debug("imap move failed, copying instead", "uid", id, "err", moveErr)
	if err := m.c.UidCopy(seq, m.trashMailbox); err != nil {
		return fmt.Errorf("imap trash %s: %w", id, err)
	}
	if err := m.c.UidStore(seq, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("imap trash %s: %w", id, err)
	}
	if err := m.c.UidExpunge(seq); err != nil {
		return fmt.Errorf("imap trash %s: %w", id, err)
	}
	return nil
}

// Delete flags the message \Deleted and expunges that UID only.
func (m *Mailbox) Delete(ctx context.Context, id string) error {
	if !m.uidExpunge {
		return fmt.Errorf("imap delete %s: %w", id, ErrNoUIDExpunge)
	}
	if err := m.addFlags(ctx, id, imap.DeletedFlag); err != nil {
		return err
	}
	seq, _ := seqSet(id)
	if err := m.c.UidExpunge(seq); err != nil {
		return fmt.Errorf("imap expunge %s: %w", id, err)
	}
	return nil
}

func (m *Mailbox) addFlags(ctx context.Context, id string, flags ...string) error {
	seq, err := seqSet(id)
	if err != nil {
		return err
	}
	if err := m.throttle.Wait(ctx); err != nil {
		return err
	}
	values := make([]interface{}, len(flags))
	for i, f := range flags {
		values[i] = f
	}
	if err := m.c.UidStore(seq, imap.FormatFlagsOp(imap.AddFlags, true), values, nil); err != nil {
		return fmt.Errorf("imap store %s: %w", id, err)
	}
	return nil
}

func seqSet(id string) (*imap.SeqSet, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		return nil, fmt.Errorf("invalid imap uid %q", id)
	}
	seq := new(imap.SeqSet)
	seq.AddNum(uint32(uid))
	return seq, nil
}
