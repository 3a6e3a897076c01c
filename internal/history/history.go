// Package history keeps the durable record of past unsubscribe attempts so a
// sender's endpoint is never invoked twice.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"mailsweep/internal/model"
	"mailsweep/internal/util"
)

// Backend persists the whole mapping at once. Load returns an empty map and a
// nil error when nothing has been stored yet.
type Backend interface {
	Load(ctx context.Context) (map[string]model.HistoryRecord, error)
	Save(ctx context.Context, records map[string]model.HistoryRecord) error
}

// Store is the in-memory copy of the history, written through to its backend
// on every change.
type Store struct {
	backend Backend
	records map[string]model.HistoryRecord
	logger  *log.Logger
	now     func() time.Time
}

// Open loads the full history. An unreadable or corrupt backend is logged and
// treated as empty.
func Open(ctx context.Context, backend Backend, logger *log.Logger) *Store {
	s := &Store{
		backend: backend,
		records: make(map[string]model.HistoryRecord),
		logger:  logger,
		now:     time.Now,
	}
	records, err := backend.Load(ctx)
	if err != nil {
		logger.Warn("history unreadable, starting empty", "err", err)
		return s
	}
	for k, r := range records {
		s.records[util.CanonicalEmail(k)] = r
	}
	logger.Debug("history loaded", "senders", len(s.records))
	return s
}

// Record upserts the outcome for a sender and persists the entire mapping.
func (s *Store) Record(ctx context.Context, email, name string, success bool, url string) error {
	key := util.CanonicalEmail(email)
	s.records[key] = model.HistoryRecord{
		Name:      name,
		Email:     key,
		Attempted: true,
		Success:   success,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		URL:       url,
	}
	if err := s.backend.Save(ctx, s.records); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// IsKnown reports whether an attempt was already made for email.
func (s *Store) IsKnown(email string) bool {
	_, ok := s.records[util.CanonicalEmail(email)]
	return ok
}

// Get returns the record for email.
func (s *Store) Get(email string) (model.HistoryRecord, bool) {
	r, ok := s.records[util.CanonicalEmail(email)]
	return r, ok
}

// Records returns every record sorted by email.
func (s *Store) Records() []model.HistoryRecord {
	out := make([]model.HistoryRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// Forget removes a sender so the next run may try again. It is only ever
// called on operator request.
func (s *Store) Forget(ctx context.Context, email string) (bool, error) {
	key := util.CanonicalEmail(email)
	if _, ok := s.records[key]; !ok {
		return false, nil
	}
	delete(s.records, key)
	if err := s.backend.Save(ctx, s.records); err != nil {
		return true, fmt.Errorf("save history: %w", err)
	}
	return true, nil
}
