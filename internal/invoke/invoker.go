// Package invoke calls unsubscribe endpoints over HTTP.
package invoke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultUserAgent mimics a desktop browser; some list providers reject
// unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Invoker issues GET requests to unsubscribe URLs with bounded retries.
type Invoker struct {
	UserAgent string
	Timeout   time.Duration
	Retries   int           // additional attempts after the first
	Backoff   time.Duration // unit delay; retry n waits n*Backoff

	logger *log.Logger
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// New returns an invoker. Keep-alives are disabled so every attempt opens a
// fresh connection.
func New(logger *log.Logger, timeout time.Duration, retries int, backoff time.Duration, userAgent string) *Invoker {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if retries < 0 {
		retries = 0
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableKeepAlives = true
	return &Invoker{
		UserAgent: userAgent,
		Timeout:   timeout,
		Retries:   retries,
		Backoff:   backoff,
		logger:    logger,
		client:    &http.Client{Timeout: timeout, Transport: tr},
		sleep:     sleepCtx,
	}
}

// Invoke reports whether url answered 200 within the allowed attempts.
// It never returns an error; failures are logged.
func (inv *Invoker) Invoke(ctx context.Context, url string) bool {
	attempts := inv.Retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := inv.sleep(ctx, time.Duration(attempt)*inv.Backoff); err != nil {
				return false
			}
		}
		status, err := inv.get(ctx, url)
		if err == nil && status == http.StatusOK {
			inv.logger.Debug("unsubscribe endpoint accepted", "url", url, "attempt", attempt+1)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if err != nil {
			inv.logger.Warn("unsubscribe request failed", "url", url, "attempt", attempt+1, "err", err)
		} else {
			inv.logger.Warn("unsubscribe endpoint rejected", "url", url, "attempt", attempt+1, "status", status)
		}
	}
	return false
}

func (inv *Invoker) get(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", inv.UserAgent)
	resp, err := inv.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
