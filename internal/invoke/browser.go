package invoke

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"mailsweep/internal/model"
)

// ErrNoURL is returned for history records without a usable unsubscribe URL.
var ErrNoURL = errors.New("no recorded URL")

// Browser hands recorded unsubscribe pages to the desktop browser, for
// endpoints where a GET is not enough and a form must be completed by hand.
type Browser struct {
	logger *log.Logger
	goos   string
	start  func(name string, args ...string) error
}

// NewBrowser returns a Browser for the running platform.
func NewBrowser(logger *log.Logger) *Browser {
	return &Browser{
		logger: logger,
		goos:   runtime.GOOS,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Open launches the record's URL. Only http and https URLs are passed on.
func (b *Browser) Open(rec model.HistoryRecord) error {
	if rec.URL == "" {
		return fmt.Errorf("%w for %s", ErrNoURL, rec.Email)
	}
	name, args, err := browserCommand(b.goos, rec.URL)
	if err != nil {
		return fmt.Errorf("%s: %w", rec.Email, err)
	}
	b.logger.Info("opening unsubscribe page", "sender", rec.Email, "success", rec.Success, "url", rec.URL)
	if err := b.start(name, args...); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	return nil
}

func browserCommand(goos, url string) (string, []string, error) {
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", nil, fmt.Errorf("refusing to open non-HTTP URL %q", url)
	}
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	}
	return "", nil, fmt.Errorf("unsupported platform %s", goos)
}
