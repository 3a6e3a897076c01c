package invoke

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsweep/internal/model"
)

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos     string
		url      string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{goos: "darwin", url: "https://a.example.com/u", wantName: "open", wantArgs: []string{"https://a.example.com/u"}},
		{goos: "linux", url: "HTTP://a.example.com/u", wantName: "xdg-open", wantArgs: []string{"HTTP://a.example.com/u"}},
		{goos: "windows", url: "https://a.example.com/u", wantName: "rundll32", wantArgs: []string{"url.dll,FileProtocolHandler", "https://a.example.com/u"}},
		{goos: "plan9", url: "https://a.example.com/u", wantErr: true},
		{goos: "linux", url: "mailto:u@example.com", wantErr: true},
		{goos: "linux", url: "file:///etc/passwd", wantErr: true},
	}
	for _, tt := range tests {
		name, args, err := browserCommand(tt.goos, tt.url)
		if tt.wantErr {
			assert.Error(t, err, tt.goos+" "+tt.url)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.wantName, name)
		assert.Equal(t, tt.wantArgs, args)
	}
}

func TestBrowserOpen(t *testing.T) {
	var launched []string
	b := NewBrowser(log.New(io.Discard))
	b.goos = "linux"
	b.start = func(name string, args ...string) error {
		launched = append([]string{name}, args...)
		return nil
	}

	require.NoError(t, b.Open(model.HistoryRecord{Email: "a@example.com", URL: "https://a.example.com/form"}))
	assert.Equal(t, []string{"xdg-open", "https://a.example.com/form"}, launched)

	launched = nil
	err := b.Open(model.HistoryRecord{Email: "b@example.com"})
	assert.ErrorIs(t, err, ErrNoURL)
	assert.Nil(t, launched)

	b.start = func(string, ...string) error { return errors.New("not found") }
	assert.ErrorContains(t, b.Open(model.HistoryRecord{Email: "a@example.com", URL: "https://a.example.com/form"}), "launch xdg-open")
}
