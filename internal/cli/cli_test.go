package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsweep/internal/config"
)

const historyJSON = `{
  "deals@shop.com": {"name": "Shop", "email": "deals@shop.com", "attempted": true, "success": true, "timestamp": "2024-05-01T12:00:00Z", "url": "https://shop.com/u"},
  "hi@blog.com": {"name": "Blog", "email": "hi@blog.com", "attempted": true, "success": false, "timestamp": "2024-05-02T12:00:00Z", "url": "https://blog.com/u"}
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func seedHistory(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unsubscribe_history.json"), []byte(historyJSON), 0o600))
	return dir
}

func TestHistoryList(t *testing.T) {
	dir := seedHistory(t)

	out, err := execute(t, "--dir", dir, "history", "list", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "email: deals@shop.com")
	assert.Contains(t, out, "email: hi@blog.com")

	out, err = execute(t, "--dir", dir, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2 senders recorded")
}

func TestHistoryForget(t *testing.T) {
	dir := seedHistory(t)

	out, err := execute(t, "--dir", dir, "history", "forget", "HI@blog.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Forgot HI@blog.com.")

	_, err = execute(t, "--dir", dir, "history", "forget", "hi@blog.com")
	assert.Error(t, err)

	out, err = execute(t, "--dir", dir, "history", "list", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "deals@shop.com")
	assert.NotContains(t, out, "hi@blog.com")
}

func TestHistoryOpen_UnknownSender(t *testing.T) {
	dir := seedHistory(t)
	_, err := execute(t, "--dir", dir, "history", "open", "nobody@x.com")
	assert.ErrorContains(t, err, "no recorded URL")
}

func TestRun_InvalidConfigFailsBeforeAuth(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--dir", dir, "run", "--strategy", "thread")
	assert.ErrorContains(t, err, "invalid strategy")

	_, err = execute(t, "--dir", dir, "run", "--preset", "nope")
	assert.ErrorContains(t, err, "unknown preset")

	_, err = execute(t, "--dir", dir, "run", "--max", "0")
	assert.ErrorContains(t, err, "max_emails must be positive")
}

func TestGmailScopesFollowCleanup(t *testing.T) {
	assert.Equal(t, []string{"https://mail.google.com/"}, gmailScopes(config.Config{Cleanup: config.CleanupDelete}))
	for _, cleanup := range []string{config.CleanupKeep, config.CleanupTrash} {
		assert.NotContains(t, gmailScopes(config.Config{Cleanup: cleanup}), "https://mail.google.com/", cleanup)
	}
}

func TestRun_GmailWithoutCredentials(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--dir", dir, "run")
	assert.ErrorContains(t, err, "credentials")
}

func TestBadLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "history", "list")
	assert.ErrorContains(t, err, "invalid --log-level")
}
