package gmail

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmailv1 "google.golang.org/api/gmail/v1"
)

func TestCodeFromInput(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "  4/abc  ", want: "4/abc"},
		{in: "http://127.0.0.1:5555/?state=state-token&code=4/xyz&scope=gmail", want: "4/xyz"},
		{in: "https://localhost/?state=s", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := codeFromInput(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFileTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	store := FileTokens{Path: path}

	_, err := store.Load()
	require.ErrorIs(t, err, os.ErrNotExist)

	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.True(t, expiry.Equal(tok.Expiry))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

const desktopClientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestOAuthConfigScopes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(desktopClientJSON), 0o600))

	cfg, err := oauthConfig(path, Scopes(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://mail.google.com/"}, cfg.Scopes, "messages.delete needs full mail access")

	cfg, err = oauthConfig(path, Scopes(false))
	require.NoError(t, err)
	assert.Equal(t, []string{gmailv1.GmailReadonlyScope, gmailv1.GmailModifyScope}, cfg.Scopes)
	assert.NotContains(t, cfg.Scopes, gmailv1.MailGoogleComScope)

	cfg, err = oauthConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, Scopes(false), cfg.Scopes)
}

func TestCovers(t *testing.T) {
	narrow := Scopes(false)
	full := Scopes(true)

	assert.True(t, covers(narrow, narrow))
	assert.False(t, covers(narrow, full), "a modify-only token must be re-authorized for delete")
	assert.True(t, covers(full, narrow))
	assert.True(t, covers([]string{"openid", gmailv1.MailGoogleComScope}, full))
	assert.False(t, covers([]string{gmailv1.GmailReadonlyScope}, narrow))
	assert.False(t, covers(nil, narrow))
}
