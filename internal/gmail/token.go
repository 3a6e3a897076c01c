package gmail

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"mailsweep/internal/credential"
)

// TokenStore caches the OAuth token between runs.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	Clear() error
}

// FileTokens keeps the token as JSON on disk (token.json).
type FileTokens struct {
	Path string
}

func (f FileTokens) Load() (*oauth2.Token, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(fh).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (f FileTokens) Save(tok *oauth2.Token) error {
	tmp := f.Path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	fh, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(fh).Encode(tok); err != nil {
		fh.Close()
		return err
	}
	fh.Close()
	return os.Rename(tmp, f.Path)
}

func (f FileTokens) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

const keyringTokenKey = "gmail-token"

// KeyringTokens keeps the token in the system keyring.
type KeyringTokens struct {
	Ring *credential.Ring
}

func (k KeyringTokens) Load() (*oauth2.Token, error) {
	b, err := k.Ring.Get(keyringTokenKey)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (k KeyringTokens) Save(tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return k.Ring.Set(keyringTokenKey, b)
}

func (k KeyringTokens) Clear() error {
	return k.Ring.Delete(keyringTokenKey)
}
