package gmail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Scopes returns the OAuth scopes a run needs. gmail.modify covers search,
// label and trash; users.messages.delete is only accepted under the full
// https://mail.google.com/ scope.
func Scopes(permanentDelete bool) []string {
	if permanentDelete {
		return []string{gmailv1.MailGoogleComScope}
	}
	return []string{gmailv1.GmailReadonlyScope, gmailv1.GmailModifyScope}
}

// covers reports whether the granted scopes satisfy every wanted one.
func covers(granted, wanted []string) bool {
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		have[s] = true
	}
	if have[gmailv1.MailGoogleComScope] {
		return true
	}
	for _, s := range wanted {
		if !have[s] {
			return false
		}
	}
	return true
}

// NewService initializes an OAuth-backed Gmail service using:
// - Client credentials at credPath (desktop OAuth client JSON)
// - A cached token from tokens, validated with a profile call and checked
//   against scopes through the tokeninfo endpoint
// When no valid token exists, or the cached one was granted narrower scopes,
// the installed-app flow runs on the terminal.
func NewService(ctx context.Context, credPath string, tokens TokenStore, scopes []string) (*gmailv1.Service, error) {
	cfg, err := oauthConfig(credPath, scopes)
	if err != nil {
		return nil, err
	}

	tok, err := tokens.Load()
	if err == nil {
		if svc, err := cachedService(ctx, cfg, tok); err == nil {
			return svc, nil
		}
		// Token is invalid, expired or too narrow; remove it and re-auth.
		_ = tokens.Clear()
	}

	tok, err = Authorize(ctx, cfg, os.Stdin, os.Stderr)
	if err != nil {
		return nil, err
	}
	if err := tokens.Save(tok); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}

	client := cfg.Client(ctx, tok)
	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func cachedService(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*gmailv1.Service, error) {
	src := cfg.TokenSource(ctx, tok)
	fresh, err := src.Token()
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(ctx, src)

	info, err := oauth2v2.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}
	ti, err := info.Tokeninfo().AccessToken(fresh.AccessToken).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if !covers(strings.Fields(ti.Scope), cfg.Scopes) {
		return nil, fmt.Errorf("cached token lacks scopes %v (granted %q)", cfg.Scopes, ti.Scope)
	}

	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}
	if _, err := svc.Users.GetProfile("me").Context(ctx).Do(); err != nil {
		return nil, err
	}
	return svc, nil
}

func oauthConfig(credPath string, scopes []string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w (create a Desktop OAuth client in Google Cloud Console and download its JSON)", credPath, err)
	}
	if len(scopes) == 0 {
		scopes = Scopes(false)
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}
	return cfg, nil
}

// Login forces a fresh authorization and stores the resulting token.
func Login(ctx context.Context, credPath string, tokens TokenStore, scopes []string) error {
	cfg, err := oauthConfig(credPath, scopes)
	if err != nil {
		return err
	}
	tok, err := Authorize(ctx, cfg, os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	return tokens.Save(tok)
}

// Authorize runs a loopback HTTP server to capture the auth code.
// If that fails or times out, it falls back to manual paste (code or URL).
func Authorize(ctx context.Context, cfg *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	// Try loopback on a random localhost port.
	resCh := make(chan string, 1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err == nil {
		port := ln.Addr().(*net.TCPAddr).Port
		redirect := fmt.Sprintf("http://127.0.0.1:%d/", port)
		oldRedirect := cfg.RedirectURL
		cfg.RedirectURL = redirect

		mux := http.NewServeMux()
		srv := &http.Server{
			ReadHeaderTimeout: 5 * time.Second,
			Handler:           mux,
		}
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authentication complete. You can close this window.")
			select {
			case resCh <- code:
			default:
			}
			go func() { _ = srv.Shutdown(context.Background()) }()
		})
		go func() { _ = srv.Serve(ln) }()

		authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		fmt.Fprintln(out, "Open this URL in your browser to authorize mailsweep:")
		fmt.Fprintln(out, authURL)
		fmt.Fprintf(out, "Waiting for redirect on %s …\n", redirect)

		select {
		case <-ctx.Done():
			_ = srv.Shutdown(context.Background())
			cfg.RedirectURL = oldRedirect
			return nil, ctx.Err()
		case code := <-resCh:
			tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
			// Restore redirect only after the exchange to avoid invalid_grant.
			cfg.RedirectURL = oldRedirect
			if err != nil {
				return nil, fmt.Errorf("token exchange: %w", err)
			}
			fmt.Fprintln(out, "Authentication successful.")
			return tok, nil
		case <-time.After(120 * time.Second):
			_ = srv.Shutdown(context.Background())
			cfg.RedirectURL = oldRedirect
			fmt.Fprintln(out, "Timeout waiting for redirect; falling back to manual paste.")
		}
	}

	// Manual paste fallback.
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(out, "Open this URL in your browser to authorize mailsweep:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Paste the AUTH CODE itself or the FULL redirect URL here, then press Enter.")
	fmt.Fprint(out, "> ")

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read auth code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}
	code, err := codeFromInput(sc.Text())
	if err != nil {
		return nil, err
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	fmt.Fprintln(out, "Authentication successful.")
	return tok, nil
}

// codeFromInput accepts either a bare auth code or the full redirect URL.
func codeFromInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	c := u.Query().Get("code")
	if c == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return strings.TrimSpace(c), nil
}
