// Package calendar syncs tasks to Google Calendar.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// credentialsFile holds the downloaded Google API client secrets
	// (client_id, client_secret, redirect_uris), placed in the config dir.
	credentialsFile = "credentials.json"

	// tokenFile stores the obtained OAuth token next to the credentials.
	tokenFile = "token.json"

	// authPort is where the local server listens for the OAuth redirect. It
	// must match a localhost redirect URI registered for the client.
	authPort = "6789"
)

// Service builds an authenticated Calendar service. configDir holds both the
// client secrets and the cached token; a missing token triggers the
// browser-based authorization flow.
func Service(ctx context.Context, configDir string) (*gcal.Service, error) {
	cfg, err := oauthConfig(configDir)
	if err != nil {
		return nil, err
	}

	tokenPath := filepath.Join(configDir, tokenFile)
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		log.Printf("calendar: no token at %s, starting authorization flow", tokenPath)
		tok, err = tokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("authorizing: %w", err)
		}
		if err := saveToken(tokenPath, tok); err != nil {
			log.Printf("calendar: saving token: %v", err)
		}
	}

	client := oauth2.NewClient(ctx, cfg.TokenSource(ctx, tok))
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("building calendar service: %w", err)
	}
	return srv, nil
}

func oauthConfig(configDir string) (*oauth2.Config, error) {
	path := filepath.Join(configDir, credentialsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client secrets %s: %w", path, err)
	}
	cfg, err := google.ConfigFromJSON(data, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secrets: %w", err)
	}
	cfg.RedirectURL = "http://localhost:" + authPort + "/oauth2callback"
	return cfg, nil
}

// tokenFromWeb runs the authorization-code flow through a short-lived local
// server that captures the redirect.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", ":"+authPort)
	if err != nil {
		return nil, fmt.Errorf("listening on port %s: %w", authPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "authorization code missing", http.StatusBadRequest)
				errCh <- fmt.Errorf("redirect carried no authorization code")
				return
			}
			fmt.Fprint(w, "Authentication successful. You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Open this URL in your browser to authorize calendar access:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
