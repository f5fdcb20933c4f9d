// Package auth owns the Spotify client-credentials token lifecycle. The
// resolver only ever reads the current value through CurrentToken; acquisition
// and proactive refresh happen here.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// refreshMargin is how long before expiry a refresh is scheduled.
	refreshMargin = 30 * time.Second
	// failureCooldown is the pause before re-entering the refresh cycle after
	// a fetch has exhausted its retries.
	failureCooldown = time.Minute

	defaultMaxTries  = 5
	defaultRetryBase = time.Second
)

// ErrBadCredentials means the token endpoint rejected the client id/secret.
// This is never retried.
var ErrBadCredentials = errors.New("auth: token endpoint rejected credentials")

type Provider struct {
	conf      *clientcredentials.Config
	maxTries  int
	retryBase time.Duration
	log       *log.Entry

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewClientCredentials builds a provider for the Spotify accounts service
// using the OAuth client-credentials grant.
func NewClientCredentials(clientID, clientSecret string) *Provider {
	return &Provider{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
		maxTries:  defaultMaxTries,
		retryBase: defaultRetryBase,
		log:       log.WithFields(log.Fields{"module": "auth"}),
	}
}

// Start acquires the initial token and schedules refreshes until ctx is
// cancelled. A transient acquisition failure is returned but still leaves the
// refresh loop running, so a token arrives once the endpoint recovers; only
// rejected credentials stop the provider entirely.
func (p *Provider) Start(ctx context.Context) error {
	token, err := p.fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			return err
		}
		go p.refreshLoop(ctx)
		return err
	}
	p.store(token)
	go p.refreshLoop(ctx)
	return nil
}

// CurrentToken returns the current bearer token, or false when no usable
// token is held.
func (p *Provider) CurrentToken() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token == nil || !p.token.Valid() {
		return "", false
	}
	return p.token.AccessToken, true
}

func (p *Provider) store(token *oauth2.Token) {
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
}

func (p *Provider) refreshLoop(ctx context.Context) {
	for {
		// No token yet means the initial acquisition failed; refetch
		// immediately instead of waiting on an expiry.
		var expiry time.Time
		p.mu.RLock()
		if p.token != nil {
			expiry = p.token.Expiry
		}
		p.mu.RUnlock()

		wait := time.Until(expiry) - refreshMargin
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		token, err := p.fetch(ctx)
		if err != nil {
			p.log.Errorf("token refresh failed: %v", err)
			sentry.CaptureException(err)
			if errors.Is(err, ErrBadCredentials) || ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(failureCooldown):
			}
			continue
		}
		p.store(token)
		p.log.Debugf("token refreshed, expires %s", token.Expiry.Format(time.RFC3339))
	}
}

// fetch requests a fresh token, retrying transient failures with exponential
// backoff up to maxTries attempts. HTTP 400 means the credentials themselves
// are bad and fails immediately.
func (p *Provider) fetch(ctx context.Context) (*oauth2.Token, error) {
	backoff := p.retryBase
	var lastErr error
	for attempt := 1; attempt <= p.maxTries; attempt++ {
		token, err := p.conf.Token(ctx)
		if err == nil {
			return token, nil
		}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %v", ErrBadCredentials, err)
		}

		lastErr = err
		p.log.Warnf("token request failed (attempt %d/%d): %v", attempt, p.maxTries, err)
		if attempt == p.maxTries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("token request failed after %d attempts: %w", p.maxTries, lastErr)
}
