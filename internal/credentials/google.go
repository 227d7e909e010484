package credentials

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pagelens/pagelens/internal/domain"
)

// cloudPlatformScope authorizes calls to the Vertex AI API.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GoogleProvider obtains bearer tokens from Google application default
// credentials and caches the current one. Invalidation drops the cache so a
// known-bad token is never reused.
type GoogleProvider struct {
	mu     sync.Mutex
	source oauth2.TokenSource
	cached *oauth2.Token

	// newSource is swapped in tests.
	newSource func(ctx context.Context) (oauth2.TokenSource, error)
}

func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{
		newSource: func(ctx context.Context) (oauth2.TokenSource, error) {
			return google.DefaultTokenSource(ctx, cloudPlatformScope)
		},
	}
}

func (p *GoogleProvider) Token(ctx context.Context, interactive bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.cached.Valid() {
		return p.cached.AccessToken, nil
	}

	if !interactive {
		return "", &domain.CredentialError{Reason: "no cached token and non-interactive acquisition requested"}
	}

	if p.source == nil {
		source, err := p.newSource(ctx)
		if err != nil {
			return "", &domain.CredentialError{Reason: "resolve application default credentials: " + err.Error()}
		}
		p.source = source
	}

	token, err := p.source.Token()
	if err != nil {
		return "", &domain.CredentialError{Reason: "acquire token: " + err.Error()}
	}
	if token.AccessToken == "" {
		return "", &domain.CredentialError{Reason: "credential source returned an empty token"}
	}

	p.cached = token
	return token.AccessToken, nil
}

// Invalidate drops the cached token when it matches the rejected one. The
// source is dropped with it: oauth2 reuse sources keep serving a token until
// its expiry, and a rejected token must not be served again.
func (p *GoogleProvider) Invalidate(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.cached.AccessToken == token {
		p.cached = nil
		p.source = nil
	}
}

var _ Provider = (*GoogleProvider)(nil)
