package credentials

import (
	"context"
	"sync"

	"github.com/pagelens/pagelens/internal/domain"
)

// StaticProvider serves one fixed token until it is invalidated. Intended for
// local runs with a pre-minted token and for tests.
type StaticProvider struct {
	mu          sync.Mutex
	token       string
	invalidated bool
}

func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: token}
}

func (p *StaticProvider) Token(ctx context.Context, interactive bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.invalidated || p.token == "" {
		return "", &domain.CredentialError{Reason: "static token unavailable"}
	}
	return p.token, nil
}

func (p *StaticProvider) Invalidate(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token == p.token {
		p.invalidated = true
	}
}

var _ Provider = (*StaticProvider)(nil)
