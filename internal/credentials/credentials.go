// Package credentials supplies bearer tokens for the generation endpoint.
// The pipeline borrows a token per call and never owns its lifetime; when the
// provider reports an authorization failure the pipeline invalidates the
// token and leaves the fresh attempt to the next explicit invocation.
package credentials

import "context"

// Provider produces bearer tokens on demand.
//
// interactive=true permits a potentially blocking acquisition (user consent,
// remote metadata fetch). interactive=false must return immediately: either a
// cached token or a domain.CredentialError, never a blocking exchange.
type Provider interface {
	Token(ctx context.Context, interactive bool) (string, error)

	// Invalidate tells the provider a token was rejected by the endpoint and
	// must not be served again. Unknown tokens are ignored.
	Invalidate(token string)
}
