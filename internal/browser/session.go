// Package browser declares the contracts the engine expects from its
// injected collaborators: the headless-browser driver and the evidence
// blob store. The engine never drives a browser directly.
package browser

import "context"

// SessionOptions configures one automation session. The cookie is the
// user's encrypted session credential; Proxy is the checked-out egress
// endpoint in host:port form with credentials.
type SessionOptions struct {
	SessionCookie string
	ProxyAddr     string
	ProxyUsername string
	ProxyPassword string
}

// Session is one live browser automation session bound to a single job.
// All methods honor context cancellation; Navigate and the action methods
// are the engine's suspension points.
type Session interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL() string

	// ElementVisible reports whether any element matching the selector is
	// rendered and visible.
	ElementVisible(ctx context.Context, selector string) (bool, error)
	// VisibleText returns the page's rendered text content. Casing is the
	// driver's own; callers normalize as needed.
	VisibleText(ctx context.Context) (string, error)
	// Screenshot captures the full page as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// ClickConnect presses the connect control on a profile page.
	ClickConnect(ctx context.Context) error
	// SendNote attaches a note to a pending connection request.
	SendNote(ctx context.Context, message string) error

	Close() error
}

// Factory opens sessions; the production implementation wraps the external
// browser automation driver.
type Factory interface {
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
}

// BlobStore persists evidence captures durably and returns a stable
// reference URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
