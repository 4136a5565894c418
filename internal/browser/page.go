package browser

import "context"

// Page is an isolated browsing context owned by exactly one caller.
// Close must be called on every exit path and is safe to call more than once.
type Page interface {
	// Goto navigates and returns the main document's HTTP status (0 when unknown).
	Goto(ctx context.Context, url string) (int, error)
	// InjectScript adds source to the page's script context.
	InjectScript(ctx context.Context, source string) error
	// Evaluate runs expr in the page and returns its JSON-decoded value.
	Evaluate(ctx context.Context, expr string, arg any) (any, error)
	Close() error
}

// Session is a launched (or attached) browser process.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Connected() bool
	Close() error
}

// Driver starts a Session. Launch is called at most once per Manager.
type Driver interface {
	Launch(ctx context.Context) (Session, error)
}

type DriverFunc func(ctx context.Context) (Session, error)

func (f DriverFunc) Launch(ctx context.Context) (Session, error) { return f(ctx) }
