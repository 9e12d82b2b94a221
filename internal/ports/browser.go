package ports

import (
	"context"
	"time"
)

// BrowserLauncher opens a browser session for one run.
type BrowserLauncher interface {
	// Launch starts a browser and returns a session owned by the caller.
	Launch(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is the browser-driver collaborator used by the send state machine.
// Locators are opaque strings interpreted by the implementation.
// Waits return domain.ErrTimeout when the bound elapses and ctx.Err() when ctx is done.
type BrowserSession interface {
	// Navigate loads url in the session's page.
	Navigate(ctx context.Context, url string) error

	// WaitPresent waits up to timeout for an element matching locator to exist.
	WaitPresent(ctx context.Context, locator string, timeout time.Duration) error

	// WaitClickable waits up to timeout for a matching element to become interactable.
	WaitClickable(ctx context.Context, locator string, timeout time.Duration) (Clickable, error)

	// Click clicks a matching element if it is present right now.
	Click(ctx context.Context, locator string) error

	// Close releases the browser. Calling it more than once is safe.
	Close() error
}

// Clickable is an element ready to receive a click.
type Clickable interface {
	Click(ctx context.Context) error
}
