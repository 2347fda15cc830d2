package remote

import (
	"context"
	"errors"
)

// ErrNoSuchElement is returned by Driver.Find when nothing matches the locator
// at the time of the call. Drivers never wait on their own, waiting is the
// session's job.
var ErrNoSuchElement = errors.New("no such element")

// ErrStaleElement is returned by element operations when the node an Element
// refers to has been detached from the document.
var ErrStaleElement = errors.New("stale element reference")

// Driver is the remote-control protocol spoken with one browser instance.
//
// note: fault injection point
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Find(ctx context.Context, loc Locator) (Element, error)
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	Back(ctx context.Context) error
	Refresh(ctx context.Context) error
	Quit(ctx context.Context) error
}

// Element is a handle to a node on the page the driver currently shows.
type Element interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	// Attribute returns false when the attribute is not set on the node.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// HTML returns the outer html of the node.
	HTML(ctx context.Context) (string, error)
}

// LaunchOptions is the fixed configuration a browser is started with.
type LaunchOptions struct {
	Headless bool
	// Locale is the accept-language the browser presents.
	Locale          string
	AllowImages     bool
	IgnoreCertErrs  bool
	DisableSandbox  bool
	DisableGPU      bool
	DisableExts     bool
	DisableDevShm   bool
	DisableNotifs   bool
	DisableInfobars bool
}

// DefaultLaunchOptions is the launch configuration every workflow uses.
func DefaultLaunchOptions() LaunchOptions {
	return LaunchOptions{
		Headless:        true,
		Locale:          "en-GB",
		AllowImages:     true,
		IgnoreCertErrs:  true,
		DisableSandbox:  true,
		DisableGPU:      true,
		DisableExts:     true,
		DisableDevShm:   true,
		DisableNotifs:   true,
		DisableInfobars: true,
	}
}

// Opener starts a browser and returns a driver for it.
type Opener interface {
	Open(ctx context.Context, opts LaunchOptions) (Driver, error)
}

type OpenerFunc func(ctx context.Context, opts LaunchOptions) (Driver, error)

func (f OpenerFunc) Open(ctx context.Context, opts LaunchOptions) (Driver, error) {
	return f(ctx, opts)
}
