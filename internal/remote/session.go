package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"transferegov-backend/internal/components/assert"
	"transferegov-backend/internal/components/telemetry"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("transferegov.internal.remote")

const (
	report_session_wait  = "session.wait"
	report_session_close = "session.close"
)

type SessionOptions struct {
	// WaitTimeout bounds a single wait attempt of the wait-then-act operations.
	WaitTimeout time.Duration
	// Attempts is the total number of wait attempts before an element is
	// considered missing.
	Attempts     int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		WaitTimeout:  10 * time.Second,
		Attempts:     3,
		PollInterval: 250 * time.Millisecond,
		RetryDelay:   500 * time.Millisecond,
	}
}

// Session owns one remote browser. Every interaction waits for its element
// first, a page is never acted on before the element is present.
//
// A Session is used by one workflow at a time.
type Session struct {
	driver Driver
	opts   SessionOptions
	tel    telemetry.API

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewSession(driver Driver, opts SessionOptions, tel telemetry.API) *Session {
	assert.NotNil(driver, "driver")
	assert.NotNil(tel, "telemetry")
	assert.Positive(opts.Attempts, "attempts")
	return &Session{
		driver: driver,
		opts:   opts,
		tel:    tel,
	}
}

// OpenSession starts a browser through opener and wraps it in a session.
func OpenSession(ctx context.Context, opener Opener, launch LaunchOptions, opts SessionOptions, tel telemetry.API) (*Session, error) {
	ctx, span := tracer.Start(ctx, "OpenSession")
	defer span.End()

	driver, err := opener.Open(ctx, launch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open remote browser")
		return nil, err
	}
	return NewSession(driver, opts, tel), nil
}

func (s *Session) Options() SessionOptions {
	return s.opts
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	err := s.driver.Navigate(ctx, url)
	if err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	return nil
}

// poll looks for loc until it appears or timeout elapses. A lookup error
// other than ErrNoSuchElement ends the attempt right away.
func (s *Session) poll(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		if s.closed.Load() {
			return nil, backoff.Permanent(ErrSessionClosed)
		}
		el, err := s.driver.Find(ctx, loc)
		if err == nil {
			return el, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if !errors.Is(err, ErrNoSuchElement) {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("timed out after %s: %w", timeout, err)
		}

		select {
		case <-ctx.Done():
			return nil, backoff.Permanent(ctx.Err())
		case <-time.After(s.opts.PollInterval):
		}
	}
}

// WaitFor waits for loc to be present, making up to Attempts attempts of
// `timeout` each. It fails with *ElementNotFoundError only once every attempt
// has been spent.
func (s *Session) WaitFor(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	ctx, span := tracer.Start(ctx, "WaitFor")
	defer span.End()
	span.SetAttributes(attribute.String("locator", loc.String()))

	var found Element
	attempts := 0
	operation := func() error {
		attempts++
		el, err := s.poll(ctx, loc, timeout)
		if err != nil {
			return err
		}
		found = el
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(s.opts.RetryDelay),
			uint64(s.opts.Attempts-1),
		),
		ctx,
	)
	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		s.tel.ReportDebug(report_session_wait, loc.String(), attempts, err.Error())
	})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err == nil {
		return found, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "element did not appear")
	if errors.Is(err, ErrSessionClosed) {
		return nil, ErrSessionClosed
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("wait for %s: %w", loc, ctx.Err())
	}
	return nil, &ElementNotFoundError{
		Locator:  loc,
		Attempts: attempts,
		Err:      err,
	}
}

func (s *Session) act(ctx context.Context, action string, loc Locator, fn func(el Element) error) error {
	el, err := s.WaitFor(ctx, loc, s.opts.WaitTimeout)
	if err != nil {
		return err
	}
	err = fn(el)
	if err != nil {
		return &InteractionError{Action: action, Locator: loc, Err: err}
	}
	return nil
}

func (s *Session) Click(ctx context.Context, loc Locator) error {
	return s.act(ctx, "click", loc, func(el Element) error {
		return el.Click(ctx)
	})
}

func (s *Session) Type(ctx context.Context, loc Locator, text string) error {
	return s.act(ctx, "type into", loc, func(el Element) error {
		return el.SendKeys(ctx, text)
	})
}

func (s *Session) ReadText(ctx context.Context, loc Locator) (string, error) {
	var text string
	err := s.act(ctx, "read text of", loc, func(el Element) error {
		var err error
		text, err = el.Text(ctx)
		return err
	})
	return text, err
}

func (s *Session) ReadAttribute(ctx context.Context, loc Locator, name string) (string, bool, error) {
	var value string
	var ok bool
	err := s.act(ctx, "read attribute "+name+" of", loc, func(el Element) error {
		var err error
		value, ok, err = el.Attribute(ctx, name)
		return err
	})
	return value, ok, err
}

func (s *Session) ReadHTML(ctx context.Context, loc Locator) (string, error) {
	var html string
	err := s.act(ctx, "read html of", loc, func(el Element) error {
		var err error
		html, err = el.HTML(ctx)
		return err
	})
	return html, err
}

// SelectOption picks one option out of a dropdown widget: the widget is opened
// with a click and then the anchor carrying the option text is clicked.
func (s *Session) SelectOption(ctx context.Context, dropdown Locator, option string) error {
	err := s.Click(ctx, dropdown)
	if err != nil {
		return err
	}
	return s.Click(ctx, ExactText("a", option))
}

// SelectMultiple ticks the checkbox preceding each option label of a
// multi-select widget and closes the widget afterwards.
func (s *Session) SelectMultiple(ctx context.Context, dropdown Locator, options []string) error {
	err := s.Click(ctx, dropdown)
	if err != nil {
		return err
	}
	for _, option := range options {
		checkbox := XPath(fmt.Sprintf("//label[text()=%s]/preceding-sibling::input", XPathLiteral(option)))
		err = s.Click(ctx, checkbox)
		if err != nil {
			return err
		}
	}
	return s.Click(ctx, dropdown)
}

// FindAll returns every element currently matching loc without waiting.
func (s *Session) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.driver.FindAll(ctx, loc)
}

// Peek reads the text of loc without waiting, ErrNoSuchElement is returned
// when it is not on the page.
func (s *Session) Peek(ctx context.Context, loc Locator) (string, error) {
	if s.closed.Load() {
		return "", ErrSessionClosed
	}
	el, err := s.driver.Find(ctx, loc)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

func (s *Session) Back(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	err := s.driver.Back(ctx)
	if err != nil {
		return &NavigationError{URL: "history.back", Err: err}
	}
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	err := s.driver.Refresh(ctx)
	if err != nil {
		return &NavigationError{URL: "location.reload", Err: err}
	}
	return nil
}

// Pause sleeps for d unless ctx ends first.
func (s *Session) Pause(ctx context.Context, d time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Close quits the browser. Only the first call reaches the driver, later
// calls return nil.
func (s *Session) Close(ctx context.Context) error {
	first := false
	s.closeOnce.Do(func() {
		first = true
		s.closed.Store(true)
		s.closeErr = s.driver.Quit(ctx)
		if s.closeErr != nil {
			s.tel.ReportBroken(report_session_close, s.closeErr)
		}
	})
	if first {
		return s.closeErr
	}
	return nil
}

// WaitDetached waits until el is gone from the document, which is how a click
// that triggers a page load is known to have taken effect. A timeout of zero
// checks once.
func (s *Session) WaitDetached(ctx context.Context, el Element, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if s.closed.Load() {
			return ErrSessionClosed
		}
		_, err := el.Text(ctx)
		if errors.Is(err, ErrStaleElement) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: still attached after %s", ErrPageUnchanged, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opts.PollInterval):
		}
	}
}
