package transferegov

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"transferegov-backend/internal/components/assert"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/remote"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_workflow_initialize = "workflow.initialize"
	report_workflow_login      = "workflow.login"
	report_workflow_menu       = "workflow.navigate-menu"
	report_workflow_step       = "workflow.step"
	report_workflow_close      = "workflow.close"
	report_extract_listing     = "extract.listing"
	report_extract_detail      = "extract.detail"
	report_extract_entities    = "extract.entities"
)

const noResultsSentinel = "Nenhum registro foi encontrado"

var (
	menuContainer = remote.ID("menuPrincipal")
	menuItems     = remote.CSS("#menuPrincipal .button.menu")
	menuFallback  = remote.CSS(`div.button.menu[href="#EXECUCAO"]`)
	resultRow     = remote.CSS("#row")
	pageBody      = remote.TagName("body")
)

type Options struct {
	Launch  remote.LaunchOptions
	Session remote.SessionOptions
	// LandmarkTimeout bounds the check for the entity search form.
	LandmarkTimeout time.Duration
	// PageSettle is waited after opening the entity search page.
	PageSettle time.Duration
	// TabSettle is waited after activating a detail tab.
	TabSettle time.Duration
	// RefreshSettle is waited after reloading a detail page.
	RefreshSettle time.Duration
	// DetailRetries is how many times a failing detail page is reloaded
	// and extracted again after its first failure.
	DetailRetries int
	// MaxPages caps how many listing pages are followed.
	MaxPages int
}

func DefaultOptions() Options {
	return Options{
		Launch:          remote.DefaultLaunchOptions(),
		Session:         remote.DefaultSessionOptions(),
		LandmarkTimeout: 3 * time.Second,
		PageSettle:      time.Second,
		TabSettle:       4 * time.Second,
		RefreshSettle:   5 * time.Second,
		DetailRetries:   3,
		MaxPages:        10,
	}
}

// Automator runs the portal procedures, every call gets its own browser and
// logs in from scratch.
type Automator struct {
	opener      remote.Opener
	credentials CredentialsConfig
	opts        Options
	tel         telemetry.API
}

func NewAutomator(opener remote.Opener, credentials CredentialsConfig, opts Options, tel telemetry.API) Automator {
	assert.NotNil(opener, "opener")
	assert.NotNil(tel, "telemetry")
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	return Automator{
		opener:      opener,
		credentials: credentials,
		opts:        opts,
		tel:         tel,
	}
}

// Workflow is one execution of a procedure, T is the record it extracts.
type Workflow[T any] struct {
	opener  remote.Opener
	target  Target
	opts    Options
	tel     telemetry.API
	session *remote.Session
	state   *WorkflowState[T]
}

func newWorkflow[T any](a Automator, env Environment, namespace string) *Workflow[T] {
	target := ResolveTarget(env, a.credentials)
	return &Workflow[T]{
		opener: a.opener,
		target: target,
		opts:   a.opts,
		tel:    telemetry.NewScopedAPI(namespace, a.tel),
		state:  NewWorkflowState[T](target.Environment),
	}
}

func (w *Workflow[T]) State() *WorkflowState[T] {
	return w.state
}

// step runs a step whose failure is recorded and skipped over.
func (w *Workflow[T]) step(ctx context.Context, name string, fn func(ctx context.Context) error) bool {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.state.Record(err)
		w.tel.ReportWarning(report_workflow_step, name, err)
		return false
	}
	return true
}

// Initialize starts the browser. Failure is fatal.
func (w *Workflow[T]) Initialize(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Initialize")
	defer span.End()

	session, err := remote.OpenSession(ctx, w.opener, w.opts.Launch, w.opts.Session, w.tel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open browser")
		w.state.Record(err)
		w.state.Advance(StatusFailed)
		w.tel.ReportBroken(report_workflow_initialize, err)
		return err
	}
	w.session = session
	w.state.Advance(StatusSessionOpen)
	return nil
}

// Login signs into the identity provider and waits for the main menu. Failure is fatal.
func (w *Workflow[T]) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()
	span.SetAttributes(attribute.String("environment", string(w.target.Environment)))

	err := w.login(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		w.state.Record(err)
		w.state.Advance(StatusLoginFailed)
		w.tel.ReportBroken(report_workflow_login, err, w.target.LoginURL(), w.target.Credentials.Username)
		return err
	}
	w.state.Advance(StatusLoggedIn)
	return nil
}

func (w *Workflow[T]) login(ctx context.Context) error {
	if w.session == nil {
		return remote.ErrSessionClosed
	}
	err := w.session.Navigate(ctx, w.target.LoginURL())
	if err != nil {
		return err
	}
	err = w.session.Type(ctx, remote.Name("j_username"), w.target.Credentials.Username)
	if err != nil {
		return err
	}
	err = w.session.Type(ctx, remote.Name("j_password"), w.target.Credentials.Password)
	if err != nil {
		return err
	}
	err = w.session.Click(ctx, remote.Name("sSubmit"))
	if err != nil {
		return err
	}
	_, err = w.session.WaitFor(ctx, menuContainer, w.opts.Session.WaitTimeout)
	return err
}

type menuStrategy func(ctx context.Context, label string) (bool, error)

// NavigateToMenu opens the main menu entry labelled label. The entries are
// scanned for an exact text match first, then the known anchor of the
// Execução menu is tried.
func (w *Workflow[T]) NavigateToMenu(ctx context.Context, label string) bool {
	var candidates []string
	strategies := []menuStrategy{
		func(ctx context.Context, label string) (bool, error) {
			items, err := w.session.FindAll(ctx, menuItems)
			if err != nil {
				return false, err
			}
			for _, item := range items {
				text, err := item.Text(ctx)
				if err != nil {
					return false, err
				}
				if text != label {
					candidates = append(candidates, text)
					continue
				}
				err = item.Click(ctx)
				if err != nil {
					return false, &remote.InteractionError{Action: "click", Locator: menuItems, Err: err}
				}
				_, err = w.session.WaitFor(ctx, remote.ContainsText("div", label), w.opts.Session.WaitTimeout)
				return err == nil, err
			}
			return false, nil
		},
		func(ctx context.Context, label string) (bool, error) {
			anchors, err := w.session.FindAll(ctx, menuFallback)
			if err != nil || len(anchors) == 0 {
				return false, err
			}
			err = anchors[0].Click(ctx)
			if err != nil {
				return false, &remote.InteractionError{Action: "click", Locator: menuFallback, Err: err}
			}
			return true, nil
		},
	}

	return w.step(ctx, "NavigateToMenu", func(ctx context.Context) error {
		if w.session == nil {
			return remote.ErrSessionClosed
		}
		for _, strategy := range strategies {
			ok, err := strategy(ctx, label)
			if err != nil {
				return err
			}
			if ok {
				w.state.Advance(StatusNavigated)
				return nil
			}
		}

		if closest, ok := closestLabel(label, candidates); ok {
			w.tel.ReportWarning(report_workflow_menu, label, "closest", closest)
		}
		return fmt.Errorf("Menu com texto \"%s\" não encontrado.", label)
	})
}

func closestLabel(label string, candidates []string) (string, bool) {
	best := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		score := matchr.JaroWinkler(strings.ToLower(label), strings.ToLower(candidate), false)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore >= 0.7
}

// ClickLinkByText follows the link whose text is text and waits for the
// link landmark of the page it leads to.
func (w *Workflow[T]) ClickLinkByText(ctx context.Context, text string) bool {
	return w.step(ctx, "ClickLinkByText", func(ctx context.Context) error {
		if w.session == nil {
			return remote.ErrSessionClosed
		}
		err := w.session.Click(ctx, remote.LinkText(text))
		if err != nil {
			return err
		}
		_, err = w.session.WaitFor(ctx, remote.ContainsText("a", text), w.opts.Session.WaitTimeout)
		return err
	})
}

// CheckNoResults reports whether the page says the query matched nothing.
// It never fails, a page that cannot be read counts as having results.
func (w *Workflow[T]) CheckNoResults(ctx context.Context) bool {
	found := false
	w.step(ctx, "CheckNoResults", func(ctx context.Context) error {
		if w.session == nil {
			return remote.ErrSessionClosed
		}
		text, err := w.session.ReadText(ctx, pageBody)
		if err != nil {
			return err
		}
		found = strings.Contains(text, noResultsSentinel)
		return nil
	})
	return found
}

// SelectRow opens the first result whose link text contains key.
func (w *Workflow[T]) SelectRow(ctx context.Context, key string) bool {
	return w.step(ctx, "SelectRow", func(ctx context.Context) error {
		if w.session == nil {
			return remote.ErrSessionClosed
		}
		_, err := w.session.WaitFor(ctx, resultRow, w.opts.Session.WaitTimeout)
		if err != nil {
			return err
		}
		return w.session.Click(ctx, remote.ContainsText("a", key))
	})
}

// Close releases the browser, it is safe to call more than once.
func (w *Workflow[T]) Close(ctx context.Context) {
	if w.session != nil {
		// the run may have been cancelled, the browser still has to go
		err := w.session.Close(context.WithoutCancel(ctx))
		if err != nil {
			w.tel.ReportWarning(report_workflow_close, err)
		}
	}
	w.state.Advance(StatusClosed)
}

// interrupted records the end of the run's context as a failure of the run.
func (w *Workflow[T]) interrupted(ctx context.Context) bool {
	err := ctx.Err()
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("tempo limite da consulta excedido: %w", err)
	}
	w.state.Record(err)
	w.state.Advance(StatusFailed)
	return true
}

// outcome snapshots the state, label overrides the status label when set.
func (w *Workflow[T]) outcome(label string) Outcome[T] {
	settled := w.state.Settled()
	if label == "" {
		label = settled.Label()
	}
	return Outcome[T]{
		Status:      label,
		Results:     w.state.Results(),
		Errors:      w.state.Errors(),
		State:       settled,
		Environment: w.target.Environment,
		Username:    w.target.Credentials.Username,
	}
}

func (w *Workflow[T]) fatal(step string, err error) *FatalError {
	return &FatalError{
		Step:   step,
		Err:    err,
		Errors: w.state.Errors(),
	}
}
