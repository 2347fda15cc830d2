// Package roddriver speaks the devtools protocol to a chromium browser
// through go-rod, either one it launches itself or one already running.
package roddriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"transferegov-backend/internal/components/telemetry"
	"transferegov-backend/internal/remote"
	"transferegov-backend/lib/util/restyutil"

	"github.com/go-resty/resty/v2"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("transferegov.internal.remote.roddriver")

const (
	report_opener_launch  = "opener.launch"
	report_opener_connect = "opener.connect"
	report_driver_quit    = "driver.quit"
)

type Config struct {
	// ControlURL points at an already running browser (ws://, or http:// to
	// resolve it through /json/version). A local browser is launched when empty.
	ControlURL string `json:"control_url"`
	// Bin is the chromium binary used for local launches, rod downloads one when empty.
	Bin string `json:"bin"`
	// LoadTimeout bounds how long a navigation waits for the page load event.
	LoadTimeout time.Duration `json:"load_timeout"`
}

type Opener struct {
	cfg    Config
	client *resty.Client
	tel    telemetry.API
}

func NewOpener(cfg Config, tel telemetry.API) Opener {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	telemetry.InstrumentResty(client, tel)
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 30 * time.Second
	}
	return Opener{
		cfg:    cfg,
		client: client,
		tel:    tel,
	}
}

// DumpHttp writes every devtools endpoint exchange the opener makes to out.
func (o Opener) DumpHttp(out restyutil.Output) {
	restyutil.Dump(o.client, out)
}

func launchFlags(l *launcher.Launcher, opts remote.LaunchOptions) *launcher.Launcher {
	l = l.Headless(opts.Headless).NoSandbox(opts.DisableSandbox)
	if opts.DisableExts {
		l = l.Set(flags.Flag("disable-extensions"))
	}
	if opts.DisableGPU {
		l = l.Set(flags.Flag("disable-gpu"))
	}
	if opts.DisableDevShm {
		l = l.Set(flags.Flag("disable-dev-shm-usage"))
	}
	if opts.DisableNotifs {
		l = l.Set(flags.Flag("disable-notifications"))
	}
	if opts.DisableInfobars {
		l = l.Set(flags.Flag("disable-infobars"))
	}
	if opts.IgnoreCertErrs {
		l = l.Set(flags.Flag("ignore-certificate-errors"))
	}
	if opts.Locale != "" {
		l = l.Set(flags.Flag("lang"), opts.Locale)
	}
	images := "true"
	if !opts.AllowImages {
		images = "false"
	}
	return l.
		Set(flags.Flag("blink-settings"), "imagesEnabled="+images).
		Set(flags.Flag("start-maximized")).
		Set(flags.Flag("disable-logging"))
}

// Open starts (or attaches to) a browser and opens the one page the driver
// works on. Attached browsers get a fresh incognito context per driver so
// concurrent drivers never share cookies.
func (o Opener) Open(ctx context.Context, opts remote.LaunchOptions) (remote.Driver, error) {
	ctx, span := tracer.Start(ctx, "Open")
	defer span.End()

	// the connection outlives the request context that opened it, Quit ends it
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	var controlURL string
	var l *launcher.Launcher
	var err error
	if o.cfg.ControlURL != "" {
		controlURL, err = resolveControlURL(ctx, o.client, o.cfg.ControlURL)
		if err != nil {
			cancel()
			o.tel.ReportBroken(report_opener_connect, err, o.cfg.ControlURL)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to resolve control url")
			return nil, fmt.Errorf("resolve control url: %w", err)
		}
	} else {
		l = launchFlags(launcher.New().Context(connCtx), opts)
		if o.cfg.Bin != "" {
			l = l.Bin(o.cfg.Bin)
		}
		controlURL, err = l.Launch()
		if err != nil {
			cancel()
			o.tel.ReportBroken(report_opener_launch, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to launch browser")
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	}

	browser := rod.New().ControlURL(controlURL).Context(connCtx)
	err = browser.Connect()
	if err != nil {
		cancel()
		if l != nil {
			l.Kill()
		}
		o.tel.ReportBroken(report_opener_connect, err, controlURL)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect to browser")
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	d := &Driver{
		tel:         o.tel,
		loadTimeout: o.cfg.LoadTimeout,
	}
	owner := browser
	if l == nil {
		owner, err = browser.Incognito()
		if err != nil {
			cancel()
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create incognito context")
			return nil, fmt.Errorf("incognito context: %w", err)
		}
	}
	d.release = func() error {
		defer cancel()
		err := owner.Close()
		if l != nil {
			l.Kill()
			l.Cleanup()
		}
		return err
	}

	page, err := owner.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		d.release()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open page")
		return nil, fmt.Errorf("open page: %w", err)
	}
	if opts.Locale != "" {
		err = proto.EmulationSetLocaleOverride{Locale: opts.Locale}.Call(page)
		if err != nil {
			d.release()
			return nil, fmt.Errorf("set locale: %w", err)
		}
	}
	if opts.IgnoreCertErrs {
		err = proto.SecuritySetIgnoreCertificateErrors{Ignore: true}.Call(page)
		if err != nil {
			d.release()
			return nil, fmt.Errorf("ignore certificate errors: %w", err)
		}
	}
	d.page = page

	return d, nil
}

// Driver implements remote.Driver on a single rod page.
type Driver struct {
	page        *rod.Page
	release     func() error
	tel         telemetry.API
	loadTimeout time.Duration
}

// immediate returns the page bound to ctx with lookups that fail right away
// instead of rod's default of retrying until the element shows up.
func (d *Driver) immediate(ctx context.Context) *rod.Page {
	return d.page.Context(ctx).Sleeper(rod.NotFoundSleeper)
}

func (d *Driver) waitLoad(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.loadTimeout)
	defer cancel()
	return d.page.Context(ctx).WaitLoad()
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	err := d.page.Context(ctx).Navigate(url)
	if err != nil {
		return err
	}
	return d.waitLoad(ctx)
}

func (d *Driver) Back(ctx context.Context) error {
	err := d.page.Context(ctx).NavigateBack()
	if err != nil {
		return err
	}
	return d.waitLoad(ctx)
}

func (d *Driver) Refresh(ctx context.Context) error {
	err := d.page.Context(ctx).Reload()
	if err != nil {
		return err
	}
	return d.waitLoad(ctx)
}

func (d *Driver) Quit(ctx context.Context) error {
	err := d.release()
	if err != nil {
		d.tel.ReportWarning(report_driver_quit, err)
	}
	return err
}

func xpathOf(loc remote.Locator) (string, bool) {
	switch loc.Strategy {
	case remote.ByXPath:
		return loc.Value, true
	case remote.ByLinkText:
		return fmt.Sprintf("//a[normalize-space(.)=%s]", remote.XPathLiteral(loc.Value)), true
	case remote.ByName:
		return fmt.Sprintf("//*[@name=%s]", remote.XPathLiteral(loc.Value)), true
	case remote.ByID:
		return fmt.Sprintf("//*[@id=%s]", remote.XPathLiteral(loc.Value)), true
	}
	// css and tag names are selectors already
	return "", false
}

// detachedMessages are the devtools errors answered for a node or a js
// context that went away with the document it belonged to.
var detachedMessages = []string{
	"Cannot find context with specified id",
	"Execution context was destroyed",
	"Could not find object with given id",
	"Could not find node with given id",
	"No node with given id found",
}

func notFound(err error) error {
	var missing *rod.ElementNotFoundError
	if errors.As(err, &missing) {
		return remote.ErrNoSuchElement
	}
	var stale *rod.ObjectNotFoundError
	if errors.As(err, &stale) {
		return fmt.Errorf("%w: %v", remote.ErrStaleElement, err)
	}
	var protocol *cdp.Error
	if errors.As(err, &protocol) {
		for _, message := range detachedMessages {
			if strings.Contains(protocol.Message, message) {
				return fmt.Errorf("%w: %v", remote.ErrStaleElement, err)
			}
		}
	}
	return err
}

func (d *Driver) Find(ctx context.Context, loc remote.Locator) (remote.Element, error) {
	page := d.immediate(ctx)

	var el *rod.Element
	var err error
	if xpath, ok := xpathOf(loc); ok {
		el, err = page.ElementX(xpath)
	} else {
		el, err = page.Element(loc.Value)
	}
	if err != nil {
		return nil, notFound(err)
	}
	return element{el: el}, nil
}

func (d *Driver) FindAll(ctx context.Context, loc remote.Locator) ([]remote.Element, error) {
	page := d.page.Context(ctx)

	var found rod.Elements
	var err error
	if xpath, ok := xpathOf(loc); ok {
		found, err = page.ElementsX(xpath)
	} else {
		found, err = page.Elements(loc.Value)
	}
	if err != nil {
		return nil, notFound(err)
	}

	out := make([]remote.Element, len(found))
	for i, el := range found {
		out[i] = element{el: el}
	}
	return out, nil
}

type element struct {
	el *rod.Element
}

func (e element) Click(ctx context.Context) error {
	return notFound(e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

func (e element) SendKeys(ctx context.Context, text string) error {
	return notFound(e.el.Context(ctx).Input(text))
}

func (e element) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	return text, notFound(err)
}

func (e element) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, notFound(err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (e element) HTML(ctx context.Context) (string, error) {
	html, err := e.el.Context(ctx).HTML()
	return html, notFound(err)
}
