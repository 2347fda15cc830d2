// Package remotetest is an in-memory remote browser for tests. Pages are
// registered by url with the elements each locator resolves to, navigation and
// clicks move between them. An element goes stale while its page is not shown.
package remotetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"transferegov-backend/internal/remote"
)

type Element struct {
	Value string
	Attrs map[string]string
	// Markup is the outer html, it defaults to Value wrapped in a div.
	Markup string
	// OnClick runs after a successful click, usually to Show another page.
	OnClick  func(d *Driver)
	ClickErr error
	// Typed collects everything sent with SendKeys.
	Typed []string

	driver *Driver
	page   *Page
}

// stale reports whether the page e was added to is no longer shown.
func (e *Element) stale() bool {
	if e.driver == nil {
		return false
	}
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	return e.page != nil && e.driver.current != e.page
}

func (e *Element) Click(ctx context.Context) error {
	if e.stale() {
		return remote.ErrStaleElement
	}
	e.driver.mu.Lock()
	e.driver.Clicks++
	e.driver.mu.Unlock()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.OnClick != nil {
		e.OnClick(e.driver)
	}
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if e.stale() {
		return remote.ErrStaleElement
	}
	e.Typed = append(e.Typed, text)
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if e.stale() {
		return "", remote.ErrStaleElement
	}
	return e.Value, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if e.stale() {
		return "", false, remote.ErrStaleElement
	}
	value, ok := e.Attrs[name]
	return value, ok, nil
}

func (e *Element) HTML(ctx context.Context) (string, error) {
	if e.stale() {
		return "", remote.ErrStaleElement
	}
	if e.Markup != "" {
		return e.Markup, nil
	}
	return "<div>" + e.Value + "</div>", nil
}

type Page struct {
	URL      string
	Elements map[remote.Locator][]*Element
}

type Driver struct {
	mu      sync.Mutex
	pages   map[string]*Page
	current *Page
	history []*Page

	// FindHook runs before every lookup, returning an error fails the lookup.
	FindHook func(loc remote.Locator) error
	// OnRefresh runs on every Refresh with the page being reloaded.
	OnRefresh func(d *Driver, page *Page)
	// NavigateErr fails every Navigate call.
	NavigateErr error

	Finds     int
	Clicks    int
	Backs     int
	Refreshes int
	Quits     int
}

func NewDriver() *Driver {
	return &Driver{pages: map[string]*Page{}}
}

// Page returns the page registered at url, creating it if needed.
func (d *Driver) Page(url string) *Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	page, ok := d.pages[url]
	if !ok {
		page = &Page{URL: url, Elements: map[remote.Locator][]*Element{}}
		d.pages[url] = page
	}
	return page
}

// Add registers a new element on the page at url.
func (d *Driver) Add(url string, loc remote.Locator, el *Element) *Element {
	page := d.Page(url)
	d.mu.Lock()
	defer d.mu.Unlock()
	el.driver = d
	el.page = page
	page.Elements[loc] = append(page.Elements[loc], el)
	return el
}

// Remove drops every element registered under loc on the page at url.
func (d *Driver) Remove(url string, loc remote.Locator) {
	page := d.Page(url)
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(page.Elements, loc)
}

// Show makes url the current page, as if the browser moved there.
func (d *Driver) Show(url string) {
	page := d.Page(url)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.history = append(d.history, d.current)
	}
	d.current = page
}

// Current returns the url of the page being shown.
func (d *Driver) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ""
	}
	return d.current.URL
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	d.mu.Lock()
	_, ok := d.pages[url]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED (%s)", url)
	}
	d.Show(url)
	return nil
}

func (d *Driver) lookup(loc remote.Locator) ([]*Element, error) {
	d.mu.Lock()
	d.Finds++
	hook := d.FindHook
	current := d.current
	d.mu.Unlock()

	if hook != nil {
		err := hook(loc)
		if err != nil {
			return nil, err
		}
	}
	if current == nil {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return current.Elements[loc], nil
}

func (d *Driver) Find(ctx context.Context, loc remote.Locator) (remote.Element, error) {
	elements, err := d.lookup(loc)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, remote.ErrNoSuchElement
	}
	return elements[0], nil
}

func (d *Driver) FindAll(ctx context.Context, loc remote.Locator) ([]remote.Element, error) {
	elements, err := d.lookup(loc)
	if err != nil {
		return nil, err
	}
	out := make([]remote.Element, len(elements))
	for i, el := range elements {
		out[i] = el
	}
	return out, nil
}

func (d *Driver) Back(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Backs++
	if len(d.history) == 0 {
		return errors.New("no history to go back to")
	}
	d.current = d.history[len(d.history)-1]
	d.history = d.history[:len(d.history)-1]
	return nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	d.Refreshes++
	hook := d.OnRefresh
	current := d.current
	d.mu.Unlock()
	if hook != nil {
		hook(d, current)
	}
	return nil
}

func (d *Driver) Quit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Quits++
	return nil
}

// Opener hands out the same driver on every Open, Err fails the launch instead.
type Opener struct {
	Driver *Driver
	Err    error

	mu     sync.Mutex
	Opens  int
	Launch []remote.LaunchOptions
}

func (o *Opener) Open(ctx context.Context, opts remote.LaunchOptions) (remote.Driver, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Opens++
	o.Launch = append(o.Launch, opts)
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Driver, nil
}
