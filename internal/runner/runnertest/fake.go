// Package runnertest provides an in-memory runner.Page that simulates an
// application as a set of screens, for tests that must not start Chrome.
package runnertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"uicheck/internal/scenario"
)

// PNG is the payload FakePage returns from Screenshot.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// FakePage is a scripted page. Actions move it between screens; each screen
// shows a fixed set of locators (compared by Locator.String()).
type FakePage struct {
	Routes   map[string]string   // navigate URL → screen
	OnUpload map[string]string   // set-input selector → screen
	OnClick  map[string]string   // click target → screen
	Visible  map[string][]string // screen → visible locators

	// Delay is how long a screen takes to show its content after an action.
	Delay time.Duration

	NavigateErr   error
	UploadErr     error
	ClickErr      error
	ScreenshotErr error
	ProbeErr      error

	mu      sync.Mutex
	screen  string
	since   time.Time
	calls   []string
	uploads [][]string
	closed  int
}

func (p *FakePage) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *FakePage) show(screen string) {
	p.screen = screen
	p.since = time.Now()
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate " + url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	screen, ok := p.Routes[url]
	if !ok {
		return fmt.Errorf("net::ERR_CONNECTION_REFUSED at %s", url)
	}
	p.show(screen)
	return nil
}

func (p *FakePage) SetInputFiles(ctx context.Context, selector string, files []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("set-input " + selector + " " + strings.Join(files, ","))
	if p.UploadErr != nil {
		return p.UploadErr
	}
	p.uploads = append(p.uploads, append([]string(nil), files...))
	if screen, ok := p.OnUpload[selector]; ok {
		p.show(screen)
	}
	return nil
}

func (p *FakePage) Click(ctx context.Context, target scenario.Locator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click " + target.String())
	if p.ClickErr != nil {
		return p.ClickErr
	}
	if screen, ok := p.OnClick[target.String()]; ok {
		p.show(screen)
	}
	return nil
}

func (p *FakePage) IsVisible(ctx context.Context, loc scenario.Locator) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ProbeErr != nil {
		return false, p.ProbeErr
	}
	if time.Since(p.since) < p.Delay {
		return false, nil
	}
	for _, v := range p.Visible[p.screen] {
		if v == loc.String() {
			return true, nil
		}
	}
	return false, nil
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("screenshot " + p.screen)
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return PNG, nil
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// Calls returns the actions and screenshots in the order they happened.
func (p *FakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Uploads returns the file lists passed to SetInputFiles.
func (p *FakePage) Uploads() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.uploads...)
}

// Closed reports how many times Close was called.
func (p *FakePage) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// PickingListApp simulates the picking-list application at baseURL:
// upload page, review page after an upload, details page after saving.
func PickingListApp(baseURL string) *FakePage {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &FakePage{
		Routes:   map[string]string{baseURL + "/upload": "upload"},
		OnUpload: map[string]string{"input[type=file]": "review"},
		OnClick:  map[string]string{"button Approve & Save": "details"},
		Visible: map[string][]string{
			"upload": {"heading Upload Picking List"},
			"review": {
				"heading Review & Edit Picking List",
				"text Sales Order: 39053467",
				"gridcell PP2448IO/C",
				"button Approve & Save",
			},
			"details": {
				"heading Picking List Details",
				"text Sales Order: 39053467",
				"gridcell PP2448IO/C",
			},
		},
	}
}

// Hide removes a locator from a screen, e.g. to simulate a parser that
// misread the order.
func (p *FakePage) Hide(screen, loc string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.Visible[screen][:0:0]
	for _, v := range p.Visible[screen] {
		if v != loc {
			kept = append(kept, v)
		}
	}
	p.Visible[screen] = kept
}
