package runnertest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"uicheck/internal/runner"
	"uicheck/internal/scenario"
	"uicheck/internal/scenario/catalog"
)

// PickingList loads the built-in scenario with a real sample file and
// timeouts short enough for unit tests. It returns the sample's path.
func PickingList(t testing.TB) (*scenario.Scenario, string) {
	t.Helper()
	sc, err := catalog.Load(catalog.Default)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	sample := filepath.Join(t.TempDir(), "15355234.pdf")
	if err := os.WriteFile(sample, []byte("%PDF-1.4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sc.Steps[1].Action.Files = []string{sample}
	for i := range sc.Steps {
		sc.Steps[i].Settle = 0
		sc.Steps[i].Timeout = scenario.Duration(300 * time.Millisecond)
	}
	return sc, sample
}

// Opener hands out a new FakePage per OpenPage call and keeps them for
// inspection.
type Opener struct {
	New func() *FakePage
	Err error

	mu    sync.Mutex
	pages []*FakePage
}

func (o *Opener) OpenPage(ctx context.Context) (runner.Page, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	p := o.New()
	o.pages = append(o.pages, p)
	return p, nil
}

// Pages returns the pages opened so far.
func (o *Opener) Pages() []*FakePage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*FakePage(nil), o.pages...)
}
