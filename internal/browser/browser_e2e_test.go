//go:build e2e

package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"uicheck/internal/artifact"
	"uicheck/internal/runner"
	"uicheck/internal/scenario/catalog"

	"github.com/google/go-cmp/cmp"
)

const uploadHTML = `<!doctype html><title>Upload</title>
<h1>Upload Picking List</h1>
<input type="file" id="pdf" style="display:none" onchange="location.href='/review'">
<label for="pdf">Choose PDF</label>`

const reviewHTML = `<!doctype html><title>Review</title>
<h1>Review &amp; Edit Picking List</h1>
<p>Sales Order: 39053467</p>
<table role="grid"><tr role="row"><td role="gridcell">PP2448IO/C</td><td role="gridcell">4</td></tr></table>
<button onclick="location.href='/details'">Approve &amp; Save</button>`

const detailsHTML = `<!doctype html><title>Details</title>
<h1>Picking List Details</h1>
<p>Sales Order: 39053467</p>
<table role="grid"><tr role="row"><td role="gridcell">PP2448IO/C</td><td role="gridcell">4</td></tr></table>`

func pickingListServer(t *testing.T, review string) *httptest.Server {
	t.Helper()
	pages := map[string]string{"/upload": uploadHTML, "/review": review, "/details": detailsHTML}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func launch(t *testing.T, ctx context.Context) *Browser {
	t.Helper()
	b, err := Launch(ctx, DefaultOptions())
	if err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestE2E_PickingList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	tests := []struct {
		name       string
		review     string
		wantState  runner.State
		wantShots  []string
		wantFailed int
	}{
		{"happy path", reviewHTML, runner.Completed, []string{"01_upload_page.png", "02_review_page.png", "03_details_page.png"}, 0},
		{"gridcell missing", `<h1>Review &amp; Edit Picking List</h1><p>Sales Order: 39053467</p>`, runner.Failed, []string{"01_upload_page.png"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := pickingListServer(t, tt.review)
			b := launch(t, ctx)

			sc, err := catalog.Load(catalog.Default)
			if err != nil {
				t.Fatal(err)
			}
			sc.BaseURL = srv.URL
			sample := filepath.Join(t.TempDir(), "15355234.pdf")
			if err := os.WriteFile(sample, []byte("%PDF-1.4\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			sc.Steps[1].Action.Files = []string{sample}
			sc.Steps[1].Settle = 0
			for i := range sc.Steps {
				sc.Steps[i].Timeout = 0
			}
			sc.DefaultTimeout = 0

			page, err := b.NewPage(ctx)
			if err != nil {
				t.Fatal(err)
			}
			out := t.TempDir()
			res, err := runner.New(runner.WithArtifacts(artifact.NewDir(out))).Run(ctx, sc, page)
			if res.State != tt.wantState {
				t.Fatalf("state = %s, want %s (err %v)", res.State, tt.wantState, err)
			}
			if res.FailedStep != tt.wantFailed {
				t.Errorf("failed step = %d, want %d", res.FailedStep, tt.wantFailed)
			}
			if tt.wantState == runner.Failed && !errors.Is(err, runner.ErrAssertionTimeout) {
				t.Errorf("err = %v, want assertion timeout", err)
			}

			entries, err := os.ReadDir(out)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, e := range entries {
				got = append(got, e.Name())
			}
			if diff := cmp.Diff(tt.wantShots, got); diff != "" {
				t.Errorf("screenshots mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestE2E_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b := launch(t, ctx)

	sc, err := catalog.Load(catalog.Default)
	if err != nil {
		t.Fatal(err)
	}
	sc.BaseURL = "http://127.0.0.1:1"
	page, err := b.NewPage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.New().Run(ctx, sc, page)
	if !errors.Is(err, runner.ErrNavigation) {
		t.Fatalf("err = %v, want navigation failure", err)
	}
	if res.FailedStep != 1 {
		t.Errorf("failed step = %d, want 1", res.FailedStep)
	}
}
