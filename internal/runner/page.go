package runner

import (
	"context"

	"uicheck/internal/scenario"
)

// Page is the automation handle for one browser tab. The runner owns it
// for the duration of a run and closes it exactly once.
type Page interface {
	Navigate(ctx context.Context, url string) error
	SetInputFiles(ctx context.Context, selector string, files []string) error
	Click(ctx context.Context, target scenario.Locator) error
	// IsVisible probes once; the runner does the waiting.
	IsVisible(ctx context.Context, loc scenario.Locator) (bool, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// ArtifactSink stores checkpoint screenshots and returns where each went.
type ArtifactSink interface {
	Save(step int, label string, png []byte) (string, error)
}
