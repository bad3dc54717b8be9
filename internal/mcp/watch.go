package mcp

import (
	"context"
	"os"
	"time"

	"uicheck/internal/logging"
)

// WatchParent calls cancel when the parent process goes away (the MCP
// client exited without closing stdin), so the server and its browser do
// not linger. It must not read stdin: the stdio transport owns it.
func WatchParent(ctx context.Context, interval time.Duration, cancel context.CancelFunc) {
	ppid := os.Getppid()
	logger := logging.New("mcp")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					logger.Warn("parent process exited, shutting down", "ppid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
