package mcp_test

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	mcpserver "uicheck/internal/mcp"
)

func TestWatchParent_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mcpserver.WatchParent(ctx, 10*time.Millisecond, cancel)
	cancel()
	time.Sleep(30 * time.Millisecond)
}

func TestWatchParent_DoesNotCancelWhileParentAlive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	canceled := make(chan struct{})
	mcpserver.WatchParent(ctx, 5*time.Millisecond, func() { close(canceled) })

	select {
	case <-canceled:
		t.Fatal("watcher canceled with parent alive")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchParent_DoesNotConsumeData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	defer pr.Close()
	mcpserver.WatchParent(ctx, 5*time.Millisecond, cancel)

	msg := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n"
	go func() {
		pw.Write([]byte(msg))
		pw.Close()
	}()

	scanner := bufio.NewScanner(pr)
	if !scanner.Scan() {
		t.Fatalf("reader got no data; err=%v", scanner.Err())
	}
	if got := scanner.Text(); got+"\n" != msg {
		t.Fatalf("reader got %q", got)
	}
}
