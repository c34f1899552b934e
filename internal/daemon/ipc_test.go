package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"codequery/internal/index"
	"codequery/internal/query"
)

// startTestDaemon builds a daemon over a small fixture database and
// serves it on a throwaway socket.
func startTestDaemon(t *testing.T) *IPCClient {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "symbols.db")

	db, err := index.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	insert := `INSERT INTO symbols
        (path, line, col, name, display_name, kind, definition, start_line, start_col, end_line, end_col)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := db.Exec(insert, "src/a.c", 3, 1, "main(int, char**)", "main", "function", true, 3, 1, 9, 1); err != nil {
		t.Fatalf("inserting fixture: %v", err)
	}
	if _, err := db.Exec(insert, "src/a.c", 5, 9, "helper", "helper", "call", false, 5, 9, 5, 15); err != nil {
		t.Fatalf("inserting fixture: %v", err)
	}
	db.Close()

	cfg := DefaultConfig()
	cfg.DBPath = dbPath
	cfg.SocketPath = filepath.Join(tmpDir, "d.sock")
	cfg.LogPath = filepath.Join(tmpDir, "daemon.log")
	cfg.PIDPath = ""

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv, err := NewIPCServer(cfg.SocketPath, d)
	if err != nil {
		t.Fatalf("NewIPCServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.watcher.Close()
		if d.logFile != nil {
			d.logFile.Close()
		}
	})

	client := NewIPCClient(cfg.SocketPath)
	waitForSocket(t, client)
	return client
}

func waitForSocket(t *testing.T, client *IPCClient) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.IsRunning() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("daemon socket never became ready")
}

func TestStatusRoundTrip(t *testing.T) {
	client := startTestDaemon(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.Running {
		t.Errorf("status should report running")
	}
	if status.Symbols != 2 {
		t.Errorf("status symbols = %d, want 2", status.Symbols)
	}
	if status.Files != 1 {
		t.Errorf("status files = %d, want 1", status.Files)
	}
}

func TestQueryStreamsItems(t *testing.T) {
	client := startTestDaemon(t)

	q := query.New(query.FindSymbols, "main")
	var lines []string
	err := client.RunQuery(q, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("RunQuery() error = %v", err)
	}
	if len(lines) != 1 || lines[0] != "src/a.c:3:1:" {
		t.Errorf("lines = %v, want [src/a.c:3:1:]", lines)
	}
}

func TestQueryWithAnnotations(t *testing.T) {
	client := startTestDaemon(t)

	q := query.New(query.FindSymbols, "helper")
	q.Flags |= query.ContainingFunction | query.CursorKind
	var lines []string
	err := client.RunQuery(q, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("RunQuery() error = %v", err)
	}
	want := "src/a.c:5:9:\tCall\tfunction: main(int, char**)"
	if len(lines) != 1 || lines[0] != want {
		t.Errorf("lines = %v, want [%s]", lines, want)
	}
}

func TestQueryRejectsBadRegex(t *testing.T) {
	client := startTestDaemon(t)

	q := query.New(query.FindSymbols, "main")
	q.PathFilters = []string{"("}
	q.Flags |= query.MatchRegex
	err := client.RunQuery(q, func(string) error { return nil })
	if err == nil {
		t.Errorf("RunQuery() with a malformed regex filter should fail")
	}
}

func TestServeReturnsAfterClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "symbols.db")
	insertSymbol(t, dbPath, "a.c", 1, "one")

	cfg := DefaultConfig()
	cfg.DBPath = dbPath
	cfg.SocketPath = filepath.Join(tmpDir, "d.sock")
	cfg.LogPath = filepath.Join(tmpDir, "daemon.log")
	cfg.PIDPath = ""

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		d.cancel()
		d.watcher.Close()
		if d.logFile != nil {
			d.logFile.Close()
		}
	})

	srv, err := NewIPCServer(cfg.SocketPath, d)
	if err != nil {
		t.Fatalf("NewIPCServer() error = %v", err)
	}

	// The context stays live; Serve must still return once the listener
	// is closed rather than retrying Accept forever.
	done := make(chan struct{})
	go func() {
		srv.Serve(context.Background())
		close(done)
	}()

	srv.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return after Close")
	}
}

func TestUnknownActionRejected(t *testing.T) {
	client := startTestDaemon(t)

	resp, err := client.Send(Command{Action: "bogus"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("status = %q, want error", resp.Status)
	}
}
