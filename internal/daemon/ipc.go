package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"codequery/internal/query"
)

// Command represents a request from the CLI to the daemon.
type Command struct {
	Action string       `json:"action"` // query, status, stop
	Query  *query.Query `json:"query,omitempty"`
}

// Response represents one line of the daemon's reply. A query streams
// any number of "item" responses followed by a terminal "ok" or "error".
type Response struct {
	Status  string `json:"status"` // item, ok, error
	Line    string `json:"line,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// IPCServer handles communication between CLI and daemon.
type IPCServer struct {
	socketPath string
	listener   net.Listener
	daemon     *Daemon
}

// NewIPCServer creates a new IPC server.
func NewIPCServer(socketPath string, daemon *Daemon) (*IPCServer, error) {
	// Remove stale socket if it exists
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on socket: %w", err)
	}

	return &IPCServer{
		socketPath: socketPath,
		listener:   listener,
		daemon:     daemon,
	}, nil
}

// Close shuts down the IPC server.
func (s *IPCServer) Close() error {
	os.Remove(s.socketPath)
	return s.listener.Close()
}

// Serve handles incoming connections. Each connection gets its own
// goroutine; a query runs synchronously on that goroutine.
func (s *IPCServer) Serve(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(10 * time.Millisecond)
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

// handleConnection processes a single client connection.
func (s *IPCServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}

	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		s.sendResponse(conn, Response{Status: "error", Message: "invalid command"})
		return
	}

	switch cmd.Action {
	case "query":
		s.runQuery(conn, cmd.Query)

	case "status":
		s.sendResponse(conn, Response{Status: "ok", Data: s.daemon.Status()})

	case "stop":
		s.sendResponse(conn, Response{Status: "ok", Message: "daemon stopping"})
		s.daemon.Stop()

	default:
		s.sendResponse(conn, Response{Status: "error", Message: "unknown action"})
	}
}

// runQuery executes one query, streaming each accepted result line as an
// "item" response before the terminal status.
func (s *IPCServer) runQuery(conn net.Conn, q *query.Query) {
	if q == nil {
		s.sendResponse(conn, Response{Status: "error", Message: "query required"})
		return
	}

	idx, files, exclude := s.daemon.snapshot()
	job, err := query.NewJob(q, 0, idx, files, s.daemon.logger)
	if err != nil {
		s.sendResponse(conn, Response{Status: "error", Message: err.Error()})
		return
	}
	if exclude != nil {
		job.SetExclude(exclude)
	}
	exec, ok := query.ExecutorFor(q)
	if !ok {
		s.sendResponse(conn, Response{Status: "error", Message: fmt.Sprintf("unknown query type %q", q.Type)})
		return
	}

	transport := &connTransport{conn: conn}
	ret := job.Run(transport, exec)
	s.daemon.queries.Add(1)

	if job.Aborted() || transport.failed {
		// The client is gone; there is nobody left to tell.
		s.daemon.logger.Warn("query aborted mid-stream", "type", q.Type)
		return
	}
	if ret != 0 {
		s.sendResponse(conn, Response{Status: "error", Message: "query failed"})
		return
	}
	s.sendResponse(conn, Response{
		Status: "ok",
		Data:   map[string]any{"lines": job.LinesWritten()},
	})
}

// sendResponse sends a JSON response line to the client.
func (s *IPCServer) sendResponse(conn net.Conn, resp Response) {
	data, _ := json.Marshal(resp)
	conn.Write(append(data, '\n'))
}

// connTransport adapts a net.Conn to query.Transport, framing each
// result line as an "item" response. The first write error latches the
// failed state; the job sees it as a permanent transport failure.
type connTransport struct {
	conn   net.Conn
	failed bool
}

func (t *connTransport) Write(line string) bool {
	if t.failed {
		return false
	}
	data, err := json.Marshal(Response{Status: "item", Line: line})
	if err != nil {
		t.failed = true
		return false
	}
	if _, err := t.conn.Write(append(data, '\n')); err != nil {
		t.failed = true
		return false
	}
	return true
}

// IPCClient is used by the CLI to communicate with the daemon.
type IPCClient struct {
	socketPath string
}

// NewIPCClient creates a new IPC client.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath}
}

// DefaultSocketPath returns the default socket path for the current user.
func DefaultSocketPath() string {
	return fmt.Sprintf("/tmp/codequery-%d.sock", os.Getuid())
}

// Send sends a command expecting a single response.
func (c *IPCClient) Send(cmd Command) (*Response, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	defer conn.Close()

	data, _ := json.Marshal(cmd)
	conn.Write(append(data, '\n'))

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &resp, nil
}

// RunQuery sends a query and invokes fn for every streamed result line.
// It returns after the terminal response, or with an error if the daemon
// reported one or the stream ended early.
func (c *IPCClient) RunQuery(q *query.Query, fn func(line string) error) error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("connecting to daemon: %w", err)
	}
	defer conn.Close()

	data, err := json.Marshal(Command{Action: "query", Query: q})
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("sending query: %w", err)
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("result stream ended early: %w", err)
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		switch resp.Status {
		case "item":
			if err := fn(resp.Line); err != nil {
				return err
			}
		case "ok":
			return nil
		case "error":
			return fmt.Errorf("%s", resp.Message)
		default:
			return fmt.Errorf("unexpected response status %q", resp.Status)
		}
	}
}

// IsRunning checks if the daemon is running.
func (c *IPCClient) IsRunning() bool {
	resp, err := c.Send(Command{Action: "status"})
	return err == nil && resp.Status == "ok"
}

// Stop tells the daemon to shut down.
func (c *IPCClient) Stop() error {
	_, err := c.Send(Command{Action: "stop"})
	return err
}

// Status returns the daemon status.
func (c *IPCClient) Status() (*DaemonStatus, error) {
	resp, err := c.Send(Command{Action: "status"})
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("%s", resp.Message)
	}

	data, _ := json.Marshal(resp.Data)
	var status DaemonStatus
	json.Unmarshal(data, &status)
	return &status, nil
}
