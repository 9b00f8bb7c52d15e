package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"gitlab.com/tinyland/lab/nano-stats/pkg/nanostats"
)

// IPCServer listens on a Unix domain socket for line-based text commands
// and returns JSON responses.
//
// Protocol:
//   - Client sends a single line: COMMAND
//   - Server responds with a JSON line followed by a newline.
//   - Supported commands: STATUS, QUIT
//
// QUIT invokes App.Stop, which is the sanctioned cross-goroutine
// termination path: the run loop observes it within one tick period.
type IPCServer struct {
	socketPath string
	app        *nanostats.App
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
}

// NewIPCServer creates an IPC server that will listen on socketPath and
// operate on app.
func NewIPCServer(socketPath string, app *nanostats.App) *IPCServer {
	return &IPCServer{
		socketPath: socketPath,
		app:        app,
		done:       make(chan struct{}),
	}
}

// Start begins listening for connections on the Unix socket. The socket
// is created with mode 0600; any stale socket file at the path is removed
// first.
func (s *IPCServer) Start() error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully shuts down the IPC server. It closes the listener, waits
// for active connections to finish, and removes the socket file.
func (s *IPCServer) Stop() {
	select {
	case <-s.done:
		// Already stopped.
		return
	default:
	}

	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()

	os.Remove(s.socketPath)
}

// acceptLoop accepts connections until the server is stopped.
func (s *IPCServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				// Transient error, continue accepting.
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn processes a single client connection. It reads one line,
// dispatches the command, and writes a JSON response.
func (s *IPCServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	cmd := strings.ToUpper(strings.TrimSpace(scanner.Text()))
	if cmd == "" {
		return
	}

	var (
		payload any
		err     error
	)
	switch cmd {
	case "STATUS":
		payload = Snapshot(s.app)
	case "QUIT":
		s.app.Stop()
		payload = map[string]string{"result": "stopping"}
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(conn, "%s\n", data)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	fmt.Fprintf(conn, "%s\n", data)
}

// IPCClient connects to a running instance via Unix socket to send
// commands.
type IPCClient struct {
	socketPath string
}

// NewIPCClient creates a client that will connect at socketPath.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath}
}

// SendCommand sends a text command and returns the raw JSON response line.
// Each call opens a new connection.
func (c *IPCClient) SendCommand(cmd string) (string, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return "", fmt.Errorf("connect to nano-stats: %w", err)
	}
	defer conn.Close()

	fmt.Fprintf(conn, "%s\n", cmd)

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return "", fmt.Errorf("empty response")
	}

	return scanner.Text(), nil
}
