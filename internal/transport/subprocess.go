// Subprocess transport - speaks line-delimited JSON-RPC over a child
// process's stdin/stdout.
//
// DESIGN: Follows the teacher's cmd/agent.go external-process launch
// idiom (os/exec.Command, env/args passthrough) but replaces its
// passthrough-CLI model with a demultiplexing JSON-RPC client: each
// outbound request carries a generated id, a reader goroutine scans
// stdout line by line and routes each decoded response to the
// waiting caller via a map of id -> channel.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/compresr/mcp-gateway/internal/errs"
)

type pendingCall struct {
	resp chan json.RawMessage
	err  chan error
}

// Subprocess is a Transport backed by a long-lived child process
// speaking newline-delimited JSON-RPC 2.0 on stdin/stdout.
type Subprocess struct {
	name    string
	command string
	args    []string
	env     []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool

	nextID  atomic.Int64
	pending sync.Map // map[string]*pendingCall

	done chan struct{}
}

// NewSubprocess constructs a stdio transport for the given backend.
func NewSubprocess(name, command string, args, env []string) *Subprocess {
	return &Subprocess{name: name, command: command, args: args, env: env}
}

// Start launches the child process and begins reading its stdout.
func (s *Subprocess) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	cmd := exec.CommandContext(ctx, s.command, s.args...)
	if len(s.env) > 0 {
		cmd.Env = append(cmd.Environ(), s.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("subprocess %q: stdin pipe: %w", s.name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("subprocess %q: stdout pipe: %w", s.name, err)
	}
	cmd.Stderr = &stderrLogger{backend: s.name}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("subprocess %q: start: %w", s.name, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.running = true
	s.done = make(chan struct{})

	go s.readLoop(stdout)

	return nil
}

// readLoop demultiplexes newline-delimited JSON-RPC responses by id.
func (s *Subprocess) readLoop(stdout io.ReadCloser) {
	defer close(s.done)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var envelope struct {
			ID     json.RawMessage `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  *struct {
				Code    int             `json:"code"`
				Message string          `json:"message"`
				Data    json.RawMessage `json:"data"`
			} `json:"error"`
		}
		if err := json.Unmarshal(line, &envelope); err != nil {
			log.Warn().Str("backend", s.name).Err(err).Msg("subprocess transport: malformed response line")
			continue
		}

		key := string(envelope.ID)
		v, ok := s.pending.LoadAndDelete(key)
		if !ok {
			continue
		}
		call := v.(*pendingCall)
		if envelope.Error != nil {
			call.err <- fmt.Errorf("backend %s: %s (code %d)", s.name, envelope.Error.Message, envelope.Error.Code)
			continue
		}
		call.resp <- envelope.Result
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	// Unblock any calls still waiting on a response - the process exited.
	s.pending.Range(func(key, value any) bool {
		s.pending.Delete(key)
		value.(*pendingCall).err <- errs.Newf(errs.Transport, "backend %s: subprocess exited", s.name)
		return true
	})
}

// Request sends a JSON-RPC request and blocks for its response.
func (s *Subprocess) Request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := s.nextID.Add(1)
	idBytes, _ := json.Marshal(id)

	call := &pendingCall{resp: make(chan json.RawMessage, 1), err: make(chan error, 1)}
	s.pending.Store(string(idBytes), call)

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}
	line, err := json.Marshal(req)
	if err != nil {
		s.pending.Delete(string(idBytes))
		return nil, err
	}

	s.mu.Lock()
	stdin := s.stdin
	s.mu.Unlock()
	if stdin == nil {
		return nil, errs.Newf(errs.Transport, "subprocess %q: not running", s.name)
	}

	if _, err := stdin.Write(append(line, '\n')); err != nil {
		s.pending.Delete(string(idBytes))
		return nil, errs.Wrap(errs.Transport, err, fmt.Sprintf("subprocess %q: write", s.name))
	}

	select {
	case <-ctx.Done():
		s.pending.Delete(string(idBytes))
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errs.Wrap(errs.Timeout, ctx.Err(), fmt.Sprintf("subprocess %q: request", s.name))
		}
		return nil, ctx.Err()
	case result := <-call.resp:
		return result, nil
	case err := <-call.err:
		return nil, err
	}
}

// Notify sends a one-way JSON-RPC notification (no id, no response).
func (s *Subprocess) Notify(ctx context.Context, method string, params json.RawMessage) error {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	line, err := json.Marshal(req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	stdin := s.stdin
	s.mu.Unlock()
	if stdin == nil {
		return errs.Newf(errs.Transport, "subprocess %q: not running", s.name)
	}
	if _, err := stdin.Write(append(line, '\n')); err != nil {
		return errs.Wrap(errs.Transport, err, fmt.Sprintf("subprocess %q: notify write", s.name))
	}
	return nil
}

// Stop terminates the child process.
func (s *Subprocess) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	stdin := s.stdin
	s.running = false
	s.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return err
	}
	_ = cmd.Wait()
	return nil
}

// IsRunning reports whether the child process is alive.
func (s *Subprocess) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// stderrLogger forwards a backend's stderr to structured logs line by line.
type stderrLogger struct {
	backend string
}

func (w *stderrLogger) Write(p []byte) (int, error) {
	log.Debug().Str("backend", w.backend).Str("stderr", string(p)).Msg("subprocess stderr")
	return len(p), nil
}
