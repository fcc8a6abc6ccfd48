// Package headless implements the line-delimited JSON IPC adapter (§4.7): a
// cooperative worker over stdin/stdout that drives the agent loop, with
// queuing, in-flight cancellation, error normalization, and session
// journaling. Grounded on cmd/symb/main.go's process wiring and
// internal/mcp/types.go's request/response dispatch, adapted from MCP's
// JSON-RPC envelope to this spec's flatter protocol.
//
// The spec describes a single-threaded cooperative scheduler (the node.js
// event-loop model: one logical flow, suspension only at awaits). Go has no
// equivalent primitive, so this adapter splits the role across two
// goroutines: one only ever reads and decodes stdin, enqueuing requests and
// never blocking on dispatch; the other drains the queue one request at a
// time and is the only goroutine that calls a handler. A request (a `cancel`
// targeting the active `send`, in particular) can therefore be read and
// queued while the dispatcher is still inside a long-running send, which is
// what makes the dequeue-on-event-boundary cancellation path (§4.7.1 step
// 1(b)) observable at all — a single reader/dispatcher goroutine could never
// see it. The queue and its wake-up condition are guarded by one mutex,
// standing in for the "no locks required, just a reentrancy guard"
// scheduling model the spec describes for its cooperative single thread.
package headless

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/xonecas/heddle/internal/agent"
	"github.com/xonecas/heddle/internal/debuglog"
	"github.com/xonecas/heddle/internal/ipc"
	"github.com/xonecas/heddle/internal/setup"
)

// SessionFactory constructs a Session for `init`. Overridable in tests.
type SessionFactory func(setup.Options) (*setup.Session, error)

// Worker holds the adapter's global mutable state (§4.7): session, activeID,
// cancelTargetID, messageQueue, stdinClosed.
type Worker struct {
	in  *bufio.Scanner
	out io.Writer

	ownProtocolVersion string
	createSession      SessionFactory
	debug              *debuglog.Logger
	maxIterations      int

	outMu sync.Mutex

	queueMu     sync.Mutex
	queueCond   *sync.Cond
	queue       []ipc.Request
	stdinClosed bool

	session        *setup.Session
	activeID       string
	cancelTargetID string
}

// Config parameterizes a Worker.
type Config struct {
	Stdin              io.Reader
	Stdout             io.Writer
	OwnProtocolVersion string
	CreateSession      SessionFactory // defaults to setup.CreateSession
	Debug              *debuglog.Logger
}

// NewWorker builds a Worker ready to Run.
func NewWorker(cfg Config) *Worker {
	createSession := cfg.CreateSession
	if createSession == nil {
		createSession = setup.CreateSession
	}
	scanner := bufio.NewScanner(cfg.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	w := &Worker{
		in:                 scanner,
		out:                cfg.Stdout,
		ownProtocolVersion: cfg.OwnProtocolVersion,
		createSession:      createSession,
		debug:              cfg.Debug,
		maxIterations:      20,
	}
	w.queueCond = sync.NewCond(&w.queueMu)
	return w
}

// Run starts the reader and dispatcher goroutines and blocks until a handler
// decides the process should exit, returning its exit code.
func (w *Worker) Run() int {
	exitCode := make(chan int, 1)
	go w.readLoop()
	go w.dispatchLoop(exitCode)

	return <-exitCode
}

// readLoop only ever decodes stdin and enqueues; it never calls a handler,
// so it can keep reading (and queuing a `cancel`) while the dispatcher is
// still inside an unrelated long-running `send`.
func (w *Worker) readLoop() {
	for w.in.Scan() {
		line := append([]byte(nil), w.in.Bytes()...)
		dr := ipc.DecodeRequest(line)
		if !dr.OK {
			w.writeValue(ipc.Result{
				Type:          "result",
				ID:            "unknown",
				Status:        "error",
				Error:         dr.Error,
				ToolCallsMade: []ipc.ToolCallMade{},
			})
			continue
		}
		w.enqueue(dr.Request)
	}

	w.queueMu.Lock()
	w.stdinClosed = true
	w.queueCond.Broadcast()
	w.queueMu.Unlock()
}

func (w *Worker) enqueue(req ipc.Request) {
	w.queueMu.Lock()
	w.queue = append(w.queue, req)
	w.queueCond.Broadcast()
	w.queueMu.Unlock()
}

// dispatchLoop is the sole caller of handle; it pops one request at a time,
// waiting on queueCond when the queue is empty and stdin is still open.
func (w *Worker) dispatchLoop(exitCode chan<- int) {
	for {
		w.queueMu.Lock()
		for len(w.queue) == 0 && !w.stdinClosed {
			w.queueCond.Wait()
		}
		if len(w.queue) == 0 {
			w.queueMu.Unlock()
			exitCode <- 0
			return
		}
		req := w.queue[0]
		w.queue = w.queue[1:]
		w.queueMu.Unlock()

		if code, shouldExit := w.handle(context.Background(), req); shouldExit {
			exitCode <- code
			return
		}
	}
}

// dequeueCancelFor removes and returns the first queued cancel targeting
// activeID, if any (§4.7.1 step 1(b)).
func (w *Worker) dequeueCancelFor(activeID string) bool {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	for i, req := range w.queue {
		if req.Type == ipc.RequestCancel && req.TargetID == activeID {
			w.queue = append(w.queue[:i], w.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (w *Worker) writeValue(v any) {
	encoded, err := ipc.EncodeResponse(v)
	if err != nil {
		return
	}
	w.outMu.Lock()
	defer w.outMu.Unlock()
	w.out.Write(encoded)
	w.out.Write([]byte("\n"))
}

// handle dispatches one request. Returns (exitCode, true) if the process
// should exit immediately after this request.
func (w *Worker) handle(ctx context.Context, req ipc.Request) (int, bool) {
	switch req.Type {
	case ipc.RequestInit:
		return w.handleInit(req)
	case ipc.RequestSend:
		return w.handleSend(ctx, req)
	case ipc.RequestStatus:
		return w.handleStatus(req)
	case ipc.RequestShutdown:
		w.writeValue(ipc.ShutdownOk{Type: "shutdown_ok", ID: req.ID})
		return 0, true
	case ipc.RequestCancel:
		w.handleCancel(req)
		return 0, false
	default:
		w.writeValue(ipc.Result{
			Type:          "result",
			ID:            req.ID,
			Status:        "error",
			Error:         fmt.Sprintf("Unknown request type: %s", req.Type),
			ToolCallsMade: []ipc.ToolCallMade{},
		})
		return 0, false
	}
}

// agentOptions builds the loop options for a send, from the session's
// configured max iterations (set at init) and the spec defaults otherwise.
func (w *Worker) agentOptions() agent.Options {
	opts := agent.DefaultOptions()
	opts.Stream = true
	if w.maxIterations > 0 {
		opts.MaxIterations = w.maxIterations
	}
	return opts
}
