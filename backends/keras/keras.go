// Package keras runs compiled specs on tf.keras. Each compiled model owns a
// python3 process executing keras_worker.py; requests and responses are
// exchanged as length-prefixed JSON frames over its stdin and stdout.
package keras

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/skyhookml/netbuilder/netspec"

	gouuid "github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

const DefaultScript = "backends/keras/keras_worker.py"

// Verbosity passed to evaluate, matching the framework's one-line-per-call mode.
const EvaluateVerbose = 2

type Request struct {
	Type      string
	Spec      *netspec.CompiledModelSpec `json:",omitempty"`
	X         [][]float64                `json:",omitempty"`
	Y         [][]float64                `json:",omitempty"`
	Epochs    int                        `json:",omitempty"`
	BatchSize int                        `json:",omitempty"`
	Verbose   int                        `json:",omitempty"`
}

type Response struct {
	// "ok", "epoch", "history", "evaluation", "prediction" or "error"
	Type string

	Epoch  int
	Loss   float64
	Metric float64

	History    *netspec.History
	Prediction [][]float64
	Error      string
}

type Backend struct {
	Python string
	Script string
	// Working directory of the worker; empty for the current directory.
	Dir string
	// Only forward the worker's stderr (framework logs) in debug mode.
	Quiet bool
}

func (b Backend) commandOptions() netspec.CommandOptions {
	return netspec.CommandOptions{
		F: func(cmd *exec.Cmd) {
			if b.Dir != "" {
				cmd.Dir = b.Dir
			}
		},
		OnlyDebug: b.Quiet,
		// tracebacks span many lines
		AllStderrLines: true,
	}
}

func (b Backend) Compile(ctx context.Context, spec *netspec.CompiledModelSpec) (netspec.Trainable, error) {
	python := b.Python
	if python == "" {
		python = "python3"
	}
	script := b.Script
	if script == "" {
		script = DefaultScript
	}
	if !netspec.FileExists(script) {
		return nil, fmt.Errorf("keras worker script %s not found", script)
	}
	// the worker may run in another directory
	script, err := filepath.Abs(script)
	if err != nil {
		return nil, err
	}

	// the process outlives ctx; it is stopped by Close or by cancelling a call
	pctx, cancel := context.WithCancel(context.Background())
	prefix := "keras-" + gouuid.New().String()[:8]
	cmd, err := netspec.Command(pctx, prefix, b.commandOptions(), python, script)
	if err != nil {
		cancel()
		return nil, err
	}

	m := newModel(prefix, cmd.Stdin(), cmd.Stdout(), cancel, cmd.Wait)
	if _, err := m.call(ctx, Request{Type: "compile", Spec: spec}, nil); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

type Model struct {
	prefix string
	stdin  io.WriteCloser
	cancel context.CancelFunc
	wait   func() error

	responses chan Response
	// closed when the read loop exits
	done    chan struct{}
	readErr error
	stop    chan struct{}

	waitOnce sync.Once
	waitErr  error

	// one request at a time
	mu      sync.Mutex
	closed  bool
	stopped bool
}

func newModel(prefix string, stdin io.WriteCloser, stdout io.Reader, cancel context.CancelFunc, wait func() error) *Model {
	m := &Model{
		prefix:    prefix,
		stdin:     stdin,
		cancel:    cancel,
		wait:      wait,
		responses: make(chan Response),
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
	}
	go m.readLoop(stdout)
	return m
}

func (m *Model) readLoop(stdout io.Reader) {
	defer close(m.done)
	for {
		var resp Response
		if err := netspec.ReadJsonData(stdout, &resp); err != nil {
			m.readErr = err
			return
		}
		select {
		case m.responses <- resp:
		case <-m.stop:
			return
		}
	}
}

func (m *Model) waitProcess() error {
	m.waitOnce.Do(func() {
		if m.wait != nil {
			m.waitErr = m.wait()
		}
		m.cancel()
	})
	return m.waitErr
}

// exitError describes why the worker stopped answering.
func (m *Model) exitError() error {
	if err := m.waitProcess(); err != nil {
		return fmt.Errorf("[%s] keras worker exited: %w", m.prefix, err)
	}
	return fmt.Errorf("[%s] keras worker stopped: %v", m.prefix, m.readErr)
}

func (m *Model) call(ctx context.Context, req Request, onEpoch func(Response)) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Response{}, fmt.Errorf("[%s] model is closed", m.prefix)
	}

	if err := netspec.WriteJsonData(req, m.stdin); err != nil {
		return Response{}, fmt.Errorf("[%s] error writing %s request: %v", m.prefix, req.Type, err)
	}
	for {
		select {
		case resp := <-m.responses:
			switch resp.Type {
			case "epoch":
				if onEpoch != nil {
					onEpoch(resp)
				}
			case "error":
				return resp, fmt.Errorf("[%s] %s: %s", m.prefix, req.Type, resp.Error)
			default:
				return resp, nil
			}
		case <-m.done:
			return Response{}, m.exitError()
		case <-ctx.Done():
			// a fit in progress cannot be interrupted, only killed
			m.cancel()
			m.closed = true
			return Response{}, ctx.Err()
		}
	}
}

func expect(resp Response, t string) error {
	if resp.Type != t {
		return fmt.Errorf("expected %s response, got %s", t, resp.Type)
	}
	return nil
}

func (m *Model) Fit(ctx context.Context, x, y *mat.Dense, opts netspec.FitOptions) (*netspec.History, error) {
	req := Request{
		Type:      "fit",
		X:         netspec.Rows(x),
		Y:         netspec.Rows(y),
		Epochs:    opts.Epochs,
		BatchSize: opts.BatchSize,
	}
	resp, err := m.call(ctx, req, func(resp Response) {
		if opts.Progress != nil {
			opts.Progress(resp.Epoch, resp.Loss, resp.Metric)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := expect(resp, "history"); err != nil {
		return nil, err
	}
	if resp.History == nil {
		return &netspec.History{}, nil
	}
	return resp.History, nil
}

func (m *Model) Evaluate(ctx context.Context, x, y *mat.Dense) (*netspec.Evaluation, error) {
	req := Request{
		Type:    "evaluate",
		X:       netspec.Rows(x),
		Y:       netspec.Rows(y),
		Verbose: EvaluateVerbose,
	}
	resp, err := m.call(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	if err := expect(resp, "evaluation"); err != nil {
		return nil, err
	}
	return &netspec.Evaluation{Loss: resp.Loss, Metric: resp.Metric}, nil
}

func (m *Model) Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	resp, err := m.call(ctx, Request{Type: "predict", X: netspec.Rows(x)}, nil)
	if err != nil {
		return nil, err
	}
	if err := expect(resp, "prediction"); err != nil {
		return nil, err
	}
	pred, err := netspec.FromRows(resp.Prediction)
	if err != nil {
		return nil, fmt.Errorf("[%s] bad prediction: %v", m.prefix, err)
	}
	return pred, nil
}

// Close asks the worker to exit by closing its stdin and waits for it.
// It blocks until any request in flight has finished.
func (m *Model) Close() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	killed := m.closed
	m.closed = true
	close(m.stop)
	m.mu.Unlock()

	m.stdin.Close()
	<-m.done
	err := m.waitProcess()
	if killed {
		// a cancelled call killed the worker; its exit error is expected
		return nil
	}
	return err
}

func init() {
	netspec.Backends["keras"] = Backend{}
}
