package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/vigil/pkg/catalog"
	"github.com/aretw0/vigil/pkg/schema"
)

// DefaultTimeout bounds a validator run when neither the runner nor the
// validator configures one.
const DefaultTimeout = 5 * time.Second

// Runner turns local processes into custom validators.
// It follows a Strict Registry pattern for security (Allow-Listing): only
// registered commands run, and the value reaches them on stdin, never as
// command line arguments.
type Runner struct {
	mu       sync.RWMutex
	registry map[string]ValidatorConfig
	baseDir  string
	timeout  time.Duration
	logger   *slog.Logger
}

// Request is the JSON document a validator process reads from stdin.
type Request struct {
	Field   string         `json:"field"`
	Value   any            `json:"value"`
	Min     any            `json:"min,omitempty"`
	Max     any            `json:"max,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Response is the JSON form of a validator's answer. A plain-text first line
// of stdout is read as the code too.
type Response struct {
	Code string `json:"code"`
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(validators map[string]ValidatorConfig) RunnerOption {
	return func(r *Runner) {
		for name, v := range validators {
			v.Name = name
			r.registry[name] = v
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout sets the default time budget of a run.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger sets the logger used to report failing runs.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ValidatorConfig),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Register adds a trusted script/command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry[name] = ValidatorConfig{Name: name, Command: command, Args: args}
}

// Names lists the registered validators, sorted.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs the validator called name on req and returns the code it
// printed. An empty code means the value passed.
func (r *Runner) Check(ctx context.Context, name string, req Request) (string, error) {
	r.mu.RLock()
	proc, ok := r.registry[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("process validator not registered: %s", name)
	}

	timeout := r.timeout
	if proc.Timeout > 0 {
		timeout = proc.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	input, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode value for %s: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.WaitDelay = 500 * time.Millisecond
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = append(cmd.Environ(), "VIGIL_FIELD="+req.Field, "VIGIL_VALIDATOR="+name)
	for k, v := range proc.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("validator %s: %w", name, ctx.Err())
		}
		return "", fmt.Errorf("validator %s failed: %v. Stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return parseCode(stdout.String()), nil
}

// parseCode reads {"code": "..."} documents or the first line of plain output.
func parseCode(output string) string {
	trimmed := strings.TrimSpace(output)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var resp Response
		if err := json.Unmarshal([]byte(trimmed), &resp); err == nil {
			return strings.TrimSpace(resp.Code)
		}
	}
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.TrimSpace(trimmed)
}

// Validator returns a custom validator that runs the process called name
// asynchronously.
func (r *Runner) Validator(name string) (schema.CustomFunc, error) {
	r.mu.RLock()
	_, ok := r.registry[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("process validator not registered: %s", name)
	}

	return func(f *schema.Field, value any, vc *schema.Context) schema.Result {
		req := Request{Field: f.Name, Value: value, Min: f.Min, Max: f.Max, Options: f.Extra}
		return schema.Async(func() (string, error) {
			code, err := r.Check(context.Background(), name, req)
			if err != nil {
				r.logger.Debug("process validator failed", "validator", name, "field", f.Name, "err", err)
			}
			return code, err
		})
	}, nil
}

// Install registers every validator of the runner in customs.
func (r *Runner) Install(customs *catalog.CustomRegistry) error {
	for _, name := range r.Names() {
		fn, err := r.Validator(name)
		if err != nil {
			return err
		}
		if err := customs.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}
