// Package bridge runs the external schema validator as a subprocess.
//
// The subprocess writes one JSON object per line on stdout. Feature IDs found in the
// dataset are sent back as "feature" events and checked locally, so gene IDs are
// resolved against the tables selected for this run rather than the validator's own.
// During label writing the subprocess asks for gene annotations with "gene" events and
// reads the answers, one JSON object per line, from stdin.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/cellarium-ai/validate-schema/internal/validate"
)

// DefaultCommand is the validator executable looked up on PATH.
const DefaultCommand = "cellxgene-schema-bridge"

// ErrMissingDependency is returned when the validator executable cannot be found.
var ErrMissingDependency = errors.New("missing dependency")

// event is one line of subprocess output.
type event struct {
	Event               string `json:"event"`
	ID                  string `json:"id,omitempty"`
	DF                  string `json:"df,omitempty"`
	Message             string `json:"message,omitempty"`
	IsValid             *bool  `json:"is_valid,omitempty"`
	IsSeuratConvertible bool   `json:"is_seurat_convertible,omitempty"`
	Success             *bool  `json:"success,omitempty"`
}

// geneReply answers a "gene" event.
type geneReply struct {
	ID     string `json:"id"`
	Found  bool   `json:"found"`
	Label  string `json:"label,omitempty"`
	Length int    `json:"length,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Engine is a validate.Engine and validate.LabelWriter backed by a subprocess.
type Engine struct {
	command string
	args    []string
	env     []string
	logger  *zap.Logger
}

// New creates an engine running command with args before the subcommand.
func New(command string, args ...string) *Engine {
	if command == "" {
		command = DefaultCommand
	}
	return &Engine{
		command: command,
		args:    args,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for subprocess output.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetEnv adds environment variables for the subprocess.
func (e *Engine) SetEnv(env []string) {
	e.env = env
}

// Command returns the executable name.
func (e *Engine) Command() string {
	return e.command
}

// CheckAvailable reports whether the validator executable can be run.
func (e *Engine) CheckAvailable() error {
	if _, err := exec.LookPath(e.command); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingDependency, e.command, err)
	}
	return nil
}

// ValidateAdata implements validate.Engine.
func (e *Engine) ValidateAdata(ctx context.Context, h5adPath string, opts validate.EngineOptions, features validate.FeatureIDValidator) (*validate.Report, error) {
	args := []string{"validate", "--skip-feature-ids"}
	if opts.IgnoreLabels {
		args = append(args, "--ignore-labels")
	}
	args = append(args, h5adPath)

	s, err := e.start(ctx, args)
	if err != nil {
		return nil, err
	}
	// Nothing is sent to the validator during validation.
	s.stdin.Close()

	report := &validate.Report{}
	done := false
	err = s.each(func(ev event) error {
		switch ev.Event {
		case "feature":
			problem, err := features.ValidateFeatureID(ev.ID, ev.DF)
			if err != nil {
				return err
			}
			if problem != "" {
				report.Errors = append(report.Errors, problem)
			}
		case "error":
			report.Errors = append(report.Errors, ev.Message)
		case "warning":
			report.Warnings = append(report.Warnings, ev.Message)
			e.logger.Warn(ev.Message)
		case "done":
			done = true
			report.IsValid = ev.IsValid != nil && *ev.IsValid
			report.IsSeuratConvertible = ev.IsSeuratConvertible
		default:
			e.logger.Debug("ignoring validator event", zap.String("event", ev.Event))
		}
		return nil
	})
	if err := s.finish(err); err != nil {
		return nil, err
	}
	if !done {
		return nil, errors.New("external validator exited without a result")
	}
	return report, nil
}

// WriteLabels implements validate.LabelWriter.
func (e *Engine) WriteLabels(ctx context.Context, h5adPath, outPath string, genes validate.GeneLookup) (*validate.LabelResult, error) {
	s, err := e.start(ctx, []string{"write-labels", h5adPath, outPath})
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(s.stdin)
	res := &validate.LabelResult{}
	done := false
	err = s.each(func(ev event) error {
		switch ev.Event {
		case "gene":
			g, found, err := genes.LookupGene(ev.ID)
			if err != nil {
				return err
			}
			reply := geneReply{ID: ev.ID, Found: found}
			if found {
				reply.Label, reply.Length, reply.Type = g.Label, g.Length, g.Type
			}
			if err := enc.Encode(reply); err != nil {
				return fmt.Errorf("send gene reply: %w", err)
			}
		case "error":
			res.Errors = append(res.Errors, ev.Message)
		case "warning":
			e.logger.Warn(ev.Message)
		case "done":
			done = true
			res.Success = ev.Success != nil && *ev.Success
		default:
			e.logger.Debug("ignoring label writer event", zap.String("event", ev.Event))
		}
		return nil
	})
	s.stdin.Close()
	if err := s.finish(err); err != nil {
		return nil, err
	}
	if !done {
		return nil, errors.New("label writer exited without a result")
	}
	return res, nil
}

// session is one running subprocess.
type session struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     io.ReadCloser
	cancel     context.CancelFunc
	stderrDone chan struct{}
	logger     *zap.Logger
}

func (e *Engine) start(ctx context.Context, sub []string) (*session, error) {
	ctx, cancel := context.WithCancel(ctx)

	args := append(append([]string{}, e.args...), sub...)
	cmd := exec.CommandContext(ctx, e.command, args...)
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stderr pipe: %w", err)
	}

	e.logger.Debug("starting external validator",
		zap.String("command", e.command),
		zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", e.command, err)
	}

	s := &session{
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		cancel:     cancel,
		stderrDone: make(chan struct{}),
		logger:     e.logger,
	}
	go s.drainStderr(stderr)
	return s, nil
}

func (s *session) drainStderr(r io.Reader) {
	defer close(s.stderrDone)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Debug("external validator", zap.String("stderr", scanner.Text()))
	}
}

// each decodes stdout lines and calls fn for every event until EOF or fn fails.
// Lines that are not JSON objects are logged and skipped.
func (s *session) each(fn func(event) error) error {
	scanner := bufio.NewScanner(s.stdout)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			s.logger.Debug("external validator", zap.ByteString("stdout", line))
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read validator output: %w", err)
	}
	return nil
}

// finish waits for the subprocess. When runErr is set the process is killed first and
// runErr is returned.
func (s *session) finish(runErr error) error {
	defer s.cancel()
	if runErr != nil {
		s.cancel()
		<-s.stderrDone
		s.cmd.Wait()
		return runErr
	}

	<-s.stderrDone
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("external validator: %w", err)
	}
	return nil
}
