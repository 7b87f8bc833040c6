package ssh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/platform/compute"
	"github.com/imamik/comfyprov/internal/util/naming"
	"github.com/imamik/comfyprov/internal/util/retry"
	"github.com/imamik/comfyprov/internal/util/stream"
)

// maxLineLength bounds a single line of script output.
const maxLineLength = 1024 * 1024

// Errors reported by Run.Err.
var (
	ErrNoSSHPort    = errors.New("could not find SSH port")
	ErrUploadFailed = errors.New("failed to write setup script")
)

// errStopped aborts the connect loop when the consumer stops iterating.
var errStopped = errors.New("consumer stopped")

// ScriptExitError reports a setup script that exited non-zero.
type ScriptExitError struct {
	Status int
}

func (e *ScriptExitError) Error() string {
	return fmt.Sprintf("setup script exited with status %d", e.Status)
}

// Run is one execution of the setup script. Its lines can be consumed once.
type Run struct {
	lines iter.Seq[string]
	err   error
}

// Lines returns the output sequence. A second iteration yields nothing.
func (r *Run) Lines() iter.Seq[string] {
	return r.lines
}

// Err returns the failure that ended the run, or nil once the script exited
// successfully. It is only meaningful after Lines has been fully consumed.
func (r *Run) Err() error {
	return r.err
}

// ConnectAndRun connects to inst, uploads script and yields its output.
// Failures are reported as a final descriptive line.
func (m *Manager) ConnectAndRun(ctx context.Context, inst *compute.Instance, script string) iter.Seq[string] {
	return m.Start(ctx, inst, script).Lines()
}

// Start prepares a run. Nothing happens until its lines are consumed.
func (m *Manager) Start(ctx context.Context, inst *compute.Instance, script string) *Run {
	r := &Run{}
	r.lines = stream.Once(func(yield func(string) bool) {
		r.err = m.run(ctx, inst, script, yield)
	})
	return r
}

func (m *Manager) run(ctx context.Context, inst *compute.Instance, script string, yield func(string) bool) error {
	log := m.config.Logger.WithValues("instance", inst.ID)

	addr, ok := inst.Address(config.SSHPort)
	if !ok {
		yield("Error: Could not find SSH port.")
		return ErrNoSSHPort
	}

	if m.config.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			yield(fmt.Sprintf("Failed to connect via SSH: %v", ctx.Err()))
			return ctx.Err()
		case <-time.After(m.config.SettleDelay):
		}
	}

	client, err := m.connect(ctx, addr, yield)
	if errors.Is(err, errStopped) {
		return nil
	}
	if err != nil {
		yield(fmt.Sprintf("Failed to connect via SSH: %v", err))
		return fmt.Errorf("failed to connect via SSH to %s: %w", addr, err)
	}
	defer func() { _ = client.Close() }()

	// Closing the client unblocks any pending session I/O.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	log.V(1).Info("ssh connected", "addr", addr)

	if inst.BootstrapCommand != "" {
		if out, err := runCommand(client, inst.BootstrapCommand); err != nil {
			log.V(1).Info("bootstrap failed", "output", out)
			yield(fmt.Sprintf("Failed to bootstrap instance: %v", err))
			return fmt.Errorf("bootstrap command failed: %w", err)
		}
	}

	if _, err := runCommand(client, uploadCommand(m.config.ScriptPath, script)); err != nil {
		log.V(1).Info("upload failed", "error", err.Error())
		yield("Failed to write setup script.")
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	return m.execute(ctx, client, yield)
}

// connect dials addr up to MaxAttempts times with a fixed delay, yielding a
// waiting line before every retry.
func (m *Manager) connect(ctx context.Context, addr string, yield func(string) bool) (*ssh.Client, error) {
	clientCfg, closeAgent := m.clientConfig()
	defer closeAgent()

	var client *ssh.Client
	var lastErr error
	err := retry.WithFixedDelay(ctx, func() error {
		c, err := m.config.Dial(ctx, addr, clientCfg)
		if m.config.OnConnectAttempt != nil {
			m.config.OnConnectAttempt(err)
		}
		if err != nil {
			lastErr = err
			return err
		}
		client = c
		return nil
	}, m.config.MaxAttempts, m.config.RetryDelay,
		retry.WithBeforeRetry(func(attempt int, err error) error {
			m.config.Logger.V(1).Info("ssh attempt failed", "addr", addr, "attempt", attempt, "error", err.Error())
			if !yield("Waiting for SSH...") {
				return errStopped
			}
			return nil
		}),
	)
	switch {
	case err == nil:
		return client, nil
	case errors.Is(err, errStopped):
		return nil, errStopped
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, lastErr
	}
}

// execute runs the uploaded script and streams its combined output.
func (m *Manager) execute(ctx context.Context, client *ssh.Client, yield func(string) bool) error {
	session, err := client.NewSession()
	if err != nil {
		yield(fmt.Sprintf("Failed to start setup session: %v", err))
		return fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	stdout, err := session.StdoutPipe()
	if err != nil {
		yield(fmt.Sprintf("Failed to start setup session: %v", err))
		return fmt.Errorf("failed to attach stdout: %w", err)
	}

	path := m.config.ScriptPath
	if err := session.Start(fmt.Sprintf("chmod +x %s && %s 2>&1", path, path)); err != nil {
		yield(fmt.Sprintf("Failed to run setup script: %v", err))
		return fmt.Errorf("failed to start setup script: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		if !yield(strings.TrimSpace(scanner.Text())) {
			return nil
		}
	}
	scanErr := scanner.Err()
	waitErr := session.Wait()

	if ctx.Err() != nil {
		yield(fmt.Sprintf("Setup interrupted: %v", ctx.Err()))
		return ctx.Err()
	}
	if scanErr != nil {
		yield(fmt.Sprintf("Failed to read setup output: %v", scanErr))
		return fmt.Errorf("failed to read setup output: %w", scanErr)
	}

	var exitErr *ssh.ExitError
	switch {
	case waitErr == nil:
		return nil
	case errors.As(waitErr, &exitErr):
		yield(fmt.Sprintf("Setup script exited with status %d", exitErr.ExitStatus()))
		return &ScriptExitError{Status: exitErr.ExitStatus()}
	default:
		yield(fmt.Sprintf("Setup script failed: %v", waitErr))
		return fmt.Errorf("setup script failed: %w", waitErr)
	}
}

// runCommand executes a command on an established connection.
func runCommand(client *ssh.Client, command string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	output, err := session.CombinedOutput(command)
	return string(output), err
}

// uploadCommand writes script to path through a quoted heredoc, so the
// remote shell performs no expansion.
func uploadCommand(path, script string) string {
	sentinel := naming.HeredocSentinel()
	return fmt.Sprintf("cat << '%s' > %s\n%s\n%s\n", sentinel, path, script, sentinel)
}
