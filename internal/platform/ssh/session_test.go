package ssh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/comfyprov/internal/platform/compute"
	"github.com/imamik/comfyprov/internal/util/stream"
)

func newTestManager(t *testing.T, srv *fakeSSHD, mutate func(*Config)) *Manager {
	t.Helper()
	cfg := &Config{
		PrivateKeys: [][]byte{srv.key.PrivateKey},
		SettleDelay: -1,
		RetryDelay:  time.Millisecond,
		DialTimeout: 2 * time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func TestConnectAndRun_NoSSHPort(t *testing.T) {
	srv := newFakeSSHD(t)
	var dials atomic.Int32
	m := newTestManager(t, srv, func(c *Config) {
		c.Dial = func(context.Context, string, *ssh.ClientConfig) (*ssh.Client, error) {
			dials.Add(1)
			return nil, errors.New("unexpected dial")
		}
	})

	inst := &compute.Instance{
		ID:            "pod-1",
		DesiredStatus: compute.StatusRunning,
		Ports:         []compute.PortMapping{{IP: "1.2.3.4", PrivatePort: 8188, PublicPort: 8188, IsIPPublic: true}},
	}

	run := m.Start(context.Background(), inst, "echo hi")
	lines := stream.Collect(run.Lines())

	assert.Equal(t, []string{"Error: Could not find SSH port."}, lines)
	assert.ErrorIs(t, run.Err(), ErrNoSSHPort)
	assert.Zero(t, dials.Load())
}

func TestConnectAndRun_ConnectRetriesExhausted(t *testing.T) {
	srv := newFakeSSHD(t)
	var dials atomic.Int32
	var attempts []error
	m := newTestManager(t, srv, func(c *Config) {
		c.Dial = func(context.Context, string, *ssh.ClientConfig) (*ssh.Client, error) {
			dials.Add(1)
			return nil, errors.New("connection refused")
		}
		c.OnConnectAttempt = func(err error) { attempts = append(attempts, err) }
	})

	run := m.Start(context.Background(), srv.instance(), "echo hi")
	lines := stream.Collect(run.Lines())

	require.Len(t, lines, 10)
	for _, line := range lines[:9] {
		assert.Equal(t, "Waiting for SSH...", line)
	}
	assert.Equal(t, "Failed to connect via SSH: connection refused", lines[9])
	assert.EqualValues(t, 10, dials.Load())
	assert.Len(t, attempts, 10)
	require.Error(t, run.Err())
	assert.Contains(t, run.Err().Error(), "connection refused")
}

func TestConnectAndRun_ConnectsAfterRetries(t *testing.T) {
	srv := newFakeSSHD(t, func(s *fakeSSHD) { s.output = []string{"done"} })

	var dials atomic.Int32
	m := newTestManager(t, srv, func(c *Config) {
		c.Dial = func(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
			if dials.Add(1) < 3 {
				return nil, errors.New("connection refused")
			}
			return dialContext(ctx, addr, cfg)
		}
	})

	run := m.Start(context.Background(), srv.instance(), "echo done")
	lines := stream.Collect(run.Lines())

	assert.Equal(t, []string{"Waiting for SSH...", "Waiting for SSH...", "done"}, lines)
	assert.NoError(t, run.Err())
}

func TestConnectAndRun_StreamsOutput(t *testing.T) {
	srv := newFakeSSHD(t, func(s *fakeSSHD) {
		s.output = []string{"Cloning ComfyUI...", "   Downloading model.safetensors   ", "", "Setup complete"}
	})
	m := newTestManager(t, srv, nil)

	script := "#!/bin/bash\nset -e\necho 'Setup complete'"
	run := m.Start(context.Background(), srv.instance(), script)
	lines := stream.Collect(run.Lines())

	assert.Equal(t, []string{"Cloning ComfyUI...", "Downloading model.safetensors", "", "Setup complete"}, lines)
	require.NoError(t, run.Err())

	uploaded, ok := srv.file(DefaultScriptPath)
	require.True(t, ok)
	assert.Equal(t, script, uploaded)

	cmds := srv.executed()
	require.Len(t, cmds, 2)
	assert.Equal(t, "chmod +x /workspace/setup_comfy.sh && /workspace/setup_comfy.sh 2>&1", cmds[1])
}

func TestConnectAndRun_CustomScriptPath(t *testing.T) {
	srv := newFakeSSHD(t)
	m := newTestManager(t, srv, func(c *Config) { c.ScriptPath = "/tmp/setup.sh" })

	run := m.Start(context.Background(), srv.instance(), "true")
	assert.Empty(t, stream.Collect(run.Lines()))
	require.NoError(t, run.Err())

	_, ok := srv.file("/tmp/setup.sh")
	assert.True(t, ok)
}

func TestConnectAndRun_BootstrapCommand(t *testing.T) {
	srv := newFakeSSHD(t, func(s *fakeSSHD) { s.output = []string{"ok"} })
	m := newTestManager(t, srv, nil)

	inst := srv.instance()
	inst.BootstrapCommand = "cloud-init status --wait"

	run := m.Start(context.Background(), inst, "echo ok")
	assert.Equal(t, []string{"ok"}, stream.Collect(run.Lines()))
	require.NoError(t, run.Err())

	cmds := srv.executed()
	require.Len(t, cmds, 3)
	assert.Equal(t, "cloud-init status --wait", cmds[0])
}

func TestConnectAndRun_UploadFailure(t *testing.T) {
	srv := newFakeSSHD(t, func(s *fakeSSHD) { s.uploadStatus = 1 })
	m := newTestManager(t, srv, nil)

	run := m.Start(context.Background(), srv.instance(), "echo hi")
	lines := stream.Collect(run.Lines())

	assert.Equal(t, []string{"Failed to write setup script."}, lines)
	assert.ErrorIs(t, run.Err(), ErrUploadFailed)
	assert.Len(t, srv.executed(), 1)
}

func TestConnectAndRun_ScriptExitStatus(t *testing.T) {
	srv := newFakeSSHD(t, func(s *fakeSSHD) {
		s.output = []string{"Downloading...", "wget: server returned error: 404"}
		s.exitStatus = 8
	})
	m := newTestManager(t, srv, nil)

	run := m.Start(context.Background(), srv.instance(), "exit 8")
	lines := stream.Collect(run.Lines())

	assert.Equal(t, []string{
		"Downloading...",
		"wget: server returned error: 404",
		"Setup script exited with status 8",
	}, lines)

	var exitErr *ScriptExitError
	require.ErrorAs(t, run.Err(), &exitErr)
	assert.Equal(t, 8, exitErr.Status)
}

func TestConnectAndRun_EarlyBreak(t *testing.T) {
	srv := newFakeSSHD(t, func(s *fakeSSHD) { s.output = []string{"one", "two", "three"} })
	m := newTestManager(t, srv, nil)

	seq := m.ConnectAndRun(context.Background(), srv.instance(), "echo")

	var got []string
	for line := range seq {
		got = append(got, line)
		break
	}
	assert.Equal(t, []string{"one"}, got)

	// The sequence is single-use.
	assert.Empty(t, stream.Collect(seq))
}

func TestConnectAndRun_ContextCancelledDuringScript(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	srv := newFakeSSHD(t, func(s *fakeSSHD) {
		s.output = []string{"started", "never"}
		s.block = block
	})
	m := newTestManager(t, srv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := m.Start(ctx, srv.instance(), "sleep")
	var lines []string
	for line := range run.Lines() {
		lines = append(lines, line)
		if line == "started" {
			cancel()
		}
	}

	require.Len(t, lines, 2)
	assert.Equal(t, "Setup interrupted: context canceled", lines[1])
	assert.ErrorIs(t, run.Err(), context.Canceled)
}

func TestConnectAndRun_CancelledDuringSettle(t *testing.T) {
	srv := newFakeSSHD(t)
	m := newTestManager(t, srv, func(c *Config) { c.SettleDelay = time.Hour })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := m.Start(ctx, srv.instance(), "echo")
	lines := stream.Collect(run.Lines())

	assert.Equal(t, []string{"Failed to connect via SSH: context canceled"}, lines)
	assert.ErrorIs(t, run.Err(), context.Canceled)
	assert.Empty(t, srv.executed())
}

func TestConnectAndRun_RejectedKey(t *testing.T) {
	srv := newFakeSSHD(t)
	m := newTestManager(t, srv, func(c *Config) {
		c.PrivateKeys = [][]byte{testKey(t)}
		c.MaxAttempts = 2
	})

	run := m.Start(context.Background(), srv.instance(), "echo")
	lines := stream.Collect(run.Lines())

	require.Len(t, lines, 2)
	assert.Equal(t, "Waiting for SSH...", lines[0])
	assert.Contains(t, lines[1], "Failed to connect via SSH: ")
	assert.Contains(t, lines[1], "unable to authenticate")
}

func TestScriptExitError(t *testing.T) {
	assert.Equal(t, "setup script exited with status 2", (&ScriptExitError{Status: 2}).Error())
}
