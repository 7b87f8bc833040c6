package ssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

const (
	defaultUser        = "root"
	defaultDialTimeout = 10 * time.Second
	defaultSettleDelay = 5 * time.Second
	defaultRetryDelay  = 2 * time.Second
	defaultMaxAttempts = 10

	// DefaultScriptPath is where the setup script is written on the instance.
	DefaultScriptPath = "/workspace/setup_comfy.sh"
)

// DialFunc opens an SSH client connection to addr.
type DialFunc func(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error)

// Config holds session manager configuration.
type Config struct {
	// User is the login user. If empty, "root" is used.
	User string

	// PrivateKeys are PEM encoded private keys offered in order.
	PrivateKeys [][]byte
	// PrivateKeyPath is read and appended to PrivateKeys when set.
	PrivateKeyPath string
	// UseAgent offers the keys of the agent at SSH_AUTH_SOCK, if one is running.
	UseAgent bool

	// HostKeyPolicy verifies host keys. If nil, TrustPolicy is used.
	HostKeyPolicy HostKeyPolicy

	// DialTimeout bounds the TCP connect and handshake of one attempt.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// SettleDelay is waited before the first attempt so sshd can start.
	// If zero, defaultSettleDelay is used. Negative disables the wait.
	SettleDelay time.Duration

	// RetryDelay is the fixed pause between attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// MaxAttempts is the total number of connection attempts.
	// If zero, defaultMaxAttempts is used.
	MaxAttempts int

	// ScriptPath is the remote path of the uploaded script.
	// If empty, DefaultScriptPath is used.
	ScriptPath string

	// OnConnectAttempt, if set, is called after every connection attempt
	// with its outcome.
	OnConnectAttempt func(err error)

	// Dial replaces the network dialer (used by tests).
	Dial DialFunc

	Logger logr.Logger
}

// Manager opens SSH sessions to instances and runs the setup script.
// It holds no per-run state and may be shared between runs.
type Manager struct {
	config  *Config
	signers []ssh.Signer
	hostKey ssh.HostKeyCallback
}

// NewManager validates the configuration and parses the private keys once.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg

	if configCopy.User == "" {
		configCopy.User = defaultUser
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.SettleDelay == 0 {
		configCopy.SettleDelay = defaultSettleDelay
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.MaxAttempts == 0 {
		configCopy.MaxAttempts = defaultMaxAttempts
	}
	if configCopy.ScriptPath == "" {
		configCopy.ScriptPath = DefaultScriptPath
	}
	if configCopy.HostKeyPolicy == nil {
		configCopy.HostKeyPolicy = TrustPolicy{}
	}
	if configCopy.Dial == nil {
		configCopy.Dial = dialContext
	}
	if configCopy.Logger.GetSink() == nil {
		configCopy.Logger = logr.Discard()
	}

	keys := configCopy.PrivateKeys
	if configCopy.PrivateKeyPath != "" {
		// #nosec G304
		data, err := os.ReadFile(configCopy.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		keys = append(keys[:len(keys):len(keys)], data)
	}

	signers := make([]ssh.Signer, 0, len(keys))
	for i, key := range keys {
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %d: %w", i+1, err)
		}
		signers = append(signers, signer)
	}

	if len(signers) == 0 && !configCopy.UseAgent {
		return nil, fmt.Errorf("no SSH authentication method: provide a private key or enable the agent")
	}

	hostKey, err := configCopy.HostKeyPolicy.HostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &Manager{
		config:  &configCopy,
		signers: signers,
		hostKey: hostKey,
	}, nil
}

// clientConfig builds the ssh.ClientConfig for one run. The returned closer
// releases the agent connection, if one was opened.
func (m *Manager) clientConfig() (*ssh.ClientConfig, func()) {
	var auth []ssh.AuthMethod
	if len(m.signers) > 0 {
		auth = append(auth, ssh.PublicKeys(m.signers...))
	}

	closer := func() {}
	if m.config.UseAgent {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			conn, err := net.Dial("unix", sock)
			if err != nil {
				m.config.Logger.V(1).Info("ssh agent unavailable", "error", err.Error())
			} else {
				auth = append(auth, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
				closer = func() { _ = conn.Close() }
			}
		}
	}

	return &ssh.ClientConfig{
		User:            m.config.User,
		Auth:            auth,
		HostKeyCallback: m.hostKey,
		Timeout:         m.config.DialTimeout,
	}, closer
}

// dialContext is the default DialFunc. It honors ctx during the TCP connect
// and bounds the handshake by cfg.Timeout.
func dialContext(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}
