package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/comfyprov/internal/platform/compute"
	"github.com/imamik/comfyprov/internal/util/keygen"
)

// fakeSSHD is an in-process SSH server that understands the commands the
// session manager sends: heredoc uploads, the chmod+run command and
// arbitrary bootstrap commands.
type fakeSSHD struct {
	t        *testing.T
	listener net.Listener
	key      *keygen.KeyPair

	// Behavior, fixed at construction.
	output       []string
	exitStatus   uint32
	uploadStatus uint32
	// block, if set, is waited on after the first output line.
	block chan struct{}

	mu       sync.Mutex
	files    map[string]string
	commands []string
}

func newFakeSSHD(t *testing.T, opts ...func(*fakeSSHD)) *fakeSSHD {
	t.Helper()

	key, err := keygen.GenerateED25519KeyPair("test@comfyprov")
	require.NoError(t, err)
	authorized, _, _, _, err := ssh.ParseAuthorizedKey(key.PublicKey)
	require.NoError(t, err)

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	serverCfg := &ssh.ServerConfig{
		PublicKeyCallback: func(meta ssh.ConnMetadata, k ssh.PublicKey) (*ssh.Permissions, error) {
			if meta.User() == "root" && string(k.Marshal()) == string(authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown key for %s", meta.User())
		},
	}
	serverCfg.AddHostKey(hostSigner)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSSHD{t: t, listener: l, key: key, files: map[string]string{}}
	for _, opt := range opts {
		opt(s)
	}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go s.serveConn(conn, serverCfg)
		}
	}()
	return s
}

func (s *fakeSSHD) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeSSHD) instance() *compute.Instance {
	return &compute.Instance{
		ID:            "pod-1",
		DesiredStatus: compute.StatusRunning,
		Ports: []compute.PortMapping{
			{IP: "127.0.0.1", PrivatePort: 22, PublicPort: s.port(), Type: "tcp", IsIPPublic: true},
		},
	}
}

func (s *fakeSSHD) file(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[path]
	return content, ok
}

func (s *fakeSSHD) executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *fakeSSHD) serveConn(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.serveSession(ch, chReqs)
	}
}

func (s *fakeSSHD) serveSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		status := s.exec(ch, payload.Command)
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

func (s *fakeSSHD) exec(ch ssh.Channel, command string) uint32 {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()

	switch {
	case strings.HasPrefix(command, "cat << '"):
		header, body, _ := strings.Cut(command, "\n")
		sentinel := strings.SplitN(header, "'", 3)[1]
		path := strings.TrimSpace(header[strings.Index(header, ">")+1:])
		content := strings.TrimSuffix(body, "\n"+sentinel+"\n")

		s.mu.Lock()
		s.files[path] = content
		s.mu.Unlock()
		return s.uploadStatus

	case strings.HasPrefix(command, "chmod +x "):
		for i, line := range s.output {
			if _, err := ch.Write([]byte(line + "\n")); err != nil {
				return 255
			}
			if i == 0 && s.block != nil {
				<-s.block
			}
		}
		return s.exitStatus

	default:
		return 0
	}
}
