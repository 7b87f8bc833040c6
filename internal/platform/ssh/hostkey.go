package ssh

import (
	"fmt"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyPolicy decides whether a server's host key is accepted.
type HostKeyPolicy interface {
	HostKeyCallback() (ssh.HostKeyCallback, error)
}

// TrustPolicy accepts any host key. It fits instances that were created
// moments ago and whose key cannot be known in advance.
type TrustPolicy struct{}

// HostKeyCallback implements HostKeyPolicy.
func (TrustPolicy) HostKeyCallback() (ssh.HostKeyCallback, error) {
	return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // Default for ephemeral instances
}

// KnownHostsPolicy verifies host keys against OpenSSH known_hosts files.
type KnownHostsPolicy struct {
	Files []string
}

// NewKnownHostsPolicy returns a policy reading the given known_hosts files.
func NewKnownHostsPolicy(files ...string) KnownHostsPolicy {
	return KnownHostsPolicy{Files: files}
}

// HostKeyCallback implements HostKeyPolicy.
func (p KnownHostsPolicy) HostKeyCallback() (ssh.HostKeyCallback, error) {
	if len(p.Files) == 0 {
		return nil, fmt.Errorf("known_hosts policy requires at least one file")
	}
	cb, err := knownhosts.New(p.Files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}
	return cb, nil
}
