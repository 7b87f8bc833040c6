package compute

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Instance status values reported by providers.
const (
	StatusCreated    = "CREATED"
	StatusRunning    = "RUNNING"
	StatusExited     = "EXITED"
	StatusTerminated = "TERMINATED"
)

// PortMapping maps a private container port to a publicly reachable address.
type PortMapping struct {
	IP          string
	PrivatePort int
	PublicPort  int
	// Type is the transport, "tcp" or "http".
	Type       string
	IsIPPublic bool
}

// Instance is a leased compute instance as last reported by its provider.
type Instance struct {
	ID            string
	Name          string
	DesiredStatus string
	Ports         []PortMapping

	// BootstrapCommand, when set, runs on the instance before the setup script
	// is uploaded. Backends whose images lack the expected layout use it to
	// wait for first-boot initialization.
	BootstrapCommand string
}

// HasStatus reports whether the instance's status equals status, ignoring case.
func (i *Instance) HasStatus(status string) bool {
	return strings.EqualFold(i.DesiredStatus, status)
}

// Ready reports whether the instance is running and has published ports.
func (i *Instance) Ready() bool {
	return i.HasStatus(StatusRunning) && len(i.Ports) > 0
}

// Exited reports whether the instance has stopped for good.
func (i *Instance) Exited() bool {
	return i.HasStatus(StatusExited) || i.HasStatus(StatusTerminated)
}

// Endpoint returns the public IP and port that forward to privatePort.
// Public mappings win over private ones when both exist.
func (i *Instance) Endpoint(privatePort int) (ip string, port int, ok bool) {
	var fallback *PortMapping
	for idx := range i.Ports {
		pm := &i.Ports[idx]
		if pm.PrivatePort != privatePort || pm.IP == "" || pm.PublicPort == 0 {
			continue
		}
		if pm.IsIPPublic {
			return pm.IP, pm.PublicPort, true
		}
		if fallback == nil {
			fallback = pm
		}
	}
	if fallback != nil {
		return fallback.IP, fallback.PublicPort, true
	}
	return "", 0, false
}

// Address returns "ip:port" for privatePort, suitable for net.Dial.
func (i *Instance) Address(privatePort int) (string, bool) {
	ip, port, ok := i.Endpoint(privatePort)
	if !ok {
		return "", false
	}
	return net.JoinHostPort(ip, strconv.Itoa(port)), true
}

// URL returns "http://ip:port" for privatePort.
func (i *Instance) URL(privatePort int) (string, bool) {
	addr, ok := i.Address(privatePort)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("http://%s", addr), true
}

// Offering describes a GPU (or server) type a provider can lease.
type Offering struct {
	ID             string
	DisplayName    string
	MemoryGB       int
	CommunityPrice float64
	SecurePrice    float64
	CommunityCloud bool
	SecureCloud    bool
}

// CreateRequest carries everything a backend needs to lease one instance.
type CreateRequest struct {
	Name                string
	Image               string
	GPUTypeID           string
	CloudType           string
	Location            string
	VolumeSizeGB        int
	ContainerDiskSizeGB int
	// Ports uses the provider port syntax, e.g. "8188/http,22/tcp".
	Ports string
	Env   map[string]string
	// PublicKey is an authorized_keys line granting the session manager access.
	PublicKey string
	Labels    map[string]string
}
