package hcloud

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/platform/compute"
	"github.com/imamik/comfyprov/internal/util/labels"
	"github.com/imamik/comfyprov/internal/util/naming"
	"github.com/imamik/comfyprov/internal/util/retry"
)

// ListGPUOfferings implements compute.Provider. Hetzner has no GPU types, so
// every non-deprecated server type is offered, cheapest first. Prices are the
// gross hourly price at the client's location.
func (c *Client) ListGPUOfferings(ctx context.Context) ([]compute.Offering, error) {
	types, err := c.client.ServerType.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch server types: %w", err)
	}

	offerings := make([]compute.Offering, 0, len(types))
	for _, st := range types {
		if st.IsDeprecated() {
			continue
		}
		offerings = append(offerings, compute.Offering{
			ID:          st.Name,
			DisplayName: st.Description,
			MemoryGB:    int(st.Memory),
			SecurePrice: c.hourlyPrice(st),
			SecureCloud: true,
		})
	}

	sort.SliceStable(offerings, func(i, j int) bool {
		return offerings[i].SecurePrice < offerings[j].SecurePrice
	})
	return offerings, nil
}

// hourlyPrice returns the gross hourly price at c.location, falling back to
// the first listed location.
func (c *Client) hourlyPrice(st *hcloud.ServerType) float64 {
	var raw string
	for _, p := range st.Pricings {
		if p.Location != nil && p.Location.Name == c.location {
			raw = p.Hourly.Gross
			break
		}
		if raw == "" {
			raw = p.Hourly.Gross
		}
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return price
}

// CreateInstance implements compute.Provider. GPUTypeID names the server
// type and Image the OS image.
func (c *Client) CreateInstance(ctx context.Context, req compute.CreateRequest) (*compute.Instance, error) {
	name := strings.ToLower(req.Name)
	serverLabels := labels.NewLabelBuilder(name).Merge(req.Labels).Build()

	opts, err := c.buildServerCreateOpts(ctx, name, req, serverLabels)
	if err != nil {
		return nil, &compute.ProvisionError{Op: "create", Err: err}
	}

	var result hcloud.ServerCreateResult
	err = c.withRetry(ctx, func() error {
		res, _, err := c.client.Server.Create(ctx, opts)
		if err != nil {
			return classify(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, &compute.ProvisionError{Op: "create", Err: fmt.Errorf("failed to create server: %w", retry.Cause(err))}
	}

	id := strconv.FormatInt(result.Server.ID, 10)
	if err := waitForActions(ctx, c.client, result.Action); err != nil {
		return nil, &compute.ProvisionError{Op: "create", InstanceID: id, Err: fmt.Errorf("failed to wait for server creation: %w", err)}
	}

	c.log.V(1).Info("server created", "server", id, "name", name)
	inst := toInstance(result.Server)
	inst.BootstrapCommand = BootstrapCommand
	return inst, nil
}

// buildServerCreateOpts resolves server type, image, location and SSH key.
func (c *Client) buildServerCreateOpts(ctx context.Context, name string, req compute.CreateRequest, serverLabels map[string]string) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, req.GPUTypeID)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", req.GPUTypeID)
	}

	images, err := c.client.Image.AllWithOpts(ctx, hcloud.ImageListOpts{
		Name:         req.Image,
		Architecture: []hcloud.Architecture{serverType.Architecture},
	})
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to list images: %w", err)
	}
	if len(images) == 0 {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("image not found: %s", req.Image)
	}

	location := req.Location
	if location == "" {
		location = c.location
	}
	loc, _, err := c.client.Location.Get(ctx, location)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get location %s: %w", location, err)
	}
	if loc == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("location not found: %s", location)
	}

	opts := hcloud.ServerCreateOpts{
		Name:       name,
		ServerType: serverType,
		Image:      images[0],
		Location:   loc,
		Labels:     serverLabels,
		UserData:   userData,
	}

	if req.PublicKey != "" {
		key, _, err := c.client.SSHKey.Create(ctx, hcloud.SSHKeyCreateOpts{
			Name:      naming.SSHKey(name),
			PublicKey: req.PublicKey,
			Labels:    serverLabels,
		})
		if err != nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to create ssh key: %w", err)
		}
		opts.SSHKeys = []*hcloud.SSHKey{key}
	}

	return opts, nil
}

// GetInstance implements compute.Provider.
func (c *Client) GetInstance(ctx context.Context, id string) (*compute.Instance, error) {
	serverID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	server, _, err := c.client.Server.GetByID(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get server %s: %w", id, err)
	}
	if server == nil {
		return nil, fmt.Errorf("server %s not found", id)
	}

	inst := toInstance(server)
	inst.BootstrapCommand = BootstrapCommand
	return inst, nil
}

// TerminateInstance implements compute.Provider. It deletes the server and
// the SSH key created for it.
func (c *Client) TerminateInstance(ctx context.Context, id string) error {
	serverID, err := parseID(id)
	if err != nil {
		return &compute.ProvisionError{Op: "terminate", InstanceID: id, Err: err}
	}

	server, _, err := c.client.Server.GetByID(ctx, serverID)
	if err != nil {
		return &compute.ProvisionError{Op: "terminate", InstanceID: id, Err: err}
	}
	if server == nil {
		return nil
	}

	err = c.withRetry(ctx, func() error {
		res, _, err := c.client.Server.DeleteWithResult(ctx, server)
		if IsNotFound(err) {
			// Deleted by someone else since the lookup.
			return nil
		}
		if err != nil {
			return classify(err)
		}
		if err := waitForActions(ctx, c.client, res.Action); err != nil {
			return retry.Fatal(fmt.Errorf("failed to wait for server deletion: %w", err))
		}
		return nil
	})
	if err != nil {
		return &compute.ProvisionError{Op: "terminate", InstanceID: id, Err: retry.Cause(err)}
	}

	err = (&DeleteOperation[*hcloud.SSHKey]{
		Name:         naming.SSHKey(server.Name),
		ResourceType: "ssh key",
		Get:          c.client.SSHKey.Get,
		Delete:       c.client.SSHKey.Delete,
	}).Execute(ctx, c)
	if err != nil {
		return &compute.ProvisionError{Op: "terminate", InstanceID: id, Err: retry.Cause(err)}
	}
	return nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid server id %q", id)
	}
	return n, nil
}

// toInstance maps a server to an Instance. Hetzner exposes ports directly,
// so a running server with a public IPv4 maps SSH and ComfyUI to themselves.
func toInstance(s *hcloud.Server) *compute.Instance {
	inst := &compute.Instance{
		ID:            strconv.FormatInt(s.ID, 10),
		Name:          s.Name,
		DesiredStatus: mapStatus(s.Status),
	}

	if s.Status == hcloud.ServerStatusRunning && s.PublicNet.IPv4.IP != nil && !s.PublicNet.IPv4.IP.IsUnspecified() {
		ip := s.PublicNet.IPv4.IP.String()
		inst.Ports = []compute.PortMapping{
			{IP: ip, PrivatePort: config.SSHPort, PublicPort: config.SSHPort, Type: "tcp", IsIPPublic: true},
			{IP: ip, PrivatePort: config.ComfyUIPort, PublicPort: config.ComfyUIPort, Type: "http", IsIPPublic: true},
		}
	}
	return inst
}

func mapStatus(status hcloud.ServerStatus) string {
	switch status {
	case hcloud.ServerStatusRunning:
		return compute.StatusRunning
	case hcloud.ServerStatusOff, hcloud.ServerStatusDeleting:
		return compute.StatusExited
	default:
		return compute.StatusCreated
	}
}
