package runpod

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/imamik/comfyprov/internal/platform/compute"
	"github.com/imamik/comfyprov/internal/util/retry"
)

// DefaultVolumeMountPath is where the persistent volume is mounted in a pod.
const DefaultVolumeMountPath = "/workspace"

const gpuTypesQuery = `query GpuTypes {
  gpuTypes {
    id
    displayName
    memoryInGb
    secureCloud
    communityCloud
    securePrice
    communityPrice
  }
}`

const deployMutation = `mutation Deploy($input: PodFindAndDeployOnDemandInput) {
  podFindAndDeployOnDemand(input: $input) {
    id
    name
    desiredStatus
    imageName
    machineId
  }
}`

const podQuery = `query Pod($input: PodFilter) {
  pod(input: $input) {
    id
    name
    desiredStatus
    runtime {
      ports {
        ip
        isIpPublic
        privatePort
        publicPort
        type
      }
    }
  }
}`

const terminateMutation = `mutation Terminate($input: PodTerminateInput!) {
  podTerminate(input: $input)
}`

type gpuType struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"displayName"`
	MemoryInGb     int     `json:"memoryInGb"`
	SecureCloud    bool    `json:"secureCloud"`
	CommunityCloud bool    `json:"communityCloud"`
	SecurePrice    float64 `json:"securePrice"`
	CommunityPrice float64 `json:"communityPrice"`
}

type pod struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DesiredStatus string `json:"desiredStatus"`
	Runtime       *struct {
		Ports []struct {
			IP          string `json:"ip"`
			IsIPPublic  bool   `json:"isIpPublic"`
			PrivatePort int    `json:"privatePort"`
			PublicPort  int    `json:"publicPort"`
			Type        string `json:"type"`
		} `json:"ports"`
	} `json:"runtime"`
}

type envVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ListGPUOfferings implements compute.Provider.
func (c *Client) ListGPUOfferings(ctx context.Context) ([]compute.Offering, error) {
	var data struct {
		GPUTypes []gpuType `json:"gpuTypes"`
	}
	if err := c.query(ctx, "gpuTypes", gpuTypesQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list GPU types: %w", retry.Cause(err))
	}

	offerings := make([]compute.Offering, 0, len(data.GPUTypes))
	for _, g := range data.GPUTypes {
		offerings = append(offerings, compute.Offering{
			ID:             g.ID,
			DisplayName:    g.DisplayName,
			MemoryGB:       g.MemoryInGb,
			CommunityPrice: g.CommunityPrice,
			SecurePrice:    g.SecurePrice,
			CommunityCloud: g.CommunityCloud,
			SecureCloud:    g.SecureCloud,
		})
	}
	return offerings, nil
}

// CreateInstance implements compute.Provider. The request is sent once.
func (c *Client) CreateInstance(ctx context.Context, req compute.CreateRequest) (*compute.Instance, error) {
	input := map[string]any{
		"cloudType":         strings.ToUpper(req.CloudType),
		"gpuCount":          1,
		"volumeInGb":        req.VolumeSizeGB,
		"containerDiskInGb": req.ContainerDiskSizeGB,
		"gpuTypeId":         req.GPUTypeID,
		"name":              req.Name,
		"imageName":         req.Image,
		"ports":             req.Ports,
		"volumeMountPath":   DefaultVolumeMountPath,
		"supportPublicIp":   true,
		"env":               buildEnv(req),
	}

	var data struct {
		Pod *pod `json:"podFindAndDeployOnDemand"`
	}
	if err := c.do(ctx, "podFindAndDeployOnDemand", deployMutation, map[string]any{"input": input}, &data); err != nil {
		return nil, &compute.ProvisionError{Op: "create", Err: retry.Cause(err)}
	}
	if data.Pod == nil || data.Pod.ID == "" {
		return nil, &compute.ProvisionError{Op: "create", Err: fmt.Errorf("no pod returned for GPU type %q", req.GPUTypeID)}
	}

	c.log.V(1).Info("pod created", "pod", data.Pod.ID, "name", data.Pod.Name)
	return data.Pod.toInstance(), nil
}

// GetInstance implements compute.Provider.
func (c *Client) GetInstance(ctx context.Context, id string) (*compute.Instance, error) {
	var data struct {
		Pod *pod `json:"pod"`
	}
	vars := map[string]any{"input": map[string]any{"podId": id}}
	if err := c.query(ctx, "pod", podQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to get pod %s: %w", id, retry.Cause(err))
	}
	if data.Pod == nil {
		return nil, fmt.Errorf("pod %s not found", id)
	}
	return data.Pod.toInstance(), nil
}

// TerminateInstance implements compute.Provider.
func (c *Client) TerminateInstance(ctx context.Context, id string) error {
	vars := map[string]any{"input": map[string]any{"podId": id}}
	if err := c.query(ctx, "podTerminate", terminateMutation, vars, nil); err != nil {
		return &compute.ProvisionError{Op: "terminate", InstanceID: id, Err: retry.Cause(err)}
	}
	return nil
}

func (p *pod) toInstance() *compute.Instance {
	inst := &compute.Instance{
		ID:            p.ID,
		Name:          p.Name,
		DesiredStatus: p.DesiredStatus,
	}
	if p.Runtime != nil {
		for _, port := range p.Runtime.Ports {
			inst.Ports = append(inst.Ports, compute.PortMapping{
				IP:          port.IP,
				PrivatePort: port.PrivatePort,
				PublicPort:  port.PublicPort,
				Type:        port.Type,
				IsIPPublic:  port.IsIPPublic,
			})
		}
	}
	return inst
}

// buildEnv flattens the request environment into RunPod's key/value list,
// sorted by key. The public key travels as PUBLIC_KEY, which RunPod images
// append to root's authorized_keys on boot.
func buildEnv(req compute.CreateRequest) []envVar {
	env := make(map[string]string, len(req.Env)+1)
	for k, v := range req.Env {
		env[k] = v
	}
	if req.PublicKey != "" {
		env["PUBLIC_KEY"] = req.PublicKey
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]envVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, envVar{Key: k, Value: env[k]})
	}
	return out
}
