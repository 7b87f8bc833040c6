package labels

import (
	"maps"
	"strconv"
	"strings"
)

// Standard label keys.
const (
	// KeyInstance identifies which instance a resource belongs to
	KeyInstance = "comfyprov/instance"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "comfyprov/managed-by"

	// KeyProvider names the compute backend
	KeyProvider = "comfyprov/provider"

	// KeyGPUType names the leased GPU or server type
	KeyGPUType = "comfyprov/gpu-type"

	// KeyModels counts the models installed by the setup script
	KeyModels = "comfyprov/models"
)

// ManagedByComfyprov is the value of KeyManagedBy.
const ManagedByComfyprov = "comfyprov"

// maxValueLen is the longest label value Hetzner Cloud accepts.
const maxValueLen = 63

// LabelBuilder provides a fluent interface for building instance labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the instance name pre-set.
func NewLabelBuilder(instanceName string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyInstance:  Value(strings.ToLower(instanceName)),
			KeyManagedBy: ManagedByComfyprov,
		},
	}
}

// WithProvider adds the provider label.
func (lb *LabelBuilder) WithProvider(provider string) *LabelBuilder {
	lb.labels[KeyProvider] = Value(provider)
	return lb
}

// WithGPUType adds the GPU type label.
func (lb *LabelBuilder) WithGPUType(gpuType string) *LabelBuilder {
	lb.labels[KeyGPUType] = Value(gpuType)
	return lb
}

// WithModelCount adds the number of installed models.
func (lb *LabelBuilder) WithModelCount(n int) *LabelBuilder {
	lb.labels[KeyModels] = strconv.Itoa(n)
	return lb
}

// Merge adds all labels from the provided map. Values are normalized;
// existing keys are overwritten.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = Value(v)
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	return maps.Clone(lb.labels)
}

// Value normalizes s into a valid label value: at most 63 characters of
// [A-Za-z0-9-_.], starting and ending with an alphanumeric character.
// Invalid characters become '-'.
func Value(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	v := b.String()
	if len(v) > maxValueLen {
		v = v[:maxValueLen]
	}
	return strings.TrimFunc(v, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
}
