package compute

import (
	"context"
)

// ListOfferings returns the provider's GPU offerings. Offerings are advisory:
// the slice is never nil, and on failure it is empty and the error is
// returned alongside it for the caller to report.
func ListOfferings(ctx context.Context, p Provider) ([]Offering, error) {
	offerings, err := p.ListGPUOfferings(ctx)
	if err != nil || offerings == nil {
		return []Offering{}, err
	}
	return offerings, nil
}
