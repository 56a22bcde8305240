// Package usage implements quota guardrails: soft warnings embedded in
// mutation responses, and hard caps enforced before a create proceeds.
package usage

import "fmt"

// Default hard caps, overridable per organization where the component
// wiring allows it.
const (
	DefaultMaxAPIKeysPerOrg       = 50
	DefaultMaxBulkImportDevices   = 200
	DefaultMaxBatchLocationPoints = 50

	MinProximityAlertRadiusMeters = 50
	MaxProximityAlertRadiusMeters = 100_000

	MinGeofenceRadiusMeters = 20
	MaxGeofenceRadiusMeters = 50_000
)

// Warning describes a resource approaching its limit.
type Warning struct {
	Resource     string  `json:"resource"`
	Current      int     `json:"current"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	Percentage   float64 `json:"percentage"`
	HumanMessage string  `json:"human_message"`
}

// CheckUsageWarning returns a Warning when current has crossed
// limit*thresholdPct/100, or nil if the resource is unlimited (limit <= 0)
// or still comfortably under threshold.
func CheckUsageWarning(resource string, current, limit int, thresholdPct float64) *Warning {
	if limit <= 0 {
		return nil
	}

	percentage := float64(current) / float64(limit) * 100
	if float64(current) < float64(limit)*thresholdPct/100 {
		return nil
	}

	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}

	return &Warning{
		Resource:     resource,
		Current:      current,
		Limit:        limit,
		Remaining:    remaining,
		Percentage:   percentage,
		HumanMessage: fmt.Sprintf("%s usage is at %.0f%% of its limit (%d of %d)", resource, percentage, current, limit),
	}
}
