package usage

import (
	"fmt"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
)

// CheckCap denies a create when current has already reached max. A
// non-positive max means unlimited.
func CheckCap(resource string, current, max int) *apierr.Error {
	if max <= 0 {
		return nil
	}
	if current >= max {
		return apierr.Forbidden(fmt.Sprintf("%s limit reached (%d of %d)", resource, current, max))
	}
	return nil
}

// CheckRadiusMeters validates a radius value (proximity alert or geofence)
// falls within [min, max] inclusive.
func CheckRadiusMeters(field string, radius, min, max int) *apierr.Error {
	if radius < min || radius > max {
		return apierr.Validation(fmt.Sprintf("%s must be between %d and %d meters", field, min, max),
			apierr.Detail{Field: field, Message: fmt.Sprintf("must be between %d and %d", min, max)})
	}
	return nil
}
