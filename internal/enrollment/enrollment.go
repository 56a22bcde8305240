// Package enrollment implements the device enrollment exchange: a caller
// presents an enrollment token and gets back a bound device plus a freshly
// minted device token, in one atomic transaction.
package enrollment

import (
	"time"

	"github.com/google/uuid"
)

// DeviceTokenPrefix is the brand prefix for minted device tokens.
const DeviceTokenPrefix = "dt_"

// deviceTokenEntropyBytes is the random-byte count behind a minted device
// token, deliberately larger than the 32-byte floor used elsewhere.
const deviceTokenEntropyBytes = 45

// deviceTokenTTL is how long a freshly minted device token is valid.
const deviceTokenTTL = 90 * 24 * time.Hour

// Request is the enrollment exchange's single input.
type Request struct {
	EnrollmentTokenPlain string
	DeviceUUID           string
	DisplayName          string
	DeviceInfo           map[string]any
	FCMToken             string
	Platform             string
}

// Group is the resolved destination group for an enrolled device.
type Group struct {
	ID   string
	Name string
}

// PolicySnapshot is a point-in-time copy of the policy bound to a device at
// enrollment time.
type PolicySnapshot struct {
	ID             uuid.UUID
	Name           string
	Settings       map[string]any
	LockedSettings []string
}

// Device is the managed device record produced or updated by enrollment.
type Device struct {
	ID               int64
	DeviceUUID       string
	DisplayName      string
	GroupID          string
	Platform         string
	OrganizationID   uuid.UUID
	PolicyID         *uuid.UUID
	EnrollmentStatus string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Response is the enrollment exchange's output. DeviceToken is the raw
// token value, shown exactly once.
type Response struct {
	Device               Device
	DeviceToken          string
	DeviceTokenExpiresAt time.Time
	Policy               *PolicySnapshot
	Group                *Group
}
