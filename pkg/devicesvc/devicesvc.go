// Package devicesvc implements the two unauthenticated-then-device-scoped
// write endpoints a device calls directly: the enrollment exchange and
// location uploads. It is a thin adapter over internal/enrollment and its
// own narrow location store — the device/location CRUD surface beyond these
// writes belongs to an external collaborator this package does not own.
package devicesvc

import (
	"time"

	"github.com/fleetbeacon/fleetbeacon/internal/enrollment"
)

// EnrollRequest is the JSON body for POST /api/v1/devices/enroll.
type EnrollRequest struct {
	EnrollmentToken string         `json:"enrollment_token" validate:"required"`
	DeviceUUID      string         `json:"device_uuid" validate:"required,uuid"`
	DisplayName     string         `json:"display_name" validate:"required"`
	Platform        string         `json:"platform" validate:"required,oneof=ios android"`
	FCMToken        string         `json:"fcm_token"`
	DeviceInfo      map[string]any `json:"device_info"`
}

// EnrollResponse is the JSON response for a successful enrollment exchange.
type EnrollResponse struct {
	Device               enrollment.Device         `json:"device"`
	DeviceToken          string                    `json:"device_token"`
	DeviceTokenExpiresAt time.Time                 `json:"device_token_expires_at"`
	Policy               *enrollment.PolicySnapshot `json:"policy,omitempty"`
	Group                *enrollment.Group          `json:"group,omitempty"`
}

// LocationRequest is the JSON body for POST /api/v1/locations.
type LocationRequest struct {
	DeviceID  int64   `json:"device_id" validate:"required"`
	Timestamp int64   `json:"timestamp" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  float64 `json:"accuracy" validate:"gte=0"`
}

// BatchLocationRequest is the JSON body for POST /api/v1/locations/batch.
type BatchLocationRequest struct {
	DeviceID  int64             `json:"device_id" validate:"required"`
	Locations []LocationRequest `json:"locations" validate:"required,min=1"`
}

// LocationResponse is the JSON response for either location write endpoint.
type LocationResponse struct {
	Success        bool `json:"success"`
	ProcessedCount int  `json:"processed_count"`
}
