// Package unlocksvc implements unlock requests: a device holder asks to
// temporarily lift one locked setting, and an organization admin (or the
// organization's auto-approve policy) grants or denies it. Mirrors the
// approval workflow the organization's unlock PIN otherwise gates locally on
// the device.
package unlocksvc

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an unlock request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

// defaultTTL bounds how long a pending request waits for a response before
// it is treated as expired.
const defaultTTL = 4 * time.Hour

// CreateRequest is the JSON body for POST .../unlock-requests.
type CreateRequest struct {
	SettingKey string  `json:"setting_key" validate:"required,max=100"`
	Reason     *string `json:"reason" validate:"omitempty,max=500"`
}

// RespondRequest is the JSON body for the admin approve/deny endpoints.
type RespondRequest struct {
	Note *string `json:"note" validate:"omitempty,max=500"`
}

// Response is the JSON response for one unlock request.
type Response struct {
	ID             uuid.UUID  `json:"id"`
	DeviceID       int64      `json:"device_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	SettingKey     string     `json:"setting_key"`
	Status         Status     `json:"status"`
	Reason         *string    `json:"reason,omitempty"`
	RespondedBy    *uuid.UUID `json:"responded_by,omitempty"`
	ResponseNote   *string    `json:"response_note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
}

// Row is the database row shape.
type Row struct {
	ID             uuid.UUID
	DeviceID       int64
	OrganizationID uuid.UUID
	SettingKey     string
	Status         Status
	Reason         *string
	RespondedBy    *uuid.UUID
	ResponseNote   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
	RespondedAt    *time.Time
}

// IsExpired reports whether row is still pending past its expiry, as of now.
func (r Row) IsExpired(now time.Time) bool {
	return r.Status == StatusPending && now.After(r.ExpiresAt)
}

// ToResponse converts a Row to its API response shape.
func (r Row) ToResponse() Response {
	return Response{
		ID:             r.ID,
		DeviceID:       r.DeviceID,
		OrganizationID: r.OrganizationID,
		SettingKey:     r.SettingKey,
		Status:         r.Status,
		Reason:         r.Reason,
		RespondedBy:    r.RespondedBy,
		ResponseNote:   r.ResponseNote,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		ExpiresAt:      r.ExpiresAt,
		RespondedAt:    r.RespondedAt,
	}
}
