// Package models defines GORM data models for FabricMon.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FabricKind selects the collection code path for a fabric.
type FabricKind string

const (
	// FabricKindACI is a path-correlated controller fabric (APIC-style).
	FabricKindACI FabricKind = "aci"
	// FabricKindNXOS is a flat-inventory device fabric (NX-API-style).
	FabricKindNXOS FabricKind = "nxos"
)

// OnboardingStatus is the job lifecycle state.
type OnboardingStatus string

const (
	StatusPending    OnboardingStatus = "pending"
	StatusValidating OnboardingStatus = "validating"
	StatusReady      OnboardingStatus = "ready"
	StatusFailed     OnboardingStatus = "failed"
)

// SnapshotSummary holds the opaque counts reported by a successful pass.
type SnapshotSummary struct {
	FabricNodeCount  int              `json:"fabric_node_count"`
	DetailCount      int              `json:"detail_count,omitempty"`
	InterfaceCount   int              `json:"interface_count,omitempty"`
	LocationsUpdated int              `json:"locations_updated,omitempty"`
	ModuleCount      int              `json:"module_count,omitempty"`
	Modules          []InventoryEntry `json:"modules,omitempty"`
}

// InventoryEntry is one row of an NX-OS flat inventory table.
type InventoryEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Serial      string `json:"serial"`
	ProductID   string `json:"pid"`
}

// FabricJob is the persisted configuration and status for one fabric being
// monitored. Deleting a job cascades to all of its nodes.
type FabricJob struct {
	gorm.Model

	// UUID is the external identifier used by the API.
	UUID       string     `gorm:"uniqueIndex;not null" json:"uuid"`
	Name       string     `gorm:"not null" json:"name"`
	FabricKind FabricKind `gorm:"not null" json:"fabric_kind"`

	TargetHost string `gorm:"not null" json:"target_host"`
	Port       int    `gorm:"default:443" json:"port"`
	Username   string `json:"username"`
	// PasswordSecret is the encrypted credential; never serialized.
	PasswordSecret []byte `json:"-"`

	Description string `json:"description"`
	// ConnectionParams is a free-form bag, e.g. {"protocol":"https"} or
	// {"transport":"nxapi-https"}.
	ConnectionParams map[string]string `gorm:"serializer:json" json:"connection_params"`
	VerifyTLS        bool              `gorm:"default:false" json:"verify_tls"`

	PollIntervalSeconds int `gorm:"default:900" json:"poll_interval_seconds"`

	Status       OnboardingStatus `gorm:"default:'pending'" json:"status"`
	LastError    *string          `json:"last_error"`
	LastSnapshot *SnapshotSummary `gorm:"serializer:json" json:"last_snapshot"`

	LastPolledAt             *time.Time `json:"last_polled_at"`
	LastValidationStartedAt  *time.Time `json:"last_validation_started_at"`
	LastValidationFinishedAt *time.Time `json:"last_validation_finished_at"`

	Nodes []FabricNode `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

func (j *FabricJob) BeforeCreate(tx *gorm.DB) error {
	if j.UUID == "" {
		j.UUID = uuid.NewString()
	}
	return nil
}

// HasCredentials reports whether an encrypted password is stored.
func (j *FabricJob) HasCredentials() bool { return len(j.PasswordSecret) > 0 }

// StartValidation moves the job to Validating and stamps the start time.
func (j *FabricJob) StartValidation() {
	now := time.Now().UTC()
	j.Status = StatusValidating
	j.LastValidationStartedAt = &now
}

// MarkSuccess moves the job to Ready and clears the last error.
func (j *FabricJob) MarkSuccess() {
	now := time.Now().UTC()
	j.Status = StatusReady
	j.LastValidationFinishedAt = &now
	j.LastError = nil
}

// MarkFailure moves the job to Failed and stores the failure message.
func (j *FabricJob) MarkFailure(message string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.LastValidationFinishedAt = &now
	j.LastError = &message
}
