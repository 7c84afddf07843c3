package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// NodeRole classifies a fabric node. Derived from the raw role string, never
// stored as literal input.
type NodeRole string

const (
	RoleLeaf        NodeRole = "leaf"
	RoleSpine       NodeRole = "spine"
	RoleController  NodeRole = "controller"
	RoleUnspecified NodeRole = "unspecified"
)

// RoleFromRaw maps a controller-reported role string onto a NodeRole.
func RoleFromRaw(raw string) NodeRole {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "leaf", "tier-2-leaf":
		return RoleLeaf
	case "spine":
		return RoleSpine
	case "controller", "apic":
		return RoleController
	default:
		return RoleUnspecified
	}
}

// FabricNode is one physical device in a fabric topology. Natural key is
// (job, distinguished name); JobID is nullable so nodes imported before job
// onboarding existed remain queryable.
type FabricNode struct {
	gorm.Model

	JobID *uint      `gorm:"index;uniqueIndex:uq_node_job_dn" json:"job_id"`
	Job   *FabricJob `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`

	DistinguishedName string   `gorm:"not null;uniqueIndex:uq_node_job_dn" json:"distinguished_name"`
	Name              string   `gorm:"not null;index" json:"name"`
	Role              NodeRole `gorm:"default:'unspecified'" json:"role"`
	NodeID            string   `gorm:"not null" json:"node_id"`

	Address          string `json:"address"`
	Serial           string `json:"serial"`
	HardwareModel    string `json:"model"`
	Version          string `json:"version"`
	Vendor           string `json:"vendor"`
	NodeType         string `json:"node_type"`
	ControllerType   string `json:"controller_type"`
	FabricState      string `json:"fabric_state"`
	AdminState       string `json:"admin_state"`
	DelayedHeartbeat bool   `gorm:"default:false" json:"delayed_heartbeat"`
	Pod              string `json:"pod"`

	// Enrichment fields resolved from the external location directory.
	SiteName     string `json:"site_name"`
	RackLocation string `json:"rack_location"`

	RawAttributes map[string]string `gorm:"serializer:json" json:"raw_attributes"`

	// Timestamps parsed from source data, not wall-clock.
	LastStateChangeAt *time.Time `json:"last_state_change_at"`
	LastModifiedAt    *time.Time `json:"last_modified_at"`

	Detail     *FabricNodeDetail     `gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE" json:"-"`
	Interfaces []FabricNodeInterface `gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE" json:"-"`
}
