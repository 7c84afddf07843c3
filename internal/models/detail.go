package models

import (
	"time"

	"gorm.io/gorm"
)

// The structured blobs below are produced by the snapshot correlator and
// stored wholesale on every successful collection pass; they are never merged
// incrementally.

// GeneralFacts holds identity/addressing facts from the node system record.
type GeneralFacts struct {
	ManagementAddress       string     `json:"management_address,omitempty"`
	InBandAddress           string     `json:"in_band_address,omitempty"`
	OutOfBandAddress        string     `json:"out_of_band_address,omitempty"`
	Serial                  string     `json:"serial,omitempty"`
	Uptime                  string     `json:"uptime,omitempty"`
	LastRebootAt            *time.Time `json:"last_reboot_at,omitempty"`
	LastResetReason         string     `json:"last_reset_reason,omitempty"`
	ControllerTime          *time.Time `json:"controller_time,omitempty"`
	Mode                    string     `json:"mode,omitempty"`
}

// HealthSample is one normalized health score window.
type HealthSample struct {
	Window        string     `json:"window"`
	Last          *float64   `json:"last,omitempty"`
	Avg           *float64   `json:"avg,omitempty"`
	Max           *float64   `json:"max,omitempty"`
	Min           *float64   `json:"min,omitempty"`
	IntervalStart *time.Time `json:"interval_start,omitempty"`
	IntervalEnd   *time.Time `json:"interval_end,omitempty"`
}

// ResourceSample is a CPU or memory utilization reading with its derived
// usage percentage.
type ResourceSample struct {
	UsagePercent  *float64   `json:"usage_percent,omitempty"`
	IntervalStart *time.Time `json:"interval_start,omitempty"`
	IntervalEnd   *time.Time `json:"interval_end,omitempty"`
}

// ResourceUtilization groups the per-node CPU and memory samples.
type ResourceUtilization struct {
	CPU    *ResourceSample `json:"cpu,omitempty"`
	Memory *ResourceSample `json:"memory,omitempty"`
}

// TemperatureSensor is one environment temperature reading.
type TemperatureSensor struct {
	Name    string   `json:"name"`
	Current *float64 `json:"current,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// FanStatus is one fan tray reading.
type FanStatus struct {
	Name      string `json:"name"`
	OperState string `json:"oper_state,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Environment groups temperature and fan inventories.
type Environment struct {
	Temperatures []TemperatureSensor `json:"temperatures,omitempty"`
	Fans         []FanStatus         `json:"fans,omitempty"`
}

// FirmwareFacts holds the running firmware record for a node.
type FirmwareFacts struct {
	Version     string     `json:"version,omitempty"`
	Type        string     `json:"type,omitempty"`
	Mode        string     `json:"mode,omitempty"`
	InstalledAt *time.Time `json:"installed_at,omitempty"`
}

// Binding associates a port or aggregate with a tenant construct.
type Binding struct {
	Name          string `json:"name"`
	Encapsulation string `json:"encapsulation,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Immediacy     string `json:"immediacy,omitempty"`
	SourcePath    string `json:"source_path,omitempty"`
}

// AggregateMember is one physical port belonging to an aggregate.
type AggregateMember struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// AggregateSummary describes one link-aggregation group on a node.
type AggregateSummary struct {
	AggregateID   string            `json:"aggregate_id"`
	Name          string            `json:"name,omitempty"`
	AdminState    string            `json:"admin_state,omitempty"`
	OperState     string            `json:"oper_state,omitempty"`
	Usage         string            `json:"usage,omitempty"`
	Speed         string            `json:"speed,omitempty"`
	ActivePorts   *int              `json:"active_ports,omitempty"`
	Members       []AggregateMember `json:"members,omitempty"`
	EPGBindings   []Binding         `json:"epg_bindings,omitempty"`
	L3OutBindings []Binding         `json:"l3out_bindings,omitempty"`
}

// FabricNodeDetail is the one-to-one structured detail blob for a node.
// Replaced wholesale on every successful collection pass.
type FabricNodeDetail struct {
	gorm.Model

	NodeID uint        `gorm:"uniqueIndex;not null" json:"node_id"`
	Node   *FabricNode `gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE" json:"-"`

	General    GeneralFacts        `gorm:"serializer:json" json:"general"`
	Health     []HealthSample      `gorm:"serializer:json" json:"health"`
	Resources  ResourceUtilization `gorm:"serializer:json" json:"resources"`
	Env        Environment         `gorm:"serializer:json" json:"environment"`
	Firmware   FirmwareFacts       `gorm:"serializer:json" json:"firmware"`
	Aggregates []AggregateSummary  `gorm:"serializer:json" json:"aggregates"`

	CollectedAt time.Time `json:"collected_at"`
}

// FabricNodeInterface is one physical or aggregate-facing port on a node.
// The interface set is fully replaced (delete-all, re-insert) per node on
// every successful pass.
type FabricNodeInterface struct {
	gorm.Model

	NodeID uint        `gorm:"index;uniqueIndex:uq_iface_node_name;not null" json:"node_id"`
	Node   *FabricNode `gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE" json:"-"`

	Name              string `gorm:"not null;uniqueIndex:uq_iface_node_name" json:"name"`
	DistinguishedName string `gorm:"not null" json:"distinguished_name"`

	AdminState       string     `json:"admin_state"`
	OperState        string     `json:"oper_state"`
	Speed            string     `json:"speed"`
	Usage            string     `json:"usage"`
	LastLinkChangeAt *time.Time `json:"last_link_change_at"`
	MTU              *int       `json:"mtu"`
	Duplex           string     `json:"duplex"`
	FECMode          string     `json:"fec_mode"`
	MACAddress       string     `json:"mac_address"`
	PortType         string     `json:"port_type"`

	AggregateID   *string `json:"aggregate_id"`
	AggregateName *string `json:"aggregate_name"`

	Attributes  map[string]string `gorm:"serializer:json" json:"attributes"`
	Transceiver map[string]string `gorm:"serializer:json" json:"transceiver"`
	Stats       map[string]string `gorm:"serializer:json" json:"stats"`

	EPGBindings   []Binding `gorm:"serializer:json" json:"epg_bindings"`
	L3OutBindings []Binding `gorm:"serializer:json" json:"l3out_bindings"`
}
