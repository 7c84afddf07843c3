package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/infrapulse/fabricmon/internal/models"
)

// upsertNodes merges the node-inventory dataset into persisted FabricNode
// rows for the job: create when the path is unseen, else update in place.
// Returns the known-node map consumed by the correlator. This always runs
// and commits before any detail/interface work (hard ordering dependency).
func upsertNodes(db *gorm.DB, job *models.FabricJob, raws []json.RawMessage) (map[string]*models.FabricNode, error) {
	var existing []models.FabricNode
	if err := db.Where("job_id = ?", job.ID).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("loading nodes: %w", err)
	}
	byPath := make(map[string]*models.FabricNode, len(existing))
	for i := range existing {
		byPath[existing[i].DistinguishedName] = &existing[i]
	}

	known := make(map[string]*models.FabricNode, len(raws))
	for _, raw := range raws {
		var rec nodeInventoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.DN == "" {
			continue
		}

		node, ok := byPath[rec.DN]
		if !ok {
			node = &models.FabricNode{
				JobID:             &job.ID,
				DistinguishedName: rec.DN,
			}
		}
		applyNodeAttributes(node, rec, decodeAttributeBag(raw))
		if err := db.Save(node).Error; err != nil {
			return nil, fmt.Errorf("upserting node %s: %w", rec.DN, err)
		}
		known[rec.DN] = node
	}
	return known, nil
}

func applyNodeAttributes(node *models.FabricNode, rec nodeInventoryRecord, bag map[string]string) {
	node.Name = rec.Name
	if node.Name == "" {
		node.Name = ExtractLeafName(rec.DN)
	}
	node.NodeID = rec.ID
	if node.NodeID == "" {
		node.NodeID = rec.DN
	}
	node.Role = models.RoleFromRaw(rec.Role)
	node.Address = rec.Address
	node.Serial = rec.Serial
	node.HardwareModel = rec.Model
	node.Version = rec.Version
	node.Vendor = rec.Vendor
	node.NodeType = rec.NodeType
	node.ControllerType = rec.ApicType
	node.FabricState = rec.FabricState
	node.AdminState = rec.AdminState
	switch strings.ToLower(strings.TrimSpace(rec.DelayedHeartbeat)) {
	case "yes", "true", "1":
		node.DelayedHeartbeat = true
	default:
		node.DelayedHeartbeat = false
	}
	for _, segment := range strings.Split(rec.DN, "/") {
		if strings.HasPrefix(segment, "pod-") {
			node.Pod = segment
			break
		}
	}
	node.LastStateChangeAt = parseTimestamp(rec.LastStateModTs)
	node.LastModifiedAt = parseTimestamp(rec.ModTs)
	node.RawAttributes = bag
}

// applySnapshots persists the correlated snapshots: one detail row per node
// (full overwrite, never a partial merge) and a full interface replacement
// (delete-all then re-insert) across the job's known node set. The
// delete-then-insert policy is deliberate: membership and bindings can move
// between aggregates and ports between passes.
func applySnapshots(
	db *gorm.DB,
	known map[string]*models.FabricNode,
	snapshots map[string]*NodeSnapshot,
) (detailCount, interfaceCount int, err error) {
	collectedAt := time.Now().UTC()

	nodeIDs := make([]uint, 0, len(known))
	for _, node := range known {
		nodeIDs = append(nodeIDs, node.ID)
	}

	for path, node := range known {
		snap := snapshots[path]
		if snap == nil {
			continue
		}
		detail := models.FabricNodeDetail{NodeID: node.ID}
		if err := db.Where("node_id = ?", node.ID).First(&detail).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, fmt.Errorf("loading detail for %s: %w", path, err)
		}
		detail.NodeID = node.ID
		detail.General = snap.General
		detail.Health = snap.Health
		detail.Resources = snap.Resources
		detail.Env = snap.Env
		detail.Firmware = snap.Firmware
		detail.Aggregates = snap.Aggregates
		detail.CollectedAt = collectedAt
		if err := db.Save(&detail).Error; err != nil {
			return 0, 0, fmt.Errorf("saving detail for %s: %w", path, err)
		}
		detailCount++
	}

	// Hard delete: soft-deleted rows would collide with the unique
	// (node, name) index on re-insert.
	if len(nodeIDs) > 0 {
		if err := db.Unscoped().Where("node_id IN ?", nodeIDs).Delete(&models.FabricNodeInterface{}).Error; err != nil {
			return 0, 0, fmt.Errorf("clearing interfaces: %w", err)
		}
	}

	var rows []models.FabricNodeInterface
	for path, node := range known {
		snap := snapshots[path]
		if snap == nil {
			continue
		}
		for _, iface := range snap.Interfaces {
			rows = append(rows, models.FabricNodeInterface{
				NodeID:            node.ID,
				Name:              iface.Name,
				DistinguishedName: iface.DistinguishedName,
				AdminState:        iface.AdminState,
				OperState:         iface.OperState,
				Speed:             iface.Speed,
				Usage:             iface.Usage,
				LastLinkChangeAt:  iface.LastLinkChangeAt,
				MTU:               iface.MTU,
				Duplex:            iface.Duplex,
				FECMode:           iface.FECMode,
				MACAddress:        iface.MACAddress,
				PortType:          iface.PortType,
				AggregateID:       iface.AggregateID,
				AggregateName:     iface.AggregateName,
				Attributes:        iface.Attributes,
				Transceiver:       iface.Transceiver,
				Stats:             iface.Stats,
				EPGBindings:       iface.EPGBindings,
				L3OutBindings:     iface.L3OutBindings,
			})
		}
	}
	if len(rows) > 0 {
		if err := db.CreateInBatches(rows, 200).Error; err != nil {
			return 0, 0, fmt.Errorf("inserting interfaces: %w", err)
		}
	}
	interfaceCount = len(rows)

	return detailCount, interfaceCount, nil
}
