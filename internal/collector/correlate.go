package collector

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/infrapulse/fabricmon/internal/apic"
	"github.com/infrapulse/fabricmon/internal/models"
)

// InterfaceSnapshot is one correlated physical interface, merged from the
// physical-layer, link-operational and transceiver datasets.
type InterfaceSnapshot struct {
	Name              string
	DistinguishedName string

	AdminState       string
	OperState        string
	Speed            string
	Usage            string
	LastLinkChangeAt *time.Time
	MTU              *int
	Duplex           string
	FECMode          string
	MACAddress       string
	PortType         string

	AggregateID   *string
	AggregateName *string

	Attributes  map[string]string
	Transceiver map[string]string
	Stats       map[string]string

	EPGBindings   []models.Binding
	L3OutBindings []models.Binding
}

// NodeSnapshot is the full correlated state of one fabric node for a
// single collection pass.
type NodeSnapshot struct {
	General    models.GeneralFacts
	Health     []models.HealthSample
	Resources  models.ResourceUtilization
	Env        models.Environment
	Firmware   models.FirmwareFacts
	Aggregates []models.AggregateSummary
	Interfaces []InterfaceSnapshot
}

// ifaceEntry is an interface correlation map entry, keyed by normalized
// interface path.
type ifaceEntry struct {
	nodeScope string
	snap      InterfaceSnapshot
}

// bucketKey addresses aggregate-level binding buckets. Bindings whose
// target resolves to an aggregate rather than a bare port are collected per
// (pod scope, aggregate id) and merged onto matching aggregate summaries
// afterward.
type bucketKey struct {
	podScope    string
	aggregateID string
}

type bindingBucket struct {
	epg   []models.Binding
	l3out []models.Binding
}

// Correlate joins the raw dataset collection into one snapshot per known
// node path. A node path present in raw data but absent from knownNodes is
// silently dropped; it is picked up on the next pass once the
// node-inventory upsert has run. Records missing their path field are
// skipped, not errors.
func Correlate(datasets apic.Datasets, knownNodes map[string]struct{}) map[string]*NodeSnapshot {
	snapshots := make(map[string]*NodeSnapshot, len(knownNodes))
	for path := range knownNodes {
		snapshots[path] = &NodeSnapshot{}
	}

	correlateGeneral(snapshots, datasets)
	correlateHealth(snapshots, datasets.Records(apic.ClassHealth5Min), "5min")
	correlateHealth(snapshots, datasets.Records(apic.ClassHealth15Min), "15min")
	correlateResources(snapshots, datasets)
	correlateEnvironment(snapshots, datasets)
	correlateFirmware(snapshots, datasets)

	ifaces := buildInterfaceMap(datasets)
	aggregates := buildAggregates(snapshots, datasets, ifaces)
	buckets := resolveBindings(datasets, ifaces)
	assemble(snapshots, ifaces, aggregates, buckets)

	return snapshots
}

func correlateGeneral(snapshots map[string]*NodeSnapshot, datasets apic.Datasets) {
	for _, rec := range decodeRecords[systemRecord](datasets.Records(apic.ClassSystem)) {
		snap := lookup(snapshots, rec.DN)
		if snap == nil {
			continue
		}
		snap.General = models.GeneralFacts{
			ManagementAddress: rec.Address,
			InBandAddress:     rec.InbMgmtAddr,
			OutOfBandAddress:  rec.OobMgmtAddr,
			Serial:            rec.Serial,
			Uptime:            rec.SystemUpTime,
			LastRebootAt:      parseTimestamp(rec.LastRebootTime),
			LastResetReason:   rec.LastResetReason,
			ControllerTime:    parseTimestamp(rec.CurrentTime),
			Mode:              rec.Mode,
		}
	}
}

func correlateHealth(snapshots map[string]*NodeSnapshot, raws []json.RawMessage, window string) {
	for _, rec := range decodeRecords[healthRecord](raws) {
		snap := lookup(snapshots, rec.DN)
		if snap == nil {
			continue
		}
		snap.Health = append(snap.Health, models.HealthSample{
			Window:        window,
			Last:          parseFloat(rec.HealthLast),
			Avg:           parseFloat(rec.HealthAvg),
			Max:           parseFloat(rec.HealthMax),
			Min:           parseFloat(rec.HealthMin),
			IntervalStart: parseTimestamp(rec.RepIntvStart),
			IntervalEnd:   parseTimestamp(rec.RepIntvEnd),
		})
	}
}

func correlateResources(snapshots map[string]*NodeSnapshot, datasets apic.Datasets) {
	// Last record wins when multiple rows target the same node in one
	// pass; the upstream row order is undocumented, so no averaging.
	for _, rec := range decodeRecords[cpuRecord](datasets.Records(apic.ClassCPU)) {
		snap := lookup(snapshots, rec.DN)
		if snap == nil {
			continue
		}
		snap.Resources.CPU = &models.ResourceSample{
			UsagePercent:  usageFromIdle(parseFloat(rec.IdleAvg)),
			IntervalStart: parseTimestamp(rec.RepIntvStart),
			IntervalEnd:   parseTimestamp(rec.RepIntvEnd),
		}
	}
	for _, rec := range decodeRecords[memoryRecord](datasets.Records(apic.ClassMemory)) {
		snap := lookup(snapshots, rec.DN)
		if snap == nil {
			continue
		}
		snap.Resources.Memory = &models.ResourceSample{
			UsagePercent:  usageFromUsedTotal(parseFloat(rec.UsedAvg), parseFloat(rec.TotalAvg)),
			IntervalStart: parseTimestamp(rec.RepIntvStart),
			IntervalEnd:   parseTimestamp(rec.RepIntvEnd),
		}
	}
}

func correlateEnvironment(snapshots map[string]*NodeSnapshot, datasets apic.Datasets) {
	for _, rec := range decodeRecords[temperatureRecord](datasets.Records(apic.ClassTemperature)) {
		snap := lookup(snapshots, rec.DN)
		if snap == nil {
			continue
		}
		snap.Env.Temperatures = append(snap.Env.Temperatures, models.TemperatureSensor{
			Name:    sensorDisplayName(rec.DN),
			Current: parseFloat(rec.CurrentAvg),
			Max:     parseFloat(rec.CurrentMax),
		})
	}
	for _, rec := range decodeRecords[fanRecord](datasets.Records(apic.ClassFan)) {
		snap := lookup(snapshots, rec.DN)
		if snap == nil {
			continue
		}
		snap.Env.Fans = append(snap.Env.Fans, models.FanStatus{
			Name:      sensorDisplayName(rec.DN),
			OperState: rec.OperState,
			Direction: rec.Direction,
		})
	}
}

func correlateFirmware(snapshots map[string]*NodeSnapshot, datasets apic.Datasets) {
	// One firmware record per node is expected: replace, not append.
	for _, rec := range decodeRecords[firmwareRecord](datasets.Records(apic.ClassFirmware)) {
		snap := lookup(snapshots, rec.DN)
		if snap == nil {
			continue
		}
		snap.Firmware = models.FirmwareFacts{
			Version:     rec.Version,
			Type:        rec.Type,
			Mode:        rec.Mode,
			InstalledAt: parseTimestamp(rec.Ts),
		}
	}
}

// buildInterfaceMap merges the three independently-keyed physical
// datasets by normalized interface path. One dataset spells ports by dn and
// another by operational-state dn, hence the normalization.
func buildInterfaceMap(datasets apic.Datasets) map[string]*ifaceEntry {
	ifaces := make(map[string]*ifaceEntry)

	for _, raw := range datasets.Records(apic.ClassPhysIf) {
		var rec physIfRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.DN == "" {
			continue
		}
		key := NormalizeInterfaceScope(rec.DN)
		name := rec.ID
		if name == "" {
			name = ExtractLeafName(key)
		}
		ifaces[key] = &ifaceEntry{
			nodeScope: ExtractNodeScope(rec.DN),
			snap: InterfaceSnapshot{
				Name:              name,
				DistinguishedName: key,
				AdminState:        rec.AdminState,
				Speed:             rec.Speed,
				Usage:             rec.Usage,
				MTU:               parseInt(rec.MTU),
				FECMode:           rec.FECMode,
				PortType:          rec.PortType,
				Attributes:        decodeAttributeBag(raw),
			},
		}
	}

	for _, raw := range datasets.Records(apic.ClassPhysIfOper) {
		var rec physIfOperRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.DN == "" {
			continue
		}
		entry, ok := ifaces[NormalizeInterfaceScope(rec.DN)]
		if !ok {
			continue
		}
		entry.snap.OperState = rec.OperState
		entry.snap.Duplex = rec.OperDuplex
		entry.snap.MACAddress = rec.OperRouterMac
		entry.snap.LastLinkChangeAt = parseTimestamp(rec.LastLinkStChg)
		if entry.snap.Speed == "" {
			entry.snap.Speed = rec.OperSpeed
		}
		entry.snap.Stats = decodeAttributeBag(raw)
	}

	for _, raw := range datasets.Records(apic.ClassTransceiver) {
		var rec transceiverRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.DN == "" {
			continue
		}
		entry, ok := ifaces[NormalizeInterfaceScope(rec.DN)]
		if !ok {
			continue
		}
		entry.snap.Transceiver = decodeAttributeBag(raw)
	}

	return ifaces
}

// buildAggregates seeds one summary per (node, aggregate id) and resolves
// the membership dataset onto both the summaries and the interface map.
func buildAggregates(
	snapshots map[string]*NodeSnapshot,
	datasets apic.Datasets,
	ifaces map[string]*ifaceEntry,
) map[string]map[string]*models.AggregateSummary {
	aggregates := make(map[string]map[string]*models.AggregateSummary)

	for _, rec := range decodeRecords[aggregateIfRecord](datasets.Records(apic.ClassAggregateIf)) {
		nodeScope := ExtractNodeScope(rec.DN)
		if _, known := snapshots[nodeScope]; !known {
			continue
		}
		id := NormalizeAggregateID(rec.ID)
		if id == "" {
			id = NormalizeAggregateID(ExtractLeafName(rec.DN))
		}
		if aggregates[nodeScope] == nil {
			aggregates[nodeScope] = make(map[string]*models.AggregateSummary)
		}
		aggregates[nodeScope][id] = &models.AggregateSummary{
			AggregateID: id,
			Name:        rec.Name,
			AdminState:  rec.AdminState,
			OperState:   rec.OperState,
			Usage:       rec.Usage,
			Speed:       rec.Speed,
			ActivePorts: parseInt(rec.ActivePorts),
		}
	}

	for _, rec := range decodeRecords[aggregateMemberRecord](datasets.Records(apic.ClassAggregateMbr)) {
		nodeScope := ExtractNodeScope(rec.DN)
		byID := aggregates[nodeScope]
		if byID == nil {
			continue
		}
		aggrID := aggregateIDFromMemberPath(rec.DN)
		summary, ok := byID[aggrID]
		if !ok {
			continue
		}
		memberKey := NormalizeInterfaceScope(rec.TargetDN)
		memberName := rec.PortKey
		if memberName == "" {
			memberName = ExtractLeafName(memberKey)
		}
		summary.Members = append(summary.Members, models.AggregateMember{
			Name: memberName,
			Path: rec.TargetDN,
		})
		if entry, ok := ifaces[memberKey]; ok {
			id := aggrID
			entry.snap.AggregateID = &id
		}
	}

	return aggregates
}

// resolveBindings parses both binding-relationship datasets, attaching
// port-targeted bindings directly to interface entries and collecting
// aggregate-targeted ones in (pod scope, aggregate id) buckets.
func resolveBindings(datasets apic.Datasets, ifaces map[string]*ifaceEntry) map[bucketKey]*bindingBucket {
	buckets := make(map[bucketKey]*bindingBucket)

	attach := func(rec pathBindingRecord, label string, l3out bool) {
		binding := models.Binding{
			Name:          label,
			Encapsulation: rec.Encap,
			Mode:          rec.Mode,
			Immediacy:     rec.Immediacy,
			SourcePath:    rec.DN,
		}
		target := ResolvePathAttachmentTarget(rec.TargetDN)
		switch {
		case target.InterfacePath != "":
			entry, ok := ifaces[NormalizeInterfaceScope(target.InterfacePath)]
			if !ok {
				return
			}
			if l3out {
				entry.snap.L3OutBindings = append(entry.snap.L3OutBindings, binding)
			} else {
				entry.snap.EPGBindings = append(entry.snap.EPGBindings, binding)
			}
		case target.AggregateID != "":
			key := bucketKey{podScope: target.PodScope, aggregateID: target.AggregateID}
			bucket := buckets[key]
			if bucket == nil {
				bucket = &bindingBucket{}
				buckets[key] = bucket
			}
			if l3out {
				bucket.l3out = append(bucket.l3out, binding)
			} else {
				bucket.epg = append(bucket.epg, binding)
			}
		}
	}

	for _, rec := range decodeRecords[pathBindingRecord](datasets.Records(apic.ClassEPGBinding)) {
		if label := EPGBindingLabel(rec.DN); label != "" {
			attach(rec, label, false)
		}
	}
	for _, rec := range decodeRecords[pathBindingRecord](datasets.Records(apic.ClassL3OutBinding)) {
		if label := L3OutBindingLabel(rec.DN); label != "" {
			attach(rec, label, true)
		}
	}
	return buckets
}

// assemble produces the final sorted per-node aggregate and interface
// lists. Interfaces inherit their owning aggregate's bindings in addition
// to any directly attached ones; all lists are deduplicated.
func assemble(
	snapshots map[string]*NodeSnapshot,
	ifaces map[string]*ifaceEntry,
	aggregates map[string]map[string]*models.AggregateSummary,
	buckets map[bucketKey]*bindingBucket,
) {
	for nodeScope, snap := range snapshots {
		pod := podScope(nodeScope)

		byID := aggregates[nodeScope]
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			summary := byID[id]
			if bucket := buckets[bucketKey{podScope: pod, aggregateID: id}]; bucket != nil {
				summary.EPGBindings = append(summary.EPGBindings, bucket.epg...)
				summary.L3OutBindings = append(summary.L3OutBindings, bucket.l3out...)
			}
			summary.EPGBindings = DeduplicateBindings(summary.EPGBindings)
			summary.L3OutBindings = DeduplicateBindings(summary.L3OutBindings)
			snap.Aggregates = append(snap.Aggregates, *summary)
		}

		for _, entry := range ifaces {
			if entry.nodeScope != nodeScope {
				continue
			}
			iface := entry.snap
			if iface.AggregateID != nil {
				if summary, ok := byID[*iface.AggregateID]; ok {
					if summary.Name != "" {
						name := summary.Name
						iface.AggregateName = &name
					}
					iface.EPGBindings = append(iface.EPGBindings, summary.EPGBindings...)
					iface.L3OutBindings = append(iface.L3OutBindings, summary.L3OutBindings...)
				}
			}
			iface.EPGBindings = DeduplicateBindings(iface.EPGBindings)
			iface.L3OutBindings = DeduplicateBindings(iface.L3OutBindings)
			snap.Interfaces = append(snap.Interfaces, iface)
		}
		sort.Slice(snap.Interfaces, func(i, j int) bool {
			return snap.Interfaces[i].Name < snap.Interfaces[j].Name
		})
	}
}

// lookup resolves a record's node scope against the known-node set.
func lookup(snapshots map[string]*NodeSnapshot, dn string) *NodeSnapshot {
	if dn == "" {
		return nil
	}
	scope := ExtractNodeScope(dn)
	if scope == "" {
		return nil
	}
	return snapshots[scope]
}

// podScope returns the pod prefix of a node scope,
// "topology/pod-1/node-101" → "topology/pod-1".
func podScope(nodeScope string) string {
	if idx := strings.Index(nodeScope, "/node-"); idx >= 0 {
		return nodeScope[:idx]
	}
	return nodeScope
}

// sensorDisplayName builds a readable name from the last two path segments
// when a chassis location segment exists, else the bare leaf name.
func sensorDisplayName(dn string) string {
	if !strings.Contains(dn, "/ch/") {
		return ExtractLeafName(dn)
	}
	segments := strings.Split(dn, "/")
	if len(segments) < 2 {
		return ExtractLeafName(dn)
	}
	return segments[len(segments)-2] + "/" + segments[len(segments)-1]
}

// aggregateIDFromMemberPath extracts the owning aggregate id from a
// membership record path, ".../sys/aggr-[po1]/rsmbrIfs-[...]" → "po1".
func aggregateIDFromMemberPath(dn string) string {
	for _, segment := range strings.Split(dn, "/") {
		if strings.HasPrefix(segment, "aggr-[") {
			return NormalizeAggregateID(trimBrackets(strings.TrimPrefix(segment, "aggr-")))
		}
	}
	return ""
}
