package collector

import (
	"encoding/json"
)

// Intermediate record types for the raw controller payloads, one per
// dataset class with named fields. Attribute values are strings on the
// wire; coercion happens in the correlator. A record that fails to decode
// is skipped, never fatal.

type nodeInventoryRecord struct {
	DN               string `json:"dn"`
	Name             string `json:"name"`
	ID               string `json:"id"`
	Role             string `json:"role"`
	Address          string `json:"address"`
	Serial           string `json:"serial"`
	Model            string `json:"model"`
	Version          string `json:"version"`
	Vendor           string `json:"vendor"`
	NodeType         string `json:"nodeType"`
	ApicType         string `json:"apicType"`
	FabricState      string `json:"fabricSt"`
	AdminState       string `json:"adSt"`
	DelayedHeartbeat string `json:"delayedHeartbeat"`
	LastStateModTs   string `json:"lastStateModTs"`
	ModTs            string `json:"modTs"`
}

type systemRecord struct {
	DN              string `json:"dn"`
	Address         string `json:"address"`
	OobMgmtAddr     string `json:"oobMgmtAddr"`
	InbMgmtAddr     string `json:"inbMgmtAddr"`
	Serial          string `json:"serial"`
	SystemUpTime    string `json:"systemUpTime"`
	LastRebootTime  string `json:"lastRebootTime"`
	LastResetReason string `json:"lastResetReason"`
	CurrentTime     string `json:"currentTime"`
	Mode            string `json:"mode"`
}

type healthRecord struct {
	DN           string `json:"dn"`
	HealthLast   string `json:"healthLast"`
	HealthAvg    string `json:"healthAvg"`
	HealthMax    string `json:"healthMax"`
	HealthMin    string `json:"healthMin"`
	RepIntvStart string `json:"repIntvStart"`
	RepIntvEnd   string `json:"repIntvEnd"`
}

type cpuRecord struct {
	DN           string `json:"dn"`
	IdleAvg      string `json:"idleAvg"`
	RepIntvStart string `json:"repIntvStart"`
	RepIntvEnd   string `json:"repIntvEnd"`
}

type memoryRecord struct {
	DN           string `json:"dn"`
	UsedAvg      string `json:"usedAvg"`
	TotalAvg     string `json:"totalAvg"`
	RepIntvStart string `json:"repIntvStart"`
	RepIntvEnd   string `json:"repIntvEnd"`
}

type temperatureRecord struct {
	DN         string `json:"dn"`
	CurrentAvg string `json:"currentAvg"`
	CurrentMax string `json:"currentMax"`
}

type fanRecord struct {
	DN        string `json:"dn"`
	OperState string `json:"operSt"`
	Direction string `json:"dir"`
}

type firmwareRecord struct {
	DN      string `json:"dn"`
	Version string `json:"version"`
	Type    string `json:"type"`
	Mode    string `json:"mode"`
	Ts      string `json:"ts"`
}

type physIfRecord struct {
	DN         string `json:"dn"`
	ID         string `json:"id"`
	AdminState string `json:"adminSt"`
	Speed      string `json:"speed"`
	Usage      string `json:"usage"`
	MTU        string `json:"mtu"`
	FECMode    string `json:"fecMode"`
	PortType   string `json:"portT"`
}

type physIfOperRecord struct {
	DN            string `json:"dn"`
	OperState     string `json:"operSt"`
	OperSpeed     string `json:"operSpeed"`
	OperDuplex    string `json:"operDuplex"`
	LastLinkStChg string `json:"lastLinkStChg"`
	OperRouterMac string `json:"operRouterMac"`
}

// The transceiver payload is kept wholesale as an attribute bag; only the
// path is needed for correlation.
type transceiverRecord struct {
	DN string `json:"dn"`
}

type aggregateIfRecord struct {
	DN          string `json:"dn"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	AdminState  string `json:"adminSt"`
	OperState   string `json:"operSt"`
	Speed       string `json:"speed"`
	Usage       string `json:"usage"`
	ActivePorts string `json:"activePorts"`
}

type aggregateMemberRecord struct {
	DN       string `json:"dn"`
	TargetDN string `json:"tDn"`
	PortKey  string `json:"tSKey"`
}

type pathBindingRecord struct {
	DN        string `json:"dn"`
	TargetDN  string `json:"tDn"`
	Encap     string `json:"encap"`
	Mode      string `json:"mode"`
	Immediacy string `json:"instrImedcy"`
}

// decodeRecords unmarshals each raw attributes object into T, silently
// dropping records that do not decode.
func decodeRecords[T any](raws []json.RawMessage) []T {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		out = append(out, record)
	}
	return out
}

// decodeAttributeBag preserves the full original payload of one record as
// a free-form string map.
func decodeAttributeBag(raw json.RawMessage) map[string]string {
	var bag map[string]string
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil
	}
	return bag
}
