// Package collector implements the fabric telemetry collection and
// reconciliation engine: dataset correlation by distinguished-name prefix,
// node/detail/interface upserts, location enrichment, and the job poller.
package collector

import (
	"strings"

	"github.com/infrapulse/fabricmon/internal/models"
)

// aggregatePrefix marks link-aggregation identifiers (po1, po12, ...).
const aggregatePrefix = "po"

// ExtractNodeScope returns the path prefix up to and including the
// node-<id> segment, e.g. "topology/pod-1/node-101" for any object below
// that node. Returns "" when no node segment exists.
func ExtractNodeScope(path string) string {
	// The /sys marker sits directly under the node segment on every
	// system-level object, so it is a cheap shortcut.
	if idx := strings.Index(path, "/sys/"); idx >= 0 {
		return path[:idx]
	}
	if strings.HasSuffix(path, "/sys") {
		return strings.TrimSuffix(path, "/sys")
	}
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if !strings.HasPrefix(segment, "node-") {
			continue
		}
		if isDigits(segment[len("node-"):]) {
			return strings.Join(segments[:i+1], "/")
		}
	}
	return ""
}

// NormalizeInterfaceScope strips the trailing physical-layer suffix so that
// datasets spelling the same port as ".../phys-[eth1/1]",
// ".../phys-[eth1/1]/phys" or ".../phys-[eth1/1]/phys/fcot" all correlate
// to one key.
func NormalizeInterfaceScope(path string) string {
	if idx := strings.Index(path, "]/phys"); idx >= 0 {
		return path[:idx+1]
	}
	return path
}

// ExtractLeafName returns the bracketed token of the final path segment if
// present ("phys-[eth1/1]" → "eth1/1"), else the final segment itself.
// Bracketed tokens carry slashes, so the segment boundary is the last slash
// outside brackets.
func ExtractLeafName(path string) string {
	segment := path
	depth := 0
scan:
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case ']':
			depth++
		case '[':
			depth--
		case '/':
			if depth == 0 {
				segment = path[i+1:]
				break scan
			}
		}
	}
	if open := strings.Index(segment, "["); open >= 0 {
		if end := strings.LastIndex(segment, "]"); end > open {
			return segment[open+1 : end]
		}
	}
	return segment
}

// NormalizeAggregateID canonicalizes an aggregate identifier so that
// datasets spelling it as a bare number or a prefixed token produce the
// same key. "7" → "po7", "Po1" → "po1", anything else lower-cased as-is.
func NormalizeAggregateID(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, aggregatePrefix) {
		return value
	}
	if isDigits(value) {
		return aggregatePrefix + value
	}
	return value
}

// PathAttachmentTarget is the resolution of a binding's target path.
type PathAttachmentTarget struct {
	// InterfacePath is the reconstructed physical-interface path, "" when
	// the target is an aggregate.
	InterfacePath string
	// AggregateID is the normalized aggregate id, "" when the target is a
	// bare port.
	AggregateID string
	// PodScope is the pod prefix, e.g. "topology/pod-1".
	PodScope string
}

// ResolvePathAttachmentTarget resolves a binding's target path, which
// points either at an aggregate token or at a physical-port token under a
// pod/node scope. For a bare port the interface path is reconstructed from
// the pod and paths-<node> segments, because binding datasets reference
// ports by a different path shape than the physical-interface dataset.
func ResolvePathAttachmentTarget(path string) PathAttachmentTarget {
	// The endpoint token is cut bracket-aware before any segment split:
	// port tokens carry slashes ("pathep-[eth1/5]") and would otherwise be
	// truncated at the first one.
	var token string
	prefix := path
	if idx := strings.Index(path, "pathep-["); idx >= 0 {
		tail := path[idx+len("pathep-["):]
		if end := strings.Index(tail, "]"); end >= 0 {
			token = tail[:end]
		}
		prefix = path[:idx]
	}
	if token == "" {
		return PathAttachmentTarget{}
	}

	var pod, nodeID string
	for _, segment := range strings.Split(prefix, "/") {
		switch {
		case strings.HasPrefix(segment, "pod-"):
			pod = segment
		case strings.HasPrefix(segment, "paths-"):
			id := strings.TrimPrefix(segment, "paths-")
			if isDigits(id) {
				nodeID = id
			}
		}
	}

	var podScope string
	if pod != "" {
		podScope = "topology/" + pod
	}

	if strings.HasPrefix(strings.ToLower(token), aggregatePrefix) {
		return PathAttachmentTarget{
			AggregateID: NormalizeAggregateID(token),
			PodScope:    podScope,
		}
	}

	// Bare port name: rebuild the synthetic interface path the physical
	// dataset would use. Two-node (protpaths) targets cannot be pinned to
	// a single interface and resolve to nothing.
	if pod == "" || nodeID == "" {
		return PathAttachmentTarget{PodScope: podScope}
	}
	return PathAttachmentTarget{
		InterfacePath: "topology/" + pod + "/node-" + nodeID + "/sys/phys-[" + token + "]",
		PodScope:      podScope,
	}
}

// EPGBindingLabel extracts "tenant/app-profile/group" from an
// endpoint-group binding path. Returns "" when the group token is absent.
func EPGBindingLabel(path string) string {
	var tenant, profile, group string
	for _, segment := range strings.Split(path, "/") {
		switch {
		case strings.HasPrefix(segment, "tn-"):
			tenant = strings.TrimPrefix(segment, "tn-")
		case strings.HasPrefix(segment, "ap-"):
			profile = strings.TrimPrefix(segment, "ap-")
		case strings.HasPrefix(segment, "epg-"):
			group = strings.TrimPrefix(segment, "epg-")
		}
	}
	if group == "" {
		return ""
	}
	return joinLabel(tenant, profile, group)
}

// L3OutBindingLabel extracts
// "tenant/external-routing-object/node-profile/interface-profile" from an
// external-routing binding path. Returns "" when the routing object token
// is absent.
func L3OutBindingLabel(path string) string {
	var tenant, out, nodeProfile, ifProfile string
	for _, segment := range strings.Split(path, "/") {
		switch {
		case strings.HasPrefix(segment, "tn-"):
			tenant = strings.TrimPrefix(segment, "tn-")
		case strings.HasPrefix(segment, "out-"):
			out = strings.TrimPrefix(segment, "out-")
		case strings.HasPrefix(segment, "lnodep-"):
			nodeProfile = strings.TrimPrefix(segment, "lnodep-")
		case strings.HasPrefix(segment, "lifp-"):
			ifProfile = strings.TrimPrefix(segment, "lifp-")
		}
	}
	if out == "" {
		return ""
	}
	return joinLabel(tenant, out, nodeProfile, ifProfile)
}

// DeduplicateBindings removes exact duplicates (full field tuple),
// preserving first-seen order.
func DeduplicateBindings(bindings []models.Binding) []models.Binding {
	if len(bindings) == 0 {
		return nil
	}
	seen := make(map[models.Binding]struct{}, len(bindings))
	out := make([]models.Binding, 0, len(bindings))
	for _, b := range bindings {
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

func joinLabel(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

func trimBrackets(s string) string {
	s = strings.TrimPrefix(s, "[")
	return strings.TrimSuffix(s, "]")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
