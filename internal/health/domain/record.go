// Package domain implements the core rules of the user health engine:
// interaction classification, recency aggregation, health segmentation and
// the roletão performance metrics.
//
// Leads, properties and their embedded activity collections arrive from
// several legacy imports and integrations, so they are handled as untyped
// records rather than fixed structs. Every accessor in this package is
// lenient: a missing or malformed field resolves to "absent", never to an
// error.
package domain

import "strings"

// Record is a heterogeneous lead, property or activity payload.
type Record map[string]any

// AsRecord converts an arbitrary decoded JSON value into a Record.
// Non-object values yield nil.
func AsRecord(v any) Record {
	switch t := v.(type) {
	case Record:
		return t
	case map[string]any:
		return Record(t)
	default:
		return nil
	}
}

// StringField returns the first non-empty string value among the given keys.
func (r Record) StringField(keys ...string) (string, bool) {
	for _, key := range keys {
		if raw, ok := r[key]; ok {
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
	}
	return "", false
}

// BoolField returns the first boolean value among the given keys.
func (r Record) BoolField(keys ...string) (bool, bool) {
	for _, key := range keys {
		if raw, ok := r[key]; ok {
			if b, ok := raw.(bool); ok {
				return b, true
			}
		}
	}
	return false, false
}

// ListField returns the first slice value among the given keys.
func (r Record) ListField(keys ...string) ([]any, bool) {
	for _, key := range keys {
		if raw, ok := r[key]; ok {
			if list, ok := raw.([]any); ok {
				return list, true
			}
		}
	}
	return nil, false
}

// statusKeys are the aliases under which a record carries its status text.
var statusKeys = []string{"status", "situacao", "situação", "stage", "etapa", "fase", "pipelineStage", "pipeline_stage"}

// terminalMarkers identify entities that left the active pipeline. Terminal
// entities are excluded from health segmentation and count as conversions in
// the roletão metrics.
var terminalMarkers = []string{"perdido", "cancelado", "fechado"}

// IsTerminal reports whether the record's status or stage text marks it as
// out of the active pipeline.
func IsTerminal(rec Record) bool {
	for _, key := range statusKeys {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		lowered := strings.ToLower(s)
		for _, marker := range terminalMarkers {
			if strings.Contains(lowered, marker) {
				return true
			}
		}
	}
	return false
}

// ownerKeys are the aliases under which a record carries its owning user.
var ownerKeys = []string{
	"ownerId", "owner_id",
	"userId", "user_id",
	"agentId", "agent_id",
	"corretorId", "corretor_id",
	"responsavelId", "responsavel_id",
	"owner", "assignedTo", "assigned_to",
}

// currentUserAlias is kept for records imported from the single-user
// prototype, where ownership was tagged against the session user. Such
// records belong to whichever user is being evaluated.
const currentUserAlias = "current-user"

// OwnedBy reports whether the record belongs to the given user, accepting
// the id variants produced by the different importers: the raw id,
// "user"+id, "u"+id and the legacy current-user alias.
func OwnedBy(rec Record, userID string) bool {
	if userID == "" {
		return false
	}
	for _, key := range ownerKeys {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		switch s {
		case userID, "user" + userID, "u" + userID, currentUserAlias:
			return true
		}
	}
	return false
}
