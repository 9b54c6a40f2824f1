package domain

import (
	"strconv"
	"strings"
	"time"
)

// ruleKind selects how an accessor rule reads a date out of a record.
type ruleKind int

const (
	// ruleDirect reads a single timestamp field.
	ruleDirect ruleKind = iota
	// rulePair merges split date and time fields by string concatenation.
	rulePair
	// ruleNested reads a timestamp out of a nested single object.
	ruleNested
	// ruleCollection scans a list of activity items for their dates.
	ruleCollection
)

// accessorRule is one entry of the ordered scan table. Rules are tried in
// sequence and every hit contributes a candidate; the aggregate keeps the
// maximum. New record shapes are supported by adding rows, not branches.
type accessorRule struct {
	kind    ruleKind
	key     string
	timeKey string // rulePair only
	// humanOnly filters collection items through the interaction classifier.
	humanOnly bool
}

// leadRecencyRules cover the lead shapes of every importer seen so far:
// camelCase and snake_case, pt-BR and English field names, split date+time
// pairs, a nested last-interaction object, and embedded activity collections.
var leadRecencyRules = []accessorRule{
	{kind: ruleDirect, key: "lastHumanContactAt"},
	{kind: ruleDirect, key: "last_human_contact_at"},
	{kind: ruleDirect, key: "lastContactAt"},
	{kind: ruleDirect, key: "last_contact_at"},
	{kind: ruleDirect, key: "lastInteractionAt"},
	{kind: ruleDirect, key: "last_interaction_at"},
	{kind: ruleDirect, key: "lastActivityAt"},
	{kind: ruleDirect, key: "last_activity_at"},
	{kind: ruleDirect, key: "lastTouchAt"},
	{kind: ruleDirect, key: "last_touch_at"},
	{kind: ruleDirect, key: "lastFollowUpAt"},
	{kind: ruleDirect, key: "last_follow_up_at"},
	{kind: ruleDirect, key: "contactedAt"},
	{kind: ruleDirect, key: "contacted_at"},
	{kind: ruleDirect, key: "ultimaInteracao"},
	{kind: ruleDirect, key: "ultima_interacao"},
	{kind: ruleDirect, key: "ultimoContato"},
	{kind: ruleDirect, key: "ultimo_contato"},
	{kind: ruleDirect, key: "dataUltimoContato"},
	{kind: ruleDirect, key: "data_ultimo_contato"},
	{kind: rulePair, key: "dataContato", timeKey: "horaContato"},
	{kind: rulePair, key: "data_contato", timeKey: "hora_contato"},
	{kind: ruleNested, key: "lastInteraction", humanOnly: true},
	{kind: ruleNested, key: "ultimaAtividade", humanOnly: true},
	{kind: ruleCollection, key: "interactions", humanOnly: true},
	{kind: ruleCollection, key: "interacoes", humanOnly: true},
	{kind: ruleCollection, key: "activities", humanOnly: true},
	{kind: ruleCollection, key: "atividades", humanOnly: true},
	{kind: ruleCollection, key: "contacts", humanOnly: true},
	{kind: ruleCollection, key: "contatos", humanOnly: true},
	{kind: ruleCollection, key: "timeline", humanOnly: true},
	{kind: ruleCollection, key: "history", humanOnly: true},
	{kind: ruleCollection, key: "historico", humanOnly: true},
	{kind: ruleCollection, key: "events", humanOnly: true},
	{kind: ruleCollection, key: "notes", humanOnly: true},
	{kind: ruleCollection, key: "tasks", humanOnly: true},
	{kind: ruleCollection, key: "updates", humanOnly: true},
}

// propertyRecencyRules track property staleness. Any relevant update counts,
// so collections are not filtered through the classifier.
var propertyRecencyRules = []accessorRule{
	{kind: ruleDirect, key: "updatedAt"},
	{kind: ruleDirect, key: "updated_at"},
	{kind: ruleDirect, key: "lastUpdateAt"},
	{kind: ruleDirect, key: "last_update_at"},
	{kind: ruleDirect, key: "modifiedAt"},
	{kind: ruleDirect, key: "modified_at"},
	{kind: ruleDirect, key: "lastModified"},
	{kind: ruleDirect, key: "publishedAt"},
	{kind: ruleDirect, key: "published_at"},
	{kind: ruleDirect, key: "atualizadoEm"},
	{kind: ruleDirect, key: "atualizado_em"},
	{kind: ruleDirect, key: "dataAtualizacao"},
	{kind: ruleDirect, key: "data_atualizacao"},
	{kind: ruleDirect, key: "ultimaAtualizacao"},
	{kind: ruleDirect, key: "ultima_atualizacao"},
	{kind: ruleDirect, key: "revisadoEm"},
	{kind: rulePair, key: "dataRevisao", timeKey: "horaRevisao"},
	{kind: ruleNested, key: "lastUpdate"},
	{kind: ruleNested, key: "ultimaRevisao"},
	{kind: ruleCollection, key: "updates"},
	{kind: ruleCollection, key: "atualizacoes"},
	{kind: ruleCollection, key: "history"},
	{kind: ruleCollection, key: "historico"},
	{kind: ruleCollection, key: "changes"},
	{kind: ruleCollection, key: "timeline"},
	{kind: ruleCollection, key: "events"},
	{kind: ruleCollection, key: "revisions"},
}

// itemDateKeys are where an activity item carries its own timestamp.
var itemDateKeys = []string{
	"date", "at", "timestamp", "when", "time",
	"createdAt", "created_at", "occurredAt", "occurred_at",
	"data", "dataHora", "data_hora",
}

// itemTimePairKey complements a bare "data" date with a separate clock time.
const itemTimePairKey = "hora"

// Recency finds the latest qualifying timestamp in heterogeneous records.
type Recency struct {
	classifier *Classifier
}

// NewRecency creates a recency aggregator backed by the given classifier.
func NewRecency(classifier *Classifier) *Recency {
	return &Recency{classifier: classifier}
}

// LatestHumanInteraction returns the most recent human-attributed activity
// timestamp on a lead. The second return is false when no qualifying date
// was found.
func (a *Recency) LatestHumanInteraction(lead Record) (time.Time, bool) {
	return a.scan(lead, leadRecencyRules)
}

// LatestRelevantUpdate returns the most recent update timestamp on a
// property, with no human filtering.
func (a *Recency) LatestRelevantUpdate(property Record) (time.Time, bool) {
	return a.scan(property, propertyRecencyRules)
}

func (a *Recency) scan(rec Record, rules []accessorRule) (time.Time, bool) {
	var latest time.Time
	found := false

	consider := func(ts time.Time, ok bool) {
		if ok && (!found || ts.After(latest)) {
			latest = ts
			found = true
		}
	}

	for _, rule := range rules {
		switch rule.kind {
		case ruleDirect:
			consider(ParseTimestamp(rec[rule.key]))

		case rulePair:
			datePart, dateOK := rec[rule.key].(string)
			timePart, timeOK := rec[rule.timeKey].(string)
			if dateOK && timeOK {
				consider(ParseTimestamp(datePart + " " + timePart))
			} else if dateOK {
				consider(ParseTimestamp(datePart))
			}

		case ruleNested:
			nested := AsRecord(rec[rule.key])
			if nested == nil {
				continue
			}
			if rule.humanOnly && !a.classifier.IsHuman(nested) {
				continue
			}
			consider(itemDate(nested))

		case ruleCollection:
			list, ok := rec.ListField(rule.key)
			if !ok {
				continue
			}
			for _, item := range list {
				if rule.humanOnly && !a.classifier.IsHuman(item) {
					continue
				}
				entry := AsRecord(item)
				if entry == nil {
					continue
				}
				consider(itemDate(entry))
			}
		}
	}

	return latest, found
}

// itemDate extracts a timestamp from an activity item, merging split
// date+time pairs when present.
func itemDate(item Record) (time.Time, bool) {
	if datePart, ok := item["data"].(string); ok {
		if timePart, ok := item[itemTimePairKey].(string); ok {
			if ts, ok := ParseTimestamp(datePart + " " + timePart); ok {
				return ts, true
			}
		}
	}
	for _, key := range itemDateKeys {
		if ts, ok := ParseTimestamp(item[key]); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// timestampLayouts ordered from most to least specific.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseTimestamp leniently parses a timestamp value: time.Time passthrough,
// the known string layouts, and numeric epochs in seconds or milliseconds.
// Anything unparseable resolves to absent, never an error.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts, true
			}
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return epochTime(n)
		}
		return time.Time{}, false
	case float64:
		return epochTime(int64(t))
	case int64:
		return epochTime(t)
	case int:
		return epochTime(int64(t))
	default:
		return time.Time{}, false
	}
}

// epochTime interprets a numeric timestamp, treating values past the year
// 2603 in seconds as milliseconds.
func epochTime(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	if n > 2e10 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}
