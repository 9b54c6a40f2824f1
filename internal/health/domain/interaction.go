package domain

import "strings"

// DefaultAutomationKeywords flag an activity as machine-originated when one
// of them appears (as a substring) in the record's actor-type, channel or
// source text. The set is deliberately fuzzy; operators can extend it via
// configuration instead of code changes.
var DefaultAutomationKeywords = []string{
	"automation",
	"automated",
	"automatico",
	"automático",
	"automacao",
	"automação",
	"bot",
	"robô",
	"workflow",
	"webhook",
	"sistema",
	"system",
	"integration",
	"integracao",
	"integração",
}

// humanFlagKeys are explicit boolean markers attributing an activity to a person.
var humanFlagKeys = []string{"isHuman", "is_human", "human", "manual"}

// automatedFlagKeys are explicit boolean markers attributing an activity to automation.
var automatedFlagKeys = []string{"isAutomated", "is_automated", "automated", "automatic", "auto", "isBot", "is_bot", "bot"}

// actorTextKeys carry free-text actor/channel/source attribution, scanned for
// automation keywords.
var actorTextKeys = []string{
	"actorType", "actor_type", "actor",
	"channel", "canal",
	"source", "origem", "origin", "via",
	"createdBy", "created_by", "author", "autor",
	"tipo", "type",
}

// Classifier decides whether an activity record was produced by a person or
// by an automated workflow.
type Classifier struct {
	keywords []string
}

// NewClassifier creates a classifier with the given automation keyword set.
// An empty set falls back to DefaultAutomationKeywords.
func NewClassifier(keywords []string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultAutomationKeywords
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &Classifier{keywords: lowered}
}

// IsHuman classifies an activity item. Precedence:
//
//  1. explicit boolean human/automated flags;
//  2. automation markers: an automated flag, or actor/channel/source text
//     containing an automation keyword;
//  3. default true.
//
// Non-object input also defaults to true. That permissive fallback mirrors
// how imported data has always been treated; a malformed entry therefore
// counts as human activity rather than disappearing from health entirely.
func (c *Classifier) IsHuman(v any) bool {
	rec := AsRecord(v)
	if rec == nil {
		return true
	}

	if flag, ok := rec.BoolField(humanFlagKeys...); ok {
		return flag
	}
	if flag, ok := rec.BoolField(automatedFlagKeys...); ok {
		return !flag
	}

	for _, key := range actorTextKeys {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		lowered := strings.ToLower(s)
		for _, kw := range c.keywords {
			if strings.Contains(lowered, kw) {
				return false
			}
		}
	}

	return true
}
