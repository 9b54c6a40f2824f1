package domain

import (
	"math"
	"strings"
	"time"
)

// Metric windows, in days.
var MetricWindows = []int{7, 15, 30}

// BenchmarkWindowDays is the fixed trailing window of the house benchmark.
const BenchmarkWindowDays = 7

// sourceKeys carry the distribution channel a lead came through.
var sourceKeys = []string{"source", "origem", "origin"}

// roletaoSources mark a lead as claimed through the automated distribution.
var roletaoSources = map[string]bool{"roletao": true, "roletão": true}

var createdAtKeys = []string{"createdAt", "created_at", "criadoEm", "criado_em", "dataCriacao", "data_criacao"}
var firstInteractionKeys = []string{"firstInteractionAt", "first_interaction_at", "primeiraInteracao", "primeira_interacao"}
var lastContactKeys = []string{"lastContactAt", "last_contact_at", "ultimoContato", "ultimo_contato"}

// WindowMetrics are the roletão KPIs of one trailing window.
type WindowMetrics struct {
	WindowDays          int
	Claimed             int
	Converted           int
	ActiveFollowUps     int
	AwaitingToday       int
	AvgAdvanceTimeMin   int
	ConvRate            float64
	ActiveParticipation float64
	ClaimsPerDay        float64
}

// IsRoletaoLead reports whether the lead was claimed through the roletão.
func IsRoletaoLead(lead Record) bool {
	s, ok := lead.StringField(sourceKeys...)
	return ok && roletaoSources[strings.ToLower(strings.TrimSpace(s))]
}

// ComputeWindow calculates the user's roletão KPIs over the trailing window
// of the given number of days. Each window is computed independently from
// scratch. Every rate is a defined 0 on an empty window.
func ComputeWindow(leads []Record, userID string, days int, now time.Time) WindowMetrics {
	m := WindowMetrics{WindowDays: days}
	windowStart := now.AddDate(0, 0, -days)

	var advanceSamples []float64

	for _, lead := range leads {
		if !OwnedBy(lead, userID) || !IsRoletaoLead(lead) {
			continue
		}
		createdAt, ok := fieldTime(lead, createdAtKeys)
		if !ok || createdAt.Before(windowStart) || createdAt.After(now) {
			continue
		}

		m.Claimed++
		if IsTerminal(lead) {
			m.Converted++
		}

		if firstAt, ok := fieldTime(lead, firstInteractionKeys); ok {
			advanceSamples = append(advanceSamples, math.Abs(firstAt.Sub(createdAt).Minutes()))
		}

		if lastContact, ok := fieldTime(lead, lastContactKeys); ok && DaysSince(now, lastContact) <= 1 {
			m.ActiveFollowUps++
		}
	}

	m.AwaitingToday = m.Claimed - m.ActiveFollowUps

	if len(advanceSamples) > 0 {
		var sum float64
		for _, v := range advanceSamples {
			sum += v
		}
		m.AvgAdvanceTimeMin = int(math.Round(sum / float64(len(advanceSamples))))
	}

	if m.Claimed > 0 {
		m.ConvRate = round2(float64(m.Converted) / float64(m.Claimed))
		m.ActiveParticipation = round2(float64(m.ActiveFollowUps) / float64(m.Claimed))
	}
	m.ClaimsPerDay = round2(float64(m.Claimed) / float64(days))

	return m
}

// Benchmark is the house-wide roletão conversion baseline.
type Benchmark struct {
	TotalLeads      int     `json:"totalLeads"`
	Converted       int     `json:"converted"`
	AverageConvRate float64 `json:"averageConvRate"`
}

// ComputeBenchmark calculates the house-wide average conversion rate over
// the fixed trailing 7-day window, across all users' roletão leads.
func ComputeBenchmark(leads []Record, now time.Time) Benchmark {
	var b Benchmark
	windowStart := now.AddDate(0, 0, -BenchmarkWindowDays)

	for _, lead := range leads {
		if !IsRoletaoLead(lead) {
			continue
		}
		createdAt, ok := fieldTime(lead, createdAtKeys)
		if !ok || createdAt.Before(windowStart) || createdAt.After(now) {
			continue
		}
		b.TotalLeads++
		if IsTerminal(lead) {
			b.Converted++
		}
	}

	if b.TotalLeads > 0 {
		b.AverageConvRate = round2(float64(b.Converted) / float64(b.TotalLeads))
	}
	return b
}

func fieldTime(rec Record, keys []string) (time.Time, bool) {
	for _, key := range keys {
		if ts, ok := ParseTimestamp(rec[key]); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
