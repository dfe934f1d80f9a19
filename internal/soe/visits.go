package soe

import (
	"sort"
	"strings"
)

// Visit is one clinical visit: a dated milestone plus the procedures whose
// table cell is marked for that time point.
type Visit struct {
	Date   string   `json:"date"`
	Label  string   `json:"label"`
	Events []string `json:"events"`
}

// Milestone columns in declared order. A visit exists only when at least
// one row has a non-blank cell in the column; the schedule alone never
// produces a visit.
var milestones = []struct {
	Key   string
	Label string
}{
	{KeyScreening, "Screening"},
	{KeyCycle1Day1, "Cycle 1 Day 1"},
	{KeyCycle1Day8, "Cycle 1 Day 8"},
	{KeyCycle1Day15, "Cycle 1 Day 15"},
	{KeyCycle2Day1, "Cycle 2 Day 1"},
	{KeyCycle2Day8, "Cycle 2 Day 8"},
	{KeyCycle2Day15, "Cycle 2 Day 15"},
	{KeyC3AndBeyond, "Cycle 3 and Beyond"},
	{KeyEOT, "End of Treatment"},
}

// AggregateVisits cross-references rows against the schedule and emits one
// Visit per milestone column that has any marked cell, sorted ascending by
// date. A lexical sort is correct because dates are fixed-width YYYY-MM-DD.
func AggregateVisits(rows []Row, sched Schedule) []Visit {
	visits := make([]Visit, 0, len(milestones))
	for _, m := range milestones {
		var events []string
		for _, r := range rows {
			if strings.TrimSpace(r.Field(m.Key)) != "" {
				events = append(events, r.RowLabel)
			}
		}
		if len(events) == 0 {
			continue
		}
		visits = append(visits, Visit{
			Date:   sched.Date(m.Key),
			Label:  m.Label,
			Events: events,
		})
	}
	sort.SliceStable(visits, func(i, j int) bool { return visits[i].Date < visits[j].Date })
	return visits
}
