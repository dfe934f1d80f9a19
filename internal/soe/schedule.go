package soe

import "time"

// Schedule carries the derived calendar date of every visit milestone,
// rendered as YYYY-MM-DD. ProtocolSection is always blank; it exists so a
// Schedule lines up column-for-column with a Row when rendered together.
type Schedule struct {
	ProtocolSection string `json:"protocol_section"`
	Screening       string `json:"screening"`
	Cycle1Day1      string `json:"cycle_1_day_1"`
	Cycle1Day8      string `json:"cycle_1_day_8"`
	Cycle1Day15     string `json:"cycle_1_day_15"`
	Cycle2Day1      string `json:"cycle_2_day_1"`
	Cycle2Day8      string `json:"cycle_2_day_8"`
	Cycle2Day15     string `json:"cycle_2_day_15"`
	C3AndBeyond     string `json:"c3_and_beyond"`
	EOT             string `json:"eot"`
}

const dateLayout = "2006-01-02"

// ComputeSchedule derives all milestone dates from a single anchor instant.
// Each milestone is a positive day offset from an earlier one, so the dates
// are non-decreasing in milestone order:
//
//	screening  = anchor + 1d
//	C1D1       = screening + 7d
//	C1D8       = C1D1 + 7d
//	C1D15      = C1D1 + 14d
//	C2D1       = C1D15 + 30d
//	C2D8       = C2D1 + 7d
//	C2D15      = C2D1 + 14d
//	C3+        = C2D15 + 30d
//	EOT        = C3+ + 30d
//
// Dates are calendar-truncated in UTC.
func ComputeSchedule(anchor time.Time) Schedule {
	base := anchor.UTC()

	screening := base.AddDate(0, 0, 1)
	c1d1 := screening.AddDate(0, 0, 7)
	c1d8 := c1d1.AddDate(0, 0, 7)
	c1d15 := c1d1.AddDate(0, 0, 14)
	c2d1 := c1d15.AddDate(0, 0, 30)
	c2d8 := c2d1.AddDate(0, 0, 7)
	c2d15 := c2d1.AddDate(0, 0, 14)
	c3 := c2d15.AddDate(0, 0, 30)
	eot := c3.AddDate(0, 0, 30)

	return Schedule{
		Screening:   screening.Format(dateLayout),
		Cycle1Day1:  c1d1.Format(dateLayout),
		Cycle1Day8:  c1d8.Format(dateLayout),
		Cycle1Day15: c1d15.Format(dateLayout),
		Cycle2Day1:  c2d1.Format(dateLayout),
		Cycle2Day8:  c2d8.Format(dateLayout),
		Cycle2Day15: c2d15.Format(dateLayout),
		C3AndBeyond: c3.Format(dateLayout),
		EOT:         eot.Format(dateLayout),
	}
}

// Date returns the milestone date for a canonical row key. The two cycle
// variants of protocol_section-adjacent keys resolve to their own dates;
// keys without a milestone (row_label, long_term_followup) return "".
func (s Schedule) Date(key string) string {
	switch key {
	case KeyProtocolSection:
		return s.ProtocolSection
	case KeyScreening:
		return s.Screening
	case KeyCycle1Day1:
		return s.Cycle1Day1
	case KeyCycle1Day8:
		return s.Cycle1Day8
	case KeyCycle1Day15:
		return s.Cycle1Day15
	case KeyCycle2Day1:
		return s.Cycle2Day1
	case KeyCycle2Day8:
		return s.Cycle2Day8
	case KeyCycle2Day15:
		return s.Cycle2Day15
	case KeyC3AndBeyond:
		return s.C3AndBeyond
	case KeyEOT:
		return s.EOT
	}
	return ""
}
