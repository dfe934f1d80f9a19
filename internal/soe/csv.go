package soe

import "strings"

// Display column order: cycle-1 milestones grouped together, then cycle-2,
// long_term_followup excluded. This differs from FieldOrder, which keeps
// same-day cycle variants adjacent.
var displayOrder = []string{
	KeyRowLabel,
	KeyProtocolSection,
	KeyScreening,
	KeyCycle1Day1,
	KeyCycle1Day8,
	KeyCycle1Day15,
	KeyCycle2Day1,
	KeyCycle2Day8,
	KeyCycle2Day15,
	KeyC3AndBeyond,
	KeyEOT,
}

// displayRowLabelHeader replaces the raw row_label key in the display
// header row.
const displayRowLabelHeader = "Procedure / Assessment"

// escapeField quotes a CSV field unconditionally, doubling embedded quotes.
func escapeField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func renderLine(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = escapeField(c)
	}
	return strings.Join(escaped, ",")
}

// RenderCSV emits a verbatim flattening of the rows: a header of all 12
// canonical keys followed by one line per row.
func RenderCSV(rows []Row) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, renderLine(FieldOrder))
	for _, r := range rows {
		cells := make([]string, len(FieldOrder))
		for i, key := range FieldOrder {
			cells[i] = r.Field(key)
		}
		lines = append(lines, renderLine(cells))
	}
	return strings.Join(lines, "\n")
}

// RenderDisplayCSV emits the display flattening: the reduced, regrouped
// column set with a synthetic "dates" row from the schedule ahead of the
// data rows. The dates row reuses the schedule's blank protocol_section
// cell so every line stays column-aligned.
func RenderDisplayCSV(rows []Row, sched Schedule) string {
	header := make([]string, len(displayOrder))
	for i, key := range displayOrder {
		if key == KeyRowLabel {
			header[i] = displayRowLabelHeader
			continue
		}
		header[i] = key
	}

	dates := make([]string, len(displayOrder))
	for i, key := range displayOrder {
		if key == KeyRowLabel {
			dates[i] = "dates"
			continue
		}
		dates[i] = sched.Date(key)
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, renderLine(header), renderLine(dates))
	for _, r := range rows {
		cells := make([]string, len(displayOrder))
		for i, key := range displayOrder {
			cells[i] = r.Field(key)
		}
		lines = append(lines, renderLine(cells))
	}
	return strings.Join(lines, "\n")
}
