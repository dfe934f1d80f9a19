package soe

// Row is one procedure row of a normalized Schedule of Events table.
// The field set is fixed and closed: every row carries exactly these 12
// keys, blank when the source table has no value for a cell. Rows are
// produced by the schema conversion stage and never mutated afterwards.
type Row struct {
	RowLabel         string `json:"row_label"`
	ProtocolSection  string `json:"protocol_section"`
	Screening        string `json:"screening"`
	Cycle1Day1       string `json:"cycle_1_day_1"`
	Cycle2Day1       string `json:"cycle_2_day_1"`
	Cycle1Day8       string `json:"cycle_1_day_8"`
	Cycle2Day8       string `json:"cycle_2_day_8"`
	Cycle1Day15      string `json:"cycle_1_day_15"`
	Cycle2Day15      string `json:"cycle_2_day_15"`
	C3AndBeyond      string `json:"c3_and_beyond"`
	EOT              string `json:"eot"`
	LongTermFollowup string `json:"long_term_followup"`
}

// Canonical key order. Cycle variants of the same source column sit next
// to each other (day-aligned) because they carry the same cell value.
var FieldOrder = []string{
	KeyRowLabel,
	KeyProtocolSection,
	KeyScreening,
	KeyCycle1Day1,
	KeyCycle2Day1,
	KeyCycle1Day8,
	KeyCycle2Day8,
	KeyCycle1Day15,
	KeyCycle2Day15,
	KeyC3AndBeyond,
	KeyEOT,
	KeyLongTermFollowup,
}

const (
	KeyRowLabel         = "row_label"
	KeyProtocolSection  = "protocol_section"
	KeyScreening        = "screening"
	KeyCycle1Day1       = "cycle_1_day_1"
	KeyCycle2Day1       = "cycle_2_day_1"
	KeyCycle1Day8       = "cycle_1_day_8"
	KeyCycle2Day8       = "cycle_2_day_8"
	KeyCycle1Day15      = "cycle_1_day_15"
	KeyCycle2Day15      = "cycle_2_day_15"
	KeyC3AndBeyond      = "c3_and_beyond"
	KeyEOT              = "eot"
	KeyLongTermFollowup = "long_term_followup"
)

// Field returns the cell value for a canonical key. Unknown keys return "".
func (r Row) Field(key string) string {
	switch key {
	case KeyRowLabel:
		return r.RowLabel
	case KeyProtocolSection:
		return r.ProtocolSection
	case KeyScreening:
		return r.Screening
	case KeyCycle1Day1:
		return r.Cycle1Day1
	case KeyCycle2Day1:
		return r.Cycle2Day1
	case KeyCycle1Day8:
		return r.Cycle1Day8
	case KeyCycle2Day8:
		return r.Cycle2Day8
	case KeyCycle1Day15:
		return r.Cycle1Day15
	case KeyCycle2Day15:
		return r.Cycle2Day15
	case KeyC3AndBeyond:
		return r.C3AndBeyond
	case KeyEOT:
		return r.EOT
	case KeyLongTermFollowup:
		return r.LongTermFollowup
	}
	return ""
}

// RowFromMap builds a Row from a loosely-typed key/value map. Missing keys
// default to blank, keys outside the fixed schema are dropped.
func RowFromMap(m map[string]string) Row {
	return Row{
		RowLabel:         m[KeyRowLabel],
		ProtocolSection:  m[KeyProtocolSection],
		Screening:        m[KeyScreening],
		Cycle1Day1:       m[KeyCycle1Day1],
		Cycle2Day1:       m[KeyCycle2Day1],
		Cycle1Day8:       m[KeyCycle1Day8],
		Cycle2Day8:       m[KeyCycle2Day8],
		Cycle1Day15:      m[KeyCycle1Day15],
		Cycle2Day15:      m[KeyCycle2Day15],
		C3AndBeyond:      m[KeyC3AndBeyond],
		EOT:              m[KeyEOT],
		LongTermFollowup: m[KeyLongTermFollowup],
	}
}
