package gridscan

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// PageProbe captures the scan result for a single page.
type PageProbe struct {
	PageIndex int    `json:"page_index"`
	CharCount int    `json:"char_count"`
	Score     int    `json:"score"`
	Candidate bool   `json:"candidate"`
	Err       string `json:"err,omitempty"`
}

// Report documents a full candidate-page scan.
type Report struct {
	TotalPages int         `json:"total_pages"`
	Threshold  int         `json:"threshold"`
	Candidates []int       `json:"candidates"`
	Probes     []PageProbe `json:"probes"`
	DurationMs int64       `json:"duration_ms"`
}

// Doc abstracts an opened PDF for page-text probing.
type Doc interface {
	NumPage() int
	Text(pageIndex int) (string, error)
	Close() error
}

// Opener abstracts opening in-memory PDF bytes into a Doc.
type Opener interface {
	Open(data []byte) (Doc, error)
}

// DefaultThreshold is the minimum grid score for a page to count as an SOE
// candidate.
const DefaultThreshold = 6

// Scanner finds pages whose extracted text looks like a Schedule of Events
// grid. It is a local, model-free heuristic: cheap to run, and usable as a
// fallback source of page indices when model detection is unavailable.
type Scanner struct {
	opener    Opener
	threshold int
}

// New returns a Scanner backed by the embedded PDF engine.
func New() *Scanner { return &Scanner{opener: fitzOpener{}, threshold: DefaultThreshold} }

// NewWithOpener is the seam for tests and alternate backends.
func NewWithOpener(o Opener, threshold int) *Scanner {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scanner{opener: o, threshold: threshold}
}

// CandidatePages scans every page and returns the 0-based indices whose
// text scores at or above the threshold, in page order.
func (s *Scanner) CandidatePages(data []byte) ([]int, *Report, error) {
	if s.opener == nil {
		return nil, nil, errors.New("no PDF opener configured")
	}
	start := time.Now()
	doc, err := s.opener.Open(data)
	if err != nil {
		return nil, nil, err
	}
	defer doc.Close()

	total := doc.NumPage()
	report := &Report{TotalPages: total, Threshold: s.threshold, Candidates: []int{}}

	for i := 0; i < total; i++ {
		probe := PageProbe{PageIndex: i}
		text, terr := doc.Text(i)
		if terr != nil {
			probe.Err = terr.Error()
			report.Probes = append(report.Probes, probe)
			continue
		}
		probe.CharCount = len(strings.TrimSpace(text))
		probe.Score = scorePageText(text)
		probe.Candidate = probe.Score >= s.threshold
		report.Probes = append(report.Probes, probe)
		if probe.Candidate {
			report.Candidates = append(report.Candidates, i)
		}
	}
	report.DurationMs = time.Since(start).Milliseconds()

	log.Debug().Int("pages", total).Ints("candidates", report.Candidates).Msg("grid scan completed")
	return report.Candidates, report, nil
}

var (
	headerKeywordRe = regexp.MustCompile(`(?i)\b(screening|cycle|day|visit|baseline|follow[- ]?up|eot|end of treatment)\b`)
	sectionNumberRe = regexp.MustCompile(`\b\d+(\.\d+)+\b`)
	markCellRe      = regexp.MustCompile(`(?m)(^|\s)[xX✓](\s|$)`)
)

// scorePageText rates how grid-like a page's extracted text is. Timepoint
// header keywords, protocol section numbers, mark cells and columnar lines
// each contribute; prose pages score near zero.
func scorePageText(text string) int {
	score := 0

	keywords := headerKeywordRe.FindAllString(text, -1)
	if len(keywords) >= 3 {
		score += 3
	} else {
		score += len(keywords)
	}

	if n := len(sectionNumberRe.FindAllString(text, -1)); n >= 3 {
		score += 3
	} else if n > 0 {
		score += n
	}

	marks := len(markCellRe.FindAllString(text, -1))
	switch {
	case marks >= 10:
		score += 4
	case marks >= 3:
		score += 2
	case marks > 0:
		score++
	}

	columnar := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Count(line, "\t") >= 2 || strings.Contains(line, "   ") {
			columnar++
		}
	}
	if columnar >= 5 {
		score += 2
	} else if columnar > 0 {
		score++
	}

	return score
}
