package gridscan

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	pages []string
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }
func (d *fakeDoc) Text(i int) (string, error) {
	if i < 0 || i >= len(d.pages) {
		return "", errors.New("out of range")
	}
	return d.pages[i], nil
}
func (d *fakeDoc) Close() error { return nil }

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o fakeOpener) Open(data []byte) (Doc, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

const gridPage = `Schedule of Events
Procedure	Section	Screening	Cycle Day 1	Cycle Day 8	Cycle Day 15	C3+	EOT	Follow-up
Informed consent	6.1.1	X
Vital signs	6.2.3	X	X	X	X	X	X
CBC with differential	6.3.1	X	X	X	X	X	X
ECG	6.4.2	X	X
Tumor assessment	7.1.2	X			X`

const prosePage = `This protocol describes a phase 2 study. The schedule of
events is discussed later in this document. Patients will be enrolled after
informed consent is obtained.`

func TestCandidatePagesFindsGridPage(t *testing.T) {
	s := NewWithOpener(fakeOpener{doc: &fakeDoc{pages: []string{prosePage, gridPage, prosePage}}}, 0)
	candidates, report, err := s.CandidatePages([]byte("ignored"))
	require.NoError(t, err)

	assert.Equal(t, []int{1}, candidates)
	require.Len(t, report.Probes, 3)
	assert.Greater(t, report.Probes[1].Score, report.Probes[0].Score)
	assert.True(t, report.Probes[1].Candidate)
	assert.False(t, report.Probes[0].Candidate)
}

func TestCandidatePagesOpenFailure(t *testing.T) {
	s := NewWithOpener(fakeOpener{err: errors.New("corrupt file")}, 0)
	_, _, err := s.CandidatePages([]byte("x"))
	assert.Error(t, err)
}

func TestScorePageText(t *testing.T) {
	assert.GreaterOrEqual(t, scorePageText(gridPage), DefaultThreshold)
	assert.Less(t, scorePageText(prosePage), DefaultThreshold)
	assert.Zero(t, scorePageText(""))
	// mention in prose alone must not qualify
	mention := strings.Repeat("The Schedule of Events table appears in appendix B. ", 3)
	assert.Less(t, scorePageText(mention), DefaultThreshold)
}
