package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPDF(t *testing.T) {
	info := New().Detect([]byte("%PDF-1.7\n1 0 obj\n<< >>\nendobj\n"))
	assert.True(t, info.IsPDF)
	assert.Equal(t, "application/pdf", info.MIMEType)
	assert.Equal(t, ".pdf", info.Extension)
}

func TestDetectRejectsNonPDF(t *testing.T) {
	for name, data := range map[string][]byte{
		"plain text": []byte("just some words"),
		"png":        {0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a},
		"zip":        {'P', 'K', 0x03, 0x04},
	} {
		info := New().Detect(data)
		assert.False(t, info.IsPDF, name)
		assert.Contains(t, info.Description, "unsupported", name)
	}
}
