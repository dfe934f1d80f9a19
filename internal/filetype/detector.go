package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Info describes a detected upload.
type Info struct {
	MIMEType    string
	Extension   string
	IsPDF       bool
	Description string
}

// Detector classifies uploads by magic bytes, never by filename. The
// pipeline consumes scanned protocol PDFs only, so everything else is
// reported as unsupported.
type Detector struct{}

func New() *Detector { return &Detector{} }

// Detect inspects in-memory content.
func (d *Detector) Detect(data []byte) *Info {
	mtype := mimetype.Detect(data)
	info := &Info{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	switch {
	case mtype.Is("application/pdf"):
		info.IsPDF = true
		info.Description = "PDF document"
	default:
		info.Description = fmt.Sprintf("unsupported file type: %s", info.MIMEType)
	}
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Bool("pdf", info.IsPDF).Msg("detected file type")
	return info
}
