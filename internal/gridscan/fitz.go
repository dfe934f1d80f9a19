package gridscan

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// fitzOpener opens in-memory PDFs with MuPDF via go-fitz.
type fitzOpener struct{}

type fitzDoc struct {
	doc *fitz.Document
}

func (fitzOpener) Open(data []byte) (Doc, error) {
	d, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &fitzDoc{doc: d}, nil
}

func (d *fitzDoc) NumPage() int { return d.doc.NumPage() }

func (d *fitzDoc) Text(pageIndex int) (string, error) {
	if pageIndex < 0 || pageIndex >= d.doc.NumPage() {
		return "", fmt.Errorf("page %d out of range (document has %d pages)", pageIndex, d.doc.NumPage())
	}
	return d.doc.Text(pageIndex)
}

func (d *fitzDoc) Close() error { return d.doc.Close() }
