// Package extract turns uploaded campaign files into prompt-ready text.
//
// CSV and XLSX uploads become a JSON-serialized list of row objects keyed by
// the header row; PDFs become plain text. Extraction failure is fatal for the
// request that carried the file.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advisor-api/internal/model"
)

// Extractor converts raw upload bytes into prompt text by declared kind.
type Extractor struct {
	pdf PDFTextExtractor
}

// PDFTextExtractor extracts plain text from PDF bytes.
type PDFTextExtractor interface {
	ExtractText(ctx context.Context, pdfBytes []byte) (string, error)
}

// New creates an Extractor using the given PDF backend.
func New(pdf PDFTextExtractor) *Extractor {
	return &Extractor{pdf: pdf}
}

// Content extracts the prompt text for the given file. An empty kind or
// FileKindNone returns empty content; an unsupported kind is an input error.
func (e *Extractor) Content(ctx context.Context, kind model.FileKind, data []byte) (string, error) {
	switch kind {
	case model.FileKindNone, "":
		return "", nil
	case model.FileKindCSV:
		return RowsToJSON(ParseCSV(data))
	case model.FileKindXLSX:
		return RowsToJSON(ParseXLSX(data))
	case model.FileKindPDF:
		if e.pdf == nil {
			return "", eris.New("extract: no pdf extractor configured")
		}
		text, err := e.pdf.ExtractText(ctx, data)
		if err != nil {
			return "", eris.Wrap(err, "extract: pdf")
		}
		return text, nil
	default:
		return "", eris.Errorf("extract: unsupported file kind %q", kind)
	}
}

// KindFromFilename resolves the file kind from the uploaded name's extension.
// An empty name means no file was attached.
func KindFromFilename(name string) (model.FileKind, error) {
	if name == "" {
		return model.FileKindNone, nil
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return model.FileKindCSV, nil
	case ".xlsx":
		return model.FileKindXLSX, nil
	case ".pdf":
		return model.FileKindPDF, nil
	default:
		return "", eris.Errorf("extract: unsupported file type %q", filepath.Ext(name))
	}
}
