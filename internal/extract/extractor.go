// Package extract provides text extraction from various document formats.
package extract

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hyperjump/kotae/internal/models"
)

// Media types with a dedicated extractor.
const (
	MediaTypePlain = "text/plain"
	MediaTypePDF   = "application/pdf"
	MediaTypeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaTypePPTX  = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MediaTypeODT   = "application/vnd.oasis.opendocument.text"
	MediaTypeODP   = "application/vnd.oasis.opendocument.presentation"
	MediaTypeODS   = "application/vnd.oasis.opendocument.spreadsheet"
	MediaTypeRTF   = "application/rtf"
)

type extractFunc func(content []byte) (string, error)

var byMediaType = map[string]extractFunc{
	MediaTypePlain: extractPlain,
	MediaTypePDF:   extractPDF,
	MediaTypeDOCX:  extractDOCX,
	MediaTypeXLSX:  extractExcel,
	MediaTypePPTX:  extractPPTX,
	MediaTypeODT:   extractCat,
	MediaTypeODP:   extractODP,
	MediaTypeODS:   extractODS,
	MediaTypeRTF:   extractCat,
	"text/rtf":     extractCat,
}

var byExtension = map[string]string{
	".txt":  MediaTypePlain,
	".md":   MediaTypePlain,
	".rst":  MediaTypePlain,
	".csv":  MediaTypePlain,
	".json": MediaTypePlain,
	".pdf":  MediaTypePDF,
	".docx": MediaTypeDOCX,
	".xlsx": MediaTypeXLSX,
	".pptx": MediaTypePPTX,
	".odt":  MediaTypeODT,
	".odp":  MediaTypeODP,
	".ods":  MediaTypeODS,
	".rtf":  MediaTypeRTF,
}

// Extractor extracts plain text from document payloads.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text of content. The format is taken from mediaType,
// then from the extension of name, then sniffed from the bytes. Text that
// matches no document format is returned as-is. Unsupported binary formats
// and corrupt documents fail with an extraction error.
func (e *Extractor) Extract(content []byte, mediaType, name string) (string, error) {
	resolved := DetectMediaType(content, mediaType, name)
	fn, ok := byMediaType[resolved]
	if !ok {
		return "", models.NewError(models.KindExtraction, "extract",
			fmt.Errorf("unsupported media type %q", resolved))
	}
	text, err := fn(content)
	if err != nil {
		return "", models.NewError(models.KindExtraction, "extract", fmt.Errorf("%s: %w", resolved, err))
	}
	return text, nil
}

// ExtractFile reads the file at path and extracts its text.
func (e *Extractor) ExtractFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.Extract(content, "", filepath.Base(path))
}

// DetectMediaType resolves the media type used to pick an extractor.
// Any text/* type without a dedicated extractor resolves to text/plain.
func DetectMediaType(content []byte, declared, name string) string {
	if mt := normalize(declared); mt != "" && mt != "application/octet-stream" {
		if _, ok := byMediaType[mt]; ok {
			return mt
		}
		if strings.HasPrefix(mt, "text/") {
			return MediaTypePlain
		}
	}
	if mt, ok := byExtension[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}

	detected := mimetype.Detect(content)
	for m := detected; m != nil; m = m.Parent() {
		if _, ok := byMediaType[normalize(m.String())]; ok {
			return normalize(m.String())
		}
		if m.Is(MediaTypePlain) {
			return MediaTypePlain
		}
	}
	return normalize(detected.String())
}

// SupportedExtensions lists file extensions with a known extractor.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	return exts
}

func normalize(mediaType string) string {
	if mediaType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}
