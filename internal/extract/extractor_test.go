package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/xuri/excelize/v2"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func docxBody(text string) string {
	return `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p w:rsidR="00AB"><w:r><w:t xml:space="preserve">` +
		text + `</w:t></w:r></w:p></w:body></w:document>`
}

func TestExtract_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("Hello world\nLine 2"), "text/plain; charset=utf-8", "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("hello\x80world"), "text/markdown", "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_plainBOMAndCRLF(t *testing.T) {
	got, err := NewExtractor().Extract([]byte("\xef\xbb\xbfline 1\r\nline 2"), MediaTypePlain, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "line 1\nline 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_unknownTypeReadAsText(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("raw policy content"), "application/x-unknown", "notes.xyz")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "raw policy content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_unsupportedBinary(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	_, err := NewExtractor().Extract(png, "", "photo.bin")
	if err == nil {
		t.Fatal("expected error for image payload")
	}
	if models.KindOf(err) != models.KindExtraction {
		t.Errorf("kind = %q, want extraction", models.KindOf(err))
	}
}

func TestExtract_corruptPDF(t *testing.T) {
	_, err := NewExtractor().Extract([]byte("%PDF-1.4 this is not really a pdf"), MediaTypePDF, "broken.pdf")
	if err == nil {
		t.Fatal("expected error for corrupt PDF")
	}
	if models.KindOf(err) != models.KindExtraction {
		t.Errorf("kind = %q, want extraction", models.KindOf(err))
	}
}

func TestExtract_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Title")
	_ = f.SetCellValue("Sheet1", "A2", "Value 1")
	_ = f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().Extract(buf.Bytes(), MediaTypeXLSX, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "# Sheet1\nTitle\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_docx(t *testing.T) {
	content := zipOf(t, map[string]string{"word/document.xml": docxBody("Searchable docx content")})
	got, err := NewExtractor().Extract(content, MediaTypeDOCX, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Searchable docx content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_docxMainPartFromContentTypes(t *testing.T) {
	for name, override := range map[string]string{
		"part_name_first": `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`,
		"part_name_last":  `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`,
	} {
		t.Run(name, func(t *testing.T) {
			content := zipOf(t, map[string]string{
				"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types>` + override + `</Types>`,
				"word/document2.xml":  docxBody("Content from document2"),
			})
			got, err := NewExtractor().Extract(content, "", "handbook.docx")
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got != "Content from document2" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtract_pptxSlidesInOrder(t *testing.T) {
	content := zipOf(t, map[string]string{
		"ppt/slides/slide2.xml": `<p:sld><a:t>Second</a:t></p:sld>`,
		"ppt/slides/slide1.xml": `<p:sld><a:t>First</a:t><a:t xml:space="preserve"> slide </a:t></p:sld>`,
		"ppt/other.xml":         `<a:t>ignored</a:t>`,
	})
	got, err := NewExtractor().Extract(content, MediaTypePPTX, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "First slide Second" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_pptxNotZip(t *testing.T) {
	_, err := NewExtractor().Extract([]byte("not a zip"), MediaTypePPTX, "")
	if models.KindOf(err) != models.KindExtraction {
		t.Errorf("expected extraction error, got %v", err)
	}
}

func TestExtract_openDocument(t *testing.T) {
	odp := zipOf(t, map[string]string{
		"content.xml": `<office:document><text:h text:outline-level="1">Heading</text:h><text:p>Body</text:p></office:document>`,
	})
	got, err := NewExtractor().Extract(odp, MediaTypeODP, "")
	if err != nil {
		t.Fatalf("Extract odp: %v", err)
	}
	if got != "Body Heading" {
		t.Errorf("odp got %q", got)
	}

	ods := zipOf(t, map[string]string{
		"content.xml": `<table:table-cell><text:p>A1</text:p></table:table-cell><table:table-cell><text:p>B1</text:p></table:table-cell>`,
	})
	got, err = NewExtractor().Extract(ods, MediaTypeODS, "")
	if err != nil {
		t.Fatalf("Extract ods: %v", err)
	}
	if got != "A1 B1" {
		t.Errorf("ods got %q", got)
	}
}

func TestExtract_openDocumentContentMissing(t *testing.T) {
	content := zipOf(t, map[string]string{"other.xml": ""})
	for _, mt := range []string{MediaTypeODP, MediaTypeODS} {
		if _, err := NewExtractor().Extract(content, mt, ""); err == nil {
			t.Errorf("%s: expected error when content.xml missing", mt)
		}
	}
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}

	if _, err := NewExtractor().ExtractFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestDetectMediaType(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		declared string
		file     string
		want     string
	}{
		{"declared_pdf", []byte("x"), "application/pdf", "", MediaTypePDF},
		{"declared_params_stripped", []byte("x"), "text/plain; charset=utf-8", "", MediaTypePlain},
		{"declared_text_subtype", []byte("x"), "text/csv", "", MediaTypePlain},
		{"octet_stream_uses_extension", []byte("x"), "application/octet-stream", "a.docx", MediaTypeDOCX},
		{"sniffed_pdf", []byte("%PDF-1.7\n"), "", "", MediaTypePDF},
		{"sniffed_text", []byte("just words"), "", "", MediaTypePlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMediaType(tt.content, tt.declared, tt.file); got != tt.want {
				t.Errorf("DetectMediaType = %q, want %q", got, tt.want)
			}
		})
	}
}
