package parser

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestZip builds a ZIP archive from the given name -> content map.
func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func writeTestDOCX(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.docx")
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`
	writeTestZip(t, path, map[string]string{"word/document.xml": doc})
	return path
}

func TestWordExtractorSplitsOnPageBreaks(t *testing.T) {
	path := writeTestDOCX(t, `
<w:p><w:r><w:t>First page text</w:t></w:r></w:p>
<w:p><w:r><w:br w:type="page"/><w:t>break para</w:t></w:r></w:p>
<w:p><w:r><w:t>Second page text</w:t></w:r></w:p>`)

	e := &WordExtractor{}
	pages, err := e.ExtractPages(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if !strings.Contains(pages[0].Text, "First page text") {
		t.Errorf("page 1 text = %q", pages[0].Text)
	}
	// The paragraph carrying the break stays on the page it closes.
	if !strings.Contains(pages[0].Text, "break para") {
		t.Errorf("break paragraph landed on wrong page: %q / %q", pages[0].Text, pages[1].Text)
	}
	if !strings.Contains(pages[1].Text, "Second page text") {
		t.Errorf("page 2 text = %q", pages[1].Text)
	}
	if pages[0].PageNumber != 1 || pages[1].PageNumber != 2 {
		t.Errorf("page numbers = %d, %d", pages[0].PageNumber, pages[1].PageNumber)
	}
}

func TestWordExtractorNoBreaksSinglePage(t *testing.T) {
	path := writeTestDOCX(t, `
<w:p><w:r><w:t>one</w:t></w:r></w:p>
<w:p><w:r><w:t>two</w:t></w:r></w:p>
<w:p><w:r><w:t>three</w:t></w:r></w:p>
<w:p><w:r><w:t>four</w:t></w:r></w:p>
<w:p><w:r><w:t>five</w:t></w:r></w:p>`)

	e := &WordExtractor{}
	pages, err := e.ExtractPages(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	want := "one\ntwo\nthree\nfour\nfive"
	if pages[0].Text != want {
		t.Errorf("text = %q, want %q", pages[0].Text, want)
	}
}

func TestWordExtractorLineBreakIsNotPageBreak(t *testing.T) {
	path := writeTestDOCX(t, `
<w:p><w:r><w:br/><w:t>alpha</w:t></w:r></w:p>
<w:p><w:r><w:br w:type="textWrapping"/><w:t>beta</w:t></w:r></w:p>`)

	e := &WordExtractor{}
	pages, err := e.ExtractPages(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
}

func TestWordExtractorSectionBreak(t *testing.T) {
	path := writeTestDOCX(t, `
<w:p><w:r><w:t>section one</w:t></w:r></w:p>
<w:p><w:pPr><w:sectPr/></w:pPr></w:p>
<w:p><w:r><w:t>section two</w:t></w:r></w:p>`)

	e := &WordExtractor{}
	pages, err := e.ExtractPages(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
}

func TestWordExtractorTablesOnFinalPage(t *testing.T) {
	path := writeTestDOCX(t, `
<w:p><w:r><w:t>page one</w:t></w:r></w:p>
<w:p><w:r><w:br w:type="page"/></w:r></w:p>
<w:p><w:r><w:t>page two</w:t></w:r></w:p>
<w:tbl>
  <w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc></w:tr>
  <w:tr><w:tc><w:p><w:r><w:t>x</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>`)

	e := &WordExtractor{}
	pages, err := e.ExtractPages(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if len(pages[0].Tables) != 0 {
		t.Errorf("tables on first page: %v", pages[0].Tables)
	}
	tables := pages[len(pages)-1].Tables
	if len(tables) != 1 {
		t.Fatalf("got %d tables on final page, want 1", len(tables))
	}
	if got := tables[0].Header; len(got) != 2 || got[0] != "Name" || got[1] != "Value" {
		t.Errorf("header = %v", got)
	}
	if got := tables[0].Rows; len(got) != 1 || got[0][0] != "x" || got[0][1] != "1" {
		t.Errorf("rows = %v", got)
	}
}

func TestWordExtractorMissingFile(t *testing.T) {
	e := &WordExtractor{}
	_, err := e.ExtractPages(context.Background(), filepath.Join(t.TempDir(), "nope.docx"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("err = %v, want ErrFileNotFound", err)
	}
}

func TestWordExtractorNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	e := &WordExtractor{}
	if _, err := (e).ExtractPages(context.Background(), path); err == nil {
		t.Error("expected error for corrupt archive")
	}
}
