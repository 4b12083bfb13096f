package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// WordExtractor splits a .docx body into pages on explicit page breaks
// (run-level <w:br w:type="page"/> or a paragraph-level section break).
// Word documents carry no rendered page geometry, so a document without
// explicit breaks collapses into a single page. Tables and embedded
// images are not positioned in the paragraph flow: tables attach to the
// final page, the first embedded image attaches to the first page.
type WordExtractor struct {
	ExtractImages bool
}

func (e *WordExtractor) ExtractPages(ctx context.Context, path string) ([]Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	fileIndex := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileIndex[f.Name] = f
	}

	docFile := fileIndex["word/document.xml"]
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in DOCX")
	}

	data, err := readZipFile(docFile)
	if err != nil {
		return nil, fmt.Errorf("reading document.xml: %w", err)
	}

	var doc wordDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	var pages []Page
	var current strings.Builder
	pageNum := 1

	flush := func() {
		pages = append(pages, Page{
			PageNumber: pageNum,
			Text:       strings.TrimSpace(current.String()),
		})
		current.Reset()
		pageNum++
	}

	for _, para := range doc.Body.Paras {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := wordParaText(para)
		if text != "" {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(text)
		}

		// The break's own paragraph stays on the page it closes.
		if wordParaBreaksPage(para) {
			flush()
		}
	}

	tables := wordTables(doc.Body.Tables)

	var firstImage image.Image
	if e.ExtractImages {
		firstImage = firstWordImage(fileIndex)
	}

	if current.Len() > 0 || len(pages) == 0 || len(tables) > 0 {
		flush()
	}

	if len(tables) > 0 {
		pages[len(pages)-1].Tables = tables
	}
	if firstImage != nil {
		pages[0].Image = firstImage
	}

	return pages, nil
}

// wordParaBreaksPage reports whether the paragraph ends the current page:
// either a run carries an explicit page break or the paragraph properties
// carry a section break.
func wordParaBreaksPage(para wordPara) bool {
	if para.PPr != nil && para.PPr.SectPr != nil {
		return true
	}
	for _, run := range para.Runs {
		for _, br := range run.Breaks {
			if br.Type == "page" {
				return true
			}
		}
	}
	return false
}

func wordParaText(para wordPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

func wordTables(tbls []wordTable) []Table {
	var tables []Table
	for _, tbl := range tbls {
		if len(tbl.Rows) == 0 {
			continue
		}
		var t Table
		for i, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				var cellText strings.Builder
				for _, p := range cell.Paras {
					if cellText.Len() > 0 {
						cellText.WriteString(" ")
					}
					cellText.WriteString(wordParaText(p))
				}
				cells = append(cells, strings.TrimSpace(cellText.String()))
			}
			if i == 0 {
				t.Header = cells
			} else {
				t.Rows = append(t.Rows, cells)
			}
		}
		tables = append(tables, t)
	}
	return tables
}

// firstWordImage resolves the first image relationship of the document
// and decodes it. Images that fail to decode are skipped.
func firstWordImage(fileIndex map[string]*zip.File) image.Image {
	rels := parseRelationships(fileIndex, "word/_rels/document.xml.rels")
	for _, rel := range rels {
		if !strings.Contains(rel.Type, "/image") {
			continue
		}
		img := decodeZipImage(fileIndex, "word/"+rel.Target)
		if img != nil {
			return fitRaster(img, maxRasterWidth, maxRasterHeight)
		}
	}
	return nil
}

// parseRelationships reads an OOXML .rels part and returns its
// relationships in document order.
func parseRelationships(fileIndex map[string]*zip.File, name string) []ooxmlRelationship {
	relsFile := fileIndex[name]
	if relsFile == nil {
		return nil
	}
	data, err := readZipFile(relsFile)
	if err != nil {
		return nil
	}
	var rels ooxmlRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}
	return rels.Rels
}

// decodeZipImage reads and decodes an image stored in the archive.
func decodeZipImage(fileIndex map[string]*zip.File, target string) image.Image {
	mediaPath := strings.ReplaceAll(filepath.Clean(target), "\\", "/")
	zf := fileIndex[mediaPath]
	if zf == nil {
		slog.Debug("image file not found in ZIP", "path", mediaPath)
		return nil
	}
	data, err := readZipFile(zf)
	if err != nil {
		slog.Debug("failed to read image file", "path", mediaPath, "error", err)
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("failed to decode image", "path", mediaPath, "error", err)
		return nil
	}
	return img
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ooxmlRelationships represents a .rels XML part.
type ooxmlRelationships struct {
	XMLName xml.Name            `xml:"Relationships"`
	Rels    []ooxmlRelationship `xml:"Relationship"`
}

type ooxmlRelationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
	Type   string `xml:"Type,attr"`
}

// DOCX XML structures (simplified)
type wordDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    wordBody `xml:"body"`
}

type wordBody struct {
	Paras  []wordPara  `xml:"p"`
	Tables []wordTable `xml:"tbl"`
}

type wordPara struct {
	PPr  *wordParaPr `xml:"pPr"`
	Runs []wordRun   `xml:"r"`
}

type wordParaPr struct {
	SectPr *struct{} `xml:"sectPr"`
}

type wordRun struct {
	Breaks []wordBreak `xml:"br"`
	Text   []wordText  `xml:"t"`
}

type wordBreak struct {
	Type string `xml:"type,attr"`
}

type wordText struct {
	Content string `xml:",chardata"`
}

type wordTable struct {
	Rows []wordRow `xml:"tr"`
}

type wordRow struct {
	Cells []wordCell `xml:"tc"`
}

type wordCell struct {
	Paras []wordPara `xml:"p"`
}
