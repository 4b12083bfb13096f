package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"os"
	"sort"
	"strings"
)

// PresentationExtractor produces one Page per slide, in slide order.
// Slide text renders as a title line, indented bullet lines, and
// speaker notes. Each slide contributes its own tables and at most one
// image: the slide background if it is a picture fill, otherwise the
// first picture shape.
type PresentationExtractor struct {
	ExtractImages bool
}

func (e *PresentationExtractor) ExtractPages(ctx context.Context, path string) ([]Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening PPTX: %w", err)
	}
	defer r.Close()

	fileIndex := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileIndex[f.Name] = f
	}

	// Collect slide files (ppt/slides/slide1.xml, slide2.xml, ...)
	slideFiles := make(map[int]*zip.File)
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			num := extractSlideNumber(f.Name)
			if num > 0 {
				slideFiles[num] = f
			}
		}
	}

	nums := make([]int, 0, len(slideFiles))
	for n := range slideFiles {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	pages := make([]Page, 0, len(nums))
	for i, num := range nums {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := Page{PageNumber: i + 1}

		data, err := readZipFile(slideFiles[num])
		if err != nil {
			pages = append(pages, page)
			continue
		}

		var slide slideXML
		if err := xml.Unmarshal(data, &slide); err != nil {
			// A malformed slide degrades to an empty page so the deck
			// keeps its slide count.
			pages = append(pages, page)
			continue
		}

		page.Text = renderSlideText(slide, slideNotes(fileIndex, num))
		page.Tables = slideTables(slide)
		if e.ExtractImages {
			page.Image = slideImage(slide, fileIndex, num)
		}

		pages = append(pages, page)
	}

	return pages, nil
}

// renderSlideText assembles slide text: the title placeholder first,
// then each body text frame with bullet indentation, then speaker
// notes. Blocks are separated by blank lines.
func renderSlideText(slide slideXML, notes string) string {
	var parts []string

	for _, sp := range slide.CSld.SpTree.Shapes {
		if sp.TxBody == nil {
			continue
		}
		if isTitleShape(sp) {
			if t := shapePlainText(sp); t != "" {
				parts = append(parts, "Title: "+t)
			}
		}
	}

	for _, sp := range slide.CSld.SpTree.Shapes {
		if sp.TxBody == nil || isTitleShape(sp) {
			continue
		}
		if t := shapeBulletText(sp); t != "" {
			parts = append(parts, t)
		}
	}

	if notes != "" {
		parts = append(parts, "Notes: "+notes)
	}

	return strings.Join(parts, "\n\n")
}

// isTitleShape reports whether the shape is a title placeholder.
func isTitleShape(sp pptShape) bool {
	ph := sp.placeholder()
	return ph == "title" || ph == "ctrTitle"
}

func (sp pptShape) placeholder() string {
	if sp.NvSpPr == nil || sp.NvSpPr.NvPr == nil || sp.NvSpPr.NvPr.Ph == nil {
		return ""
	}
	return sp.NvSpPr.NvPr.Ph.Type
}

// shapePlainText joins a shape's paragraph text with newlines, no
// bullet formatting.
func shapePlainText(sp pptShape) string {
	var lines []string
	for _, para := range sp.TxBody.Paras {
		if t := paraRunText(para); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

// shapeBulletText formats a body text frame. A frame counts as bulleted
// once any paragraph carries an outline level or starts with a bullet
// glyph; every paragraph in a bulleted frame is then rendered with its
// level indent and a bullet marker prepended unless one is already
// there. Frames with no bullet signal stay plain.
func shapeBulletText(sp pptShape) string {
	bulleted := false
	for _, para := range sp.TxBody.Paras {
		text := paraRunText(para)
		if text == "" {
			continue
		}
		if paraLevel(para) > 0 || hasBulletGlyph(text) {
			bulleted = true
			break
		}
	}

	var lines []string
	for _, para := range sp.TxBody.Paras {
		text := paraRunText(para)
		if text == "" {
			continue
		}
		if !bulleted {
			lines = append(lines, text)
			continue
		}
		indent := strings.Repeat("  ", paraLevel(para))
		if !hasBulletGlyph(text) {
			text = "• " + text
		}
		lines = append(lines, indent+text)
	}
	return strings.Join(lines, "\n")
}

func paraLevel(para pptPara) int {
	if para.PPr == nil {
		return 0
	}
	return para.PPr.Lvl
}

func hasBulletGlyph(text string) bool {
	return strings.HasPrefix(text, "•") ||
		strings.HasPrefix(text, "-") ||
		strings.HasPrefix(text, "*")
}

func paraRunText(para pptPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		b.WriteString(run.Text)
	}
	return strings.TrimSpace(b.String())
}

// slideNotes reads the slide's notes page, if present.
func slideNotes(fileIndex map[string]*zip.File, slideNum int) string {
	notesFile := fileIndex[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", slideNum)]
	if notesFile == nil {
		return ""
	}
	data, err := readZipFile(notesFile)
	if err != nil {
		return ""
	}
	var notes slideXML
	if err := xml.Unmarshal(data, &notes); err != nil {
		return ""
	}
	var lines []string
	for _, sp := range notes.CSld.SpTree.Shapes {
		if sp.TxBody == nil {
			continue
		}
		// The slide-number placeholder repeats the slide index, skip it.
		if sp.placeholder() == "sldNum" {
			continue
		}
		if t := shapePlainText(sp); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// slideTables converts the slide's graphic-frame tables. The first row
// of each table is treated as its header.
func slideTables(slide slideXML) []Table {
	var tables []Table
	for _, frame := range slide.CSld.SpTree.Frames {
		tbl := frame.Graphic.GraphicData.Tbl
		if tbl == nil || len(tbl.Rows) == 0 {
			continue
		}
		var t Table
		for i, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				text := ""
				if cell.TxBody != nil {
					var b strings.Builder
					for _, para := range cell.TxBody.Paras {
						if b.Len() > 0 {
							b.WriteString(" ")
						}
						b.WriteString(paraRunText(para))
					}
					text = strings.TrimSpace(b.String())
				}
				cells = append(cells, text)
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

// slideImage picks the slide's representative image: a picture-fill
// background wins, otherwise the first picture shape.
func slideImage(slide slideXML, fileIndex map[string]*zip.File, slideNum int) image.Image {
	rels := parseRelationships(fileIndex, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum))
	relTargets := make(map[string]string, len(rels))
	for _, rel := range rels {
		relTargets[rel.ID] = rel.Target
	}

	resolve := func(blip *pptBlip) image.Image {
		if blip == nil || blip.Embed == "" {
			return nil
		}
		target, ok := relTargets[blip.Embed]
		if !ok {
			return nil
		}
		img := decodeZipImage(fileIndex, "ppt/slides/"+target)
		if img == nil {
			return nil
		}
		return fitRaster(img, maxRasterWidth, maxRasterHeight)
	}

	if bg := slide.CSld.Bg; bg != nil && bg.BgPr != nil && bg.BgPr.BlipFill != nil {
		if img := resolve(bg.BgPr.BlipFill.Blip); img != nil {
			return img
		}
	}

	for _, pic := range slide.CSld.SpTree.Pics {
		if pic.BlipFill == nil {
			continue
		}
		if img := resolve(pic.BlipFill.Blip); img != nil {
			return img
		}
	}

	return nil
}

func extractSlideNumber(name string) int {
	// Extract number from "ppt/slides/slide1.xml"
	name = strings.TrimPrefix(name, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	var num int
	fmt.Sscanf(name, "%d", &num)
	return num
}

// PPTX XML structures (simplified)
type slideXML struct {
	CSld struct {
		Bg *struct {
			BgPr *struct {
				BlipFill *pptBlipFill `xml:"blipFill"`
			} `xml:"bgPr"`
		} `xml:"bg"`
		SpTree pptShapeTree `xml:"spTree"`
	} `xml:"cSld"`
}

type pptShapeTree struct {
	Shapes []pptShape `xml:"sp"`
	Pics   []pptPic   `xml:"pic"`
	Frames []pptFrame `xml:"graphicFrame"`
}

type pptShape struct {
	NvSpPr *struct {
		NvPr *struct {
			Ph *struct {
				Type string `xml:"type,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	TxBody *pptTxBody `xml:"txBody"`
}

type pptTxBody struct {
	Paras []pptPara `xml:"p"`
}

type pptPara struct {
	PPr *struct {
		Lvl int `xml:"lvl,attr"`
	} `xml:"pPr"`
	Runs []pptRun `xml:"r"`
}

type pptRun struct {
	Text string `xml:"t"`
}

type pptPic struct {
	BlipFill *pptBlipFill `xml:"blipFill"`
}

type pptBlipFill struct {
	Blip *pptBlip `xml:"blip"`
}

type pptBlip struct {
	Embed string `xml:"embed,attr"`
}

type pptFrame struct {
	Graphic struct {
		GraphicData struct {
			Tbl *pptTable `xml:"tbl"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

type pptTable struct {
	Rows []pptTableRow `xml:"tr"`
}

type pptTableRow struct {
	Cells []pptTableCell `xml:"tc"`
}

type pptTableCell struct {
	TxBody *pptTxBody `xml:"txBody"`
}
