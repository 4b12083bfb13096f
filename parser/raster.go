package parser

import (
	"image"
	"log/slog"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

const (
	rasterDPI       = 150
	maxRasterWidth  = 1920
	maxRasterHeight = 1080
)

// attachPageImages rasterizes each PDF page and attaches the result to
// the matching page by index. Rasterization failure is non-fatal: the
// document degrades to text-only extraction.
func attachPageImages(path string, pages []Page) {
	doc, err := fitz.New(path)
	if err != nil {
		slog.Warn("page rasterization unavailable", "path", path, "error", err)
		return
	}
	defer doc.Close()

	for i := range pages {
		if i >= doc.NumPage() {
			break
		}
		img, err := doc.ImageDPI(i, rasterDPI)
		if err != nil {
			slog.Warn("rasterizing page failed", "path", path, "page", pages[i].PageNumber, "error", err)
			continue
		}
		pages[i].Image = fitRaster(img, maxRasterWidth, maxRasterHeight)
	}
}

// fitRaster scales img down to fit within maxW x maxH preserving aspect
// ratio. Images already within bounds are returned unchanged.
func fitRaster(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
