package adapter

import (
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	m "github.com/mouse-blink/pbox/internal/model"
)

const (
	pngMargin     = 16.0
	pngLineHeight = 18.0
)

var (
	pngBackground = color.RGBA{R: 0xfd, G: 0xfd, B: 0xfa, A: 0xff}
	pngCode       = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
	pngLineNumber = color.RGBA{R: 0xa0, G: 0xa0, B: 0xa0, A: 0xff}
	pngBoxFill    = color.RGBA{R: 0xf0, G: 0xf4, B: 0xff, A: 0xff}
	pngBoxBorder  = color.RGBA{R: 0x7a, G: 0x8c, B: 0xb8, A: 0xff}
	pngHeader     = color.RGBA{R: 0x1f, G: 0x3a, B: 0x80, A: 0xff}
)

// PNGExporter draws the source with its boxes beside the lines they belong
// to.
type PNGExporter struct {
	settings m.Settings
}

// NewPNGExporter constructs a PNGExporter.
func NewPNGExporter(settings m.Settings) *PNGExporter {
	return &PNGExporter{settings: settings}
}

type placedBox struct {
	grid   [][]string
	widths []float64
	y      float64
	height float64
}

// Export renders lines and tables as a PNG image into w.
func (e *PNGExporter) Export(w io.Writer, lines []string, tables []*m.Table) error {
	measure := gg.NewContext(1, 1)

	padding := float64(max(e.settings.CellPadding, 2))
	gutter, _ := measure.MeasureString(fmt.Sprintf("%d", len(lines)))
	gutter += pngMargin

	codeWidth := 0.0

	for _, l := range lines {
		width, _ := measure.MeasureString(l)
		codeWidth = max(codeWidth, width)
	}

	boxLeft := pngMargin + gutter + codeWidth + float64(max(e.settings.SpaceBetweenBoxes, 8))

	var (
		placed   []placedBox
		nextY    = pngMargin
		boxWidth = 0.0
	)

	for _, t := range tables {
		grid := t.Grid(e.settings.ByRowOrCol)
		if len(grid) == 0 {
			continue
		}

		widths := columnWidths(measure, grid, padding)

		total := 0.0
		for _, w := range widths {
			total += w
		}

		boxWidth = max(boxWidth, total)

		y := pngMargin + float64(t.Line-1)*pngLineHeight
		y = max(y, nextY)
		height := float64(len(grid)) * pngLineHeight

		placed = append(placed, placedBox{grid: grid, widths: widths, y: y, height: height})
		nextY = y + height + pngLineHeight/2
	}

	width := boxLeft + boxWidth + pngMargin
	height := max(pngMargin*2+float64(len(lines))*pngLineHeight, nextY+pngMargin)

	dc := gg.NewContext(int(width), int(height))
	dc.SetColor(pngBackground)
	dc.Clear()

	for i, l := range lines {
		baseline := pngMargin + float64(i)*pngLineHeight + pngLineHeight*0.75

		dc.SetColor(pngLineNumber)
		dc.DrawStringAnchored(fmt.Sprintf("%d", i+1), pngMargin+gutter-pngMargin/2, baseline, 1, 0)

		dc.SetColor(pngCode)
		dc.DrawString(l, pngMargin+gutter, baseline)
	}

	for _, p := range placed {
		e.drawBox(dc, p, boxLeft)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	return nil
}

func (e *PNGExporter) drawBox(dc *gg.Context, p placedBox, left float64) {
	total := 0.0
	for _, w := range p.widths {
		total += w
	}

	dc.SetColor(pngBoxFill)
	dc.DrawRectangle(left, p.y, total, p.height)
	dc.Fill()

	if e.settings.BoxBorder {
		dc.SetColor(pngBoxBorder)
		dc.SetLineWidth(1)
		dc.DrawRectangle(left, p.y, total, p.height)
		dc.Stroke()
	}

	for r, row := range p.grid {
		x := left
		baseline := p.y + float64(r)*pngLineHeight + pngLineHeight*0.75

		for c, cell := range row {
			if r == 0 {
				dc.SetColor(pngHeader)
			} else {
				dc.SetColor(pngCode)
			}

			dc.DrawStringAnchored(cell, x+p.widths[c]/2, baseline, 0.5, 0)

			if e.settings.ColBorder && c > 0 {
				dc.SetColor(pngBoxBorder)
				dc.DrawLine(x, p.y, x, p.y+p.height)
				dc.Stroke()
			}

			x += p.widths[c]
		}
	}
}

func columnWidths(dc *gg.Context, grid [][]string, padding float64) []float64 {
	widths := make([]float64, len(grid[0]))

	for _, row := range grid {
		for i, cell := range row {
			w, _ := dc.MeasureString(cell)
			widths[i] = max(widths[i], w+padding*2)
		}
	}

	return widths
}
