package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	fontRegular = "go-regular"
	fontBold    = "go-bold"

	pageMargin = 40.0
	lineFactor = 1.25
	rowHeight  = 16.0
)

type textStyle struct {
	font        string
	size        int
	marginTop   float64
	marginBelow float64
}

var styles = map[Style]textStyle{
	StyleH1:   {font: fontBold, size: 18, marginBelow: 6},
	StyleH2:   {font: fontBold, size: 14, marginTop: 6, marginBelow: 4},
	StyleH3:   {font: fontBold, size: 12, marginTop: 6, marginBelow: 4},
	StyleBody: {font: fontRegular, size: 10},
}

// WritePDF renders doc onto A4 pages, breaking to a new page whenever the
// next block does not fit.
func WritePDF(w io.Writer, doc Document) error {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})

	if err := pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return fmt.Errorf("failed to load regular font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return fmt.Errorf("failed to load bold font: %w", err)
	}

	p := &pageWriter{pdf: pdf, page: *gopdf.PageSizeA4}
	p.newPage()

	for i, block := range doc.Blocks {
		var err error
		switch block.Kind {
		case BlockHeading, BlockText:
			err = p.text(block)
		case BlockColumns:
			err = p.columns(block)
		case BlockImage:
			err = p.image(block)
		case BlockTable:
			err = p.table(block)
		default:
			err = fmt.Errorf("unknown block kind %q", block.Kind)
		}
		if err != nil {
			return fmt.Errorf("failed to render block %d (%s): %w", i, block.Kind, err)
		}
	}

	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

type pageWriter struct {
	pdf  *gopdf.GoPdf
	page gopdf.Rect
	y    float64
}

func (p *pageWriter) contentWidth() float64 {
	return p.page.W - 2*pageMargin
}

func (p *pageWriter) newPage() {
	p.pdf.AddPage()
	p.y = pageMargin
}

// reserve starts a new page unless height more points fit on this one.
func (p *pageWriter) reserve(height float64) {
	if p.y+height > p.page.H-pageMargin && p.y > pageMargin {
		p.newPage()
	}
}

func (p *pageWriter) setStyle(style Style) (textStyle, error) {
	s, ok := styles[style]
	if !ok {
		s = styles[StyleBody]
	}
	return s, p.pdf.SetFont(s.font, "", s.size)
}

func (p *pageWriter) text(block Block) error {
	s, err := p.setStyle(block.Style)
	if err != nil {
		return err
	}
	height := float64(s.size) * lineFactor
	p.reserve(s.marginTop + height)
	p.y += s.marginTop

	p.pdf.SetXY(pageMargin, p.y)
	if err := p.pdf.Cell(nil, p.fit(block.Text, p.contentWidth())); err != nil {
		return err
	}
	p.y += height + s.marginBelow + block.MarginBottom
	return nil
}

func (p *pageWriter) columns(block Block) error {
	if len(block.Columns) == 0 {
		return nil
	}
	s, err := p.setStyle(block.Style)
	if err != nil {
		return err
	}
	height := float64(s.size) * lineFactor
	p.reserve(height)

	width := p.contentWidth() / float64(len(block.Columns))
	for i, col := range block.Columns {
		p.pdf.SetXY(pageMargin+float64(i)*width, p.y)
		if err := p.pdf.Cell(nil, p.fit(col, width)); err != nil {
			return err
		}
	}
	p.y += height + block.MarginBottom
	return nil
}

func (p *pageWriter) image(block Block) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(block.Image))
	if err != nil {
		return fmt.Errorf("unreadable %s image: %w", block.Chart, err)
	}
	if cfg.Width == 0 {
		return fmt.Errorf("%s image has no width", block.Chart)
	}
	holder, err := gopdf.ImageHolderByBytes(block.Image)
	if err != nil {
		return err
	}

	width := block.Width
	if width <= 0 || width > p.contentWidth() {
		width = p.contentWidth()
	}
	height := width * float64(cfg.Height) / float64(cfg.Width)
	p.reserve(height)

	if err := p.pdf.ImageByHolder(holder, pageMargin, p.y, &gopdf.Rect{W: width, H: height}); err != nil {
		return err
	}
	p.y += height + block.MarginBottom
	return nil
}

// table widths follow auto/*/auto/auto: fixed date, amount and region
// columns with the category column taking the rest.
func (p *pageWriter) tableWidths(columns int) []float64 {
	if columns != 4 {
		widths := make([]float64, columns)
		for i := range widths {
			widths[i] = p.contentWidth() / float64(columns)
		}
		return widths
	}
	const dateW, amountW, regionW = 110.0, 80.0, 100.0
	return []float64{dateW, p.contentWidth() - dateW - amountW - regionW, amountW, regionW}
}

func (p *pageWriter) table(block Block) error {
	if block.Table == nil {
		return nil
	}
	widths := p.tableWidths(len(block.Table.Header))
	p.y += 6

	if err := p.tableRow(block.Table.Header, widths, fontBold); err != nil {
		return err
	}
	for _, row := range block.Table.Rows {
		if p.y+rowHeight > p.page.H-pageMargin {
			p.newPage()
			if err := p.tableRow(block.Table.Header, widths, fontBold); err != nil {
				return err
			}
		}
		if err := p.tableRow(row, widths, fontRegular); err != nil {
			return err
		}
	}
	p.y += block.MarginBottom
	return nil
}

func (p *pageWriter) tableRow(cells []string, widths []float64, font string) error {
	if err := p.pdf.SetFont(font, "", styles[StyleBody].size); err != nil {
		return err
	}
	x := pageMargin
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		p.pdf.SetXY(x+2, p.y+3)
		if err := p.pdf.Cell(nil, p.fit(cell, widths[i]-4)); err != nil {
			return err
		}
		x += widths[i]
	}
	p.y += rowHeight

	p.pdf.SetLineWidth(0.5)
	p.pdf.SetStrokeColor(200, 200, 200)
	p.pdf.Line(pageMargin, p.y, pageMargin+p.contentWidth(), p.y)
	return nil
}

// fit shortens text with an ellipsis until it measures within width.
func (p *pageWriter) fit(text string, width float64) string {
	measured, err := p.pdf.MeasureTextWidth(text)
	if err != nil || measured <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if w, err := p.pdf.MeasureTextWidth(candidate); err == nil && w <= width {
			return candidate
		}
	}
	return ""
}
