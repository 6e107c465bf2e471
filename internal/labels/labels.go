// Package labels renders queued QR labels onto printable PDF sheets.
package labels

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/boombuler/barcode/qr"
	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/barcode"

	"github.com/erazemk/izposoja/internal/model"
)

// ErrNoLabels is returned when there is nothing to print.
var ErrNoLabels = errors.New("labels: nothing to print")

// Label is one sticker: a QR code carrying the item UUID plus readable text.
type Label struct {
	QueueID      int64
	UUID         string
	ProductName  string
	StudentLabel string
	// Thumbnail is an optional JPEG printed next to the text.
	Thumbnail []byte
}

// Layout describes a sheet of equally sized stickers, in millimetres.
type Layout struct {
	PageWidth, PageHeight float64
	Columns, Rows         int
	LabelWidth            float64
	LabelHeight           float64
	MarginLeft, MarginTop float64
	GapX, GapY            float64
}

// DefaultLayout is a 3x7 A4 sheet of 63.5 x 38.1 mm stickers.
var DefaultLayout = Layout{
	PageWidth:   210,
	PageHeight:  297,
	Columns:     3,
	Rows:        7,
	LabelWidth:  63.5,
	LabelHeight: 38.1,
	MarginLeft:  7.2,
	MarginTop:   15.1,
	GapX:        2.5,
	GapY:        0,
}

// PerPage returns how many labels fit on one sheet.
func (l Layout) PerPage() int {
	return l.Columns * l.Rows
}

// FromQueue converts pending queue entries into labels. thumbs maps product
// IDs to thumbnail JPEGs and may be nil.
func FromQueue(entries []model.QueueEntry, thumbs map[int64][]byte) []Label {
	out := make([]Label, 0, len(entries))
	for _, e := range entries {
		l := Label{
			QueueID:      e.ID,
			UUID:         e.UUID,
			ProductName:  e.ProductName,
			StudentLabel: e.StudentLabel,
		}
		if e.ProductID != nil {
			l.Thumbnail = thumbs[*e.ProductID]
		}
		out = append(out, l)
	}
	return out
}

// Render writes a PDF with one sticker per label and returns the page count.
func Render(w io.Writer, labels []Label, layout Layout) (int, error) {
	if len(labels) == 0 {
		return 0, ErrNoLabels
	}
	if layout.PerPage() <= 0 {
		return 0, fmt.Errorf("labels: layout has no cells")
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: layout.PageWidth, Ht: layout.PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("QR labels", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, l := range labels {
		cell := i % layout.PerPage()
		if cell == 0 {
			pdf.AddPage()
		}
		col, row := cell%layout.Columns, cell/layout.Columns
		x := layout.MarginLeft + float64(col)*(layout.LabelWidth+layout.GapX)
		y := layout.MarginTop + float64(row)*(layout.LabelHeight+layout.GapY)
		drawLabel(pdf, tr, l, x, y, layout.LabelWidth, layout.LabelHeight)
	}

	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("labels: write pdf: %w", err)
	}
	return pdf.PageCount(), nil
}

func drawLabel(pdf *fpdf.Fpdf, tr func(string) string, l Label, x, y, w, h float64) {
	const pad = 2.0
	size := h - 2*pad

	key := barcode.RegisterQR(pdf, l.UUID, qr.M, qr.Auto)
	barcode.Barcode(pdf, key, x+pad, y+pad, size, size, false)

	textX := x + size + 2*pad
	textW := w - size - 3*pad

	pdf.SetXY(textX, y+pad)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(textW, 4, tr(truncate(l.ProductName, 24)), "", 2, "L", false, 0, "")

	pdf.SetFont("Courier", "", 6)
	pdf.CellFormat(textW, 3, shortUUID(l.UUID), "", 2, "L", false, 0, "")

	if l.StudentLabel != "" {
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(textW, 3.5, tr(truncate(l.StudentLabel, 28)), "", 2, "L", false, 0, "")
	}

	if len(l.Thumbnail) > 0 {
		name := "thumb-" + strconv.FormatInt(l.QueueID, 10) + "-" + l.UUID
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(l.Thumbnail))
		thumb := min(textW, h/2-pad)
		pdf.ImageOptions(name, textX, y+h-pad-thumb, thumb, thumb, false, opts, 0, "")
	}
}

// shortUUID keeps the first group of a UUID, which is enough to match a
// sticker to a screen by eye.
func shortUUID(s string) string {
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "..."
}
