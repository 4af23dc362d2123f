// Package export renders staging-area layouts and material labels to
// spreadsheet and PDF documents.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/vbonduro/stagecanvas/internal/canvas"
	"github.com/vbonduro/stagecanvas/internal/domain"
)

// ErrNoItems is returned when there is nothing to print.
var ErrNoItems = errors.New("no items to export")

// LabelInfo holds the data encoded into each material label's QR code.
type LabelInfo struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Barcode  string        `json:"barcode,omitempty"`
	Category string        `json:"category,omitempty"`
	Quantity int           `json:"quantity"`
	Status   domain.Status `json:"status"`
	AreaID   string        `json:"area"`
	AreaName string        `json:"area_name,omitempty"`
	Cell     string        `json:"cell"`
}

// Avery 5160 compatible layout: 3 columns by 10 rows on US Letter.
const (
	labelMarginTop  = 12.7
	labelMarginLeft = 4.8
	labelWidth      = 66.7
	labelHeight     = 25.4
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0
	labelPadding    = 2.0
)

// CollectLabelInfos builds one label per item. areas resolves area names;
// items in unknown areas keep only the area id.
func CollectLabelInfos(items []*domain.Item, areas []*domain.Area) []LabelInfo {
	names := make(map[string]string, len(areas))
	for _, a := range areas {
		names[a.ID] = a.Name
	}

	labels := make([]LabelInfo, 0, len(items))
	for _, it := range items {
		labels = append(labels, LabelInfo{
			ID:       it.ID,
			Name:     it.Name,
			Barcode:  it.Barcode,
			Category: it.Category,
			Quantity: it.Quantity,
			Status:   it.Status,
			AreaID:   it.Position.AreaID,
			AreaName: names[it.Position.AreaID],
			Cell:     canvas.Cell{Row: it.Position.Row, Col: it.Position.Col}.Label(),
		})
	}
	return labels
}

// WriteLabels writes a PDF sheet of QR-coded material labels to w.
func WriteLabels(w io.Writer, items []*domain.Item, areas []*domain.Area) error {
	labels := CollectLabelInfos(items, areas)
	if len(labels) == 0 {
		return ErrNoItems
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		pos := i % labelsPerPage
		x := labelMarginLeft + float64(pos%labelCols)*labelWidth
		y := labelMarginTop + float64(pos/labelCols)*labelHeight

		if err := renderLabel(pdf, x, y, i, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.Name, err)
		}
	}

	return pdf.Output(w)
}

func renderLabel(pdf *fpdf.Fpdf, x, y float64, idx int, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d", idx)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions(imgName, x+labelWidth-qrSize-labelPadding, y+(labelHeight-qrSize)/2, qrSize, qrSize, false, opts, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, truncate(pdf, info.Name, textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	qty := fmt.Sprintf("Qty %d  %s", info.Quantity, info.Status)
	pdf.CellFormat(textW, 3.5, qty, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	where := info.AreaName
	if where == "" {
		where = info.AreaID
	}
	pdf.CellFormat(textW, 3, truncate(pdf, where+" @ "+info.Cell, textW), "", 1, "L", false, 0, "")

	if info.Barcode != "" {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Courier", "", 7)
		pdf.CellFormat(textW, 3, info.Barcode, "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return pdf.Error()
}

func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
