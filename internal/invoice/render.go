package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"facturier/internal/interpret"
)

// Layout constants, in millimeters on an A4 page.
const (
	marginLeft   = 20.0
	contentWidth = 170.0
)

// Render draws the invoice as a single-page A4 PDF. The VAT line is
// display-only: the printed amount is always zero and taxRate only feeds the
// label.
func Render(inv *interpret.Invoice, sender Sender, taxRate decimal.Decimal) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Facture "+inv.Number, true)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AddPage()

	number := inv.Number
	if !strings.HasPrefix(number, "INV-") {
		number = "INV-" + number
	}

	// Header: title, number box, date box, logo placeholder
	pdf.SetTextColor(44, 62, 80)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.Text(marginLeft, 25, "FACTURE")

	pdf.SetFillColor(245, 245, 245)
	pdf.SetDrawColor(44, 62, 80)
	pdf.SetLineWidth(0.4)
	pdf.RoundedRect(marginLeft, 30, 85, 8, 2, "1234", "FD")
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(marginLeft+2, 35.2, tr("Facture n°"+number))

	pdf.SetFillColor(44, 62, 80)
	pdf.RoundedRect(marginLeft, 41, 25, 8, 2, "1234", "FD")
	pdf.SetTextColor(255, 255, 255)
	pdf.Text(marginLeft+2, 46.2, inv.Date)

	pdf.SetLineWidth(0.7)
	pdf.Circle(172, 22, 7.5, "D")

	// Sender and recipient in two columns
	pdf.SetTextColor(44, 62, 80)
	pdf.SetXY(marginLeft, 58)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(85, 6, tr(sender.Name), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(85, 5, tr(strings.Join([]string{sender.Phone, sender.Email, sender.Website, sender.Address}, "\n")), "", "L", false)

	pdf.SetXY(110, 58)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 6, tr("À L'ATTENTION DE"), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 5, tr(inv.ClientName), "", 2, "L", false, 0, "")
	if inv.ClientAddress != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(80, 5, tr(inv.ClientAddress), "", "L", false)
	}

	// Items table
	colWidths := [4]float64{80, 30, 25, 35}
	headers := [4]string{"DESCRIPTION", "PRIX", "QUANTITÉ", "TOTAL"}

	pdf.SetY(95)
	pdf.SetX(marginLeft)
	pdf.SetDrawColor(224, 224, 224)
	pdf.SetLineWidth(0.2)
	pdf.SetFillColor(44, 62, 80)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 10, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(44, 62, 80)
	pdf.SetFont("Helvetica", "", 10)
	subtotal := decimal.Zero
	for _, item := range inv.Items {
		subtotal = subtotal.Add(item.Total)
		pdf.SetX(marginLeft)
		pdf.CellFormat(colWidths[0], 9, tr(item.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 9, tr(euros(item.UnitPrice)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 9, fmt.Sprintf("%02d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colWidths[3], 9, tr(euros(item.Total)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	// Summary, right aligned. The stated invoice total wins over the item
	// subtotal, so the two lines can legitimately disagree.
	vatLabel := fmt.Sprintf("TVA (%s%%)", taxRate.Mul(decimal.NewFromInt(100)).String())
	summary := [3][2]string{
		{"Sous total", euros(subtotal)},
		{vatLabel, euros(decimal.Zero)},
		{"TOTAL", euros(inv.Total)},
	}

	pdf.Ln(5)
	for i, row := range summary {
		total := i == len(summary)-1
		pdf.SetX(110)
		if total {
			pdf.SetFillColor(44, 62, 80)
			pdf.SetTextColor(255, 255, 255)
			pdf.SetFont("Helvetica", "B", 11)
		} else {
			pdf.SetTextColor(44, 62, 80)
			pdf.SetFont("Helvetica", "", 10)
		}
		pdf.CellFormat(40, 8, tr(row[0]), "", 0, "R", total, 0, "")
		if !total {
			pdf.SetFont("Helvetica", "B", 10)
		}
		pdf.CellFormat(40, 8, tr(row[1]), "", 1, "R", total, 0, "")
	}

	// Payment footer
	pdf.Ln(12)
	footerY := pdf.GetY()
	pdf.SetTextColor(44, 62, 80)
	pdf.SetXY(marginLeft, footerY)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(85, 5, tr("Paiement à l'ordre de"), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(85, 5, tr(sender.Name+"\nN° de compte 0123 4567 8901 2345"), "", "L", false)

	pdf.SetXY(105, footerY)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(85, 5, tr("Conditions de paiement"), "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(85, 5, tr("Paiement sous 30 jours"), "", 2, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetX(marginLeft)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentWidth, 8, "MERCI DE VOTRE CONFIANCE", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// euros formats an amount as "1 234.56 €", spaces grouping the thousands.
func euros(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	for i := len(intPart) - 3; i > 0; i -= 3 {
		intPart = intPart[:i] + " " + intPart[i:]
	}
	out := intPart + "." + frac + " €"
	if neg {
		out = "-" + out
	}
	return out
}
