package interpret

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Candidate is a structured invoice guess produced by an external strategy,
// typically a generative model. It is untrusted until it has passed through
// Normalize, which applies the same reconciliation invariants as the rule
// pipeline.
type Candidate struct {
	ClientName    string
	ClientAddress string
	Items         []CandidateItem
	InvoiceTotal  *decimal.Decimal
}

// CandidateItem mirrors LineItem with optional prices: nil means the source
// text did not state one.
type CandidateItem struct {
	Description string
	Quantity    int
	UnitPrice   *decimal.Decimal
	TotalPrice  *decimal.Decimal
}

// Normalize validates and reconciles a candidate into an Invoice. A
// candidate without items is unusable and the caller is expected to fall
// back to the rule pipeline.
func (e *Engine) Normalize(c *Candidate) (*Invoice, error) {
	if c == nil || len(c.Items) == 0 {
		return nil, ErrNoItems
	}

	items := make([]LineItem, 0, len(c.Items))
	for _, ci := range c.Items {
		qty := ci.Quantity
		if qty < 1 {
			qty = 1
		}
		cand := itemCandidate{
			label:      ci.Description,
			unitPrice:  ci.UnitPrice,
			totalPrice: ci.TotalPrice,
		}
		unit, total := e.priceItem(cand, ci.Description, qty)
		items = append(items, LineItem{
			Description: ci.Description,
			Quantity:    qty,
			UnitPrice:   unit,
			Total:       total,
		})
	}

	grand := e.reconcileTotal(items, c.InvoiceTotal, true)

	now := e.time.Now()
	inv := &Invoice{
		Number:        invoiceNumber(now),
		Date:          now.Format(dateLayout),
		ClientName:    strings.TrimSpace(c.ClientName),
		ClientAddress: strings.TrimSpace(c.ClientAddress),
		Items:         items,
		Total:         grand,
	}
	if inv.ClientName == "" {
		inv.ClientName = fallbackClientName
	}
	return inv, nil
}
