package interpret

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// totalTolerance is the maximum disagreement between an explicit invoice
// total and the sum of item totals before the explicit total takes over.
var totalTolerance = decimal.NewFromFloat(0.01)

// reconcile turns candidate items into final line items: it enforces the
// quantity ceiling against color mentions, fills in unit prices and applies
// the invoice-total override. The returned bool reports whether the items
// are the zero-valued placeholder.
func (e *Engine) reconcile(x extraction) ([]LineItem, decimal.Decimal, bool) {
	cands := x.items
	placeholder := false
	if len(cands) == 0 {
		cands = []itemCandidate{placeholderItem()}
		placeholder = true
	}

	items := make([]LineItem, 0, len(cands))
	for i, c := range cands {
		qty := c.quantity
		desc := c.label
		if c.product && i == 0 {
			qty, desc = resolveQuantity(c, x.colors)
		}
		if qty < 1 {
			qty = 1
		}
		unit, total := e.priceItem(c, desc, qty)
		items = append(items, LineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   unit,
			Total:       total,
		})
	}

	grand := e.reconcileTotal(items, x.explicitTotal, !placeholder)
	return items, grand, placeholder
}

func placeholderItem() itemCandidate {
	zero := decimal.Zero
	return itemCandidate{
		label:       placeholderDescription,
		quantity:    1,
		qtyStated:   true,
		unitPrice:   &zero,
		totalPrice:  &zero,
		placeholder: true,
	}
}

// colorShare is one color's slice of an item's quantity.
type colorShare struct {
	color string
	count int
}

// resolveQuantity applies the quantity ceiling. A stated global quantity Q
// always wins: color counts only describe how Q is distributed, and the
// distribution is truncated so it never exceeds Q. Without a stated Q,
// numbered colors sum up (unnumbered ones counting once); with no numbers at
// all, each distinct color counts as one unit.
func resolveQuantity(c itemCandidate, colors []colorMention) (int, string) {
	if len(colors) == 0 {
		if c.qtyStated {
			return c.quantity, c.label
		}
		return 1, c.label
	}

	if c.qtyStated {
		shares := distribute(colors, c.quantity)
		return c.quantity, annotate(c.label, shares)
	}

	numbered := false
	for _, cm := range colors {
		if cm.counted {
			numbered = true
			break
		}
	}

	if numbered {
		qty := 0
		shares := make([]colorShare, 0, len(colors))
		for _, cm := range colors {
			n := 1
			if cm.counted {
				n = cm.count
			}
			qty += n
			shares = append(shares, colorShare{cm.color, n})
		}
		return qty, annotate(c.label, shares)
	}

	// No counts anywhere: one unit per distinct color.
	seen := make(map[string]bool)
	var shares []colorShare
	for _, cm := range colors {
		if seen[cm.color] {
			continue
		}
		seen[cm.color] = true
		shares = append(shares, colorShare{cm.color, 1})
	}
	return len(shares), annotate(c.label, shares)
}

// distribute allocates a ceiling across color mentions in order of
// appearance, truncating so the shares never sum past the ceiling.
func distribute(colors []colorMention, ceiling int) []colorShare {
	remaining := ceiling
	var shares []colorShare
	for _, cm := range colors {
		if remaining <= 0 {
			break
		}
		n := 1
		if cm.counted {
			n = cm.count
		}
		if n > remaining {
			n = remaining
		}
		shares = append(shares, colorShare{cm.color, n})
		remaining -= n
	}
	return shares
}

func annotate(label string, shares []colorShare) string {
	if len(shares) == 0 {
		return label
	}
	parts := make([]string, len(shares))
	for i, s := range shares {
		parts[i] = fmt.Sprintf("%s x%d", s.color, s.count)
	}
	return fmt.Sprintf("%s (%s)", label, strings.Join(parts, ", "))
}

// priceItem fills in the unit price and line total. Product lines fall back
// to the configured default unit price; other lines derive the unit price
// from a stated line total when one exists. A line total stated in the text
// always wins over quantity × unit price.
func (e *Engine) priceItem(c itemCandidate, desc string, qty int) (decimal.Decimal, decimal.Decimal) {
	var unit decimal.Decimal
	switch {
	case c.unitPrice != nil:
		unit = *c.unitPrice
	case strings.Contains(strings.ToLower(desc), "iphone"):
		unit = e.opts.DefaultUnitPrice
	case c.totalPrice != nil && qty > 0:
		unit = c.totalPrice.Div(decimal.NewFromInt(int64(qty)))
	default:
		unit = e.opts.DefaultUnitPrice
	}

	if c.totalPrice != nil {
		return unit, *c.totalPrice
	}
	return unit, unit.Mul(decimal.NewFromInt(int64(qty)))
}

// reconcileTotal decides the grand total. An explicit invoice total from the
// text is authoritative: when it disagrees with the itemization by more than
// the tolerance, the first item's quantity is recomputed from the default
// unit price and its total forced to the stated amount, since OCR commonly
// garbles line quantities. The zero-valued placeholder is never adjusted.
func (e *Engine) reconcileTotal(items []LineItem, explicit *decimal.Decimal, adjustable bool) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total)
	}
	if explicit == nil {
		return sum
	}
	if sum.Sub(*explicit).Abs().LessThanOrEqual(totalTolerance) {
		return *explicit
	}
	if !adjustable || len(items) == 0 {
		return sum
	}

	qty := int(explicit.Div(e.opts.DefaultUnitPrice).Round(0).IntPart())
	if qty < 1 {
		qty = 1
	}
	items[0].Quantity = qty
	items[0].Total = *explicit
	return *explicit
}
