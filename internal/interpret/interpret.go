// Package interpret turns raw OCR text from a scanned order into a
// structured invoice. It is a pure, synchronous rule engine: every pass
// degrades to a default instead of failing, and the only hard stop is
// input with no text at all.
package interpret

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoText is returned when the input contains no text to interpret.
var ErrNoText = errors.New("no text to interpret")

// ErrNoItems is returned when a candidate record carries no items.
var ErrNoItems = errors.New("candidate has no items")

const (
	// fallbackClientName is used when no plausible client name is found.
	fallbackClientName = "Client"

	// placeholderDescription labels the zero-valued item substituted when
	// nothing at all could be extracted.
	placeholderDescription = "Service / Prestation"

	// genericDescription labels an item recovered from a bare labeled price
	// when no product line was found.
	genericDescription = "Service / Produit"

	dateLayout = "02/01/2006"
)

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type systemTimeSource struct{}

func (systemTimeSource) Now() time.Time { return time.Now() }

// Options holds the business constants of the engine. They are placeholder
// pricing rules and therefore configurable rather than hardcoded.
type Options struct {
	// DefaultUnitPrice is assumed for product lines whose unit price is not
	// stated in the text.
	DefaultUnitPrice decimal.Decimal

	// TaxDisplayRate is the VAT rate shown on rendered invoices. It is
	// display-only; no tax is applied to totals.
	TaxDisplayRate decimal.Decimal
}

// DefaultOptions returns the engine defaults: 250.00 per unit, 20% VAT line.
func DefaultOptions() Options {
	return Options{
		DefaultUnitPrice: decimal.NewFromInt(250),
		TaxDisplayRate:   decimal.NewFromFloat(0.20),
	}
}

// Engine interprets OCR text. It holds no per-request state; one Engine may
// serve concurrent extractions.
type Engine struct {
	opts Options
	time TimeSource
}

// New creates an Engine with the system clock.
func New(opts Options) *Engine {
	return NewWithTimeSource(opts, systemTimeSource{})
}

// NewWithTimeSource creates an Engine with a custom time source for testing.
func NewWithTimeSource(opts Options, ts TimeSource) *Engine {
	if opts.DefaultUnitPrice.IsZero() {
		opts.DefaultUnitPrice = DefaultOptions().DefaultUnitPrice
	}
	return &Engine{opts: opts, time: ts}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// LineItem is one product or service row of an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Invoice is the output of one extraction. It is immutable once returned.
type Invoice struct {
	Number        string          `json:"invoice_number"`
	Date          string          `json:"date"`
	ClientName    string          `json:"client_name"`
	ClientAddress string          `json:"client_address"`
	Items         []LineItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes,omitempty"`
}

// Interpret runs the full rule pipeline over raw OCR text: normalize,
// extract fields, reconcile quantities and prices. Malformed text never
// fails; only blank input is rejected.
func (e *Engine) Interpret(text string) (*Invoice, error) {
	c := normalizeText(text)
	if c.empty() {
		return nil, ErrNoText
	}

	x := e.extract(c)
	items, total, placeholder := e.reconcile(x)

	now := e.time.Now()
	inv := &Invoice{
		Number:        invoiceNumber(now),
		Date:          now.Format(dateLayout),
		ClientName:    x.name,
		ClientAddress: x.address,
		Items:         items,
		Total:         total,
	}
	if inv.ClientName == "" {
		inv.ClientName = fallbackClientName
	}
	if placeholder {
		inv.Notes = excerpt(c.text, 500)
	}
	return inv, nil
}

func invoiceNumber(t time.Time) string {
	return "INV-" + t.Format("20060102150405")
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
