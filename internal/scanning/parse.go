package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"facturier/internal/interpret"
)

// candidatePayload mirrors the JSON schema the prompt asks for. Numeric
// fields are decoded as any because models emit them as numbers, quoted
// strings or with currency symbols attached.
type candidatePayload struct {
	ClientName    string        `json:"client_name"`
	ClientAddress string        `json:"client_address"`
	Items         []itemPayload `json:"items"`
	InvoiceTotal  any           `json:"invoice_total"`
}

type itemPayload struct {
	Description string `json:"description"`
	Quantity    any    `json:"quantity"`
	UnitPrice   any    `json:"unit_price"`
	TotalPrice  any    `json:"total_price"`
}

// ParseCandidate parses a model response into an invoice candidate. It
// tolerates markdown fences and prose around the JSON object by taking
// everything between the first { and the last }.
func ParseCandidate(text string) (*interpret.Candidate, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var payload candidatePayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	cand := &interpret.Candidate{
		ClientName:    strings.TrimSpace(payload.ClientName),
		ClientAddress: strings.TrimSpace(payload.ClientAddress),
		InvoiceTotal:  asDecimal(payload.InvoiceTotal),
	}
	for _, ip := range payload.Items {
		item := interpret.CandidateItem{
			Description: strings.TrimSpace(ip.Description),
			Quantity:    asInt(ip.Quantity),
			UnitPrice:   asDecimal(ip.UnitPrice),
			TotalPrice:  asDecimal(ip.TotalPrice),
		}
		if item.Description == "" {
			continue
		}
		cand.Items = append(cand.Items, item)
	}
	return cand, nil
}

// asInt coerces a loosely typed quantity. Anything unusable comes back as 0
// and the rule engine raises it to 1 later.
func asInt(v any) int {
	if d := asDecimal(v); d != nil {
		return int(d.IntPart())
	}
	return 0
}

// asDecimal coerces a loosely typed amount, or returns nil when the field is
// absent, null or unreadable.
func asDecimal(v any) *decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		d := decimal.NewFromFloat(n)
		return &d
	case string:
		s := strings.TrimSpace(n)
		s = strings.Trim(s, "€$ ")
		s = strings.ReplaceAll(s, ",", ".")
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return &d
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil
		}
		return &d
	default:
		return nil
	}
}
