package interpret

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// The extraction passes below recover candidate fields from the corpus.
// Each concern is a layered list of patterns tried in order, so a weaker
// match never overwrites a higher-confidence one.

var (
	// "12 rue de l'Exemple, 75000 Paris"
	addressRe = regexp.MustCompile(`(?i)(\d+\s+(?:rue|avenue|boulevard|place|chemin|allée|impasse)[^,\n]+,\s*\d{5}\s+[A-Za-zéèêàâôùûîïç]+)`)

	// "Nom: Jean Dupont" anchored to a line or sentence start. The label is
	// case-insensitive but the captured pair must be capitalized.
	labeledNameRe = regexp.MustCompile(`(?:^|[.!?]\s+)(?i:nom|pour|client)\s*:\s*([A-Z][a-zéèêàâôùûîïç]+\s+[A-Z][a-zéèêàâôùûîïç]+)`)

	// capitalized pair immediately before an address, trailing comma allowed
	nameBeforeAddressRe = regexp.MustCompile(`([A-Z][a-zéèêàâôùûîïç]+\s+[A-Z][a-zéèêàâôùûîïç]+)[,\s]*$`)

	// any two consecutive capitalized words
	namePairRe = regexp.MustCompile(`\b([A-Z][a-zéèêàâôùûîïç]+)\s+([A-Z][a-zéèêàâôùûîïç]+)\b`)

	// "2 iPhone 14", "iPhone 14", "3 iphones"
	productRe = regexp.MustCompile(`(?i)(?:(\d+)\s*)?iphones?\s*(\d{1,2})?`)

	// "noir", "1 blanc", "rouge x2"; the count may sit on either side
	colorRe = regexp.MustCompile(`(?i)(?:(\d+)\s*)?(noir|blanc|rouge|rose|bleu|vert)s?(?:\s*x\s*(\d+))?`)

	// "Total: 500€", "prix total : 500,00 €"
	labeledTotalRe = regexp.MustCompile(`(?i)(?:prix\s*total|montant\s*total|total)[:\s]*(\d+(?:[.,]\d{2})?)\s*[€$]`)

	// bare "500€" anywhere
	bareTotalRe = regexp.MustCompile(`(\d+(?:[.,]\d{2})?)\s*[€$]`)

	// "prix: 120€" for the generic priced-item fallback
	labeledPriceRe = regexp.MustCompile(`(?i)(?:prix|price|montant)[:\s]*(\d+(?:[.,]\d{2})?)\s*[€$]`)
)

// proximityWindow bounds how far before a found address the name heuristic
// looks, in bytes of the corpus.
const proximityWindow = 100

// proximityBlacklist rejects frequent false positives of the
// name-before-address heuristic.
var proximityBlacklist = wordSet("Votre", "Donner", "Merci", "Complet")

// conversationalWords rejects greeting/label/verb vocabulary common in
// dictated OCR text from the generic name fallback.
var conversationalWords = wordSet(
	"Today", "Bonjour", "Pour", "Tel", "Nom", "Adresse", "Prix", "Total",
	"Date", "Commander", "Commande", "Merci", "Parfait", "Service",
	"Votre", "Donner", "Pouvez", "Combien", "Quelle", "Couleur",
)

func wordSet(words ...string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

// extraction holds the candidate fields recovered from one corpus, before
// reconciliation.
type extraction struct {
	name          string
	address       string
	items         []itemCandidate
	colors        []colorMention
	explicitTotal *decimal.Decimal
}

// itemCandidate is a product line before quantity and price reconciliation.
type itemCandidate struct {
	label       string
	quantity    int
	qtyStated   bool
	unitPrice   *decimal.Decimal
	totalPrice  *decimal.Decimal
	product     bool // found by the product scan; colors may attach to it
	placeholder bool
}

// colorMention is one color/variant occurrence, in order of appearance.
type colorMention struct {
	color   string
	count   int
	counted bool
}

func (e *Engine) extract(c corpus) extraction {
	var x extraction
	x.address = extractAddress(c.text)
	x.name = extractName(c.text, x.address)
	x.items = extractProducts(c.text)
	x.colors = extractColors(c.text)
	x.explicitTotal = extractTotal(c.text)

	// Generic priced-item fallback, only when no product line matched.
	if len(x.items) == 0 {
		if price, ok := extractLabeledPrice(c.text); ok {
			x.items = append(x.items, itemCandidate{
				label:      genericDescription,
				quantity:   1,
				qtyStated:  true,
				unitPrice:  &price,
				totalPrice: &price,
			})
		}
	}
	return x
}

// extractAddress returns the first street/postal-code/city match, or "".
// An address is never inferred.
func extractAddress(text string) string {
	if m := addressRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// nameStrategies are tried in order; the first non-empty answer wins.
var nameStrategies = []func(text, address string) string{
	nameFromLabel,
	nameNearAddress,
	nameFromAnyPair,
}

func extractName(text, address string) string {
	for _, strategy := range nameStrategies {
		if name := strategy(text, address); name != "" {
			return name
		}
	}
	return ""
}

func nameFromLabel(text, _ string) string {
	if m := labeledNameRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// nameNearAddress scans the window immediately before a found address for a
// capitalized pair that runs right up to it.
func nameNearAddress(text, address string) string {
	if address == "" {
		return ""
	}
	pos := strings.Index(text, address)
	if pos <= 0 {
		return ""
	}
	start := pos - proximityWindow
	if start < 0 {
		start = 0
	}
	m := nameBeforeAddressRe.FindStringSubmatch(text[start:pos])
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	if proximityBlacklist[strings.Fields(name)[0]] {
		return ""
	}
	return name
}

// nameFromAnyPair is the last resort: any capitalized pair where both words
// have at least four letters and neither is conversational vocabulary.
func nameFromAnyPair(text, _ string) string {
	for _, m := range namePairRe.FindAllStringSubmatch(text, -1) {
		first, last := m[1], m[2]
		if conversationalWords[first] || conversationalWords[last] {
			continue
		}
		if utf8.RuneCountInString(first) < 4 || utf8.RuneCountInString(last) < 4 {
			continue
		}
		return first + " " + last
	}
	return ""
}

// extractProducts groups every product occurrence by its model label and
// sums the stated quantities within each group.
func extractProducts(text string) []itemCandidate {
	matches := productRe.FindAllStringSubmatch(text, -1)
	grouped := make(map[string]*itemCandidate)
	var order []string

	for _, m := range matches {
		label := "iPhone"
		if m[2] != "" {
			label += " " + m[2]
		}
		it, ok := grouped[label]
		if !ok {
			it = &itemCandidate{label: label, product: true}
			grouped[label] = it
			order = append(order, label)
		}
		if m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil {
				it.quantity += n
				it.qtyStated = true
			}
		}
	}

	items := make([]itemCandidate, 0, len(order))
	for _, label := range order {
		items = append(items, *grouped[label])
	}
	return items
}

func extractColors(text string) []colorMention {
	var colors []colorMention
	for _, m := range colorRe.FindAllStringSubmatch(text, -1) {
		cm := colorMention{color: strings.ToLower(m[2])}
		num := m[1]
		if num == "" {
			num = m[3]
		}
		if num != "" {
			if n, err := strconv.Atoi(num); err == nil {
				cm.count = n
				cm.counted = true
			}
		}
		colors = append(colors, cm)
	}
	return colors
}

// extractTotal looks for an explicit invoice-level total: the labeled form
// first, then any bare amount-with-currency. First match wins per tier.
func extractTotal(text string) *decimal.Decimal {
	for _, re := range []*regexp.Regexp{labeledTotalRe, bareTotalRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if d, err := parseAmount(m[1]); err == nil {
				return &d
			}
		}
	}
	return nil
}

func extractLabeledPrice(text string) (decimal.Decimal, bool) {
	if m := labeledPriceRe.FindStringSubmatch(text); m != nil {
		if d, err := parseAmount(m[1]); err == nil {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}
