package interpret

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("quantity and price reconciliation", func() {
	var engine *Engine

	BeforeEach(func() {
		engine = newTestEngine()
	})

	interpret := func(text string) *Invoice {
		inv, err := engine.Interpret(text)
		Expect(err).NotTo(HaveOccurred())
		return inv
	}

	Describe("the quantity ceiling", func() {
		It("keeps a stated quantity even when color counts fall short", func() {
			inv := interpret("2 iPhone 14, couleurs: noir, 1 blanc")
			Expect(inv.Items).To(HaveLen(1))
			Expect(inv.Items[0].Quantity).To(Equal(2))
			Expect(inv.Items[0].Description).To(Equal("iPhone 14 (noir x1, blanc x1)"))
		})

		It("keeps a stated quantity over a list of unnumbered colors", func() {
			inv := interpret("3 iPhone 14 (noir, rouge, bleu)")
			Expect(inv.Items[0].Quantity).To(Equal(3))
			Expect(inv.Items[0].Description).To(Equal("iPhone 14 (noir x1, rouge x1, bleu x1)"))
		})

		It("truncates color counts that overshoot the stated quantity", func() {
			inv := interpret("5 iPhone 14 (noir x2, blanc x4)")
			Expect(inv.Items[0].Quantity).To(Equal(5))
			Expect(inv.Items[0].Description).To(Equal("iPhone 14 (noir x2, blanc x3)"))
		})

		It("sums numbered colors when no quantity is stated", func() {
			inv := interpret("iPhone 14 (noir x2, blanc x1)")
			Expect(inv.Items[0].Quantity).To(Equal(3))
			Expect(inv.Items[0].Description).To(Equal("iPhone 14 (noir x2, blanc x1)"))
		})

		It("counts one unit per distinct color when nothing is numbered", func() {
			inv := interpret("iPhone 14, couleurs: noir, blanc, noir")
			Expect(inv.Items[0].Quantity).To(Equal(2))
			Expect(inv.Items[0].Description).To(Equal("iPhone 14 (noir x1, blanc x1)"))
		})

		It("never yields a quantity below one", func() {
			inv := interpret("un iPhone 14 pour demain")
			Expect(inv.Items[0].Quantity).To(Equal(1))
		})
	})

	Describe("pricing", func() {
		It("applies the default unit price to product lines", func() {
			inv := interpret("3 iPhone 14 livraison Paris")
			Expect(inv.Items[0].UnitPrice.String()).To(Equal("250"))
			Expect(inv.Items[0].Total.String()).To(Equal("750"))
			Expect(inv.Total.String()).To(Equal("750"))
		})

		It("builds a generic priced line when only a labeled price is found", func() {
			inv := interpret("reparation ecran, prix: 120€")
			Expect(inv.Items).To(HaveLen(1))
			Expect(inv.Items[0].Description).To(Equal("Service / Produit"))
			Expect(inv.Items[0].Quantity).To(Equal(1))
			Expect(inv.Items[0].Total.String()).To(Equal("120"))
		})

		It("honors a configured unit price", func() {
			custom := NewWithTimeSource(Options{DefaultUnitPrice: decimal.NewFromInt(300)}, fixedTimeSource{})
			inv, err := custom.Interpret("2 iPhone 14")
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.Total.String()).To(Equal("600"))
		})
	})

	Describe("the invoice-total override", func() {
		It("recomputes the first item when the stated total disagrees", func() {
			inv := interpret("1 iPhone 14, prix total: 750€")
			Expect(inv.Total.String()).To(Equal("750"))
			Expect(inv.Items[0].Quantity).To(Equal(3))
			Expect(inv.Items[0].Total.String()).To(Equal("750"))
		})

		It("leaves a consistent itemization alone", func() {
			inv := interpret("2 iPhone 14, total: 500€")
			Expect(inv.Items[0].Quantity).To(Equal(2))
			Expect(inv.Total.String()).To(Equal("500"))
		})

		It("never adjusts the placeholder", func() {
			inv := interpret("bonjour voici 300€ pour vous")
			Expect(inv.Items[0].Description).To(Equal("Service / Prestation"))
			Expect(inv.Items[0].Quantity).To(Equal(1))
			Expect(inv.Items[0].Total.IsZero()).To(BeTrue())
			Expect(inv.Total.IsZero()).To(BeTrue())
		})
	})
})

var _ = Describe("Engine.Normalize", func() {
	var engine *Engine

	BeforeEach(func() {
		engine = newTestEngine()
	})

	It("rejects a nil candidate", func() {
		_, err := engine.Normalize(nil)
		Expect(err).To(MatchError(ErrNoItems))
	})

	It("rejects a candidate without items", func() {
		_, err := engine.Normalize(&Candidate{ClientName: "Jean Dupont"})
		Expect(err).To(MatchError(ErrNoItems))
	})

	It("fills missing prices and quantities", func() {
		inv, err := engine.Normalize(&Candidate{
			ClientName: "Jean Dupont",
			Items:      []CandidateItem{{Description: "iPhone 14 (noir x2)"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.Items[0].Quantity).To(Equal(1))
		Expect(inv.Items[0].UnitPrice.String()).To(Equal("250"))
		Expect(inv.Items[0].Total.String()).To(Equal("250"))
	})

	It("derives a unit price from a stated line total", func() {
		total := decimal.NewFromInt(100)
		inv, err := engine.Normalize(&Candidate{
			Items: []CandidateItem{{Description: "Coque silicone", Quantity: 2, TotalPrice: &total}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.Items[0].UnitPrice.String()).To(Equal("50"))
		Expect(inv.Items[0].Total.String()).To(Equal("100"))
	})

	It("applies the invoice-total override to candidate records", func() {
		stated := decimal.NewFromInt(500)
		inv, err := engine.Normalize(&Candidate{
			Items:        []CandidateItem{{Description: "iPhone 14", Quantity: 1}},
			InvoiceTotal: &stated,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.Total.String()).To(Equal("500"))
		Expect(inv.Items[0].Quantity).To(Equal(2))
	})

	It("defaults a blank client name", func() {
		inv, err := engine.Normalize(&Candidate{
			Items: []CandidateItem{{Description: "iPhone 14", Quantity: 1}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ClientName).To(Equal("Client"))
	})
})
