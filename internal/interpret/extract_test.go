package interpret

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("field extraction", func() {
	Describe("addresses", func() {
		It("matches a street, postal code and city", func() {
			addr := extractAddress("Livraison chez Marie Martin, 45 avenue des Fleurs, 69000 Lyon merci")
			Expect(addr).To(Equal("45 avenue des Fleurs, 69000 Lyon"))
		})

		It("matches street types case-insensitively", func() {
			addr := extractAddress("12 Rue de la Paix, 75002 Paris")
			Expect(addr).To(Equal("12 Rue de la Paix, 75002 Paris"))
		})

		It("never invents an address", func() {
			Expect(extractAddress("commande de 2 iPhone 14 sans adresse")).To(BeEmpty())
		})
	})

	Describe("client names", func() {
		It("prefers a labeled name", func() {
			name := extractName("Bonjour. Nom: Jean Dupont, 12 rue des Lilas, 75011 Paris", "12 rue des Lilas, 75011 Paris")
			Expect(name).To(Equal("Jean Dupont"))
		})

		It("falls back to a capitalized pair just before the address", func() {
			text := "Livraison pour Marie Martin, 45 avenue des Fleurs, 69000 Lyon"
			name := extractName(text, "45 avenue des Fleurs, 69000 Lyon")
			Expect(name).To(Equal("Marie Martin"))
		})

		It("rejects blacklisted words before the address", func() {
			text := "Donner Adresse 45 avenue des Fleurs, 69000 Lyon"
			name := extractName(text, "45 avenue des Fleurs, 69000 Lyon")
			Expect(name).To(BeEmpty())
		})

		It("accepts any plausible capitalized pair as a last resort", func() {
			Expect(extractName("facture pour Pierre Durand svp", "")).To(Equal("Pierre Durand"))
		})

		It("rejects conversational vocabulary from the generic pair scan", func() {
			Expect(extractName("Bonjour Service Commande Merci", "")).To(BeEmpty())
		})

		It("rejects pairs with short words", func() {
			Expect(extractName("envoyer la facture a Jo Li", "")).To(BeEmpty())
		})
	})

	Describe("products", func() {
		It("captures a stated quantity and model", func() {
			items := extractProducts("commande de 2 iPhone 14 merci")
			Expect(items).To(HaveLen(1))
			Expect(items[0].label).To(Equal("iPhone 14"))
			Expect(items[0].quantity).To(Equal(2))
			Expect(items[0].qtyStated).To(BeTrue())
		})

		It("captures a product with no stated quantity", func() {
			items := extractProducts("un iPhone 15 pour madame")
			Expect(items).To(HaveLen(1))
			Expect(items[0].quantity).To(Equal(0))
			Expect(items[0].qtyStated).To(BeFalse())
		})

		It("sums repeated mentions of the same model", func() {
			items := extractProducts("1 iPhone 14 et encore 1 iPhone 14")
			Expect(items).To(HaveLen(1))
			Expect(items[0].quantity).To(Equal(2))
		})

		It("keeps distinct models as distinct items, in order", func() {
			items := extractProducts("2 iPhone 14 et 1 iPhone 15")
			Expect(items).To(HaveLen(2))
			Expect(items[0].label).To(Equal("iPhone 14"))
			Expect(items[1].label).To(Equal("iPhone 15"))
		})
	})

	Describe("colors", func() {
		It("reads counts on either side of the color word", func() {
			colors := extractColors("couleurs: 2 noir, blanc x3, rouge")
			Expect(colors).To(HaveLen(3))
			Expect(colors[0]).To(Equal(colorMention{color: "noir", count: 2, counted: true}))
			Expect(colors[1]).To(Equal(colorMention{color: "blanc", count: 3, counted: true}))
			Expect(colors[2]).To(Equal(colorMention{color: "rouge"}))
		})
	})

	Describe("totals", func() {
		It("prefers a labeled total over an earlier bare amount", func() {
			total := extractTotal("acompte 100€ verse, prix total: 750€")
			Expect(total).NotTo(BeNil())
			Expect(total.String()).To(Equal("750"))
		})

		It("accepts a bare amount with currency", func() {
			total := extractTotal("ca fera 500,50 € monsieur")
			Expect(total).NotTo(BeNil())
			Expect(total.String()).To(Equal("500.5"))
		})

		It("returns nil when no amount is present", func() {
			Expect(extractTotal("deux iPhone pour demain")).To(BeNil())
		})
	})
})
