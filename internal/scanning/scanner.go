// Package scanning turns uploaded order documents into invoice input. A
// Recognizer reads the raw text out of an image or PDF; an Interpreter asks
// a generative model for a structured guess at the invoice. Both produce
// untrusted output: the invoice service validates everything through the
// rule engine, which it can always fall back on.
package scanning

import (
	"context"
	"fmt"

	"facturier/internal/interpret"
)

// Recognizer extracts raw text from an uploaded document.
type Recognizer interface {
	// ExtractText reads all text out of an image or PDF
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
}

// Interpreter proposes a structured invoice candidate from raw OCR text.
type Interpreter interface {
	// Interpret analyzes the text and returns an invoice candidate
	Interpret(ctx context.Context, text string) (*interpret.Candidate, error)
	// Model identifies the backing model, for logging
	Model() string
	// Close releases resources held by the interpreter
	Close() error
}

// candidatePrompt builds the shared prompt used by all generative
// interpreters. The color rules are spelled out because small models
// reliably invent quantities without them.
func candidatePrompt(text string) string {
	return fmt.Sprintf(`Analysez le texte ci-dessous et créez une facture AU FORMAT JSON UNIQUEMENT.
Ne pas écrire de texte en dehors du JSON. Ne rien inventer. N'utiliser que les informations présentes explicitement dans le texte.

TEXTE :
%s

RÈGLES GÉNÉRALES :

1. Informations client
   - "client_name" = prénom + nom trouvés dans le texte.
   - "client_address" = rue + code postal + ville si trouvés.
   - Si une information n'est pas trouvée, laisser vide (ne rien inventer).

2. Produits (items)
   - Chaque entrée dans "items" = un produit trouvé dans le texte.
   - Ne jamais créer ou inventer de produits.
   - Ne jamais inventer de quantité : compter uniquement ce qui est dans le texte.

3. Extraction des prix
   - Extraire le prix unitaire si présent, le prix total si présent.
   - Si le texte mentionne un total général pour la facture, le mettre dans "invoice_total".
   - Ne jamais utiliser de prix habituels ou supposés. Seulement ceux écrits dans le texte.

4. RÈGLES COULEURS :
   A. Si une quantité globale Q est associée au produit (ex: "2 iPhone 14"),
      ALORS la quantité totale = Q, même si plusieurs couleurs sont listées.
      Ne jamais faire total = Q + (couleurs).
   B. Répartition par couleur :
      - Si des chiffres sont indiqués par couleur, les additionner SANS dépasser Q.
      - Si Q n'est PAS indiqué :
        - S'il y a des quantités dans les couleurs, total = somme.
        - Sinon, total = nombre de couleurs.
   C. Cas à traiter correctement :
      - "2 iPhone 14, couleurs: noir, 1 blanc" donne total = 2, noir x1, blanc x1.
      - "3 iPhone 14 (noir, rouge, bleu)" donne total = 3.
      - "iPhone 14 (noir x2, blanc x1)" donne total = 3.
      - "5 iPhone 14 (noir x2, blanc x4)" donne total = 5 (tronquer à 5).
   D. Utiliser une seule ligne par produit et mettre la répartition couleur
      dans "description", ex: "iPhone 14 (noir x1, blanc x1)".

5. FORMAT JSON EXACT :
{
    "client_name": "",
    "client_address": "",
    "items": [
        {
            "description": "nom du produit (couleur)",
            "quantity": nombre_total,
            "unit_price": prix_unitaire_ou_null,
            "total_price": prix_total_ou_null
        }
    ],
    "invoice_total": prix_total_facture_ou_null
}

JSON uniquement.`, text)
}
