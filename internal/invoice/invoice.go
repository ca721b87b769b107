// Package invoice is the application layer: it accepts uploaded order
// documents, runs OCR and interpretation over them, renders the PDF invoice
// and serves the HTTP API.
package invoice

import (
	"time"

	"facturier/internal/interpret"
)

// Sender is the issuing party printed on every invoice.
type Sender struct {
	Name    string
	Phone   string
	Email   string
	Website string
	Address string
}

// DefaultSender returns the template placeholder identity used until real
// sender details are configured.
func DefaultSender() Sender {
	return Sender{
		Name:    "HEDI",
		Phone:   "Tel : 123-456-7890",
		Email:   "hello@reallygreatsite.com",
		Website: "reallygreatsite.com",
		Address: "123 Anywhere St., Any City",
	}
}

// Result is the outcome of processing one uploaded document.
type Result struct {
	Invoice       *interpret.Invoice `json:"invoice_data"`
	ExtractedText string             `json:"extracted_text"`
	Method        string             `json:"method_used"`
	PDFFilename   string             `json:"pdf_filename"`
	PDF           []byte             `json:"pdf_base64"`
}

// Document is the archive record kept for each generated invoice. It maps an
// invoice number to the stored PDF so downloads never touch raw client input.
type Document struct {
	Number         string    `json:"number"`
	PDFFilename    string    `json:"pdf_filename"`
	UploadFilename string    `json:"upload_filename"`
	ContentType    string    `json:"content_type"`
	ClientName     string    `json:"client_name"`
	Total          string    `json:"total"`
	Method         string    `json:"method"`
	CreatedAt      time.Time `json:"created_at"`
}
