package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"facturier/internal/interpret"
	"facturier/internal/scanning"
)

// IDGenerator generates unique IDs for stored uploads
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// methodRules identifies the rule engine in API responses, as opposed to the
// model name of a generative interpreter.
const methodRules = "rules"

// Service processes uploaded documents into archived PDF invoices.
type Service struct {
	db          DB
	recognizer  scanning.Recognizer
	interpreter scanning.Interpreter // nil means rules only
	engine      *interpret.Engine
	uploads     Storage
	invoices    Storage
	sender      Sender
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// interpreter may be nil, in which case every document goes through the rule
// engine directly.
func NewService(db DB, recognizer scanning.Recognizer, interpreter scanning.Interpreter, engine *interpret.Engine, uploads, invoices Storage, sender Sender) *Service {
	return NewServiceWithDeps(db, recognizer, interpreter, engine, uploads, invoices, sender, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer scanning.Recognizer, interpreter scanning.Interpreter, engine *interpret.Engine, uploads, invoices Storage, sender Sender, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		interpreter: interpreter,
		engine:      engine,
		uploads:     uploads,
		invoices:    invoices,
		sender:      sender,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "document"
	}

	return base + ext
}

// ProcessDocument runs the full pipeline over one upload: store the original,
// OCR it, interpret the text, render the PDF and archive the outcome. When a
// generative interpreter is configured it is tried first; any failure there
// falls back to the rule engine instead of failing the request. A requested
// method of "rules" skips the interpreter for that document.
func (s *Service) ProcessDocument(ctx context.Context, filename string, data []byte, contentType, requestedMethod string) (*Result, error) {
	id := s.idGenerator.Generate()

	cleanFilename := sanitizeFilename(filename)
	savedUpload, err := s.uploads.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	text, err := s.recognizer.ExtractText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to extract text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.uploads.Delete(savedUpload)
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	inv, method := s.interpretText(ctx, text, requestedMethod)
	if inv == nil {
		inv, err = s.engine.Interpret(text)
		if err != nil {
			s.uploads.Delete(savedUpload)
			return nil, fmt.Errorf("interpreting text: %w", err)
		}
		method = methodRules
	}

	pdfData, err := Render(inv, s.sender, s.engine.Options().TaxDisplayRate)
	if err != nil {
		return nil, fmt.Errorf("rendering invoice: %w", err)
	}

	pdfFilename := fmt.Sprintf("invoice_%s.pdf", strings.TrimPrefix(inv.Number, "INV-"))
	savedPDF, err := s.invoices.Save(pdfFilename, pdfData)
	if err != nil {
		return nil, fmt.Errorf("saving invoice pdf: %w", err)
	}

	doc := &Document{
		Number:         inv.Number,
		PDFFilename:    savedPDF,
		UploadFilename: savedUpload,
		ContentType:    contentType,
		ClientName:     inv.ClientName,
		Total:          inv.Total.StringFixed(2),
		Method:         method,
		CreatedAt:      s.timeSource.Now(),
	}
	if err := s.db.SaveDocument(doc); err != nil {
		s.invoices.Delete(savedPDF)
		return nil, fmt.Errorf("archiving invoice: %w", err)
	}

	return &Result{
		Invoice:       inv,
		ExtractedText: text,
		Method:        method,
		PDFFilename:   savedPDF,
		PDF:           pdfData,
	}, nil
}

// interpretText tries the generative interpreter. A nil invoice means the
// caller should use the rule engine.
func (s *Service) interpretText(ctx context.Context, text, requestedMethod string) (*interpret.Invoice, string) {
	if s.interpreter == nil || requestedMethod == methodRules {
		return nil, ""
	}

	cand, err := s.interpreter.Interpret(ctx, text)
	if err != nil {
		slog.Warn("Interpreter failed, falling back to rules",
			"model", s.interpreter.Model(),
			"error", err,
		)
		return nil, ""
	}

	inv, err := s.engine.Normalize(cand)
	if err != nil {
		slog.Warn("Interpreter candidate rejected, falling back to rules",
			"model", s.interpreter.Model(),
			"error", err,
		)
		return nil, ""
	}
	return inv, s.interpreter.Model()
}

// GetInvoicePDF retrieves an archived invoice PDF by invoice number.
func (s *Service) GetInvoicePDF(number string) ([]byte, string, error) {
	doc, err := s.db.GetDocument(number)
	if err != nil {
		return nil, "", fmt.Errorf("getting document: %w", err)
	}

	data, err := s.invoices.Get(doc.PDFFilename)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice pdf: %w", err)
	}

	return data, doc.PDFFilename, nil
}

// InterpreterModel reports the configured generative model, or "" when the
// service runs rules only.
func (s *Service) InterpreterModel() string {
	if s.interpreter == nil {
		return ""
	}
	return s.interpreter.Model()
}
