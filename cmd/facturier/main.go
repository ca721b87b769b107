package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"facturier/internal/interpret"
	"facturier/internal/invoice"
	"facturier/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("facturier")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "facturier.db", "Database file path")
		uploadsPath   = fs.StringLong("uploads", "./uploads", "Directory for uploaded documents")
		invoicesPath  = fs.StringLong("invoices", "./invoices", "Directory for generated invoice PDFs")
		interpType    = fs.StringLong("interpreter", "none", "Generative interpreter: 'none', 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.0-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llama3.2:1b", "Ollama model name")
		tesseractBin  = fs.StringLong("tesseract", "tesseract", "Path to the tesseract binary")
		tesseractLang = fs.StringLong("tesseract-lang", "fra+eng", "Tesseract language packs")
		unitPrice     = fs.StringLong("unit-price", "250", "Default unit price for product lines without a stated price")
		taxRate       = fs.StringLong("tax-rate", "0.20", "VAT rate shown on invoices (display only)")
		senderName    = fs.StringLong("sender-name", "", "Sender name printed on invoices")
		senderPhone   = fs.StringLong("sender-phone", "", "Sender phone printed on invoices")
		senderEmail   = fs.StringLong("sender-email", "", "Sender email printed on invoices")
		senderWebsite = fs.StringLong("sender-website", "", "Sender website printed on invoices")
		senderAddress = fs.StringLong("sender-address", "", "Sender address printed on invoices")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FACTURIER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	opts := interpret.DefaultOptions()
	if price, err := decimal.NewFromString(*unitPrice); err == nil && price.IsPositive() {
		opts.DefaultUnitPrice = price
	} else {
		slog.Error("Invalid unit price", "value", *unitPrice)
		os.Exit(1)
	}
	if rate, err := decimal.NewFromString(*taxRate); err == nil && !rate.IsNegative() {
		opts.TaxDisplayRate = rate
	} else {
		slog.Error("Invalid tax rate", "value", *taxRate)
		os.Exit(1)
	}
	engine := interpret.New(opts)

	// Initialize database
	slog.Info("Initializing database...")
	db, err := invoice.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize the generative interpreter, if any
	var interpreter scanning.Interpreter
	switch *interpType {
	case "none", "":
		slog.Info("No generative interpreter configured, using rules only")
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini interpreter...", "model", *geminiModel)
		interpreter, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama interpreter...", "url", *ollamaURL, "model", *ollamaModel)
		interpreter, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid interpreter type", "type", *interpType, "valid", "none, gemini or ollama")
		os.Exit(1)
	}
	if interpreter != nil {
		defer interpreter.Close()
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	uploads, err := invoice.NewLocalStorage(*uploadsPath)
	if err != nil {
		slog.Error("Failed to initialize upload storage", "error", err)
		os.Exit(1)
	}
	invoices, err := invoice.NewLocalStorage(*invoicesPath)
	if err != nil {
		slog.Error("Failed to initialize invoice storage", "error", err)
		os.Exit(1)
	}

	recognizer := scanning.NewTesseract(*tesseractBin, *tesseractLang)

	sender := invoice.DefaultSender()
	if *senderName != "" {
		sender.Name = *senderName
	}
	if *senderPhone != "" {
		sender.Phone = *senderPhone
	}
	if *senderEmail != "" {
		sender.Email = *senderEmail
	}
	if *senderWebsite != "" {
		sender.Website = *senderWebsite
	}
	if *senderAddress != "" {
		sender.Address = *senderAddress
	}

	service := invoice.NewService(db, recognizer, interpreter, engine, uploads, invoices, sender)
	server := invoice.NewServer(service)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
