package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var errNoOCR = errors.New("tesseract not installed")

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		recognizer  *mockRecognizer
		service     *Service
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		recognizer = &mockRecognizer{text: "Nom: Jean Dupont\n2 iPhone 14"}
		service = NewServiceWithDeps(db, recognizer, nil, newTestEngine(), newMockStorage(), newMockStorage(), DefaultSender(),
			&mockIDGenerator{id: "fixed-id"}, &mockTimeSource{t: testTime})
		server = NewServerWithMux(service, http.NewServeMux())

		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	uploadDocument := func(field string) *http.Response {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile(field, "commande.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("fake image bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghttpServer.URL()+"/api/invoices", writer.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("handleIndex", func() {
		It("serves the HTML interface", func() {
			resp, err := http.Get(ghttpServer.URL() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("Facturier"))
		})
	})

	Describe("handleStatus", func() {
		It("reports rules-only extraction by default", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/status")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var status map[string]interface{}
			Expect(json.NewDecoder(resp.Body).Decode(&status)).To(Succeed())
			Expect(status["interpreter_available"]).To(BeFalse())
			Expect(status["method"]).To(Equal("rules"))
		})

		When("an interpreter is configured", func() {
			BeforeEach(func() {
				interpreter := &mockInterpreter{model: "llama3.2:1b"}
				service = NewServiceWithDeps(db, recognizer, interpreter, newTestEngine(), newMockStorage(), newMockStorage(), DefaultSender(),
					&mockIDGenerator{id: "fixed-id"}, &mockTimeSource{t: testTime})
				server = NewServerWithMux(service, http.NewServeMux())
				ghttpServer.Close()
				ghttpServer = ghttp.NewServer()
				ghttpServer.AppendHandlers(server.ServeHTTP)
			})

			It("reports the model", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/status")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				var status map[string]interface{}
				Expect(json.NewDecoder(resp.Body).Decode(&status)).To(Succeed())
				Expect(status["interpreter_available"]).To(BeTrue())
				Expect(status["model"]).To(Equal("llama3.2:1b"))
			})
		})
	})

	Describe("handleProcessDocument", func() {
		When("a document is uploaded in the image field", func() {
			It("returns the invoice and PDF", func() {
				resp := uploadDocument("image")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var result struct {
					Invoice struct {
						Number     string `json:"invoice_number"`
						ClientName string `json:"client_name"`
					} `json:"invoice_data"`
					Method      string `json:"method_used"`
					PDFFilename string `json:"pdf_filename"`
					PDF         []byte `json:"pdf_base64"`
				}
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result.Invoice.Number).To(Equal("INV-20250314093000"))
				Expect(result.Invoice.ClientName).To(Equal("Jean Dupont"))
				Expect(result.Method).To(Equal("rules"))
				Expect(result.PDFFilename).To(Equal("invoice_20250314093000.pdf"))
				Expect(string(result.PDF[:5])).To(Equal("%PDF-"))
			})
		})

		When("the legacy file field is used", func() {
			It("still accepts the upload", func() {
				resp := uploadDocument("file")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			})
		})

		When("no file is attached", func() {
			It("returns a JSON error", func() {
				var body bytes.Buffer
				writer := multipart.NewWriter(&body)
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/invoices", writer.FormDataContentType(), &body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var errResp map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&errResp)).To(Succeed())
				Expect(errResp["error"]).NotTo(BeEmpty())
			})
		})

		When("the request asks for the rules method", func() {
			var interpreter *mockInterpreter

			BeforeEach(func() {
				interpreter = &mockInterpreter{model: "llama3.2:1b"}
				service = NewServiceWithDeps(db, recognizer, interpreter, newTestEngine(), newMockStorage(), newMockStorage(), DefaultSender(),
					&mockIDGenerator{id: "fixed-id"}, &mockTimeSource{t: testTime})
				server = NewServerWithMux(service, http.NewServeMux())
				ghttpServer.Close()
				ghttpServer = ghttp.NewServer()
				ghttpServer.AppendHandlers(server.ServeHTTP)
			})

			It("bypasses the configured interpreter", func() {
				var body bytes.Buffer
				writer := multipart.NewWriter(&body)
				Expect(writer.WriteField("method", "rules")).To(Succeed())
				part, err := writer.CreateFormFile("image", "commande.jpg")
				Expect(err).NotTo(HaveOccurred())
				_, err = part.Write([]byte("fake image bytes"))
				Expect(err).NotTo(HaveOccurred())
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/invoices", writer.FormDataContentType(), &body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var result struct {
					Method string `json:"method_used"`
				}
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result.Method).To(Equal("rules"))
				Expect(interpreter.calls).To(BeZero())
			})
		})

		When("text extraction fails", func() {
			BeforeEach(func() {
				recognizer.err = errNoOCR
			})

			It("returns a server error", func() {
				resp := uploadDocument("image")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})

		When("processing fails", func() {
			BeforeEach(func() {
				recognizer.text = ""
			})

			It("returns the error as JSON", func() {
				resp := uploadDocument("image")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var errResp map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&errResp)).To(Succeed())
				Expect(errResp["error"]).To(ContainSubstring("interpreting text"))
			})
		})
	})

	Describe("handleDownloadInvoice", func() {
		When("the invoice was processed", func() {
			It("serves the archived PDF", func() {
				resp := uploadDocument("image")
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				resp, err := http.Get(ghttpServer.URL() + "/api/invoices/INV-20250314093000/pdf")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))

				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body[:5])).To(Equal("%PDF-"))
			})
		})

		When("the invoice is unknown", func() {
			It("returns not found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/invoices/INV-nope/pdf")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})
})
