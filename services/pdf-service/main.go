package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// renderDPI matches the in-process renderer. PDF pages are laid out in
// 72-unit points, so 150 DPI gives a 150/72 (~2.08x) scale.
const renderDPI = 150

type PageCountResponse struct {
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

type RenderResponse struct {
	Pages []string `json:"pages"` // base64 encoded PNGs in page order
	Error string   `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8002"
	}

	log.Printf("Starting PDF service on port %s", port)

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/pdf/page-count", pageCountHandler)
	http.HandleFunc("/pdf/render", renderHandler)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// readUploadedPDF pulls the "pdf" multipart field out of the request
func readUploadedPDF(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	// Parse multipart form
	err := r.ParseMultipartForm(64 << 20) // 64MB max
	if err != nil {
		sendErrorResponse(w, "Failed to parse form", http.StatusBadRequest)
		return nil, "", false
	}

	// Get the file from the form
	file, header, err := r.FormFile("pdf")
	if err != nil {
		sendErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	pdfData, err := io.ReadAll(file)
	if err != nil {
		sendErrorResponse(w, "Failed to read PDF file", http.StatusInternalServerError)
		return nil, "", false
	}

	return pdfData, header.Filename, true
}

func pageCountHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pdfData, filename, ok := readUploadedPDF(w, r)
	if !ok {
		return
	}

	log.Printf("Processing page count for file: %s", filename)

	pages, err := countPages(pdfData)
	if err != nil {
		log.Printf("Page count error: %v", err)
		sendErrorResponse(w, fmt.Sprintf("Page count failed: %v", err), http.StatusInternalServerError)
		return
	}

	response := PageCountResponse{
		Pages: pages,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func renderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pdfData, filename, ok := readUploadedPDF(w, r)
	if !ok {
		return
	}

	log.Printf("Processing full render for file: %s", filename)

	pages, err := renderPages(pdfData)
	if err != nil {
		log.Printf("Render error: %v", err)
		sendErrorResponse(w, fmt.Sprintf("Render failed: %v", err), http.StatusInternalServerError)
		return
	}

	response := RenderResponse{
		Pages: pages,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func countPages(pdfData []byte) (int, error) {
	reader := bytes.NewReader(pdfData)

	pdfReader, err := pdf.NewReader(reader, int64(len(pdfData)))
	if err != nil {
		return 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	return pdfReader.NumPage(), nil
}

func renderPages(pdfData []byte) ([]string, error) {
	// Create a temporary file for the PDF
	tempFile, err := os.CreateTemp("", "pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	// Write PDF data to temp file
	if _, err := tempFile.Write(pdfData); err != nil {
		return nil, fmt.Errorf("failed to write PDF to temp file: %w", err)
	}
	tempFile.Close()

	// Open PDF with go-fitz
	doc, err := fitz.New(tempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	// Render pages one at a time so memory stays bounded on large documents
	pages := make([]string, 0, numPages)
	for pageNum := 0; pageNum < numPages; pageNum++ {
		img, err := doc.ImageDPI(pageNum, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", pageNum, err)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", pageNum, err)
		}

		pages = append(pages, base64.StdEncoding.EncodeToString(buf.Bytes()))
	}

	return pages, nil
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{
		"error": message,
	}
	json.NewEncoder(w).Encode(response)
}
