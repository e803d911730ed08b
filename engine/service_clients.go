package engine

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// ServiceClients holds the HTTP client for the PDF rasterizer sidecar
type ServiceClients struct {
	PDFURL     string
	HTTPClient *http.Client
}

// NewServiceClients creates a new service client manager
func NewServiceClients(pdfURL string) *ServiceClients {
	return &ServiceClients{
		PDFURL: pdfURL,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// PDFPageCountResponse represents the response from the page count endpoint
type PDFPageCountResponse struct {
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// PDFRenderResponse represents the response from full document rendering,
// one base64 encoded PNG per page in page order
type PDFRenderResponse struct {
	Pages []string `json:"pages"`
	Error string   `json:"error,omitempty"`
}

// postPDF uploads a PDF as multipart form data and returns the response body
func (sc *ServiceClients) postPDF(endpoint, pdfPath string) ([]byte, error) {
	file, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("pdf", filepath.Base(pdfPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = io.Copy(part, file)
	if err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	url := fmt.Sprintf("%s%s", sc.PDFURL, endpoint)
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := sc.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call PDF service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF service response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PDF service returned error status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// CallPDFPageCount asks the sidecar how many pages a PDF has
func (sc *ServiceClients) CallPDFPageCount(pdfPath string) (int, error) {
	respBody, err := sc.postPDF("/pdf/page-count", pdfPath)
	if err != nil {
		return 0, err
	}

	var countResp PDFPageCountResponse
	if err := json.Unmarshal(respBody, &countResp); err != nil {
		return 0, fmt.Errorf("failed to decode page count response: %w", err)
	}
	if countResp.Error != "" {
		return 0, fmt.Errorf("PDF service error: %s", countResp.Error)
	}
	return countResp.Pages, nil
}

// CallPDFRender asks the sidecar to rasterize every page and decodes the
// returned PNGs in page order
func (sc *ServiceClients) CallPDFRender(pdfPath string) ([]image.Image, error) {
	respBody, err := sc.postPDF("/pdf/render", pdfPath)
	if err != nil {
		return nil, err
	}

	var renderResp PDFRenderResponse
	if err := json.Unmarshal(respBody, &renderResp); err != nil {
		return nil, fmt.Errorf("failed to decode render response: %w", err)
	}
	if renderResp.Error != "" {
		return nil, fmt.Errorf("PDF service error: %s", renderResp.Error)
	}
	if len(renderResp.Pages) == 0 {
		return nil, fmt.Errorf("PDF service returned no pages")
	}

	rasters := make([]image.Image, 0, len(renderResp.Pages))
	for i, encoded := range renderResp.Pages {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 page %d: %w", i+1, err)
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode page image %d: %w", i+1, err)
		}
		rasters = append(rasters, img)
	}
	return rasters, nil
}
