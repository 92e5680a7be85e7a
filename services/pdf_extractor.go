package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"pdf-insight-backend/internal/logger"
)

// TextExtractor turns a PDF file into page-delimited text. The index only
// depends on this interface; tests substitute a fake.
type TextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// PDFExtractor extracts text with the pure-Go reader first and falls back to
// poppler's pdftotext when the result looks corrupted. Pages are joined with
// form-feed markers so the sectionizer can derive page hints.
type PDFExtractor struct {
	maxFileSize int64
}

// NewPDFExtractor creates an extractor. maxFileSize caps in-memory reads;
// zero means the default 200MB.
func NewPDFExtractor(maxFileSize int64) *PDFExtractor {
	if maxFileSize <= 0 {
		maxFileSize = 200 << 20
	}
	return &PDFExtractor{maxFileSize: maxFileSize}
}

// ExtractText returns the document text with pages separated by "\f".
// A PDF with no readable text yields ErrNoExtractableText.
func (e *PDFExtractor) ExtractText(ctx context.Context, filePath string) (string, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > e.maxFileSize {
		return "", fmt.Errorf("pdf too large for in-memory extraction (%d bytes)", stat.Size())
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF file: %w", err)
	}

	text, err := e.extractWithGoPDF(content)
	if err != nil || textQuality(text) < 0.5 {
		if popplerText, perr := e.extractWithPoppler(ctx, content); perr == nil && textQuality(popplerText) > textQuality(text) {
			text = popplerText
			err = nil
		}
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(strings.ReplaceAll(text, pageSeparator, "")) == "" {
		return "", ErrNoExtractableText
	}
	return text, nil
}

// extractWithGoPDF uses the Go PDF library for extraction
func (e *PDFExtractor) extractWithGoPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract page text", "page", i, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	joined := strings.Join(pages, pageSeparator)
	if strings.TrimSpace(strings.ReplaceAll(joined, pageSeparator, "")) == "" {
		return "", ErrNoExtractableText
	}
	return joined, nil
}

// extractWithPoppler shells out to pdftotext, which already emits form feeds
// between pages.
func (e *PDFExtractor) extractWithPoppler(ctx context.Context, content []byte) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not available")
	}

	extractCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(extractCtx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return "", ErrNoExtractableText
	}
	return stdout.String(), nil
}

// textQuality scores extracted text between 0 and 1 from the ratio of
// alphanumeric and printable runes to replacement characters. Used to decide
// whether the poppler fallback beats the pure-Go extraction.
func textQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return 0.0
	}

	var alphanumeric, printable, corrupted int
	total := 0
	for _, r := range text {
		total++
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			alphanumeric++
			printable++
		case r == ' ' || r == '\n' || r == '\t' || r == '\f':
			printable++
		case r == '�':
			corrupted++
		case r >= 32:
			printable++
		}
	}

	score := float64(printable)/float64(total)*0.5 - float64(corrupted)/float64(total)*2.0
	if ratio := float64(alphanumeric) / float64(total); ratio >= 0.3 {
		score += 0.5
	} else {
		score += ratio
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
