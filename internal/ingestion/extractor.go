// Package ingestion converts uploaded resume documents (PDF, Word, HTML, plain text) into plain text.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a supported document format
type Format string

// Supported formats
const (
	FormatPDF     Format = "pdf"
	FormatWord    Format = "word"
	FormatHTML    Format = "html"
	FormatText    Format = "text"
	FormatUnknown Format = "unknown"
)

// MIME types accepted by the upload endpoint
const (
	MIMEPDF     = "application/pdf"
	MIMEDocx    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEDoc     = "application/msword"
	MIMEText    = "text/plain"
	MIMEHTML    = "text/html"
	MIMEXHTML   = "application/xhtml+xml"
	MIMEUnknown = "application/octet-stream"
)

// AllowedMIMETypes lists the declared content types accepted for upload
var AllowedMIMETypes = []string{MIMEPDF, MIMEDocx, MIMEDoc, MIMEText, MIMEHTML}

// AllowedExtensions lists the filename extensions accepted for upload
var AllowedExtensions = []string{".pdf", ".docx", ".doc", ".txt", ".html", ".htm"}

// Document is an uploaded file as received from the caller
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the document size in bytes
func (d Document) Size() int64 {
	return int64(len(d.Data))
}

// ContentHash returns the SHA-256 hex digest of the document bytes
func (d Document) ContentHash() string {
	sum := sha256.Sum256(d.Data)
	return hex.EncodeToString(sum[:])
}

// Extractor converts the bytes of one document format into text
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

// Extract calls f
func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// DetectFormat picks a format from the declared MIME type, falling back to the filename extension.
func DetectFormat(mimeType, name string) Format {
	mimeType = mediaType(mimeType)

	switch {
	case mimeType == MIMEPDF:
		return FormatPDF
	case strings.Contains(mimeType, "word"):
		return FormatWord
	case mimeType == MIMEHTML || mimeType == MIMEXHTML:
		return FormatHTML
	case mimeType == MIMEText:
		return FormatText
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatWord
	case ".html", ".htm":
		return FormatHTML
	case ".txt":
		return FormatText
	}

	return FormatUnknown
}

// IsAllowed reports whether a declared MIME type or filename is in the upload allow-list
func IsAllowed(mimeType, name string) bool {
	mimeType = mediaType(mimeType)
	for _, allowed := range AllowedMIMETypes {
		if mimeType == allowed {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// mediaType lowercases a MIME type and drops any parameters such as charset
func mediaType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

// Registry routes documents to the extractor for their format
type Registry struct {
	extractors map[Format]Extractor
}

// NewRegistry returns a registry with the PDF, Word, HTML and plain text extractors installed
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[Format]Extractor)}
	r.Register(FormatPDF, ExtractorFunc(ExtractPDF))
	r.Register(FormatWord, ExtractorFunc(ExtractWord))
	r.Register(FormatHTML, ExtractorFunc(ExtractHTML))
	r.Register(FormatText, ExtractorFunc(ExtractPlainText))
	return r
}

// Register installs or replaces the extractor for a format
func (r *Registry) Register(format Format, extractor Extractor) {
	r.extractors[format] = extractor
}

// Extract converts a document to text. Failures are returned as
// *UnsupportedFormatError or *ExtractionError; no text is fabricated on failure.
func (r *Registry) Extract(ctx context.Context, doc Document) (string, error) {
	format := DetectFormat(doc.MIMEType, doc.Name)
	extractor, ok := r.extractors[format]
	if !ok {
		return "", &UnsupportedFormatError{MIMEType: doc.MIMEType, Name: doc.Name}
	}

	text, err := safeExtract(ctx, extractor, doc.Data)
	if err != nil {
		return "", &ExtractionError{Format: format, Name: doc.Name, Cause: err}
	}
	return text, nil
}

// safeExtract converts decoder panics on corrupt input into errors
func safeExtract(ctx context.Context, extractor Extractor, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return extractor.Extract(ctx, data)
}
