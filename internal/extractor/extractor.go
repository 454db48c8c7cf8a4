package extractor

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type, please upload PDF or DOCX")
	ErrNoText          = errors.New("no text could be extracted from the document")
)

// DetectType resolves the document type from the declared content type,
// falling back to the filename extension when the client sent a generic one.
// The empty string means the type is not supported.
func DetectType(contentType, filename string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case MimePDF, MimeDOCX:
		return mediaType
	case "", "application/octet-stream", "binary/octet-stream":
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".pdf":
			return MimePDF
		case ".docx":
			return MimeDOCX
		}
	}
	return ""
}

// ExtractText converts a PDF or DOCX document into plain text.
func ExtractText(mimeType string, r io.Reader) (string, error) {
	var (
		text string
		err  error
	)

	switch mimeType {
	case MimePDF:
		text, _, err = docconv.ConvertPDF(r)
		if err != nil {
			return "", fmt.Errorf("PDF extraction failed: %w", err)
		}
	case MimeDOCX:
		text, _, err = docconv.ConvertDocx(r)
		if err != nil {
			return "", fmt.Errorf("DOCX extraction failed: %w", err)
		}
	default:
		return "", ErrUnsupportedType
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// ExtractFile is ExtractText for callers holding a filename and a declared
// content type, such as multipart uploads.
func ExtractFile(contentType, filename string, r io.Reader) (string, error) {
	mimeType := DetectType(contentType, filename)
	if mimeType == "" {
		return "", ErrUnsupportedType
	}
	return ExtractText(mimeType, r)
}

// Extractor satisfies the handler's resume parser dependency.
type Extractor struct{}

func (Extractor) ExtractFile(contentType, filename string, r io.Reader) (string, error) {
	return ExtractFile(contentType, filename, r)
}
