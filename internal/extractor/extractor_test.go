package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectType(t *testing.T) {
	cases := []struct {
		contentType string
		filename    string
		want        string
	}{
		{"application/pdf", "resume.pdf", MimePDF},
		{"application/pdf; charset=binary", "resume", MimePDF},
		{MimeDOCX, "cv.docx", MimeDOCX},
		{"APPLICATION/PDF", "x", MimePDF},
		{"application/octet-stream", "cv.DOCX", MimeDOCX},
		{"", "resume.pdf", MimePDF},
		{"application/octet-stream", "resume.txt", ""},
		{"text/plain", "resume.pdf", ""},
		{"application/msword", "resume.doc", ""},
		{"image/png", "scan.png", ""},
	}

	for _, tc := range cases {
		t.Run(tc.contentType+"|"+tc.filename, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectType(tc.contentType, tc.filename))
		})
	}
}

func TestExtractFileRejectsUnsupportedTypes(t *testing.T) {
	_, err := ExtractFile("text/plain", "resume.txt", strings.NewReader("Python"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ExtractText("image/png", strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractTextInvalidDocx(t *testing.T) {
	_, err := ExtractText(MimeDOCX, strings.NewReader("definitely not a zip archive"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedType)
}
