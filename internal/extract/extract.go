package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF   = "application/pdf"
	mimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePlain = "text/plain"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// Text extracts plain text from an uploaded resume file. PDF, DOCX, and
// plain text are supported; anything else is rejected up front so the
// caller can report a clean validation error.
func Text(data []byte, mimeType, fileName string) (string, error) {
	switch normalizeMimeType(mimeType, fileName, data) {
	case mimePDF:
		return fromPDF(data)
	case mimeDOCX:
		return fromDOCX(data)
	case mimePlain:
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func fromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func fromDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx payload")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return stripDocxXML(string(raw)), nil
	}
	return "", errors.New("document.xml not found in docx")
}

// stripDocxXML flattens WordprocessingML to text, inserting newlines at
// paragraph and line-break boundaries.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// normalizeMimeType resolves the generic application/zip mime that
// browsers report for OOXML files, and falls back to the file extension
// when content sniffing is inconclusive.
func normalizeMimeType(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case "application/zip", "application/octet-stream", "":
	default:
		return clean
	}

	if isOOXMLWordDoc(data) {
		return mimeDOCX
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".docx":
		return mimeDOCX
	case ".pdf":
		return mimePDF
	case ".txt":
		return mimePlain
	default:
		return clean
	}
}

func isOOXMLWordDoc(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
