// Package extract scrapes plain text out of uploaded study material.
// Everything here is best-effort: a blob that cannot be read yields an
// empty string, never an error that would block note creation.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// Text extracts readable text from data. The format is decided by the
// declared file name or MIME type first, then by content sniffing.
func Text(data []byte, nameOrMIME string) string {
	if len(data) == 0 {
		return ""
	}

	switch kind(data, nameOrMIME) {
	case "pdf":
		return pdfText(data)
	case "docx":
		return docxText(data)
	case "html":
		return htmlText(data)
	default:
		if utf8.Valid(data) {
			return strings.TrimSpace(string(data))
		}
		return ""
	}
}

func kind(data []byte, nameOrMIME string) string {
	hint := strings.ToLower(nameOrMIME)
	switch {
	case strings.HasSuffix(hint, ".pdf") || strings.Contains(hint, "application/pdf"):
		return "pdf"
	case strings.HasSuffix(hint, ".docx") || strings.Contains(hint, "officedocument.wordprocessingml"):
		return "docx"
	case strings.HasSuffix(hint, ".html") || strings.HasSuffix(hint, ".htm") || strings.Contains(hint, "text/html"):
		return "html"
	}

	// No usable hint; sniff the payload.
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return "pdf"
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return "docx"
	case looksLikeHTML(data):
		return "html"
	}
	return ""
}

func looksLikeHTML(data []byte) bool {
	head := strings.ToLower(string(data[:min(len(data), 256)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

func pdfText(data []byte) string {
	defer func() { recover() }() // the pdf reader panics on some damaged files

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	rc, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	text, err := io.ReadAll(rc)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(text))
}

// docxText pulls the paragraph text out of word/document.xml. Runs within a
// paragraph concatenate; paragraphs are separated by newlines.
func docxText(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return ""
	}

	rc, err := doc.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func htmlText(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
