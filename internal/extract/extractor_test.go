package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func docxBytes(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestText_PlainPassthrough(t *testing.T) {
	got := Text([]byte("  catatan biologi bab 2  \n"), "catatan.txt")
	if got != "catatan biologi bab 2" {
		t.Errorf("Text = %q", got)
	}
}

func TestText_EmptyInput(t *testing.T) {
	if got := Text(nil, "apa.txt"); got != "" {
		t.Errorf("Text(nil) = %q, want empty", got)
	}
}

func TestText_BinaryGarbage(t *testing.T) {
	if got := Text([]byte{0xff, 0xfe, 0x00, 0x81}, "file.bin"); got != "" {
		t.Errorf("non-UTF8 blob yielded %q, want empty", got)
	}
}

func TestText_Docx(t *testing.T) {
	data := docxBytes(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Bab Satu.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Bab Dua.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	got := Text(data, "materi.docx")
	if !strings.Contains(got, "Bab Satu.") || !strings.Contains(got, "Bab Dua.") {
		t.Errorf("docx text = %q", got)
	}
	// Paragraph boundary must survive as a line break.
	if !strings.Contains(got, "Bab Satu.\n") {
		t.Errorf("missing paragraph separator in %q", got)
	}
}

func TestText_DocxSniffedWithoutName(t *testing.T) {
	data := docxBytes(t, `<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>isi</w:t></w:r></w:p></w:body></w:document>`)
	if got := Text(data, ""); got != "isi" {
		t.Errorf("sniffed docx = %q", got)
	}
}

func TestText_CorruptDocx(t *testing.T) {
	if got := Text([]byte("PK\x03\x04 not actually a zip"), "materi.docx"); got != "" {
		t.Errorf("corrupt docx yielded %q, want empty", got)
	}
}

func TestText_HTML(t *testing.T) {
	html := `<!DOCTYPE html><html><head><style>body{color:red}</style></head>
<body><h1>Fotosintesis</h1><p>Proses pada   tumbuhan.</p><script>alert(1)</script></body></html>`

	got := Text([]byte(html), "materi.html")
	if got != "Fotosintesis Proses pada tumbuhan." {
		t.Errorf("html text = %q", got)
	}
}

func TestText_CorruptPDF(t *testing.T) {
	if got := Text([]byte("%PDF-1.7 truncated"), "materi.pdf"); got != "" {
		t.Errorf("corrupt pdf yielded %q, want empty", got)
	}
}
