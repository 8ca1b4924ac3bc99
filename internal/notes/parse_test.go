package notes

import (
	"strings"
	"testing"
)

func TestParseContent_MarkerFirstLine(t *testing.T) {
	title, body := ParseContent("JUDUL: Fotosintesis\nIsi bab satu...")
	if title != "Fotosintesis" {
		t.Errorf("title = %q, want Fotosintesis", title)
	}
	if body != "Isi bab satu..." {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(body, "JUDUL") {
		t.Error("marker line leaked into body")
	}
}

func TestParseContent_MarkerCaseInsensitive(t *testing.T) {
	title, body := ParseContent("judul: Sistem Tata Surya\n\n# Pendahuluan\nPlanet...")
	if title != "Sistem Tata Surya" {
		t.Errorf("title = %q", title)
	}
	if !strings.HasPrefix(body, "# Pendahuluan") {
		t.Errorf("body = %q", body)
	}
}

func TestParseContent_NoMarker(t *testing.T) {
	raw := "# Bab Satu\nIsi tanpa judul."
	title, body := ParseContent(raw)
	if title != PlaceholderTitle {
		t.Errorf("title = %q, want placeholder", title)
	}
	if body != raw {
		t.Errorf("body modified: %q", body)
	}
}

func TestParseContent_MarkerNotOnFirstLine(t *testing.T) {
	// Some generations lead with a blank line or fence remnant; the first
	// marker-carrying line still names the title and only it is stripped.
	title, body := ParseContent("\nJUDUL: Aljabar Linear\nMatriks adalah...")
	if title != "Aljabar Linear" {
		t.Errorf("title = %q", title)
	}
	if body != "Matriks adalah..." {
		t.Errorf("body = %q", body)
	}
}

func TestParseContent_EmptyTitleAfterMarker(t *testing.T) {
	title, body := ParseContent("JUDUL:\nIsi saja.")
	if title != PlaceholderTitle {
		t.Errorf("title = %q, want placeholder", title)
	}
	if body != "Isi saja." {
		t.Errorf("body = %q", body)
	}
}

func TestParseContent_MarkerInBodyNotStrippedTwice(t *testing.T) {
	raw := "JUDUL: Satu\nisi\nJUDUL: Dua\nlanjut"
	title, body := ParseContent(raw)
	if title != "Satu" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(body, "JUDUL: Dua") {
		t.Errorf("second marker line must survive in body: %q", body)
	}
}
