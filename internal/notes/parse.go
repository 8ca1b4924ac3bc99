package notes

import (
	"strings"
)

// TitleMarker prefixes the title line in generated note content. The content
// phase deliberately asks for this convention instead of JSON: large
// structured payloads were the main truncation source, and a one-line marker
// is cheap to emit and cheap to repair around.
const TitleMarker = "JUDUL:"

// PlaceholderTitle is used when generated content carries no marker line.
const PlaceholderTitle = "Catatan Tanpa Judul"

// ParseContent splits raw generated text into a title and a markdown body.
// The first line carrying the marker prefix (case-insensitive) names the
// title and exactly that line is removed from the body, so the title never
// duplicates into the rendered content. Without a marker the whole input
// becomes the body under the placeholder title.
func ParseContent(raw string) (title, body string) {
	lines := strings.Split(raw, "\n")
	markerIdx := -1

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) >= len(TitleMarker) && strings.EqualFold(trimmed[:len(TitleMarker)], TitleMarker) {
			title = strings.TrimSpace(trimmed[len(TitleMarker):])
			markerIdx = i
			break
		}
	}

	if markerIdx < 0 {
		return PlaceholderTitle, raw
	}
	if title == "" {
		title = PlaceholderTitle
	}

	rest := append(append([]string{}, lines[:markerIdx]...), lines[markerIdx+1:]...)
	body = strings.TrimLeft(strings.Join(rest, "\n"), "\n")
	return title, body
}
