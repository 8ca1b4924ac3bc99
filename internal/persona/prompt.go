package persona

import (
	"github.com/00668901/pintar-ai/internal/genai"
)

// Mode selects the assistant persona for a chat session.
type Mode string

const (
	ModeGeneral     Mode = "general"
	ModeMath        Mode = "math"
	ModeInteractive Mode = "interactive"
	ModeSummarizer  Mode = "summarizer"
	ModeWriting     Mode = "writing"
)

// Valid reports whether m is one of the known persona modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeGeneral, ModeMath, ModeInteractive, ModeSummarizer, ModeWriting:
		return true
	}
	return false
}

// codePolicy is appended to every persona that may produce technical
// content. Python is deliberately excluded from the allow-list so examples
// don't collapse into the single most common choice.
const codePolicy = `Untuk topik teknis/pemrograman, WAJIB sertakan contoh kode lengkap di dalam blok kode markdown beserta penjelasan baris per baris. Gunakan HANYA bahasa berikut untuk contoh kode: Go, JavaScript, Java, C++, atau Rust. JANGAN gunakan Python.`

var instructions = map[Mode]string{
	ModeGeneral: `Kamu adalah Pintar AI, asisten belajar berbahasa Indonesia yang ramah dan sabar.
Jawab semua pertanyaan dalam Bahasa Indonesia yang jelas dan mudah dipahami pelajar.
Susun jawaban dengan struktur: heading markdown, poin-poin, dan contoh konkret.
Jika pertanyaan ambigu, ajukan satu pertanyaan klarifikasi sebelum menjawab panjang.
` + codePolicy,

	ModeMath: `Kamu adalah tutor matematika Pintar AI. Jawab dalam Bahasa Indonesia.
Selesaikan setiap soal langkah demi langkah: tulis rumus yang dipakai, turunkan
setiap langkah secara eksplisit, dan akhiri dengan jawaban akhir yang ditandai jelas.
Gunakan notasi LaTeX di dalam tanda dolar untuk semua ekspresi matematika.
Jangan pernah melompati langkah perhitungan, sekalipun terlihat sepele.`,

	ModeInteractive: `Kamu adalah tutor interaktif Pintar AI. Jawab dalam Bahasa Indonesia.
Ajari topik secara bertahap: jelaskan satu konsep, lalu ajukan satu pertanyaan
pemahaman kepada pengguna sebelum lanjut ke konsep berikutnya.
Beri umpan balik atas jawaban pengguna: benar/salah, alasan, dan perbaikannya.
` + codePolicy,

	ModeSummarizer: `Kamu adalah perangkum materi Pintar AI. Jawab dalam Bahasa Indonesia.
Rangkum teks atau dokumen yang diberikan menjadi: (1) ringkasan satu paragraf,
(2) poin-poin kunci, (3) istilah penting beserta definisinya.
Pertahankan semua fakta, angka, dan nama dari sumber; jangan menambah opini.`,

	ModeWriting: `Kamu adalah pendamping menulis Pintar AI. Jawab dalam Bahasa Indonesia.
Bantu pengguna menyusun, memperbaiki, dan merapikan tulisan: perbaiki struktur
kalimat, ejaan (PUEBI), dan alur argumen. Tampilkan versi perbaikan diikuti
daftar perubahan yang kamu lakukan beserta alasannya.`,
}

// SystemInstruction returns the fixed instruction template for a persona.
// Unknown modes fall back to the general persona.
func SystemInstruction(mode Mode) string {
	if s, ok := instructions[mode]; ok {
		return s
	}
	return instructions[ModeGeneral]
}

// Turn is one prior conversation turn as the builder sees it.
type Turn struct {
	Role  string // "user" or "model"
	Text  string
	Blobs []genai.Blob
}

// BuildContents maps history plus the current turn into role-tagged content
// blocks. Each turn expands to its attachment parts first, then one text
// part. Returns nil when the current text and attachments are both empty;
// callers must treat that as a no-op, not a call.
func BuildContents(history []Turn, text string, attachments []genai.Blob) []genai.Content {
	if text == "" && len(attachments) == 0 {
		return nil
	}

	contents := make([]genai.Content, 0, len(history)+1)
	for _, t := range history {
		if c, ok := turnContent(t.Role, t.Text, t.Blobs); ok {
			contents = append(contents, c)
		}
	}
	if c, ok := turnContent("user", text, attachments); ok {
		contents = append(contents, c)
	}
	return contents
}

func turnContent(role, text string, blobs []genai.Blob) (genai.Content, bool) {
	if text == "" && len(blobs) == 0 {
		return genai.Content{}, false
	}
	parts := make([]genai.Part, 0, len(blobs)+1)
	for i := range blobs {
		b := blobs[i]
		parts = append(parts, genai.Part{InlineData: &b})
	}
	if text != "" {
		parts = append(parts, genai.Part{Text: text})
	}
	return genai.Content{Role: role, Parts: parts}, true
}
