package quiz

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"
	"github.com/tailscale/hujson"
)

// mcqEntry and essayEntry mirror the two arrays the model is asked to emit.
// The jsonschema tags feed the derived responseSchema sent with the request;
// the schema is requested, never guaranteed, so no field is assumed present.
type mcqEntry struct {
	Question    string   `json:"question" jsonschema:"description=Teks soal pilihan ganda"`
	Options     []string `json:"options" jsonschema:"description=Empat pilihan jawaban"`
	Answer      string   `json:"answer" jsonschema:"description=Jawaban benar, harus sama persis dengan salah satu options"`
	Explanation string   `json:"explanation" jsonschema:"description=Penjelasan mengapa jawaban itu benar"`
}

type essayEntry struct {
	Question    string `json:"question" jsonschema:"description=Teks soal esai atau lengkapi-kode"`
	Answer      string `json:"answer" jsonschema:"description=Poin-poin kunci jawaban yang diharapkan"`
	Explanation string `json:"explanation" jsonschema:"description=Penjelasan tambahan untuk belajar"`
}

type payload struct {
	MCQQuestions   []mcqEntry   `json:"mcq_questions"`
	EssayQuestions []essayEntry `json:"essay_questions"`
}

// ParsePayload recovers quiz questions from raw model text expected to
// contain JSON. Recovery is staged, short-circuiting on first success:
//
//  1. lenient parse of the text as-is (trailing commas and comments are
//     tolerated),
//  2. strip markdown code fences and retry,
//  3. give up and return an empty set.
//
// It never returns an error: malformed model output degrades to no quiz.
func ParsePayload(raw string) []Question {
	if p, ok := decodePayload(raw); ok {
		return mapQuestions(p)
	}
	if p, ok := decodePayload(stripFences(raw)); ok {
		return mapQuestions(p)
	}
	return []Question{}
}

func decodePayload(raw string) (payload, bool) {
	var p payload
	std, err := hujson.Standardize([]byte(strings.TrimSpace(raw)))
	if err != nil {
		return p, false
	}
	if err := json.Unmarshal(std, &p); err != nil {
		return p, false
	}
	return p, true
}

// stripFences removes a leading ``` or ```json fence line and a trailing
// ``` fence line. Anything that is not fenced passes through unchanged.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// mapQuestions converts the decoded payload into tagged questions, MCQ
// first, then essays. Missing arrays come through as empty, never nil
// propagation. MCQ entries are checked against the answer-in-options
// invariant: a non-conforming answer is repaired when exactly one option
// matches after whitespace/case normalization, otherwise the entry is
// dropped as unscoreable.
func mapQuestions(p payload) []Question {
	questions := make([]Question, 0, len(p.MCQQuestions)+len(p.EssayQuestions))

	for _, e := range p.MCQQuestions {
		if e.Question == "" || len(e.Options) == 0 {
			continue
		}
		answer, ok := conformAnswer(e.Answer, e.Options)
		if !ok {
			continue
		}
		questions = append(questions, Question{
			Kind:        MultipleChoice,
			Question:    e.Question,
			Options:     e.Options,
			Answer:      answer,
			Explanation: e.Explanation,
		})
	}

	for _, e := range p.EssayQuestions {
		if e.Question == "" {
			continue
		}
		questions = append(questions, Question{
			Kind:        Essay,
			Question:    e.Question,
			Options:     []string{},
			Answer:      e.Answer,
			Explanation: e.Explanation,
		})
	}

	return questions
}

func conformAnswer(answer string, options []string) (string, bool) {
	if lo.Contains(options, answer) {
		return answer, true
	}
	matches := lo.Filter(options, func(o string, _ int) bool {
		return strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(answer))
	})
	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}
