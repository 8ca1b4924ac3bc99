// Package quiz generates and scores study quizzes from note content.
package quiz

// Kind distinguishes the two question families.
type Kind string

const (
	MultipleChoice Kind = "multiple_choice"
	Essay          Kind = "essay"
)

// Question is one quiz entry. For multiple-choice entries Answer must equal
// one element of Options byte-for-byte; that equality is the scoring
// contract, and model output violating it is repaired or dropped at parse
// time rather than fuzzily matched at scoring time.
type Question struct {
	Kind        Kind     `json:"kind"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}
