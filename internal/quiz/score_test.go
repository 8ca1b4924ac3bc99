package quiz

import "testing"

func mcq(question, answer string, options ...string) Question {
	return Question{Kind: MultipleChoice, Question: question, Options: options, Answer: answer}
}

func essay(question string) Question {
	return Question{Kind: Essay, Question: question, Options: []string{}}
}

func TestScore_AllCorrect(t *testing.T) {
	qs := []Question{
		mcq("2+2?", "4", "3", "4", "5"),
		mcq("ibukota?", "Jakarta", "Jakarta", "Bandung"),
	}
	got := Score(qs, map[int]string{0: "4", 1: "Jakarta"})
	if got != 100 {
		t.Errorf("Score = %d, want 100", got)
	}
}

func TestScore_Rounding(t *testing.T) {
	qs := []Question{
		mcq("a", "x", "x", "y"),
		mcq("b", "x", "x", "y"),
		mcq("c", "x", "x", "y"),
	}
	// 1 of 3 correct → 33.33… rounds to 33; 2 of 3 → 66.67 rounds to 67.
	if got := Score(qs, map[int]string{0: "x"}); got != 33 {
		t.Errorf("1/3 = %d, want 33", got)
	}
	if got := Score(qs, map[int]string{0: "x", 1: "x"}); got != 67 {
		t.Errorf("2/3 = %d, want 67", got)
	}
}

func TestScore_NoAnswersIsZero(t *testing.T) {
	qs := []Question{mcq("q", "a", "a", "b")}
	if got := Score(qs, map[int]string{}); got != 0 {
		t.Errorf("Score with no answers = %d, want 0", got)
	}
}

func TestScore_NoMultipleChoiceIsZero(t *testing.T) {
	qs := []Question{essay("jelaskan"), essay("uraikan")}
	if got := Score(qs, map[int]string{0: "apapun"}); got != 0 {
		t.Errorf("essay-only quiz scored %d, want 0", got)
	}
	if got := Score(nil, nil); got != 0 {
		t.Errorf("empty quiz scored %d, want 0", got)
	}
}

func TestScore_EssayInvariance(t *testing.T) {
	base := []Question{
		mcq("q0", "a", "a", "b"),
		mcq("q1", "b", "a", "b"),
	}
	answers := map[int]string{0: "a", 1: "a"} // 1 of 2 correct
	want := Score(base, answers)

	withEssays := []Question{base[0], base[1], essay("e1"), essay("e2")}
	if got := Score(withEssays, answers); got != want {
		t.Errorf("adding essays changed score: %d -> %d", want, got)
	}
	if want != 50 {
		t.Errorf("baseline score = %d, want 50", want)
	}
}

func TestScore_ExactMatchOnly(t *testing.T) {
	qs := []Question{mcq("q", "Jakarta", "Jakarta", "Bandung")}
	// Case and whitespace differences are wrong answers by contract.
	if got := Score(qs, map[int]string{0: "jakarta"}); got != 0 {
		t.Errorf("case-insensitive match scored %d, want 0", got)
	}
	if got := Score(qs, map[int]string{0: "Jakarta "}); got != 0 {
		t.Errorf("whitespace-padded match scored %d, want 0", got)
	}
}

func TestScore_Idempotent(t *testing.T) {
	qs := []Question{mcq("q", "a", "a", "b"), essay("e")}
	answers := map[int]string{0: "a"}
	first := Score(qs, answers)
	second := Score(qs, answers)
	if first != second {
		t.Errorf("Score not idempotent: %d then %d", first, second)
	}
}

func TestScore_EndToEndPayload(t *testing.T) {
	qs := ParsePayload(`{"mcq_questions":[{"question":"2+2?","options":["3","4","5"],"answer":"4","explanation":"basic addition"}],"essay_questions":[]}`)
	if len(qs) != 1 || qs[0].Kind != MultipleChoice || qs[0].Answer != "4" {
		t.Fatalf("payload parse: %+v", qs)
	}
	if got := Score(qs, map[int]string{0: "4"}); got != 100 {
		t.Errorf("Score = %d, want 100", got)
	}
}
