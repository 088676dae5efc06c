package util

import (
	"strings"
	"testing"

	"github.com/petroxhq/petrox_backend/models"
)

func makeQuestions(n int) []models.Question {
	qs := make([]models.Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, models.Question{ID: i})
	}
	return qs
}

func TestSampleQuestionsSizeAndDistinctness(t *testing.T) {
	qs := makeQuestions(20)
	sample := SampleQuestions(qs, 7)
	if len(sample) != 7 {
		t.Fatalf("expected 7 questions, got %d", len(sample))
	}
	seen := map[int]bool{}
	for _, q := range sample {
		if seen[q.ID] {
			t.Fatalf("question %d sampled twice", q.ID)
		}
		seen[q.ID] = true
		if q.ID < 1 || q.ID > 20 {
			t.Fatalf("sampled unknown question %d", q.ID)
		}
	}
}

func TestSampleQuestionsFullSet(t *testing.T) {
	qs := makeQuestions(5)
	sample := SampleQuestions(qs, 5)
	if len(sample) != 5 {
		t.Fatalf("expected all 5 questions, got %d", len(sample))
	}
}

func TestScoreAnswers(t *testing.T) {
	correct := map[int]string{1: "A", 2: "B", 3: "C", 4: "D"}

	tests := []struct {
		name    string
		answers map[string]string
		want    int
	}{
		{"all correct", map[string]string{"1": "A", "2": "B", "3": "C", "4": "D"}, 4},
		{"case insensitive", map[string]string{"1": "a", "2": "b", "3": "c", "4": "d"}, 4},
		{"missing answers count as wrong", map[string]string{"1": "A"}, 1},
		{"extra keys ignored", map[string]string{"1": "A", "99": "A", "abc": "B"}, 1},
		{"empty answer is wrong", map[string]string{"1": "", "2": "B"}, 1},
		{"whitespace trimmed", map[string]string{"1": " A "}, 1},
		{"no answers", map[string]string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreAnswers(correct, tt.answers); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseInvitees(t *testing.T) {
	got := ParseInvitees(" a@x.com, ,b@y.com ,,c@z.com")
	want := []string{"a@x.com", "b@y.com", "c@z.com"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if out := ParseInvitees(""); len(out) != 0 {
		t.Fatalf("empty input should yield no invitees, got %v", out)
	}
}

func TestRankOf(t *testing.T) {
	ordered := []int{42, 7, 13}
	if r := RankOf(ordered, 42); r != 1 {
		t.Fatalf("expected rank 1, got %d", r)
	}
	if r := RankOf(ordered, 13); r != 3 {
		t.Fatalf("expected rank 3, got %d", r)
	}
	if r := RankOf(ordered, 99); r != 0 {
		t.Fatalf("expected rank 0 for absent user, got %d", r)
	}
}

func TestGenerateActivationCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateActivationCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 12 {
			t.Fatalf("expected 12 characters, got %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(activationCodeCharset, r) {
				t.Fatalf("unexpected character %q in code %q", r, code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("codes look non-random: %d distinct out of 50", len(seen))
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Exam Results: 2024!  ", "exam-results-2024"},
		{"already-slugged", "already-slugged"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
