package util

import "testing"

const sampleUpload = `
1. What is the boiling point of water at sea level?
a) 90 degrees Celsius
b) 100 degrees Celsius
c) 110 degrees Celsius
d) 120 degrees Celsius
Answer: b

2. Define enthalpy and derive its relation to internal energy.

3) Which gas law relates pressure and volume at constant temperature?
a. Charles' law
b. Boyle's law
c. Avogadro's law
d. Dalton's law
Answer: B
`

func TestParsePassQuestions(t *testing.T) {
	qs := ParsePassQuestions(sampleUpload)
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(qs))
	}

	q1 := qs[0]
	if q1.Number != "1" {
		t.Errorf("q1 number = %q", q1.Number)
	}
	if q1.Text != "What is the boiling point of water at sea level?" {
		t.Errorf("q1 text = %q", q1.Text)
	}
	if q1.B != "100 degrees Celsius" || q1.D != "120 degrees Celsius" {
		t.Errorf("q1 options parsed wrong: %+v", q1)
	}
	if q1.Answer != "B" {
		t.Errorf("q1 answer = %q", q1.Answer)
	}
	if !q1.HasOptions() {
		t.Error("q1 should have options")
	}

	q2 := qs[1]
	if q2.HasOptions() {
		t.Errorf("q2 is a theory question, got options %+v", q2)
	}
	if q2.Answer != "" {
		t.Errorf("q2 should have no answer, got %q", q2.Answer)
	}

	q3 := qs[2]
	if q3.Number != "3" {
		t.Errorf("q3 number = %q", q3.Number)
	}
	if q3.B != "Boyle's law" {
		t.Errorf("q3 option b = %q", q3.B)
	}
	if q3.Answer != "B" {
		t.Errorf("q3 answer = %q (answers are normalized uppercase)", q3.Answer)
	}
}

func TestParsePassQuestionsTextStartingWithLetter(t *testing.T) {
	input := `
1. A car travels at constant speed for 2 hours covering 120 km. What is its speed?
a) 10 km/h
b) 60 km/h
c) 120 km/h
d) 240 km/h
Answer: b
`
	qs := ParsePassQuestions(input)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	q := qs[0]
	if q.Text != "A car travels at constant speed for 2 hours covering 120 km. What is its speed?" {
		t.Errorf("question text misparsed: %q", q.Text)
	}
	if q.A != "10 km/h" || q.B != "60 km/h" {
		t.Errorf("options parsed wrong: %+v", q)
	}
	if q.Answer != "B" {
		t.Errorf("answer = %q", q.Answer)
	}
}

func TestParsePassQuestionsMultilineText(t *testing.T) {
	input := `
1. B and C react to form D.
If 2 mol of B are consumed, how many mol of D form?
a) 1
b) 2
Answer: b
`
	qs := ParsePassQuestions(input)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	want := "B and C react to form D.\nIf 2 mol of B are consumed, how many mol of D form?"
	if qs[0].Text != want {
		t.Errorf("question text = %q, want %q", qs[0].Text, want)
	}
	if qs[0].A != "1" || qs[0].B != "2" {
		t.Errorf("options parsed wrong: %+v", qs[0])
	}
}

func TestParsePassQuestionsUnnumberedText(t *testing.T) {
	qs := ParsePassQuestions("just some prose without numbering")
	if len(qs) != 1 {
		t.Fatalf("expected 1 fallback entry, got %d", len(qs))
	}
	if qs[0].Text != "just some prose without numbering" {
		t.Fatalf("fallback text = %q", qs[0].Text)
	}
	if qs[0].HasOptions() {
		t.Fatal("fallback entry should have no options")
	}
}

func TestParsePassQuestionsEmpty(t *testing.T) {
	if qs := ParsePassQuestions("   \n  "); qs != nil {
		t.Fatalf("expected nil for blank input, got %v", qs)
	}
}

func TestSplitTheoryParts(t *testing.T) {
	parts := SplitTheoryParts("a) define entropy b) state the second law c) give one example")
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d: %v", len(parts), parts)
	}
	if parts[0] != "a) define entropy" {
		t.Errorf("part 1 = %q", parts[0])
	}
	if parts[2] != "c) give one example" {
		t.Errorf("part 3 = %q", parts[2])
	}
}

func TestSplitTheoryPartsNoMarkers(t *testing.T) {
	if parts := SplitTheoryParts("no lettered parts here"); len(parts) != 0 {
		t.Fatalf("expected no parts, got %v", parts)
	}
}
