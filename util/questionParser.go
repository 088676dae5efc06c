package util

import (
	"regexp"
	"strings"
)

// ParsedQuestion is one entry from a bulk past-question upload, before it is
// persisted as a pending Question.
type ParsedQuestion struct {
	Number string `json:"number"`
	Text   string `json:"text"`
	A      string `json:"A"`
	B      string `json:"B"`
	C      string `json:"C"`
	D      string `json:"D"`
	Answer string `json:"answer"`
}

var (
	questionHeadRe = regexp.MustCompile(`(?m)^\s*(\d+)[.)]\s*`)
	optionRe       = regexp.MustCompile(`(?mi)^\s*([a-d])[.)]\s+(.*)\s*$`)
	answerRe       = regexp.MustCompile(`(?mi)^\s*Answer:\s*([a-d])\s*$`)
	partMarkRe     = regexp.MustCompile(`[a-z]\)`)
)

// ParsePassQuestions extracts numbered multiple-choice questions from plain
// text in the format
//
//	1. question text
//	a) option
//	b) option
//	c) option
//	d) option
//	Answer: b
//
// Questions without options are returned with empty option fields so the
// caller can fall back to theory-question handling.
func ParsePassQuestions(text string) []ParsedQuestion {
	heads := questionHeadRe.FindAllStringSubmatchIndex(text, -1)
	if len(heads) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []ParsedQuestion{{Text: trimmed}}
	}

	questions := make([]ParsedQuestion, 0, len(heads))
	for i, head := range heads {
		blockEnd := len(text)
		if i+1 < len(heads) {
			blockEnd = heads[i+1][0]
		}
		number := text[head[2]:head[3]]
		block := text[head[1]:blockEnd]

		q := ParsedQuestion{Number: number}

		// Options and the answer sit on their own lines below the first
		// line of the block, which is always question text. Searching only
		// past the first newline keeps a question that opens with a bare
		// letter ("A car travels...") from being read as option A.
		tail := ""
		tailStart := len(block)
		if nl := strings.IndexByte(block, '\n'); nl >= 0 {
			tailStart = nl
			tail = block[nl:]
		}

		bodyEnd := len(block)
		if loc := optionRe.FindStringIndex(tail); loc != nil {
			bodyEnd = tailStart + loc[0]
		} else if loc := answerRe.FindStringIndex(tail); loc != nil {
			bodyEnd = tailStart + loc[0]
		}
		q.Text = strings.TrimSpace(block[:bodyEnd])

		for _, m := range optionRe.FindAllStringSubmatch(tail, -1) {
			value := strings.TrimSpace(m[2])
			switch strings.ToLower(m[1]) {
			case "a":
				q.A = value
			case "b":
				q.B = value
			case "c":
				q.C = value
			case "d":
				q.D = value
			}
		}
		if m := answerRe.FindStringSubmatch(tail); m != nil {
			q.Answer = strings.ToUpper(m[1])
		}
		questions = append(questions, q)
	}
	return questions
}

// HasOptions reports whether the question carries at least one option,
// distinguishing multiple-choice entries from theory entries.
func (q ParsedQuestion) HasOptions() bool {
	return q.A != "" || q.B != "" || q.C != "" || q.D != ""
}

// SplitTheoryParts breaks a theory-question body into its lettered parts,
// e.g. "a) define X b) derive Y".
func SplitTheoryParts(body string) []string {
	marks := partMarkRe.FindAllStringIndex(body, -1)
	parts := []string{}
	for i, mark := range marks {
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		label := body[mark[0]:mark[1]]
		text := strings.TrimSpace(body[mark[1]:end])
		if text != "" {
			parts = append(parts, label+" "+text)
		}
	}
	return parts
}
