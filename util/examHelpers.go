package util

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/petroxhq/petrox_backend/models"
)

// SampleQuestions draws a uniform random sample of count distinct questions.
// The returned order is the selection order; callers persist it so the same
// session always replays in the same order.
func SampleQuestions(questions []models.Question, count int) []models.Question {
	mrand.Seed(time.Now().UnixNano())
	perm := mrand.Perm(len(questions))
	sample := make([]models.Question, 0, count)
	for _, idx := range perm[:count] {
		sample = append(sample, questions[idx])
	}
	return sample
}

// ScoreAnswers grades submitted answers against the frozen correct-option
// map. Only frozen questions are considered; extra keys in answers are
// ignored, missing answers count as incorrect, comparison is
// case-insensitive.
func ScoreAnswers(correctByQuestion map[int]string, answers map[string]string) int {
	score := 0
	for qid, correct := range correctByQuestion {
		chosen, ok := answers[strconv.Itoa(qid)]
		if !ok {
			continue
		}
		if chosen != "" && strings.EqualFold(strings.TrimSpace(chosen), correct) {
			score++
		}
	}
	return score
}

// ParseInvitees splits a comma-separated invitee list, dropping blanks.
func ParseInvitees(raw string) []string {
	parts := strings.Split(raw, ",")
	out := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RankOf returns the 1-based position of userID in an already-ordered id
// list, or 0 when absent.
func RankOf(orderedIDs []int, userID int) int {
	for i, id := range orderedIDs {
		if id == userID {
			return i + 1
		}
	}
	return 0
}

const activationCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateActivationCode produces a 12-character uppercase alphanumeric code
// from crypto/rand.
func GenerateActivationCode() (string, error) {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(activationCodeCharset))))
		if err != nil {
			return "", err
		}
		sb.WriteByte(activationCodeCharset[n.Int64()])
	}
	return sb.String(), nil
}

// Slugify builds a url-safe slug from a title.
func Slugify(title string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
