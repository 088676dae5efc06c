package controllers

import (
	"errors"
	"strings"
)

// errInsufficientQuestions signals that a course has fewer approved
// questions than a requested sample size.
var errInsufficientQuestions = errors.New("not enough questions in this course")

// normalizeOption uppercases a single answer letter so stored choices are
// always A-D regardless of client casing.
func normalizeOption(opt string) string {
	return strings.ToUpper(strings.TrimSpace(opt))
}
