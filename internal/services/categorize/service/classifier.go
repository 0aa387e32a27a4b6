package service

import (
	"sift/internal/core/category"
	"sift/internal/core/record"
	ptime "sift/internal/platform/time"
)

// Outcome is what happened to one input line
type Outcome uint8

// Line outcomes
const (
	Written Outcome = iota
	Filtered
	Bad
)

// Classifier parses a line, applies the date window and computes the category flags
type Classifier struct {
	window  ptime.Window
	matcher *category.Matcher
}

// NewClassifier returns a classifier keeping records created inside w
func NewClassifier(w ptime.Window, m *category.Matcher) *Classifier {
	return &Classifier{window: w, matcher: m}
}

// Classify returns the parsed record for Written and Filtered lines, and the parse
// error for Bad ones. Flags are freshly allocated per Written line
func (c *Classifier) Classify(line string) (record.Record, []bool, Outcome, error) {
	rec, err := record.Parse(line)
	if err != nil {
		return record.Record{}, nil, Bad, err
	}
	if !c.window.Contains(rec.Created) {
		return rec, nil, Filtered, nil
	}
	return rec, c.matcher.Match(rec.Body), Written, nil
}
