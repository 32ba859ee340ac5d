// Package features turns a submission into the row the audience classifier was trained on.
// The derivations here mirror the historical training set; changing any of them without
// retraining the model silently corrupts predictions.
package features

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/araddon/dateparse"

	"Auditorium/internal/domain"
)

// Enrich derives a FeatureRow from the input. It never fails: an unparseable
// timestamp leaves DayOfWeek and HourOfDay nil and IsWeekend false.
func Enrich(in domain.SubmissionInput, loc *time.Location) domain.FeatureRow {
	headline := in.Headline

	row := domain.FeatureRow{
		Headline:       headline,
		UserNeed:       in.UserNeed.TrainingLabel(),
		HeadlineLength: utf8.RuneCountInString(headline),
		WordCount:      len(strings.Fields(headline)),
		HasQuestion:    strings.ContainsRune(headline, '?'),
		HasExclamation: strings.ContainsRune(headline, '!'),
		HasDigit:       strings.IndexFunc(headline, unicode.IsDigit) >= 0,
		DaysLive:       0,
	}

	if ts, ok := ParseTimestamp(in.PublishedAt, loc); ok {
		day := Weekday(ts)
		hour := ts.Hour()
		row.DayOfWeek = &day
		row.HourOfDay = &hour
		row.IsWeekend = day >= 5
	}

	return row
}

// ParseTimestamp parses value in loc, keeping the wall clock of the input.
func ParseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	ts, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Weekday maps t to the training convention, Monday = 0 through Sunday = 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
