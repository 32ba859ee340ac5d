package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// UserNeed describes the editorial intent chosen for a headline.
type UserNeed string

const (
	NeedInform        UserNeed = "inform"
	NeedContextualize UserNeed = "contextualize"
	NeedTeach         UserNeed = "teach"
	NeedEntertain     UserNeed = "entertain"
	NeedInspire       UserNeed = "inspire"
	NeedFollowTrends  UserNeed = "follow_trends"
)

// UserNeeds lists every need in selector order.
var UserNeeds = []UserNeed{
	NeedInform,
	NeedContextualize,
	NeedTeach,
	NeedEntertain,
	NeedInspire,
	NeedFollowTrends,
}

var userNeedNames = map[UserNeed][2]string{
	NeedInform:        {"Inform", "Informar"},
	NeedContextualize: {"Contextualize", "Contextualizar"},
	NeedTeach:         {"Teach", "Ensinar"},
	NeedEntertain:     {"Entertain", "Entreter"},
	NeedInspire:       {"Inspire", "Inspirar"},
	NeedFollowTrends:  {"Follow trends", "Acompanhar assuntos em alta"},
}

// Name is the English display name.
func (u UserNeed) Name() string {
	return userNeedNames[u][0]
}

// TrainingLabel is the exact value the classifier was fit on.
func (u UserNeed) TrainingLabel() string {
	return userNeedNames[u][1]
}

// Valid reports whether u is one of the six known needs.
func (u UserNeed) Valid() bool {
	_, ok := userNeedNames[u]
	return ok
}

// ParseUserNeed accepts the code, the English name or the training label.
func ParseUserNeed(value string) (UserNeed, error) {
	v := strings.TrimSpace(value)
	for _, need := range UserNeeds {
		names := userNeedNames[need]
		if strings.EqualFold(v, string(need)) ||
			strings.EqualFold(v, names[0]) ||
			strings.EqualFold(v, names[1]) ||
			strings.EqualFold(strings.ReplaceAll(v, " ", ""), strings.ReplaceAll(names[0], " ", "")) {
			return need, nil
		}
	}
	return "", fmt.Errorf("unknown user need %q", value)
}

// SubmissionInput is one user action: a headline plus publication metadata.
// PublishedAt keeps the raw timestamp text; it is parsed best-effort during enrichment.
type SubmissionInput struct {
	Headline    string
	UserNeed    UserNeed
	PublishedAt string
}

// FeatureRow is the model-ready representation of one submission.
type FeatureRow struct {
	// Passthrough columns consumed by the trained pipeline.
	Headline string
	UserNeed string

	HeadlineLength int
	WordCount      int
	HasQuestion    bool
	HasExclamation bool
	HasDigit       bool
	DayOfWeek      *int // 0 = Monday
	HourOfDay      *int
	IsWeekend      bool
	DaysLive       int
}

const minHeadlineRunes = 10

// ValidateHeadline rejects empty or too-short headlines before any processing.
func ValidateHeadline(headline string) error {
	t := strings.TrimSpace(headline)
	if t == "" {
		return &ValidationError{Field: "headline", Reason: ReasonEmpty}
	}
	if utf8.RuneCountInString(t) < minHeadlineRunes {
		return &ValidationError{Field: "headline", Reason: ReasonTooShort}
	}
	return nil
}
