package domain

import (
	"fmt"
	"strings"
)

// AudienceClass is the predicted audience band.
type AudienceClass string

const (
	AudienceLow    AudienceClass = "Low"
	AudienceMedium AudienceClass = "Medium"
	AudienceHigh   AudienceClass = "High"
)

// LowConfidenceThreshold is the confidence under which a prediction is flagged as unreliable.
const LowConfidenceThreshold = 0.60

// ParseAudienceClass normalises labels exposed by the model, including the
// Portuguese labels of the training set.
func ParseAudienceClass(label string) (AudienceClass, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low", "baixa":
		return AudienceLow, nil
	case "medium", "média", "media":
		return AudienceMedium, nil
	case "high", "alta":
		return AudienceHigh, nil
	}
	return "", fmt.Errorf("unknown audience class %q", label)
}

// Band describes the view range a class stands for. Display only.
func (c AudienceClass) Band() string {
	switch c {
	case AudienceLow:
		return "fewer than 100 views"
	case AudienceMedium:
		return "up to ~1000 views"
	case AudienceHigh:
		return "more than 2000 views"
	}
	return ""
}

// PredictionResult carries the winning class and the full distribution.
type PredictionResult struct {
	Class         AudienceClass
	Confidence    float64
	Probabilities map[AudienceClass]float64
	// Labels keeps the model's class order for charts.
	Labels []AudienceClass
}

// LowConfidence reports whether the presentation layer should warn the user.
func (r PredictionResult) LowConfidence() bool {
	return r.Confidence < LowConfidenceThreshold
}

// Severity classifies a rule finding.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
)

// Finding is one line of the rule-based checklist.
type Finding struct {
	Code     string
	Severity Severity
	Message  string
}

func (f Finding) String() string {
	if f.Severity == SeverityWarning {
		return "⚠️ " + f.Message
	}
	return "✅ " + f.Message
}

// Advice is the free-form text returned by the generative service.
// Err is set when Text describes a failure instead.
type Advice struct {
	Text string
	Err  error
}

// ReferenceMatch is a historical headline similar to the submitted one.
type ReferenceMatch struct {
	Headline    string
	UserNeed    string
	PublishedAt string
	Score       float64
}
