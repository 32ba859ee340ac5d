package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"Auditorium/internal/domain"
	"Auditorium/internal/features"
	"Auditorium/internal/ports"
)

// AnalyzerDeps wires all driven adapters into the analysis flow.
// Only Models is required; every other dependency is optional.
type AnalyzerDeps struct {
	Models     ports.ModelProvider
	Logbook    *Logbook
	Advisor    *Advisor
	References ports.ReferenceSource
	Detector   ports.LanguageDetector
	Location   *time.Location
	Logger     *slog.Logger

	ReferenceLimit   int
	ExpectedLanguage string
}

// Analyzer runs one submission end to end.
type Analyzer struct {
	models     ports.ModelProvider
	logbook    *Logbook
	advisor    *Advisor
	references ports.ReferenceSource
	detector   ports.LanguageDetector
	location   *time.Location
	log        *slog.Logger

	referenceLimit   int
	expectedLanguage string
}

// Report is everything the presentation layer shows for a submission.
// LogErr and Advice.Err carry soft failures that did not stop the analysis.
type Report struct {
	Input        domain.SubmissionInput
	Features     domain.FeatureRow
	Prediction   domain.PredictionResult
	Logged       bool
	LogErr       error
	Findings     []domain.Finding
	Advice       domain.Advice
	References   []domain.ReferenceMatch
	Language     string
	LanguageNote string
}

// NewAnalyzer constructs the orchestration component.
func NewAnalyzer(deps AnalyzerDeps) *Analyzer {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	limit := deps.ReferenceLimit
	if limit <= 0 {
		limit = 3
	}
	return &Analyzer{
		models:           deps.Models,
		logbook:          deps.Logbook,
		advisor:          deps.Advisor,
		references:       deps.References,
		detector:         deps.Detector,
		location:         loc,
		log:              deps.Logger,
		referenceLimit:   limit,
		expectedLanguage: deps.ExpectedLanguage,
	}
}

// Location is the timezone submissions are interpreted in.
func (a *Analyzer) Location() *time.Location {
	return a.location
}

// Analyze validates, predicts, logs, checks and advises, in that order.
// Returned errors are a *domain.ValidationError, domain.ErrModelUnavailable
// or domain.ErrProcessing; log and advice failures live on the report.
func (a *Analyzer) Analyze(ctx context.Context, in domain.SubmissionInput) (Report, error) {
	if err := domain.ValidateHeadline(in.Headline); err != nil {
		return Report{}, err
	}
	if !in.UserNeed.Valid() {
		return Report{}, &domain.ValidationError{Field: "user_need", Reason: "unknown value"}
	}

	if a.models == nil {
		return Report{}, domain.ErrModelUnavailable
	}
	model, err := a.models.Model(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Input: in}
	report.Features = features.Enrich(in, a.location)

	report.Prediction, err = Predict(model, report.Features)
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			return Report{}, err
		}
		return Report{}, fmt.Errorf("%w: %w", domain.ErrProcessing, err)
	}
	a.debug("prediction ready", "class", report.Prediction.Class, "confidence", report.Prediction.Confidence)

	if a.logbook != nil {
		report.LogErr = a.logbook.Record(ctx, domain.LogEntry{
			Headline: in.Headline,
			UserNeed: in.UserNeed.TrainingLabel(),
			Class:    report.Prediction.Class,
		})
		report.Logged = report.LogErr == nil
		if report.LogErr != nil {
			a.warn("submission not logged", "error", report.LogErr)
		}
	}

	report.Findings = CheckHeadline(in.Headline)

	if a.references != nil {
		matches, err := a.references.Similar(ctx, in.Headline, a.referenceLimit)
		if err != nil {
			a.warn("reference lookup failed", "error", err)
		} else {
			report.References = matches
		}
	}

	if a.detector != nil {
		if lang, ok := a.detector.Detect(in.Headline); ok {
			report.Language = lang
			if a.expectedLanguage != "" && !strings.EqualFold(lang, a.expectedLanguage) {
				report.LanguageNote = fmt.Sprintf("Headline looks like %s; the model was trained on %s headlines.",
					titleCase(lang), titleCase(a.expectedLanguage))
			}
		}
	}

	report.Advice = a.advisor.Advise(ctx, in.Headline)

	return report, nil
}

func titleCase(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (a *Analyzer) debug(msg string, args ...interface{}) {
	if a.log == nil {
		return
	}
	a.log.Debug(msg, args...)
}

func (a *Analyzer) warn(msg string, args ...interface{}) {
	if a.log == nil {
		return
	}
	a.log.Warn(msg, args...)
}
