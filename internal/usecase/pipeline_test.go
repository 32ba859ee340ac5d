package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Auditorium/internal/domain"
)

type fixture struct {
	models   *fakeModels
	model    *fakeClassifier
	store    *memStore
	gen      *fakeGenerator
	analyzer *Analyzer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		model: highModel(),
		store: newMemStore(),
		gen:   &fakeGenerator{text: "**SEO 6/10**"},
	}
	f.models = &fakeModels{model: f.model}
	f.analyzer = NewAnalyzer(AnalyzerDeps{
		Models:           f.models,
		Logbook:          NewLogbook(f.store, LogbookConfig{Path: logPath, Timeout: time.Second}, nil),
		Advisor:          NewAdvisor(f.gen, time.Second, "G1", nil),
		References:       &fakeReferences{matches: []domain.ReferenceMatch{{Headline: "Nova política de impostos", Score: 0.9}}},
		Detector:         fakeDetector{lang: "english"},
		ExpectedLanguage: "portuguese",
	})
	return f
}

func submission() domain.SubmissionInput {
	return domain.SubmissionInput{
		Headline:    "Will the new tax policy change anything?",
		UserNeed:    domain.NeedInform,
		PublishedAt: "2024-01-13 10:00:00",
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	report, err := f.analyzer.Analyze(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, 40, report.Features.HeadlineLength)
	assert.Equal(t, 7, report.Features.WordCount)
	assert.True(t, report.Features.HasQuestion)
	assert.Equal(t, "Informar", report.Features.UserNeed)
	require.NotNil(t, report.Features.DayOfWeek)
	assert.Equal(t, 5, *report.Features.DayOfWeek)
	assert.True(t, report.Features.IsWeekend)
	require.Len(t, f.model.rows, 1)
	assert.Equal(t, report.Features, f.model.rows[0])

	assert.Equal(t, domain.AudienceHigh, report.Prediction.Class)

	assert.True(t, report.Logged)
	assert.NoError(t, report.LogErr)
	assert.Equal(t, "Will the new tax policy change anything? (Informar)|High\n", f.store.content(logPath, logBranch))
	assert.Equal(t, []string{"App Input: High"}, f.store.messages)

	assert.Equal(t, []string{"too_short", "question_engagement"}, codes(report.Findings))
	assert.Equal(t, "Too short for SEO (40 chars)", report.Findings[0].Message)

	assert.Equal(t, "**SEO 6/10**", report.Advice.Text)
	assert.Len(t, report.References, 1)
	assert.Equal(t, "english", report.Language)
	assert.Contains(t, report.LanguageNote, "English")
	assert.Contains(t, report.LanguageNote, "Portuguese")
}

func TestAnalyzeValidationHasNoSideEffects(t *testing.T) {
	t.Parallel()

	for _, headline := range []string{"", "   ", "Curto"} {
		f := newFixture(t)
		in := submission()
		in.Headline = headline

		_, err := f.analyzer.Analyze(context.Background(), in)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr, headline)
		assert.Zero(t, f.models.calls)
		assert.Zero(t, f.store.reads+f.store.writes)
		assert.Empty(t, f.gen.prompts)
	}
}

func TestAnalyzeRejectsUnknownUserNeed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	in := submission()
	in.UserNeed = "gossip"

	_, err := f.analyzer.Analyze(context.Background(), in)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "user_need", verr.Field)
}

func TestAnalyzeModelUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.models.model = nil
	f.models.err = errors.Join(domain.ErrModelUnavailable, errors.New("download failed"))

	_, err := f.analyzer.Analyze(context.Background(), submission())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Zero(t, f.store.writes)
	assert.Empty(t, f.gen.prompts)
}

func TestAnalyzeProcessingError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.model.err = errors.New("feature mismatch")

	_, err := f.analyzer.Analyze(context.Background(), submission())
	require.ErrorIs(t, err, domain.ErrProcessing)
	assert.Zero(t, f.store.writes)
}

func TestAnalyzeSoftFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.readErr = errors.New("network down")
	f.gen.err = errors.New("quota exceeded")
	f.analyzer.references = &fakeReferences{err: errors.New("csv gone")}

	report, err := f.analyzer.Analyze(context.Background(), submission())
	require.NoError(t, err)

	assert.False(t, report.Logged)
	assert.Error(t, report.LogErr)
	assert.NotEmpty(t, report.Findings)
	assert.Error(t, report.Advice.Err)
	assert.Contains(t, report.Advice.Text, "AI advisor error")
	assert.Empty(t, report.References)
	assert.Equal(t, domain.AudienceHigh, report.Prediction.Class)
}

func TestAnalyzeStaleLogTokenIsSoft(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.afterRead = func(s *memStore) {
		s.afterRead = nil
		s.put(logPath, logBranch, "rival (Ensinar)|Low\n")
	}

	report, err := f.analyzer.Analyze(context.Background(), submission())
	require.NoError(t, err)
	assert.ErrorIs(t, report.LogErr, domain.ErrVersionConflict)
	assert.Equal(t, "rival (Ensinar)|Low\n", f.store.content(logPath, logBranch))
	assert.Equal(t, "**SEO 6/10**", report.Advice.Text)
}

func TestAnalyzeMatchingLanguageHasNoNote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.analyzer.detector = fakeDetector{lang: "Portuguese"}

	report, err := f.analyzer.Analyze(context.Background(), submission())
	require.NoError(t, err)
	assert.Empty(t, report.LanguageNote)
}
