package ml

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Auditorium/internal/domain"
)

func testArtifact() Artifact {
	return Artifact{
		Name:    "modelo_classificacao_v2",
		Classes: []string{"Alta", "Baixa", "Média"},
		Numeric: []NumericFeature{
			{Feature: "tam_titulo", Mean: 50, Scale: 10},
			{Feature: "has_question", Mean: 0, Scale: 1},
			{Feature: "dia_semana", Mean: 3, Scale: 2},
		},
		Categorical: []CategoricalFeature{
			{Feature: "User Need", Categories: []string{"Informar", "Entreter"}},
		},
		Text: &TextFeature{
			Feature:    "Matéria",
			Lowercase:  true,
			Vocabulary: map[string]int{"eleição": 0, "governo": 1},
			IDF:        []float64{2, 1},
		},
		Coef: [][]float64{
			{0.8, 1.2, 0.1, 0.5, -0.2, 1.5, 0.3},
			{-0.9, -0.4, 0.0, -0.3, 0.4, -1.0, -0.1},
			{0.1, -0.8, -0.1, -0.2, -0.2, -0.5, -0.2},
		},
		Intercept: []float64{0.1, 0.2, -0.3},
	}
}

func testArtifactJSON(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(testArtifact())
	require.NoError(t, err)
	return raw
}

func intPtr(v int) *int { return &v }

func TestLinearModelDistribution(t *testing.T) {
	t.Parallel()

	model, err := NewLinearModel(testArtifact())
	require.NoError(t, err)

	rows := []domain.FeatureRow{
		{Headline: "Eleição: o que muda no governo?", UserNeed: "Informar", HeadlineLength: 31, HasQuestion: true, DayOfWeek: intPtr(1)},
		{Headline: "Receita de bolo", UserNeed: "Entreter", HeadlineLength: 15, DayOfWeek: intPtr(6)},
		{Headline: "Sem data nenhuma", UserNeed: "Ensinar", HeadlineLength: 16},
	}

	for _, row := range rows {
		probs, err := model.PredictProba(row)
		require.NoError(t, err)
		require.Len(t, probs, 3)

		sum := 0.0
		best := 0
		for i, p := range probs {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
			if p > probs[best] {
				best = i
			}
		}
		assert.InDelta(t, 1.0, sum, 1e-9)

		label, err := model.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, model.Classes()[best], label)
	}
}

func TestLinearModelImputesMissingWithMean(t *testing.T) {
	t.Parallel()

	model, err := NewLinearModel(testArtifact())
	require.NoError(t, err)

	missing := domain.FeatureRow{Headline: "Governo", UserNeed: "Informar", HeadlineLength: 7}
	atMean := missing
	atMean.DayOfWeek = intPtr(3)

	a, err := model.PredictProba(missing)
	require.NoError(t, err)
	b, err := model.PredictProba(atMean)
	require.NoError(t, err)
	assert.InDeltaSlice(t, b, a, 1e-12)
}

func TestLinearModelTransform(t *testing.T) {
	t.Parallel()

	model, err := NewLinearModel(testArtifact())
	require.NoError(t, err)

	x, err := model.transform(domain.FeatureRow{
		Headline:       "ELEIÇÃO e governo",
		UserNeed:       "Desconhecido",
		HeadlineLength: 60,
		HasQuestion:    true,
		DayOfWeek:      intPtr(5),
	})
	require.NoError(t, err)
	require.Len(t, x, 7)

	assert.InDelta(t, 1.0, x[0], 1e-12)
	assert.InDelta(t, 1.0, x[1], 1e-12)
	assert.InDelta(t, 1.0, x[2], 1e-12)
	assert.Equal(t, []float64{0, 0}, x[3:5], "unknown category must give an all-zero block")

	norm := math.Hypot(x[5], x[6])
	assert.InDelta(t, 1.0, norm, 1e-12)
	assert.InDelta(t, 2/math.Sqrt(5), x[5], 1e-12)
	assert.InDelta(t, 1/math.Sqrt(5), x[6], 1e-12)
}

func TestLinearModelBinary(t *testing.T) {
	t.Parallel()

	model, err := NewLinearModel(Artifact{
		Classes:   []string{"Baixa", "Alta"},
		Numeric:   []NumericFeature{{Feature: "has_digit", Scale: 1}},
		Coef:      [][]float64{{2}},
		Intercept: []float64{0},
	})
	require.NoError(t, err)

	probs, err := model.PredictProba(domain.FeatureRow{HasDigit: true})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-2)), probs[1], 1e-12)
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-12)

	label, err := model.Predict(domain.FeatureRow{HasDigit: true})
	require.NoError(t, err)
	assert.Equal(t, "Alta", label)
}

func TestNewLinearModelRejectsBadShapes(t *testing.T) {
	t.Parallel()

	cases := map[string]func(a *Artifact){
		"single class":      func(a *Artifact) { a.Classes = a.Classes[:1] },
		"missing coef row":  func(a *Artifact) { a.Coef = a.Coef[:2] },
		"short coef row":    func(a *Artifact) { a.Coef[0] = a.Coef[0][:6] },
		"missing intercept": func(a *Artifact) { a.Intercept = a.Intercept[:1] },
		"unknown numeric":   func(a *Artifact) { a.Numeric[0].Feature = "sentiment" },
		"unknown category":  func(a *Artifact) { a.Categorical[0].Feature = "section" },
		"idf mismatch":      func(a *Artifact) { a.Text.IDF = a.Text.IDF[:1] },
		"vocab out of range": func(a *Artifact) {
			a.Text.Vocabulary = map[string]int{"eleição": 0, "governo": 7}
		},
	}

	for name, mutate := range cases {
		art := testArtifact()
		mutate(&art)
		_, err := NewLinearModel(art)
		assert.Error(t, err, name)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader("\x80\x04\x95joblib pickle bytes"))
	assert.Error(t, err)
}
