package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/floats"

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

// Artifact is the JSON export of the trained audience pipeline.
// Columns are laid out as numeric features, then one-hot blocks, then the TF-IDF vocabulary.
type Artifact struct {
	Name        string               `json:"name"`
	Classes     []string             `json:"classes"`
	Numeric     []NumericFeature     `json:"numeric"`
	Categorical []CategoricalFeature `json:"categorical"`
	Text        *TextFeature         `json:"text,omitempty"`
	Coef        [][]float64          `json:"coef"`
	Intercept   []float64            `json:"intercept"`
}

// NumericFeature is imputed then standardized.
type NumericFeature struct {
	Feature string   `json:"feature"`
	Mean    float64  `json:"mean"`
	Scale   float64  `json:"scale"`
	Impute  *float64 `json:"impute,omitempty"`
}

// CategoricalFeature is one-hot encoded; unknown values give an all-zero block.
type CategoricalFeature struct {
	Feature    string   `json:"feature"`
	Categories []string `json:"categories"`
}

// TextFeature is a TF-IDF encoding of the headline.
type TextFeature struct {
	Feature    string         `json:"feature"`
	Lowercase  bool           `json:"lowercase"`
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

var tokenExpr = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// LinearModel scores a FeatureRow with a multinomial (or binary) logistic model.
type LinearModel struct {
	artifact Artifact
	width    int
}

var _ ports.Classifier = (*LinearModel)(nil)

// Decode reads and validates an artifact.
func Decode(r io.Reader) (*LinearModel, error) {
	var art Artifact
	if err := json.NewDecoder(r).Decode(&art); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return NewLinearModel(art)
}

// NewLinearModel validates the artifact shape.
func NewLinearModel(art Artifact) (*LinearModel, error) {
	if len(art.Classes) < 2 {
		return nil, errors.New("artifact needs at least two classes")
	}

	width := len(art.Numeric)
	for _, cat := range art.Categorical {
		width += len(cat.Categories)
	}
	if art.Text != nil {
		if len(art.Text.IDF) != len(art.Text.Vocabulary) {
			return nil, fmt.Errorf("text feature: %d idf weights for %d terms", len(art.Text.IDF), len(art.Text.Vocabulary))
		}
		for term, idx := range art.Text.Vocabulary {
			if idx < 0 || idx >= len(art.Text.IDF) {
				return nil, fmt.Errorf("text feature: term %q has index %d out of range", term, idx)
			}
		}
		width += len(art.Text.Vocabulary)
	}

	rows := len(art.Classes)
	if rows == 2 && len(art.Coef) == 1 {
		rows = 1
	}
	if len(art.Coef) != rows || len(art.Intercept) != rows {
		return nil, fmt.Errorf("artifact has %d coef rows and %d intercepts for %d classes", len(art.Coef), len(art.Intercept), len(art.Classes))
	}
	for i, row := range art.Coef {
		if len(row) != width {
			return nil, fmt.Errorf("coef row %d has %d weights, expected %d", i, len(row), width)
		}
	}

	for _, num := range art.Numeric {
		if _, _, err := numericValue(domain.FeatureRow{}, num.Feature); err != nil {
			return nil, err
		}
	}
	for _, cat := range art.Categorical {
		if _, err := categoricalValue(domain.FeatureRow{}, cat.Feature); err != nil {
			return nil, err
		}
	}

	return &LinearModel{artifact: art, width: width}, nil
}

// Name identifies the artifact.
func (m *LinearModel) Name() string {
	return m.artifact.Name
}

// Classes returns labels in distribution order.
func (m *LinearModel) Classes() []string {
	out := make([]string, len(m.artifact.Classes))
	copy(out, m.artifact.Classes)
	return out
}

// Predict returns the most probable label.
func (m *LinearModel) Predict(row domain.FeatureRow) (string, error) {
	probs, err := m.PredictProba(row)
	if err != nil {
		return "", err
	}
	return m.artifact.Classes[floats.MaxIdx(probs)], nil
}

// PredictProba returns the class distribution aligned with Classes.
func (m *LinearModel) PredictProba(row domain.FeatureRow) ([]float64, error) {
	x, err := m.transform(row)
	if err != nil {
		return nil, err
	}

	if len(m.artifact.Coef) == 1 {
		z := floats.Dot(m.artifact.Coef[0], x) + m.artifact.Intercept[0]
		p := 1 / (1 + math.Exp(-z))
		return []float64{1 - p, p}, nil
	}

	logits := make([]float64, len(m.artifact.Coef))
	for k, weights := range m.artifact.Coef {
		logits[k] = floats.Dot(weights, x) + m.artifact.Intercept[k]
	}
	lse := floats.LogSumExp(logits)
	for k := range logits {
		logits[k] = math.Exp(logits[k] - lse)
	}
	return logits, nil
}

func (m *LinearModel) transform(row domain.FeatureRow) ([]float64, error) {
	x := make([]float64, 0, m.width)

	for _, num := range m.artifact.Numeric {
		v, ok, err := numericValue(row, num.Feature)
		if err != nil {
			return nil, err
		}
		if !ok {
			v = num.Mean
			if num.Impute != nil {
				v = *num.Impute
			}
		}
		scale := num.Scale
		if scale == 0 {
			scale = 1
		}
		x = append(x, (v-num.Mean)/scale)
	}

	for _, cat := range m.artifact.Categorical {
		value, err := categoricalValue(row, cat.Feature)
		if err != nil {
			return nil, err
		}
		for _, c := range cat.Categories {
			if c == value {
				x = append(x, 1)
			} else {
				x = append(x, 0)
			}
		}
	}

	if txt := m.artifact.Text; txt != nil {
		x = append(x, tfidf(row.Headline, txt)...)
	}

	return x, nil
}

func tfidf(text string, txt *TextFeature) []float64 {
	vec := make([]float64, len(txt.IDF))
	if txt.Lowercase {
		text = strings.ToLower(text)
	}
	for _, token := range tokenExpr.FindAllString(text, -1) {
		if idx, ok := txt.Vocabulary[token]; ok {
			vec[idx]++
		}
	}
	for i := range vec {
		vec[i] *= txt.IDF[i]
	}
	if norm := floats.Norm(vec, 2); norm > 0 {
		floats.Scale(1/norm, vec)
	}
	return vec
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// numericValue resolves a column by its English name or its training-set name.
func numericValue(row domain.FeatureRow, feature string) (float64, bool, error) {
	switch feature {
	case "headline_length", "tam_titulo":
		return float64(row.HeadlineLength), true, nil
	case "word_count", "num_palavras":
		return float64(row.WordCount), true, nil
	case "has_question", "tem_interrogacao":
		return boolValue(row.HasQuestion), true, nil
	case "has_exclamation", "tem_exclamacao":
		return boolValue(row.HasExclamation), true, nil
	case "has_digit", "tem_numero":
		return boolValue(row.HasDigit), true, nil
	case "day_of_week", "dia_semana":
		if row.DayOfWeek == nil {
			return 0, false, nil
		}
		return float64(*row.DayOfWeek), true, nil
	case "hour_of_day", "hora":
		if row.HourOfDay == nil {
			return 0, false, nil
		}
		return float64(*row.HourOfDay), true, nil
	case "is_weekend", "eh_fim_de_semana":
		return boolValue(row.IsWeekend), true, nil
	case "days_live", "dias_no_ar":
		return float64(row.DaysLive), true, nil
	}
	return 0, false, fmt.Errorf("unknown numeric feature %q", feature)
}

func categoricalValue(row domain.FeatureRow, feature string) (string, error) {
	switch feature {
	case "user_need", "User Need":
		return row.UserNeed, nil
	}
	return "", fmt.Errorf("unknown categorical feature %q", feature)
}
