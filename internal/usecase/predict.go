package usecase

import (
	"fmt"

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

// Predict runs the classifier on one enriched row and builds the class distribution.
func Predict(model ports.Classifier, row domain.FeatureRow) (domain.PredictionResult, error) {
	if model == nil {
		return domain.PredictionResult{}, domain.ErrModelUnavailable
	}

	raw := model.Classes()
	labels := make([]domain.AudienceClass, len(raw))
	for i, label := range raw {
		class, err := domain.ParseAudienceClass(label)
		if err != nil {
			return domain.PredictionResult{}, fmt.Errorf("model classes: %w", err)
		}
		labels[i] = class
	}

	hard, err := model.Predict(row)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predict: %w", err)
	}
	class, err := domain.ParseAudienceClass(hard)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predict: %w", err)
	}

	proba, err := model.PredictProba(row)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predict proba: %w", err)
	}
	if len(proba) != len(labels) {
		return domain.PredictionResult{}, fmt.Errorf("predict proba: %d probabilities for %d classes", len(proba), len(labels))
	}

	probabilities := make(map[domain.AudienceClass]float64, len(labels))
	for i, label := range labels {
		probabilities[label] = proba[i]
	}
	confidence, ok := probabilities[class]
	if !ok {
		return domain.PredictionResult{}, fmt.Errorf("predict: label %q missing from distribution", hard)
	}

	return domain.PredictionResult{
		Class:         class,
		Confidence:    confidence,
		Probabilities: probabilities,
		Labels:        labels,
	}, nil
}
