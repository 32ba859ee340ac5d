package ports

import (
	"context"
	"io"

	"Auditorium/internal/domain"
)

// Classifier is the narrow view of the pre-trained audience model.
type Classifier interface {
	// Classes lists the labels in the order PredictProba reports them.
	Classes() []string
	Predict(row domain.FeatureRow) (string, error)
	PredictProba(row domain.FeatureRow) ([]float64, error)
}

// ModelProvider hands out the process-wide classifier, loading it on first use.
type ModelProvider interface {
	Model(ctx context.Context) (Classifier, error)
}

// BlobFetcher downloads a remote artifact identified by a fixed ID.
type BlobFetcher interface {
	Fetch(ctx context.Context, id string, dst io.Writer) error
}

// VersionedStore is a remote file store with optimistic concurrency.
type VersionedStore interface {
	// Read returns the file content and its version token, or domain.ErrNotFound.
	Read(ctx context.Context, path, branch string) (content, version string, err error)
	// Create writes a new file and fails with domain.ErrVersionConflict if it already exists.
	Create(ctx context.Context, path, branch, message, content string) error
	// Update writes content only if the stored version still equals version.
	Update(ctx context.Context, path, branch, message, content, version string) error
}

// TextGenerator sends one prompt to a generative model and returns its prose.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ReferenceSource looks up historical headlines similar to a new one.
type ReferenceSource interface {
	Similar(ctx context.Context, headline string, limit int) ([]domain.ReferenceMatch, error)
}

// LanguageDetector guesses the language a headline is written in.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}
