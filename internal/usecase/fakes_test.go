package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

type fakeClassifier struct {
	classes []string
	label   string
	proba   []float64
	err     error
	rows    []domain.FeatureRow
}

func (f *fakeClassifier) Classes() []string { return f.classes }

func (f *fakeClassifier) Predict(row domain.FeatureRow) (string, error) {
	f.rows = append(f.rows, row)
	return f.label, f.err
}

func (f *fakeClassifier) PredictProba(domain.FeatureRow) ([]float64, error) {
	return f.proba, f.err
}

func highModel() *fakeClassifier {
	return &fakeClassifier{
		classes: []string{"Alta", "Baixa", "Média"},
		label:   "Alta",
		proba:   []float64{0.72, 0.08, 0.20},
	}
}

type fakeModels struct {
	model ports.Classifier
	err   error
	calls int
}

func (f *fakeModels) Model(context.Context) (ports.Classifier, error) {
	f.calls++
	return f.model, f.err
}

type memFile struct {
	content string
	version int
}

// memStore is an in-memory VersionedStore with hooks to simulate other writers.
type memStore struct {
	mu       sync.Mutex
	files    map[string]memFile
	messages []string
	reads    int
	writes   int
	readErr  error
	writeErr error
	// afterRead runs after every successful read, outside the lock.
	afterRead func(s *memStore)
	// sawDeadline records whether reads carried a deadline.
	sawDeadline bool
}

var _ ports.VersionedStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{files: map[string]memFile{}}
}

func key(path, branch string) string { return branch + ":" + path }

func (s *memStore) Read(ctx context.Context, path, branch string) (string, string, error) {
	s.mu.Lock()
	s.reads++
	_, s.sawDeadline = ctx.Deadline()
	if s.readErr != nil {
		err := s.readErr
		s.mu.Unlock()
		return "", "", err
	}
	f, ok := s.files[key(path, branch)]
	hook := s.afterRead
	s.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	if !ok {
		return "", "", domain.ErrNotFound
	}
	return f.content, strconv.Itoa(f.version), nil
}

func (s *memStore) Create(_ context.Context, path, branch, message, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.files[key(path, branch)]; ok {
		return domain.ErrVersionConflict
	}
	s.files[key(path, branch)] = memFile{content: content, version: 1}
	s.messages = append(s.messages, message)
	return nil
}

func (s *memStore) Update(_ context.Context, path, branch, message, content, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	f, ok := s.files[key(path, branch)]
	if !ok {
		return errors.New("update of missing file")
	}
	if strconv.Itoa(f.version) != version {
		return domain.ErrVersionConflict
	}
	s.files[key(path, branch)] = memFile{content: content, version: f.version + 1}
	s.messages = append(s.messages, message)
	return nil
}

// put simulates another writer committing directly.
func (s *memStore) put(path, branch, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.files[key(path, branch)]
	s.files[key(path, branch)] = memFile{content: content, version: f.version + 1}
}

func (s *memStore) content(path, branch string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[key(path, branch)].content
}

type fakeGenerator struct {
	text    string
	err     error
	block   bool
	prompts []string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type fakeReferences struct {
	matches []domain.ReferenceMatch
	err     error
}

func (f *fakeReferences) Similar(context.Context, string, int) ([]domain.ReferenceMatch, error) {
	return f.matches, f.err
}

type fakeDetector struct{ lang string }

func (f fakeDetector) Detect(string) (string, bool) { return f.lang, f.lang != "" }
