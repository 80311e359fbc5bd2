package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
)

var _ generation.Generator = (*MockGenerator)(nil)

// MockGenerator implements generation.Generator for testing. It is safe
// for concurrent use, which batch tests rely on.
type MockGenerator struct {
	// AnalyzeFn allows test cases to mock the Analyze behavior
	AnalyzeFn func(ctx context.Context, req generation.AnalysisRequest) (*domain.Plan, error)

	// GenerateImageFn allows test cases to mock the GenerateImage behavior
	GenerateImageFn func(ctx context.Context, req generation.ImageRequest) (*domain.Artifact, error)

	// Default response values
	Plan *domain.Plan
	Err  error

	mu           sync.Mutex
	analyzeCalls []generation.AnalysisRequest
	imageCalls   []generation.ImageRequest
	inFlight     int
	peakInFlight int
}

// Analyze implements the generation.Generator interface
func (m *MockGenerator) Analyze(ctx context.Context, req generation.AnalysisRequest) (*domain.Plan, error) {
	m.mu.Lock()
	m.analyzeCalls = append(m.analyzeCalls, req)
	m.mu.Unlock()

	if m.AnalyzeFn != nil {
		return m.AnalyzeFn(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Plan != nil {
		return m.Plan, nil
	}
	return &domain.Plan{
		Mode: req.Mode,
		Options: []domain.PromptOption{
			{ID: "1", Title: "Marble", Prompt: "ring on white marble, soft daylight"},
		},
	}, nil
}

// GenerateImage implements the generation.Generator interface. Without a
// GenerateImageFn it returns a PNG artifact whose data is the prompt.
func (m *MockGenerator) GenerateImage(ctx context.Context, req generation.ImageRequest) (*domain.Artifact, error) {
	m.mu.Lock()
	m.imageCalls = append(m.imageCalls, req)
	m.inFlight++
	if m.inFlight > m.peakInFlight {
		m.peakInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.GenerateImageFn != nil {
		return m.GenerateImageFn(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.Artifact{MIMEType: "image/png", Data: []byte(req.Prompt)}, nil
}

// AnalyzeCalls returns a copy of the requests passed to Analyze.
func (m *MockGenerator) AnalyzeCalls() []generation.AnalysisRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.AnalysisRequest(nil), m.analyzeCalls...)
}

// ImageCalls returns a copy of the requests passed to GenerateImage.
func (m *MockGenerator) ImageCalls() []generation.ImageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.ImageRequest(nil), m.imageCalls...)
}

// PeakInFlight returns the largest number of concurrent GenerateImage calls seen.
func (m *MockGenerator) PeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakInFlight
}

// NewMockGeneratorWithError creates a MockGenerator whose calls all fail with err
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// Reset resets the call tracking state
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.analyzeCalls = nil
	m.imageCalls = nil
	m.peakInFlight = m.inFlight
}
