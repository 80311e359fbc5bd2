package studio

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/mocks"
	"github.com/phrazzld/studio-api/internal/retry"
	"github.com/phrazzld/studio-api/internal/store"
	"github.com/phrazzld/studio-api/internal/task"
	"github.com/stretchr/testify/require"
)

var errOverloaded = errors.New("503 model overloaded")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGenerationStore keeps generations in memory.
type fakeGenerationStore struct {
	mu          sync.Mutex
	generations map[uuid.UUID]*domain.Generation
	progress    map[uuid.UUID][]int
}

func newFakeGenerationStore() *fakeGenerationStore {
	return &fakeGenerationStore{
		generations: make(map[uuid.UUID]*domain.Generation),
		progress:    make(map[uuid.UUID][]int),
	}
}

func (s *fakeGenerationStore) Create(_ context.Context, g *domain.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.generations[g.ID]; ok {
		return store.ErrDuplicate
	}
	cp := *g
	s.generations[g.ID] = &cp
	return nil
}

func (s *fakeGenerationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.generations[id]
	if !ok {
		return nil, store.ErrGenerationNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *fakeGenerationStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.GenerationStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.generations[id]
	if !ok {
		return store.ErrGenerationNotFound
	}
	if g.IsTerminal() {
		return store.ErrGenerationFinished
	}
	g.Status = status
	g.ErrorMessage = msg
	if status == domain.GenerationStatusCompleted {
		g.Progress = 100
	}
	return nil
}

func (s *fakeGenerationStore) UpdateProgress(_ context.Context, id uuid.UUID, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.generations[id]
	if !ok {
		return store.ErrGenerationNotFound
	}
	s.progress[id] = append(s.progress[id], progress)
	if progress > g.Progress {
		g.Progress = progress
	}
	return nil
}

func (s *fakeGenerationStore) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := []*domain.Generation{}
	for _, g := range s.generations {
		if g.UserID == userID {
			cp := *g
			cp.Inputs = domain.GenerationInputs{}
			owned = append(owned, &cp)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	if offset >= len(owned) {
		return []*domain.Generation{}, nil
	}
	owned = owned[offset:]
	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func (s *fakeGenerationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.generations[id]; !ok {
		return store.ErrGenerationNotFound
	}
	delete(s.generations, id)
	return nil
}

func (s *fakeGenerationStore) WithTx(*sql.Tx) store.GenerationStore { return s }

func (s *fakeGenerationStore) get(id uuid.UUID) domain.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.generations[id]
}

// fakeArtifactStore keeps artifacts in memory. Like the primary key it
// rejects a second artifact at the same index.
type fakeArtifactStore struct {
	mu        sync.Mutex
	artifacts map[uuid.UUID][]*domain.Artifact
	saveErr   error
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{artifacts: make(map[uuid.UUID][]*domain.Artifact)}
}

func (s *fakeArtifactStore) SaveAll(_ context.Context, artifacts []*domain.Artifact) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range artifacts {
		for _, existing := range s.artifacts[a.GenerationID] {
			if existing.Index == a.Index {
				return store.ErrDuplicate
			}
		}
	}
	for _, a := range artifacts {
		s.artifacts[a.GenerationID] = append(s.artifacts[a.GenerationID], a)
	}
	return nil
}

func (s *fakeArtifactStore) Get(_ context.Context, generationID uuid.UUID, index int) (*domain.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.artifacts[generationID] {
		if a.Index == index {
			return a, nil
		}
	}
	return nil, store.ErrArtifactNotFound
}

func (s *fakeArtifactStore) List(_ context.Context, generationID uuid.UUID) ([]*domain.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Artifact{}
	for _, a := range s.artifacts[generationID] {
		cp := *a
		cp.Data = nil
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeArtifactStore) WithTx(*sql.Tx) store.ArtifactStore { return s }

func (s *fakeArtifactStore) count(generationID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts[generationID])
}

// fakeCreditStore is an in-memory ledger. Like the database it rejects a
// second refund for the same generation and a second bonus on one day.
type fakeCreditStore struct {
	mu      sync.Mutex
	entries []*domain.CreditEntry
}

func (s *fakeCreditStore) Append(_ context.Context, e *domain.CreditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.Reason != e.Reason {
			continue
		}
		switch e.Reason {
		case domain.CreditReasonRefund:
			if existing.GenerationID == e.GenerationID {
				return store.ErrDuplicate
			}
		case domain.CreditReasonBonus:
			if existing.UserID == e.UserID && existing.BonusDay().Equal(e.BonusDay()) {
				return store.ErrDuplicate
			}
		}
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeCreditStore) Balance(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, e := range s.entries {
		if e.UserID == userID {
			total += e.Delta
		}
	}
	return total, nil
}

func (s *fakeCreditStore) LockBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.Balance(ctx, userID)
}

func (s *fakeCreditStore) WithTx(*sql.Tx) store.CreditStore { return s }

func (s *fakeCreditStore) reasons() []domain.CreditReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CreditReason, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Reason
	}
	return out
}

// fakeRunner records submitted tasks without running them.
type fakeRunner struct {
	mu        sync.Mutex
	submitted []task.Task
	err       error
}

func (r *fakeRunner) Submit(_ context.Context, t task.Task) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, t)
	return nil
}

type fixture struct {
	svc         *Service
	mock        sqlmock.Sqlmock
	generations *fakeGenerationStore
	artifacts   *fakeArtifactStore
	credits     *fakeCreditStore
	runner      *fakeRunner
	generator   *mocks.MockGenerator
}

func testConfig() Config {
	return Config{
		MaxConcurrency: 2,
		Retry: retry.Policy{
			MaxRetries:   3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		},
		RequestTimeout:      time.Second,
		MaxImagesPerRequest: 12,
	}
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		mock:        mock,
		generations: newFakeGenerationStore(),
		artifacts:   newFakeArtifactStore(),
		credits:     &fakeCreditStore{},
		runner:      &fakeRunner{},
		generator:   &mocks.MockGenerator{},
	}

	f.svc, err = NewService(Dependencies{
		DB:          db,
		Generations: f.generations,
		Artifacts:   f.artifacts,
		Credits:     f.credits,
		Runner:      f.runner,
		Generator:   f.generator,
		Classify: func(err error) bool {
			return errors.Is(err, errOverloaded)
		},
		RetryOptions: []retry.Option{
			retry.WithJitter(func(time.Duration) time.Duration { return 0 }),
		},
	}, cfg, testLogger())
	require.NoError(t, err)
	return f
}

func (f *fixture) grant(t *testing.T, userID uuid.UUID, amount int) {
	t.Helper()
	entry, err := domain.NewGrant(userID, amount)
	require.NoError(t, err)
	require.NoError(t, f.credits.Append(context.Background(), entry))
}

// storeGeneration saves a pending generation with its reservation, as
// CreateGeneration would.
func (f *fixture) storeGeneration(t *testing.T, prompts []string, count int) *domain.Generation {
	t.Helper()
	g, err := domain.NewGeneration(uuid.New(), domain.ModeStudio, domain.ImageSize1K, domain.AspectRatioSquare,
		prompts, count, domain.GenerationInputs{ProductImages: [][]byte{[]byte("ring")}})
	require.NoError(t, err)
	require.NoError(t, f.generations.Create(context.Background(), g))

	f.grant(t, g.UserID, g.Cost)
	reservation, err := domain.NewReservation(g.UserID, g.ID, g.Cost)
	require.NoError(t, err)
	require.NoError(t, f.credits.Append(context.Background(), reservation))
	return g
}
