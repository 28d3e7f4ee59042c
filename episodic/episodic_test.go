package episodic

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edenrobotics/egograph/ai"
	"github.com/edenrobotics/egograph/ego"
	"github.com/edenrobotics/egograph/internal/profile"
	"github.com/edenrobotics/egograph/store"
	"github.com/edenrobotics/egograph/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "episodic_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestEpisodic(t *testing.T, cfg Config) *Store {
	t.Helper()
	s := New(newTestStore(t), ai.NewLocalEmbedder(64), cfg)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func entry(content string, importance float64, createdAt time.Time) ego.EpisodicEntry {
	return ego.EpisodicEntry{
		Content:    content,
		NodeType:   ego.NodeTypeRoutine,
		Importance: importance,
		CreatedAt:  createdAt,
	}
}

func TestStore_RecordAndCount(t *testing.T) {
	s := newTestEpisodic(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, entry("a quiet afternoon", 0.4, time.Now())))
	require.NoError(t, s.Record(ctx, entry("another quiet afternoon", 0.3, time.Now())))
	assert.Equal(t, 2, s.Count())
}

func TestStore_DecayedScore(t *testing.T) {
	s := newTestEpisodic(t, DefaultConfig())
	now := time.Now()

	fresh := &Entry{Importance: 0.4, CreatedAt: now}
	assert.InDelta(t, 0.4, s.DecayedScore(fresh, now), 1e-9)

	aged := &Entry{Importance: 0.4, CreatedAt: now.Add(-24 * time.Hour)}
	assert.InDelta(t, 0.2, s.DecayedScore(aged, now), 1e-6, "one half-life halves the score")

	ancient := &Entry{Importance: 0.4, CreatedAt: now.Add(-10 * 24 * time.Hour)}
	assert.Less(t, s.DecayedScore(ancient, now), 0.001)
}

func TestStore_SweepPrunesDecayed(t *testing.T) {
	s := newTestEpisodic(t, DefaultConfig())
	ctx := context.Background()

	// Five half-lives: 0.4 -> 0.0125, below the 0.05 floor.
	require.NoError(t, s.Record(ctx, entry("long forgotten", 0.4, time.Now().Add(-5*24*time.Hour))))
	require.NoError(t, s.Record(ctx, entry("still fresh", 0.4, time.Now())))

	pruned, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 1, s.Count())

	// The prune is persisted too.
	reloaded := New(s.st, ai.NewLocalEmbedder(64), DefaultConfig())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 1, reloaded.Count())
}

func TestStore_CapEvictsLowestScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cap = 3
	s := newTestEpisodic(t, cfg)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Record(ctx, entry("oldest and weakest", 0.1, now.Add(-20*time.Hour))))
	require.NoError(t, s.Record(ctx, entry("middle", 0.4, now.Add(-1*time.Hour))))
	require.NoError(t, s.Record(ctx, entry("strong", 0.6, now)))

	require.NoError(t, s.Record(ctx, entry("newcomer", 0.5, now)))
	assert.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, "oldest and weakest", "", 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "oldest and weakest", r.Content)
	}
}

func TestStore_Search(t *testing.T) {
	s := newTestEpisodic(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, entry("the robot rolled across the kitchen floor", 0.4, time.Now())))
	require.NoError(t, s.Record(ctx, entry("rain fell on the garden all morning", 0.4, time.Now())))

	results, err := s.Search(ctx, "robot moving through the kitchen", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "the robot rolled across the kitchen floor", results[0].Content)
}

func TestStore_SearchFiltersByUser(t *testing.T) {
	s := newTestEpisodic(t, DefaultConfig())
	ctx := context.Background()

	ianEntry := entry("Ian mentioned the weather", 0.4, time.Now())
	ianEntry.User = "ian"
	require.NoError(t, s.Record(ctx, ianEntry))

	miaEntry := entry("Mia mentioned the weather", 0.4, time.Now())
	miaEntry.User = "mia"
	require.NoError(t, s.Record(ctx, miaEntry))

	results, err := s.Search(ctx, "mentioned the weather", "ian", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ian", results[0].User)
}

func TestStore_SearchLimit(t *testing.T) {
	s := newTestEpisodic(t, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, entry(fmt.Sprintf("routine check number %d", i), 0.4, time.Now())))
	}

	results, err := s.Search(ctx, "routine check", "", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// gateEmbedder blocks each Embed call until released, to observe what the
// store does while an embedding call is in flight.
type gateEmbedder struct {
	inner   ai.EmbeddingService
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.inner.Embed(ctx, text)
}

func (g *gateEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return g.inner.EmbedBatch(ctx, texts)
}

func (g *gateEmbedder) Dimensions() int { return g.inner.Dimensions() }
func (g *gateEmbedder) Model() string   { return g.inner.Model() }

func TestStore_RecordEmbedsOutsideLock(t *testing.T) {
	gate := &gateEmbedder{
		inner:   ai.NewLocalEmbedder(64),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(newTestStore(t), gate, DefaultConfig())
	require.NoError(t, s.Load(context.Background()))

	recordErr := make(chan error, 1)
	go func() {
		recordErr <- s.Record(context.Background(), entry("a slow embedding", 0.4, time.Now()))
	}()
	<-gate.entered

	// The store must stay readable while the embedder is still working.
	counted := make(chan int, 1)
	go func() { counted <- s.Count() }()
	select {
	case n := <-counted:
		assert.Equal(t, 0, n)
	case <-time.After(time.Second):
		t.Fatal("Count blocked while an embedding call was in flight")
	}

	close(gate.release)
	require.NoError(t, <-recordErr)
	assert.Equal(t, 1, s.Count())
}

func TestStore_SearchReadsPersistedEmbeddings(t *testing.T) {
	st := newTestStore(t)
	embedder := ai.NewLocalEmbedder(64)
	ctx := context.Background()

	writer := New(st, embedder, DefaultConfig())
	require.NoError(t, writer.Load(ctx))
	require.NoError(t, writer.Record(ctx, entry("the charging dock hummed overnight", 0.4, time.Now())))

	// A second store over the same database, never loaded: results must come
	// from the driver's vector search, not from in-process state.
	reader := New(st, embedder, DefaultConfig())
	results, err := reader.Search(ctx, "the charging dock hummed overnight", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, results[0].Similarity, 0.9)
}

func TestStore_LoadRestoresEntries(t *testing.T) {
	st := newTestStore(t)
	embedder := ai.NewLocalEmbedder(64)
	ctx := context.Background()

	s := New(st, embedder, DefaultConfig())
	require.NoError(t, s.Load(ctx))
	e := entry("a passing observation", 0.4, time.Now())
	vec, err := embedder.Embed(ctx, e.Content)
	require.NoError(t, err)
	e.Embedding = vec
	require.NoError(t, s.Record(ctx, e))

	reloaded := New(st, embedder, DefaultConfig())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 1, reloaded.Count())

	results, err := reloaded.Search(ctx, "a passing observation", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, results[0].Similarity, 0.9)
}
