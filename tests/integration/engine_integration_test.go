//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"signalstore/internal/engine"
	"signalstore/internal/models"
	"signalstore/internal/storage"
	"signalstore/pkg/logging"
)

// EngineIntegrationTestSuite spins up a real Badger-backed engine against a
// temp directory, the one end-to-end check that the copy-on-read,
// validate-once persistence path (storage.Persistent) round-trips the same
// way the transient backend does, rather than mocking storage as every
// package-level test does.
type EngineIntegrationTestSuite struct {
	suite.Suite
	dir string
}

func (s *EngineIntegrationTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *EngineIntegrationTestSuite) openEngine() (*storage.Persistent, *engine.SyncEngine) {
	p, err := storage.OpenPersistentWithSync(s.dir, true)
	require.NoError(s.T(), err)
	e, err := engine.NewSyncEngine(context.Background(), storage.NewCached(p, 128), logging.NewTextLogger(logging.ParseLevel("error")))
	require.NoError(s.T(), err)
	return p, e
}

func (s *EngineIntegrationTestSuite) TestInsertQueryAndReopenRebuildsIndexes() {
	ctx := context.Background()

	p, e := s.openEngine()

	res := &models.Resource{CreatedAt: 1, Attributes: map[string]models.Value{"service": models.Str("checkout")}}
	storedRes, err := e.InsertResource(ctx, res)
	require.NoError(s.T(), err)

	span := &models.Span{
		CreatedAt:   100,
		ID:          models.FullSpanId{TraceIDLow: 1, SpanID: 1},
		ResourceKey: storedRes.Key(),
		Name:        "handle-checkout",
		Level:       models.LevelInfo,
		Attributes:  map[string]models.Value{"route": models.Str("checkout")},
	}
	_, err = e.InsertSpan(ctx, span)
	require.NoError(s.T(), err)
	require.NoError(s.T(), e.UpdateSpanClosed(ctx, span.Key(), 150, nil))

	views, err := e.QuerySpan(ctx, engine.Query{Filter: `@route: "checkout"`, End: 1 << 40})
	require.NoError(s.T(), err)
	require.Len(s.T(), views, 1)
	require.Equal(s.T(), models.Timestamp(150), *views[0].ClosedAt)
	require.Equal(s.T(), "checkout", views[0].Attributes["service"].Str)

	require.NoError(s.T(), e.Close())
	require.NoError(s.T(), p.Close())

	// Reopen the same directory: indexes must be rebuilt from the persisted
	// records alone, with no in-memory state surviving the restart.
	p2, e2 := s.openEngine()
	defer func() { require.NoError(s.T(), p2.Close()) }()

	reopenedViews, err := e2.QuerySpan(ctx, engine.Query{Filter: `@route: "checkout"`, End: 1 << 40})
	require.NoError(s.T(), err)
	require.Len(s.T(), reopenedViews, 1)
	require.Equal(s.T(), span.CreatedAt, reopenedViews[0].CreatedAt)
	require.Equal(s.T(), models.Timestamp(150), *reopenedViews[0].ClosedAt)
	require.Equal(s.T(), "checkout", reopenedViews[0].Attributes["service"].Str)
}

func TestEngineIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(EngineIntegrationTestSuite))
}
