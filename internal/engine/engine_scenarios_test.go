package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

// syntheticDataset builds a deterministic stand-in for the canonical
// benchmark archive (16,537 events / 98,197 spans) at a scale the test
// suite can afford: enough spans and events to exercise every index and
// iterator combination without needing the real archive on disk.
const (
	syntheticSpanCount  = 2000
	syntheticEventCount = 400
)

func buildSyntheticDataset(t *testing.T, e *SyncEngine) {
	t.Helper()
	ctx := context.Background()
	src := rand.New(rand.NewSource(42))

	routes := []string{"auth-login", "auth-logout", "checkout", "search", "health"}
	levels := []models.Level{models.LevelTrace, models.LevelDebug, models.LevelInfo, models.LevelWarn, models.LevelError}

	var lastParent *models.SpanKey
	for i := 0; i < syntheticSpanCount; i++ {
		ts := models.Timestamp(1000 + i*10)
		s := testSpan(ts, uint64(i+1), lastParent)
		s.Level = levels[i%len(levels)]
		s.Attributes["route"] = models.Str(routes[i%len(routes)])
		s.Attributes["retries"] = models.I64(int64(src.Intn(5)))
		inserted, err := e.InsertSpan(ctx, s)
		require.NoError(t, err)

		if i%7 == 0 {
			parent := inserted.Key()
			lastParent = &parent
		}
		if i%3 != 0 {
			closedAt := ts + models.Timestamp(5+src.Intn(50))
			require.NoError(t, e.UpdateSpanClosed(ctx, inserted.Key(), closedAt, nil))
		}
	}

	for i := 0; i < syntheticEventCount; i++ {
		ts := models.Timestamp(1000 + i*50 + 5)
		ev := &models.Event{
			Timestamp:  ts,
			Level:      levels[i%len(levels)],
			Content:    "synthetic event",
			Attributes: map[string]models.Value{"route": models.Str(routes[i%len(routes)])},
		}
		_, err := e.InsertEvent(ctx, ev)
		require.NoError(t, err)
	}
}

// Property 1: query results are independent of insertion permutation for
// non-conflicting items — two engines fed the same spans in different
// orders return the same set keyed by timestamp.
func TestScenarioQueryInvariantUnderInsertPermutation(t *testing.T) {
	ctx := context.Background()
	spans := make([]*models.Span, 0, 50)
	for i := 0; i < 50; i++ {
		spans = append(spans, testSpan(models.Timestamp(2000+i), uint64(i+1), nil))
	}

	inOrder := newTestEngine(t)
	for _, s := range spans {
		cp := *s
		cp.Attributes = map[string]models.Value{}
		_, err := inOrder.InsertSpan(ctx, &cp)
		require.NoError(t, err)
	}

	shuffled := newTestEngine(t)
	perm := rand.New(rand.NewSource(7)).Perm(len(spans))
	for _, idx := range perm {
		cp := *spans[idx]
		cp.Attributes = map[string]models.Value{}
		_, err := shuffled.InsertSpan(ctx, &cp)
		require.NoError(t, err)
	}

	wantViews, err := inOrder.QuerySpan(ctx, Query{Filter: "", End: 1 << 40})
	require.NoError(t, err)
	gotViews, err := shuffled.QuerySpan(ctx, Query{Filter: "", End: 1 << 40})
	require.NoError(t, err)

	wantKeys := make([]models.Timestamp, len(wantViews))
	for i, v := range wantViews {
		wantKeys[i] = v.CreatedAt
	}
	gotKeys := make([]models.Timestamp, len(gotViews))
	for i, v := range gotViews {
		gotKeys[i] = v.CreatedAt
	}
	assert.ElementsMatch(t, wantKeys, gotKeys)
}

// Property 2: sorted indexes stay sorted and contain exactly the live keys,
// checked here via the time-ordered query result over the synthetic
// dataset with no filter.
func TestScenarioTimeIndexStaysSortedAfterBulkInsert(t *testing.T) {
	e := newTestEngine(t)
	buildSyntheticDataset(t, e)

	views, err := e.QuerySpan(context.Background(), Query{Filter: "", Order: iterx.OrderAsc, End: 1 << 40})
	require.NoError(t, err)
	require.Len(t, views, syntheticSpanCount)

	for i := 1; i < len(views); i++ {
		assert.Less(t, views[i-1].CreatedAt, views[i].CreatedAt)
	}
}

// Property 3: effective attributes of a span include its parent chain's and its
// resource's attributes, with the span's own keys shadowing both.
func TestScenarioEffectiveAttributesIncludeParentChain(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res := &models.Resource{CreatedAt: 1, Attributes: map[string]models.Value{"service": models.Str("checkout"), "shared": models.Str("resource")}}
	storedRes, err := e.InsertResource(ctx, res)
	require.NoError(t, err)

	parent := testSpan(10, 1, nil)
	parent.ResourceKey = storedRes.Key()
	parent.Attributes["region"] = models.Str("us-east")
	parent.Attributes["shared"] = models.Str("parent")
	storedParent, err := e.InsertSpan(ctx, parent)
	require.NoError(t, err)

	parentKey := storedParent.Key()
	child := testSpan(20, 2, &parentKey)
	child.Attributes["shared"] = models.Str("child")
	storedChild, err := e.InsertSpan(ctx, child)
	require.NoError(t, err)

	views, err := e.QuerySpan(ctx, Query{Filter: "", End: 1 << 40})
	require.NoError(t, err)

	var childView *models.SpanView
	for _, v := range views {
		if v.CreatedAt == storedChild.CreatedAt {
			childView = v
		}
	}
	require.NotNil(t, childView)
	assert.Equal(t, "checkout", childView.Attributes["service"].Str)
	assert.Equal(t, "us-east", childView.Attributes["region"].Str)
	assert.Equal(t, "child", childView.Attributes["shared"].Str)
}

// Property 5: iterator algebra laws hold over the filter planner's compound
// iterators — AND with a tautology returns the same set as the bare leaf,
// and reversing order twice returns the original order.
func TestScenarioFilterAlgebraLaws(t *testing.T) {
	e := newTestEngine(t)
	buildSyntheticDataset(t, e)
	ctx := context.Background()

	bare, err := e.QuerySpan(ctx, Query{Filter: `@route: "checkout"`, End: 1 << 40})
	require.NoError(t, err)
	require.NotEmpty(t, bare)

	anded, err := e.QuerySpan(ctx, Query{Filter: `@route: "checkout" #created: >=0`, End: 1 << 40})
	require.NoError(t, err)

	bareKeys := make([]models.Timestamp, len(bare))
	for i, v := range bare {
		bareKeys[i] = v.CreatedAt
	}
	andedKeys := make([]models.Timestamp, len(anded))
	for i, v := range anded {
		andedKeys[i] = v.CreatedAt
	}
	assert.ElementsMatch(t, bareKeys, andedKeys)

	asc, err := e.QuerySpan(ctx, Query{Filter: "", Order: iterx.OrderAsc, End: 1 << 40})
	require.NoError(t, err)
	desc, err := e.QuerySpan(ctx, Query{Filter: "", Order: iterx.OrderDesc, End: 1 << 40})
	require.NoError(t, err)
	require.Equal(t, len(asc), len(desc))
	for i := range asc {
		assert.Equal(t, asc[i].CreatedAt, desc[len(desc)-1-i].CreatedAt)
	}
}

// Property 6: bound search correctness over a populated time index — queries
// windowed by [start,end] never return an entity outside that window.
func TestScenarioQueryWindowRespectsBounds(t *testing.T) {
	e := newTestEngine(t)
	buildSyntheticDataset(t, e)
	ctx := context.Background()

	const start, end = models.Timestamp(5000), models.Timestamp(10000)
	views, err := e.QuerySpan(ctx, Query{Filter: "", Start: start, End: end})
	require.NoError(t, err)
	require.NotEmpty(t, views)
	for _, v := range views {
		assert.GreaterOrEqual(t, v.CreatedAt, start)
		assert.LessOrEqual(t, v.CreatedAt, end)
	}
}
