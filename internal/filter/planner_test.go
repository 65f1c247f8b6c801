package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalstore/internal/index"
	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

type fakeResolver struct {
	attrs    map[models.Timestamp]map[string]models.Value
	builtins map[models.Timestamp]map[string]models.Value
}

func (f *fakeResolver) Attribute(ts models.Timestamp, name string) (models.Value, bool) {
	v, ok := f.attrs[ts][name]
	return v, ok
}

func (f *fakeResolver) Builtin(ts models.Timestamp, name string) (models.Value, bool) {
	v, ok := f.builtins[ts][name]
	return v, ok
}

func drainTimestamps(it iterx.AdvanceUntil[models.Timestamp]) []models.Timestamp {
	type fronter interface {
		Next() (models.Timestamp, bool)
	}
	f := it.(fronter)
	var out []models.Timestamp
	for {
		v, ok := f.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

func buildFixture() (Indexes, *fakeResolver) {
	timeIdx := index.NewTimeIndex()
	levelIdx := index.NewLevelIndex()
	valueIdx := index.NewValueIndex()

	entries := []struct {
		ts     models.Timestamp
		level  models.Level
		status int64
		route  string
	}{
		{10, models.LevelInfo, 200, "auth-login"},
		{20, models.LevelError, 404, "auth-logout"},
		{30, models.LevelError, 500, "billing-charge"},
	}

	resolver := &fakeResolver{
		attrs:    map[models.Timestamp]map[string]models.Value{},
		builtins: map[models.Timestamp]map[string]models.Value{},
	}

	for _, e := range entries {
		timeIdx.Add(e.ts)
		levelIdx.Add(e.level, e.ts)
		valueIdx.Add("http.status", models.I64(e.status), e.ts)
		valueIdx.Add("route", models.Str(e.route), e.ts)
		resolver.attrs[e.ts] = map[string]models.Value{
			"http.status": models.I64(e.status),
			"route":       models.Str(e.route),
		}
		resolver.builtins[e.ts] = map[string]models.Value{
			"level": models.Str(strings.ToLower(e.level.String())),
		}
	}

	return Indexes{Time: timeIdx, Level: levelIdx, Value: valueIdx}, resolver
}

func TestPlanValueEqualityUsesValueIndex(t *testing.T) {
	idx, resolver := buildFixture()
	node, err := Parse(`@http.status: 404`)
	require.NoError(t, err)

	it, err := Plan(node, idx, resolver, Window{}, iterx.OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []models.Timestamp{20}, drainTimestamps(it))
}

func TestPlanLevelEqualityUsesLevelIndex(t *testing.T) {
	idx, resolver := buildFixture()
	node, err := Parse(`#level: error`)
	require.NoError(t, err)

	it, err := Plan(node, idx, resolver, Window{}, iterx.OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []models.Timestamp{20, 30}, drainTimestamps(it))
}

func TestPlanAndCombinesTwoLeaves(t *testing.T) {
	idx, resolver := buildFixture()
	node, err := Parse(`#level: error @route: "auth-*"`)
	require.NoError(t, err)

	it, err := Plan(node, idx, resolver, Window{}, iterx.OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []models.Timestamp{20}, drainTimestamps(it))
}

func TestPlanOrUnionsTwoLeaves(t *testing.T) {
	idx, resolver := buildFixture()
	node, err := Parse(`@http.status: 200 OR @http.status: 500`)
	require.NoError(t, err)

	it, err := Plan(node, idx, resolver, Window{}, iterx.OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []models.Timestamp{10, 30}, drainTimestamps(it))
}

func TestPlanNotDegradesToResidual(t *testing.T) {
	idx, resolver := buildFixture()
	node, err := Parse(`NOT #level: error`)
	require.NoError(t, err)

	it, err := Plan(node, idx, resolver, Window{}, iterx.OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []models.Timestamp{10}, drainTimestamps(it))
}

func TestPlanWindowNarrowsResults(t *testing.T) {
	idx, resolver := buildFixture()
	node, err := Parse(`#level: error`)
	require.NoError(t, err)

	it, err := Plan(node, idx, resolver, Window{Start: 25, End: 100}, iterx.OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []models.Timestamp{30}, drainTimestamps(it))
}

func TestPlanResidualLeafForUnindexedAttribute(t *testing.T) {
	idx, resolver := buildFixture()
	resolver.attrs[10]["unindexed"] = models.Bool(true)
	node, err := Parse(`@unindexed: true`)
	require.NoError(t, err)

	it, err := Plan(node, idx, resolver, Window{}, iterx.OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []models.Timestamp{10}, drainTimestamps(it))
}
