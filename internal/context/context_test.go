package context

import (
	stdcontext "context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalstore/internal/models"
	"signalstore/internal/storage"
)

func TestSpanContextMergesResourceParentChainAndOwnAttributes(t *testing.T) {
	ctx := stdcontext.Background()
	store := storage.NewTransient()

	resource := &models.Resource{
		CreatedAt:  1,
		Attributes: map[string]models.Value{"service": models.Str("checkout"), "env": models.Str("prod")},
	}
	require.NoError(t, store.InsertResource(ctx, resource))

	root := &models.Span{
		CreatedAt:   10,
		ResourceKey: resource.Key(),
		Name:        "root",
		Attributes:  map[string]models.Value{"env": models.Str("staging"), "request.id": models.Str("r1")},
	}
	require.NoError(t, store.InsertSpan(ctx, root))

	rootKey := root.Key()
	child := &models.Span{
		CreatedAt:   20,
		ResourceKey: resource.Key(),
		ParentKey:   &rootKey,
		Name:        "child",
		Attributes:  map[string]models.Value{"request.id": models.Str("r2")},
	}
	require.NoError(t, store.InsertSpan(ctx, child))

	sc := NewSpanContext(store, child)
	attrs, err := sc.EffectiveAttributes(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.Str("checkout"), attrs["service"])
	assert.Equal(t, models.Str("staging"), attrs["env"], "parent overrides resource")
	assert.Equal(t, models.Str("r2"), attrs["request.id"], "child overrides parent")
}

func TestSpanContextParentChainOrderedNearestFirst(t *testing.T) {
	ctx := stdcontext.Background()
	store := storage.NewTransient()

	resource := &models.Resource{CreatedAt: 1}
	require.NoError(t, store.InsertResource(ctx, resource))

	grandparent := &models.Span{CreatedAt: 10, ResourceKey: resource.Key(), Name: "gp"}
	require.NoError(t, store.InsertSpan(ctx, grandparent))
	gpKey := grandparent.Key()

	parent := &models.Span{CreatedAt: 20, ResourceKey: resource.Key(), Name: "p", ParentKey: &gpKey}
	require.NoError(t, store.InsertSpan(ctx, parent))
	pKey := parent.Key()

	child := &models.Span{CreatedAt: 30, ResourceKey: resource.Key(), Name: "c", ParentKey: &pKey}
	require.NoError(t, store.InsertSpan(ctx, child))

	sc := NewSpanContext(store, child)
	chain, err := sc.ParentChain(ctx)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "p", chain[0].Name)
	assert.Equal(t, "gp", chain[1].Name)
}

func TestEventContextMergesThroughParentSpan(t *testing.T) {
	ctx := stdcontext.Background()
	store := storage.NewTransient()

	resource := &models.Resource{CreatedAt: 1, Attributes: map[string]models.Value{"service": models.Str("checkout")}}
	require.NoError(t, store.InsertResource(ctx, resource))

	span := &models.Span{
		CreatedAt:   10,
		ResourceKey: resource.Key(),
		Name:        "handler",
		Attributes:  map[string]models.Value{"route": models.Str("/pay")},
	}
	require.NoError(t, store.InsertSpan(ctx, span))
	spanKey := span.Key()

	event := &models.Event{
		Timestamp:   15,
		ResourceKey: resource.Key(),
		ParentKey:   &spanKey,
		Content:     "payment failed",
		Attributes:  map[string]models.Value{"error.code": models.I64(402)},
	}
	require.NoError(t, store.InsertEvent(ctx, event))

	ec := NewEventContext(store, event)
	attrs, err := ec.EffectiveAttributes(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.Str("checkout"), attrs["service"])
	assert.Equal(t, models.Str("/pay"), attrs["route"])
	assert.Equal(t, models.I64(402), attrs["error.code"])
}

func TestEventContextWithNoParentSpanUsesResourceAndOwnAttributesOnly(t *testing.T) {
	ctx := stdcontext.Background()
	store := storage.NewTransient()

	resource := &models.Resource{CreatedAt: 1, Attributes: map[string]models.Value{"service": models.Str("checkout")}}
	require.NoError(t, store.InsertResource(ctx, resource))

	event := &models.Event{
		Timestamp:   5,
		ResourceKey: resource.Key(),
		Content:     "startup",
	}
	require.NoError(t, store.InsertEvent(ctx, event))

	ec := NewEventContext(store, event)
	parent, err := ec.ParentSpan(ctx)
	require.NoError(t, err)
	assert.Nil(t, parent)

	attrs, err := ec.EffectiveAttributes(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Str("checkout"), attrs["service"])
}
