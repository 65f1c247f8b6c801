package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"signalstore/internal/index"
	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

// Indexes bundles the secondary structures one entity kind's planner draws
// on. Duration is nil for event/resource queries, since only spans carry a
// duration.
type Indexes struct {
	Time     *index.TimeIndex
	Level    *index.LevelIndex
	Duration *index.SpanDurationIndex
	Value    *index.ValueIndex
}

// Resolver supplies the field values the planner cannot answer from an
// index alone: residual predicates and full NOT evaluation both go through
// it, one timestamp at a time.
type Resolver interface {
	Attribute(ts models.Timestamp, name string) (models.Value, bool)
	Builtin(ts models.Timestamp, name string) (models.Value, bool)
}

// Window bounds a query to [Start, End] (inclusive); a zero value means
// unbounded on that side.
type Window struct {
	Start models.Timestamp
	End   models.Timestamp
}

// Plan lowers a FilterNode AST into a double-ended, seekable timestamp
// stream per §4.3: normalize is a no-op here (AND/OR shape is already
// index-composable without DNF expansion for this grammar), each leaf picks
// the most selective available index (value > level > time), and the
// window is applied last by intersecting against a bounded time-index
// scan.
func Plan(node FilterNode, idx Indexes, resolver Resolver, window Window, order iterx.Order) (iterx.AdvanceUntil[models.Timestamp], error) {
	body, err := planNode(node, idx, resolver)
	if err != nil {
		return nil, err
	}
	windowed := applyWindow(body, idx, window)
	return iterx.WithOrder(windowed, order), nil
}

func applyWindow(body iterx.AdvanceUntil[models.Timestamp], idx Indexes, window Window) iterx.AdvanceUntil[models.Timestamp] {
	lo, hi := window.Start, window.End
	if hi == 0 {
		hi = models.Timestamp(1<<63 - 1)
	}
	bounded := idx.Time.Scan(lo, hi, nil)
	return iterx.NewSetIntersectionIterator([]*iterx.Peekable[models.Timestamp]{
		iterx.NewPeekable[models.Timestamp](body),
		iterx.NewPeekable[models.Timestamp](bounded),
	})
}

func planNode(node FilterNode, idx Indexes, resolver Resolver) (iterx.AdvanceUntil[models.Timestamp], error) {
	switch n := node.(type) {
	case *ConditionNode:
		return planLeaf(n, idx, resolver)

	case *BinaryNode:
		left, err := planNode(n.Left, idx, resolver)
		if err != nil {
			return nil, err
		}
		right, err := planNode(n.Right, idx, resolver)
		if err != nil {
			return nil, err
		}
		streams := []*iterx.Peekable[models.Timestamp]{
			iterx.NewPeekable(left),
			iterx.NewPeekable(right),
		}
		switch n.Operator {
		case LogicAnd:
			return iterx.NewSetIntersectionIterator(streams), nil
		default:
			return iterx.NewSetUnionIterator(streams), nil
		}

	case *NotNode:
		// Negation has no direct index support (see DESIGN.md): lower it to
		// a full scan of the universe with a residual predicate built from
		// the inverse of the inner node's own evaluator.
		filter := func(ts models.Timestamp) bool {
			matched, err := Evaluate(n.Inner, ts, resolver)
			return err == nil && !matched
		}
		return idx.Time.Scan(0, models.Timestamp(1<<63-1), filter), nil

	default:
		return nil, fmt.Errorf("filter: unknown node type %T", node)
	}
}

// planLeaf picks the most selective index for a single condition:
// value-index for attribute fields carrying an indexed name, level-index
// for the builtin level field, a bounded time-index scan for #created, the
// span-duration index for #duration when present, and time-index (the
// universal fallback, with a residual predicate attached) for everything
// else.
func planLeaf(cond *ConditionNode, idx Indexes, resolver Resolver) (iterx.AdvanceUntil[models.Timestamp], error) {
	if cond.FieldKind == FieldBuiltin {
		switch cond.Field {
		case BuiltinLevel:
			return planLevelLeaf(cond, idx)
		case BuiltinCreated:
			return planTimeLeaf(cond, idx)
		case BuiltinDuration:
			if it, ok, err := planDurationLeaf(cond, idx); ok || err != nil {
				return it, err
			}
		}
		return residualLeaf(cond, idx, resolver), nil
	}

	if idx.Value.Has(cond.Field) {
		if it, ok, err := planValueLeaf(cond, idx); ok || err != nil {
			return it, err
		}
	}
	return residualLeaf(cond, idx, resolver), nil
}

func planLevelLeaf(cond *ConditionNode, idx Indexes) (iterx.AdvanceUntil[models.Timestamp], error) {
	target, ok := models.ParseLevel(strings.ToUpper(cond.Value.String()))
	if cond.Op != OpEquals || !ok {
		return nil, fmt.Errorf("filter: #level only supports equality against a known level name")
	}
	buckets := idx.Level.MatchingBuckets(func(l models.Level) bool { return l == target })
	return unionBuckets(buckets), nil
}

func planTimeLeaf(cond *ConditionNode, idx Indexes) (iterx.AdvanceUntil[models.Timestamp], error) {
	ts := models.Timestamp(cond.Value.I64)
	switch cond.Op {
	case OpEquals:
		return idx.Time.Scan(ts, ts, nil), nil
	case OpLessThan:
		return idx.Time.Scan(0, ts-1, nil), nil
	case OpLessOrEqual:
		return idx.Time.Scan(0, ts, nil), nil
	case OpGreaterThan:
		return idx.Time.Scan(ts+1, models.Timestamp(1<<63-1), nil), nil
	case OpGreaterOrEqual:
		return idx.Time.Scan(ts, models.Timestamp(1<<63-1), nil), nil
	case OpRange:
		return idx.Time.Scan(models.Timestamp(cond.RangeLo.I64), models.Timestamp(cond.RangeHi.I64), nil), nil
	default:
		return nil, fmt.Errorf("filter: #created does not support this comparison")
	}
}

// planDurationLeaf handles #duration range/comparison leaves against the
// closed-span duration index; it reports ok=false (not an error) when the
// span duration index is absent (event/resource queries) so the caller
// falls back to a residual predicate instead.
func planDurationLeaf(cond *ConditionNode, idx Indexes) (iterx.AdvanceUntil[models.Timestamp], bool, error) {
	if idx.Duration == nil {
		return nil, false, nil
	}
	var keys []models.SpanKey
	switch cond.Op {
	case OpRange:
		keys = idx.Duration.KeysInDurationRange(cond.RangeLo.I64, cond.RangeHi.I64)
	case OpGreaterOrEqual:
		keys = idx.Duration.KeysInDurationRange(cond.Value.I64, 1<<62)
	case OpLessOrEqual:
		keys = idx.Duration.KeysInDurationRange(0, cond.Value.I64)
	default:
		return nil, false, nil
	}
	// KeysInDurationRange yields duration order; the iterator needs key order.
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return iterx.NewIndexIterator(keys, nil), true, nil
}

func planValueLeaf(cond *ConditionNode, idx Indexes) (iterx.AdvanceUntil[models.Timestamp], bool, error) {
	switch cond.Op {
	case OpEquals:
		return iterx.NewIndexIterator(idx.Value.Equals(cond.Field, cond.Value), nil), true, nil
	case OpLessThan, OpGreaterOrEqual:
		lo, hi := rangeBoundsFor(cond)
		return unionBuckets(idx.Value.Range(cond.Field, lo, hi)), true, nil
	case OpLessOrEqual, OpGreaterThan, OpRange:
		// Range is lo-inclusive and hi-exclusive, so these compare each value.
		return unionBuckets(idx.Value.Scan(cond.Field, func(v models.Value) bool {
			switch cond.Op {
			case OpLessOrEqual:
				return v.Compare(cond.Value) <= 0
			case OpGreaterThan:
				return v.Compare(cond.Value) > 0
			}
			return v.Compare(cond.RangeLo) >= 0 && v.Compare(cond.RangeHi) <= 0
		})), true, nil
	case OpPrefix:
		return unionBuckets(idx.Value.Prefix(cond.Field, cond.Value.Str)), true, nil
	case OpSuffix:
		suffix := cond.Value.Str
		return unionBuckets(idx.Value.Scan(cond.Field, func(v models.Value) bool {
			return v.Kind == models.KindString && strings.HasSuffix(v.Str, suffix)
		})), true, nil
	case OpSubstring:
		needle := cond.Value.Str
		return unionBuckets(idx.Value.Scan(cond.Field, func(v models.Value) bool {
			return v.Kind == models.KindString && strings.Contains(v.Str, needle)
		})), true, nil
	case OpRegex:
		re, err := regexp.Compile(cond.Pattern)
		if err != nil {
			return nil, true, err
		}
		return unionBuckets(idx.Value.Scan(cond.Field, func(v models.Value) bool {
			return re.MatchString(v.String())
		})), true, nil
	case OpSet:
		var buckets [][]models.Timestamp
		for _, v := range cond.Set {
			buckets = append(buckets, idx.Value.Equals(cond.Field, v))
		}
		return unionBuckets(buckets), true, nil
	default:
		return nil, false, nil
	}
}

func rangeBoundsFor(cond *ConditionNode) (lo, hi *models.Value) {
	switch cond.Op {
	case OpGreaterThan, OpGreaterOrEqual:
		v := cond.Value
		return &v, nil
	default:
		v := cond.Value
		return nil, &v
	}
}

func unionBuckets(buckets [][]models.Timestamp) iterx.AdvanceUntil[models.Timestamp] {
	if len(buckets) == 0 {
		return iterx.NewIndexIterator[models.Timestamp](nil, nil)
	}
	if len(buckets) == 1 {
		return iterx.NewIndexIterator(buckets[0], nil)
	}
	streams := make([]*iterx.Peekable[models.Timestamp], len(buckets))
	for i, b := range buckets {
		streams[i] = iterx.NewPeekable[models.Timestamp](iterx.NewIndexIterator(b, nil))
	}
	return iterx.NewSetUnionIterator(streams)
}

// residualLeaf degrades a leaf with no usable index to the universal
// time-index scan with the condition evaluated per-element via resolver.
func residualLeaf(cond *ConditionNode, idx Indexes, resolver Resolver) iterx.AdvanceUntil[models.Timestamp] {
	return idx.Time.Scan(0, models.Timestamp(1<<63-1), func(ts models.Timestamp) bool {
		ok, err := evaluateCondition(cond, ts, resolver)
		return err == nil && ok
	})
}

// Evaluate interprets node directly against a single timestamp via
// resolver, independent of any index. It backs NOT lowering and is also
// useful standalone for subscription re-evaluation against a single new
// entity.
func Evaluate(node FilterNode, ts models.Timestamp, resolver Resolver) (bool, error) {
	switch n := node.(type) {
	case *ConditionNode:
		return evaluateCondition(n, ts, resolver)
	case *BinaryNode:
		left, err := Evaluate(n.Left, ts, resolver)
		if err != nil {
			return false, err
		}
		if n.Operator == LogicAnd && !left {
			return false, nil
		}
		if n.Operator == LogicOr && left {
			return true, nil
		}
		return Evaluate(n.Right, ts, resolver)
	case *NotNode:
		inner, err := Evaluate(n.Inner, ts, resolver)
		return !inner, err
	default:
		return false, fmt.Errorf("filter: unknown node type %T", node)
	}
}

func evaluateCondition(cond *ConditionNode, ts models.Timestamp, resolver Resolver) (bool, error) {
	var actual models.Value
	var present bool
	if cond.FieldKind == FieldAttribute {
		actual, present = resolver.Attribute(ts, cond.Field)
	} else {
		actual, present = resolver.Builtin(ts, cond.Field)
	}

	if cond.Op == OpNull {
		return !present, nil
	}
	if !present {
		return false, nil
	}

	switch cond.Op {
	case OpEquals:
		return actual.Compare(cond.Value) == 0, nil
	case OpLessThan:
		return actual.Compare(cond.Value) < 0, nil
	case OpLessOrEqual:
		return actual.Compare(cond.Value) <= 0, nil
	case OpGreaterThan:
		return actual.Compare(cond.Value) > 0, nil
	case OpGreaterOrEqual:
		return actual.Compare(cond.Value) >= 0, nil
	case OpRange:
		return actual.Compare(cond.RangeLo) >= 0 && actual.Compare(cond.RangeHi) <= 0, nil
	case OpPrefix:
		return strings.HasPrefix(actual.String(), cond.Value.String()), nil
	case OpSuffix:
		return strings.HasSuffix(actual.String(), cond.Value.String()), nil
	case OpSubstring:
		return strings.Contains(actual.String(), cond.Value.String()), nil
	case OpRegex:
		re, err := regexp.Compile(cond.Pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(actual.String()), nil
	case OpSet:
		for _, v := range cond.Set {
			if actual.Compare(v) == 0 {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("filter: unsupported comparison op %d", cond.Op)
	}
}
