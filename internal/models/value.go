package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

// ValueKind tags the active member of Value, the same role Brokle's
// observability.Span draws with its polymorphic input/output JSON fields,
// generalized here to a closed union instead of ad-hoc interface{} handling.
type ValueKind uint8

const (
	KindF64 ValueKind = iota
	KindI64
	KindU64
	KindI128
	KindU128
	KindBool
	KindString
	KindBytes
	KindArray
	KindMap
)

// Value is a tagged union over the attribute value types the engine accepts.
// Only one of the fields matching Kind is meaningful.
type Value struct {
	Kind ValueKind

	F64 float64
	I64 int64
	U64 uint64

	// I128/U128 are carried as big-endian 16-byte buffers; decimal.Decimal
	// renders them for JSON and comparison without truncating to int64.
	Wide128 [16]byte

	Bool   bool
	Str    string
	Bytes  []byte
	Array  []Value
	Map    map[string]Value
}

func F64(v float64) Value  { return Value{Kind: KindF64, F64: v} }
func I64(v int64) Value    { return Value{Kind: KindI64, I64: v} }
func U64(v uint64) Value   { return Value{Kind: KindU64, U64: v} }
func Bool(v bool) Value    { return Value{Kind: KindBool, Bool: v} }
func Str(v string) Value   { return Value{Kind: KindString, Str: v} }
func Bytes(v []byte) Value { return Value{Kind: KindBytes, Bytes: v} }
func Array(v []Value) Value {
	return Value{Kind: KindArray, Array: v}
}
func Map(v map[string]Value) Value { return Value{Kind: KindMap, Map: v} }

// AsDecimal renders the wide integer kinds as a decimal.Decimal for display
// and arithmetic that would overflow int64/uint64.
func (v Value) AsDecimal() decimal.Decimal {
	switch v.Kind {
	case KindI128:
		return decimal.NewFromBigInt(bigFromBE(v.Wide128[:], true), 0)
	case KindU128:
		return decimal.NewFromBigInt(bigFromBE(v.Wide128[:], false), 0)
	case KindI64:
		return decimal.NewFromInt(v.I64)
	case KindU64:
		return decimal.NewFromUint64(v.U64)
	case KindF64:
		return decimal.NewFromFloat(v.F64)
	default:
		return decimal.Zero
	}
}

// String renders a human-readable form used by the filter engine's
// stringly-typed comparisons (prefix/suffix/substring/regex all operate on
// this rendering).
func (v Value) String() string {
	switch v.Kind {
	case KindF64:
		return fmt.Sprintf("%g", v.F64)
	case KindI64:
		return fmt.Sprintf("%d", v.I64)
	case KindU64:
		return fmt.Sprintf("%d", v.U64)
	case KindI128:
		return v.AsDecimal().String()
	case KindU128:
		return v.AsDecimal().String()
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case KindArray:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.String()
		}
		return fmt.Sprintf("%v", parts)
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("%v", keys)
	default:
		return ""
	}
}

// Compare orders two values for use as value-index keys. Values of
// different kinds are ordered by kind first, so a value index partitions
// cleanly by type even when an attribute name is polymorphic across
// entities.
func (v Value) Compare(other Value) int {
	if v.Kind != other.Kind {
		if v.Kind < other.Kind {
			return -1
		}
		return 1
	}

	switch v.Kind {
	case KindF64:
		return cmpFloat(v.F64, other.F64)
	case KindI64:
		return cmpOrdered(v.I64, other.I64)
	case KindU64:
		return cmpOrdered(v.U64, other.U64)
	case KindI128, KindU128:
		return v.AsDecimal().Cmp(other.AsDecimal())
	case KindBool:
		if v.Bool == other.Bool {
			return 0
		}
		if !v.Bool {
			return -1
		}
		return 1
	case KindString:
		return cmpOrdered(v.Str, other.Str)
	case KindBytes:
		return compareBytes(v.Bytes, other.Bytes)
	default:
		return cmpOrdered(v.String(), other.String())
	}
}

func cmpOrdered[T interface{ ~int64 | ~uint64 | ~string }](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	la, lb := len(a), len(b)
	n := la
	if lb < n {
		n = lb
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return cmpOrdered(la, lb)
}

func bigFromBE(buf []byte, signed bool) *big.Int {
	n := new(big.Int).SetBytes(buf)
	if signed && len(buf) > 0 && buf[0]&0x80 != 0 {
		max := new(big.Int).Lsh(big.NewInt(1), uint(len(buf)*8))
		n.Sub(n, max)
	}
	return n
}

// MarshalJSON renders the value the way the store's HTTP front door and
// archival exporter both expect: a discriminated {"kind":...,"value":...}
// envelope, mirroring Brokle's Span.UnmarshalJSON approach of keeping a
// polymorphic field's wire shape explicit instead of relying on untyped
// interface{}.
func (v Value) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind  string          `json:"kind"`
		Value json.RawMessage `json:"value"`
	}
	var raw json.RawMessage
	var err error
	kindName := kindNames[v.Kind]

	switch v.Kind {
	case KindF64:
		raw, err = json.Marshal(v.F64)
	case KindI64:
		raw, err = json.Marshal(v.I64)
	case KindU64:
		raw, err = json.Marshal(v.U64)
	case KindI128, KindU128:
		raw, err = json.Marshal(v.AsDecimal().String())
	case KindBool:
		raw, err = json.Marshal(v.Bool)
	case KindString:
		raw, err = json.Marshal(v.Str)
	case KindBytes:
		raw, err = json.Marshal(v.Bytes)
	case KindArray:
		raw, err = json.Marshal(v.Array)
	case KindMap:
		raw, err = json.Marshal(v.Map)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire{Kind: kindName, Value: raw})
}

var kindNames = map[ValueKind]string{
	KindF64: "f64", KindI64: "i64", KindU64: "u64",
	KindI128: "i128", KindU128: "u128", KindBool: "bool",
	KindString: "string", KindBytes: "bytes", KindArray: "array", KindMap: "map",
}

var kindsByName = map[string]ValueKind{
	"f64": KindF64, "i64": KindI64, "u64": KindU64,
	"i128": KindI128, "u128": KindU128, "bool": KindBool,
	"string": KindString, "bytes": KindBytes, "array": KindArray, "map": KindMap,
}

// UnmarshalJSON parses the {"kind":...,"value":...} envelope MarshalJSON
// produces. i128/u128 arrive as decimal strings and are re-encoded to the
// big-endian Wide128 buffer the way they were read out.
func (v *Value) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind  string          `json:"kind"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	kind, ok := kindsByName[wire.Kind]
	if !ok {
		return fmt.Errorf("models: unrecognized value kind %q", wire.Kind)
	}
	v.Kind = kind

	switch kind {
	case KindF64:
		return json.Unmarshal(wire.Value, &v.F64)
	case KindI64:
		return json.Unmarshal(wire.Value, &v.I64)
	case KindU64:
		return json.Unmarshal(wire.Value, &v.U64)
	case KindI128, KindU128:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("models: invalid %s value %q: %w", wire.Kind, s, err)
		}
		be := bigToBE(d.BigInt(), kind == KindI128)
		copy(v.Wide128[:], be)
		return nil
	case KindBool:
		return json.Unmarshal(wire.Value, &v.Bool)
	case KindString:
		return json.Unmarshal(wire.Value, &v.Str)
	case KindBytes:
		return json.Unmarshal(wire.Value, &v.Bytes)
	case KindArray:
		return json.Unmarshal(wire.Value, &v.Array)
	case KindMap:
		return json.Unmarshal(wire.Value, &v.Map)
	default:
		return fmt.Errorf("models: unrecognized value kind %q", wire.Kind)
	}
}

// bigToBE renders n into a 16-byte big-endian buffer, two's-complement for
// negative signed values, the inverse of bigFromBE.
func bigToBE(n *big.Int, signed bool) []byte {
	buf := make([]byte, 16)
	if signed && n.Sign() < 0 {
		max := new(big.Int).Lsh(big.NewInt(1), 128)
		n = new(big.Int).Add(max, n)
	}
	b := n.Bytes()
	copy(buf[16-len(b):], b)
	return buf
}
