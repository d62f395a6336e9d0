package resp

import (
	"bytes"
	"iter"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Kind identifies one of the protocol value variants.
type Kind uint8

const (
	KindSimpleString Kind = iota + 1
	KindError
	KindInteger
	KindBulk
	KindNilBulk
	KindArray
	KindNilArray
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindNilBulk:
		return "nil-bulk"
	case KindArray:
		return "array"
	case KindNilArray:
		return "nil-array"
	default:
		return "invalid"
	}
}

// Value is a single protocol value.
//
// The zero Value is invalid; build values with the constructors below.
// Values are immutable once built: constructors that take a byte slice keep
// it, so callers must not modify the slice afterwards.
type Value struct {
	kind  Kind
	str   []byte
	num   int64
	elems []Value
}

// SimpleString returns a simple string value. s must not contain CR or LF.
func SimpleString(s string) Value {
	return Value{kind: KindSimpleString, str: []byte(s)}
}

// Error returns an error value. msg must not contain CR or LF.
func Error(msg string) Value {
	return Value{kind: KindError, str: []byte(msg)}
}

// Integer returns an integer value.
func Integer(n int64) Value {
	return Value{kind: KindInteger, num: n}
}

// Bulk returns a bulk string holding b. A nil b is an empty bulk, not NilBulk.
func Bulk(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBulk, str: b}
}

// BulkString returns a bulk string holding s.
func BulkString(s string) Value {
	return Value{kind: KindBulk, str: []byte(s)}
}

// NilBulk returns the null bulk string ($-1).
func NilBulk() Value {
	return Value{kind: KindNilBulk}
}

// NilArray returns the null array (*-1).
func NilArray() Value {
	return Value{kind: KindNilArray}
}

// ArrayOf returns an array holding vals in order.
func ArrayOf(vals ...Value) Value {
	elems := make([]Value, len(vals))
	copy(elems, vals)
	return Value{kind: KindArray, elems: elems}
}

// ArrayBuilder accumulates children for an Array value.
type ArrayBuilder struct {
	elems []Value
}

// NewArrayBuilder returns a builder with room for n children.
func NewArrayBuilder(n int) *ArrayBuilder {
	return &ArrayBuilder{elems: make([]Value, 0, n)}
}

// Push appends v.
func (b *ArrayBuilder) Push(v Value) {
	b.elems = append(b.elems, v)
}

// Len returns the number of children pushed so far.
func (b *ArrayBuilder) Len() int {
	return len(b.elems)
}

// Build returns the finished array. The builder is reset.
func (b *ArrayBuilder) Build() Value {
	elems := b.elems
	if elems == nil {
		elems = []Value{}
	}
	b.elems = nil
	return Value{kind: KindArray, elems: elems}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNil reports whether v is NilBulk or NilArray.
func (v Value) IsNil() bool {
	return v.kind == KindNilBulk || v.kind == KindNilArray
}

// Bytes returns the payload of a simple string, error or bulk.
// For integers it returns the decimal form; for other variants it returns nil.
func (v Value) Bytes() []byte {
	switch v.kind {
	case KindSimpleString, KindError, KindBulk:
		return v.str
	case KindInteger:
		return strconv.AppendInt(nil, v.num, 10)
	default:
		return nil
	}
}

// Str returns Bytes as a string.
func (v Value) Str() string {
	return string(v.Bytes())
}

// Int returns the payload of an Integer value, or 0.
func (v Value) Int() int64 {
	if v.kind == KindInteger {
		return v.num
	}
	return 0
}

// Len returns the number of children of an Array, or 0.
func (v Value) Len() int {
	return len(v.elems)
}

// Index returns the i-th child of an Array.
func (v Value) Index(i int) (Value, bool) {
	if i < 0 || i >= len(v.elems) {
		return Value{}, false
	}
	return v.elems[i], true
}

// All iterates over the children of an Array.
func (v Value) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i, e := range v.elems {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Values returns a copy of the children of an Array.
func (v Value) Values() []Value {
	out := make([]Value, len(v.elems))
	copy(out, v.elems)
	return out
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindSimpleString, KindError, KindBulk:
		return bytes.Equal(v.str, o.str)
	case KindInteger:
		return v.num == o.num
	case KindArray:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Key returns the canonical encoding of v. Two values have the same Key
// exactly when they are Equal, so Key can index Go maps.
func (v Value) Key() string {
	return string(Append(nil, v))
}

// Hash returns a 64-bit hash consistent with Equal.
func (v Value) Hash() uint64 {
	return murmur3.Sum64(Append(nil, v))
}

// ToInt64 parses v as a base-10 signed integer. A leading '+' is rejected.
// Integers pass through; simple strings, errors and bulks are parsed.
func (v Value) ToInt64() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.num, true
	case KindSimpleString, KindError, KindBulk:
		return parseInt(v.str)
	default:
		return 0, false
	}
}

// ToUint64 parses v as a base-10 unsigned integer. It is used for
// millisecond timestamps and durations; negative integers do not convert.
func (v Value) ToUint64() (uint64, bool) {
	switch v.kind {
	case KindInteger:
		if v.num < 0 {
			return 0, false
		}
		return uint64(v.num), true
	case KindSimpleString, KindError, KindBulk:
		n, err := strconv.ParseUint(string(v.str), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// SetMode is an EXPIRE condition flag.
type SetMode uint8

const (
	SetModeNX SetMode = iota + 1
	SetModeXX
	SetModeGT
	SetModeLT
)

func (m SetMode) String() string {
	switch m {
	case SetModeNX:
		return "NX"
	case SetModeXX:
		return "XX"
	case SetModeGT:
		return "GT"
	case SetModeLT:
		return "LT"
	default:
		return ""
	}
}

// SetMode interprets a simple string or bulk as NX, XX, GT or LT,
// ignoring ASCII case.
func (v Value) SetMode() (SetMode, bool) {
	if v.kind != KindSimpleString && v.kind != KindBulk {
		return 0, false
	}
	switch {
	case bytes.EqualFold(v.str, []byte("NX")):
		return SetModeNX, true
	case bytes.EqualFold(v.str, []byte("XX")):
		return SetModeXX, true
	case bytes.EqualFold(v.str, []byte("GT")):
		return SetModeGT, true
	case bytes.EqualFold(v.str, []byte("LT")):
		return SetModeLT, true
	default:
		return 0, false
	}
}

// String renders v for logs.
func (v Value) String() string {
	switch v.kind {
	case KindSimpleString:
		return "+" + string(v.str)
	case KindError:
		return "-" + string(v.str)
	case KindInteger:
		return ":" + strconv.FormatInt(v.num, 10)
	case KindBulk:
		return strconv.Quote(string(v.str))
	case KindNilBulk:
		return "(nil-bulk)"
	case KindNilArray:
		return "(nil-array)"
	case KindArray:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return "(invalid)"
	}
}
