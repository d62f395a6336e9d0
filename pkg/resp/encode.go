package resp

import (
	"io"
	"strconv"
)

// Append appends the wire encoding of v to dst and returns the result.
func Append(dst []byte, v Value) []byte {
	switch v.kind {
	case KindSimpleString:
		dst = append(dst, '+')
		dst = append(dst, v.str...)
	case KindError:
		dst = append(dst, '-')
		dst = append(dst, v.str...)
	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.num, 10)
	case KindBulk:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.str)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, v.str...)
	case KindNilBulk:
		dst = append(dst, "$-1"...)
	case KindArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.elems)), 10)
		dst = append(dst, '\r', '\n')
		for _, e := range v.elems {
			dst = Append(dst, e)
		}
		return dst
	case KindNilArray:
		dst = append(dst, "*-1"...)
	default:
		// An invalid Value encodes as a null bulk rather than a broken frame.
		dst = append(dst, "$-1"...)
	}
	return append(dst, '\r', '\n')
}

// Encode writes the wire encoding of v to w.
func Encode(w io.Writer, v Value) error {
	_, err := w.Write(Append(nil, v))
	return err
}

// Command builds the array-of-bulks form clients send for a command.
func Command(args ...string) Value {
	b := NewArrayBuilder(len(args))
	for _, a := range args {
		b.Push(BulkString(a))
	}
	return b.Build()
}
