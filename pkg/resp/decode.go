package resp

import "fmt"

// Decode parses exactly one complete frame, as measured by FrameLen.
//
// Payload bytes are copied, so the caller may reuse frame afterwards.
// Trailing bytes after the first frame are an error.
func Decode(frame []byte) (Value, error) {
	n, err := FrameLen(frame)
	if err != nil {
		return Value{}, err
	}
	if n != len(frame) {
		return Value{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(frame)-n)
	}
	v, _ := decode(frame)
	return v, nil
}

// decode parses the frame at the start of b, which FrameLen has validated,
// and returns the value with the number of bytes consumed.
func decode(b []byte) (Value, int) {
	switch b[0] {
	case '+', '-':
		end := indexCRLF(b)
		kind := KindSimpleString
		if b[0] == '-' {
			kind = KindError
		}
		return Value{kind: kind, str: clone(b[1:end])}, end + 2

	case ':':
		end := indexCRLF(b)
		n, _ := parseInt(b[1:end])
		return Integer(n), end + 2

	case '$':
		end := indexCRLF(b)
		n, _ := parseInt(b[1:end])
		head := end + 2
		if n < 0 {
			return NilBulk(), head
		}
		return Bulk(clone(b[head : head+int(n)])), head + int(n) + 2

	case '*':
		end := indexCRLF(b)
		n, _ := parseInt(b[1:end])
		pos := end + 2
		if n < 0 {
			return NilArray(), pos
		}
		elems := make([]Value, 0, n)
		for i := int64(0); i < n; i++ {
			child, m := decode(b[pos:])
			elems = append(elems, child)
			pos += m
		}
		return Value{kind: KindArray, elems: elems}, pos

	default:
		end := indexCRLF(b)
		return Value{kind: KindSimpleString, str: clone(b[:end])}, end + 2
	}
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return len(b)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
