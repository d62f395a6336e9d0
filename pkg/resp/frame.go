package resp

import (
	"errors"
	"fmt"
)

// Protocol limits.
const (
	// MaxBulkLen limits a single bulk string (512 MiB, as in the reference server).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxArrayLen limits the number of children in one array.
	MaxArrayLen = 1 << 20

	// MaxDepth limits array nesting.
	MaxDepth = 64
)

var (
	// ErrNeedMore means the buffer holds a valid prefix of a frame.
	ErrNeedMore = errors.New("resp: need more bytes")
	// ErrMalformed means the buffer can never become a valid frame.
	ErrMalformed = errors.New("resp: malformed frame")
	// ErrLimitExceeded means a length header is over a protocol limit.
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// FrameLen returns the number of bytes used by the first complete frame in b.
//
// It returns ErrNeedMore when b is a truncated frame, and ErrMalformed or
// ErrLimitExceeded when b cannot start a valid frame. FrameLen does not
// allocate and does not modify b.
func FrameLen(b []byte) (int, error) {
	n, _, err := frameLen(b, 0)
	return n, err
}

// FrameNeed is FrameLen plus, when err is ErrNeedMore, a lower bound on the
// length b must reach before the frame can be complete. The bound is always
// greater than len(b).
func FrameNeed(b []byte) (n, need int, err error) {
	return frameLen(b, 0)
}

// minFrameLen is the shortest possible frame ("+\r\n").
const minFrameLen = 3

func needMore(b []byte, atLeast int) (int, int, error) {
	return 0, max(atLeast, len(b)+1), ErrNeedMore
}

func frameLen(b []byte, depth int) (int, int, error) {
	if len(b) == 0 {
		return needMore(b, minFrameLen)
	}

	switch b[0] {
	case '+', '-':
		end, err := lineEnd(b, 1)
		if errors.Is(err, ErrNeedMore) {
			return needMore(b, 0)
		}
		if err != nil {
			return 0, 0, err
		}
		return end + 2, 0, nil

	case ':':
		end, err := lineEnd(b, 1)
		if errors.Is(err, ErrNeedMore) {
			return needMore(b, 0)
		}
		if err != nil {
			return 0, 0, err
		}
		if _, ok := parseInt(b[1:end]); !ok {
			return 0, 0, fmt.Errorf("%w: invalid integer", ErrMalformed)
		}
		return end + 2, 0, nil

	case '$':
		end, n, err := lengthHeader(b)
		if errors.Is(err, ErrNeedMore) {
			return needMore(b, 0)
		}
		if err != nil {
			return 0, 0, err
		}
		head := end + 2
		if n == -1 {
			return head, 0, nil
		}
		if n > MaxBulkLen {
			return 0, 0, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
		}
		total := head + int(n) + 2
		if len(b) < total {
			// The terminator may already be visible and wrong.
			if len(b) > head+int(n) && b[head+int(n)] != '\r' {
				return 0, 0, fmt.Errorf("%w: invalid bulk terminator", ErrMalformed)
			}
			return needMore(b, total)
		}
		if b[total-2] != '\r' || b[total-1] != '\n' {
			return 0, 0, fmt.Errorf("%w: invalid bulk terminator", ErrMalformed)
		}
		return total, 0, nil

	case '*':
		end, n, err := lengthHeader(b)
		if errors.Is(err, ErrNeedMore) {
			return needMore(b, 0)
		}
		if err != nil {
			return 0, 0, err
		}
		pos := end + 2
		if n == -1 {
			return pos, 0, nil
		}
		if n > MaxArrayLen {
			return 0, 0, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
		}
		if n > 0 && depth+1 > MaxDepth {
			return 0, 0, fmt.Errorf("%w: nesting deeper than %d", ErrLimitExceeded, MaxDepth)
		}
		for i := int64(0); i < n; i++ {
			m, need, err := frameLen(b[pos:], depth+1)
			if errors.Is(err, ErrNeedMore) {
				// The rest of the children take at least minFrameLen each.
				rest := int(n-i-1) * minFrameLen
				return needMore(b, pos+need+rest)
			}
			if err != nil {
				return 0, 0, err
			}
			pos += m
		}
		return pos, 0, nil

	default:
		// Inline command line.
		end, err := lineEnd(b, 0)
		if errors.Is(err, ErrNeedMore) {
			return needMore(b, 0)
		}
		if err != nil {
			return 0, 0, err
		}
		return end + 2, 0, nil
	}
}

// lineEnd returns the index of the CR that ends the line starting at from.
// A CR or LF anywhere else in the line is malformed.
func lineEnd(b []byte, from int) (int, error) {
	for i := from; i < len(b); i++ {
		switch b[i] {
		case '\r':
			if i+1 == len(b) {
				return 0, ErrNeedMore
			}
			if b[i+1] != '\n' {
				return 0, fmt.Errorf("%w: bare CR in line", ErrMalformed)
			}
			return i, nil
		case '\n':
			return 0, fmt.Errorf("%w: bare LF in line", ErrMalformed)
		}
	}
	return 0, ErrNeedMore
}

// lengthHeader parses "$<n>\r\n" or "*<n>\r\n" at the start of b.
// It returns the index of the CR and the length, which is -1 or >= 0.
func lengthHeader(b []byte) (int, int64, error) {
	// Reject junk before the line is complete so the verdict does not
	// depend on how the bytes were split.
	for i := 1; i < len(b) && b[i] != '\r'; i++ {
		c := b[i]
		if !(c >= '0' && c <= '9') && !(c == '-' && i == 1) {
			return 0, 0, fmt.Errorf("%w: invalid length", ErrMalformed)
		}
	}
	end, err := lineEnd(b, 1)
	if err != nil {
		return 0, 0, err
	}
	n, ok := parseInt(b[1:end])
	if !ok || n < -1 {
		return 0, 0, fmt.Errorf("%w: invalid length", ErrMalformed)
	}
	return end, n, nil
}

// parseInt parses a base-10 signed integer without allocating.
func parseInt(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	if b[0] == '-' {
		neg = true
		b = b[1:]
		if len(b) == 0 {
			return 0, false
		}
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if n > (1<<63)/10 {
			return 0, false
		}
		n = n*10 + d
		if n > 1<<63 {
			return 0, false
		}
	}
	if neg {
		return -int64(n), true // -(1<<63) wraps to MinInt64
	}
	if n > 1<<63-1 {
		return 0, false
	}
	return int64(n), true
}
