package redisserver

import (
	"math"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/internal/core/domain"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

type setOptions struct {
	ttlMs  uint64
	hasTTL bool
	nx, xx bool
}

// parseSetOptions reads the [EX s|PX ms] [NX|XX] tail of SET.
func parseSetOptions(args []resp.Value) (setOptions, error) {
	var o setOptions
	for i := 0; i < len(args); i++ {
		switch opt := strings.ToUpper(args[i].Str()); opt {
		case "NX":
			o.nx = true
		case "XX":
			o.xx = true
		case "EX", "PX":
			if o.hasTTL || i+1 >= len(args) {
				return o, domain.ErrSyntax
			}
			i++
			n, ok := args[i].ToUint64()
			if !ok {
				return o, domain.ErrSyntax
			}
			unit := uint64(1)
			if opt == "EX" {
				unit = 1000
			}
			if n > math.MaxUint64/unit {
				return o, domain.ErrSyntax
			}
			o.ttlMs, o.hasTTL = n*unit, true
		default:
			return o, domain.ErrSyntax
		}
	}
	if o.nx && o.xx {
		return o, domain.ErrSyntax
	}
	return o, nil
}

// cmdSet stores a value. Without EX or PX the existing deadline is kept.
func (h *CommandHandler) cmdSet(c *Conn, args []resp.Value) (resp.Value, error) {
	opts, err := parseSetOptions(args[3:])
	if err != nil {
		return resp.Value{}, err
	}

	k, v := args[1], args[2]
	reply := replyOK
	err = h.db(c).Update(func(tx *memory.Txn) error {
		exists := tx.Contains(k)
		if (opts.nx && exists) || (opts.xx && !exists) {
			reply = h.nilReply()
			return nil
		}
		var when uint64
		if opts.hasTTL {
			var ok bool
			if when, ok = deadline(tx.Now(), opts.ttlMs, 1); !ok {
				return domain.ErrSyntax
			}
		}
		tx.Set(k, v)
		if opts.hasTTL {
			tx.SetExpiry(k, when)
		}
		return nil
	})
	return reply, err
}

func (h *CommandHandler) cmdGet(c *Conn, args []resp.Value) (resp.Value, error) {
	v, ok := h.db(c).Get(args[1])
	if !ok {
		return h.nilReply(), nil
	}
	return v, nil
}

func (h *CommandHandler) cmdGetDel(c *Conn, args []resp.Value) (resp.Value, error) {
	reply := h.nilReply()
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		if v, ok := tx.Get(args[1]); ok {
			tx.Delete(args[1])
			reply = v
		}
		return nil
	})
	return reply, nil
}

func (h *CommandHandler) cmdSetNX(c *Conn, args []resp.Value) (resp.Value, error) {
	var set int64
	_ = h.db(c).Entry(args[1], func(e *memory.Entry) error {
		if !e.Exists() {
			e.Set(args[2])
			set = 1
		}
		return nil
	})
	return resp.Integer(set), nil
}

func (h *CommandHandler) cmdIncr(c *Conn, args []resp.Value) (resp.Value, error) {
	return h.incrBy(c, args[1], 1)
}

func (h *CommandHandler) cmdDecr(c *Conn, args []resp.Value) (resp.Value, error) {
	return h.incrBy(c, args[1], -1)
}

func (h *CommandHandler) cmdIncrBy(c *Conn, args []resp.Value) (resp.Value, error) {
	delta, ok := args[2].ToInt64()
	if !ok {
		return resp.Value{}, domain.ErrNotInteger
	}
	return h.incrBy(c, args[1], delta)
}

func (h *CommandHandler) cmdDecrBy(c *Conn, args []resp.Value) (resp.Value, error) {
	delta, ok := args[2].ToInt64()
	if !ok || delta == math.MinInt64 {
		return resp.Value{}, domain.ErrNotInteger
	}
	return h.incrBy(c, args[1], -delta)
}

// incrBy adds delta to the integer under k, treating a missing key as 0.
// The result is stored as an Integer value.
func (h *CommandHandler) incrBy(c *Conn, k resp.Value, delta int64) (resp.Value, error) {
	var result int64
	err := h.db(c).Entry(k, func(e *memory.Entry) error {
		cur, ok := e.OrInsert(resp.Integer(0)).ToInt64()
		if !ok {
			return domain.ErrNotInteger
		}
		if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
			return domain.ErrNotInteger
		}
		result = cur + delta
		e.Set(resp.Integer(result))
		return nil
	})
	if err != nil {
		return resp.Value{}, err
	}
	return resp.Integer(result), nil
}

func (h *CommandHandler) cmdStrlen(c *Conn, args []resp.Value) (resp.Value, error) {
	v, ok := h.db(c).Get(args[1])
	if !ok {
		return resp.Integer(0), nil
	}
	return resp.Integer(int64(len(v.Bytes()))), nil
}

func (h *CommandHandler) cmdAppend(c *Conn, args []resp.Value) (resp.Value, error) {
	var n int
	_ = h.db(c).Entry(args[1], func(e *memory.Entry) error {
		var buf []byte
		if e.Exists() {
			buf = append(buf, e.Value().Bytes()...)
		}
		buf = append(buf, args[2].Bytes()...)
		e.Set(resp.Bulk(buf))
		n = len(buf)
		return nil
	})
	return resp.Integer(int64(n)), nil
}

func (h *CommandHandler) cmdMGet(c *Conn, args []resp.Value) (resp.Value, error) {
	keys := args[1:]
	b := resp.NewArrayBuilder(len(keys))
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		for _, k := range keys {
			if v, ok := tx.Get(k); ok {
				b.Push(v)
			} else {
				b.Push(h.nilReply())
			}
		}
		return nil
	})
	return b.Build(), nil
}

func (h *CommandHandler) cmdMSet(c *Conn, args []resp.Value) (resp.Value, error) {
	pairs := args[1:]
	if len(pairs)%2 != 0 {
		return resp.Value{}, domain.NotEnoughArgs("mset")
	}
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		for i := 0; i < len(pairs); i += 2 {
			tx.Set(pairs[i], pairs[i+1])
		}
		return nil
	})
	return replyOK, nil
}

// cmdMSetNX sets every pair only when none of the keys exist.
func (h *CommandHandler) cmdMSetNX(c *Conn, args []resp.Value) (resp.Value, error) {
	pairs := args[1:]
	if len(pairs)%2 != 0 {
		return resp.Value{}, domain.NotEnoughArgs("msetnx")
	}
	var set int64
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		for i := 0; i < len(pairs); i += 2 {
			if tx.Contains(pairs[i]) {
				return nil
			}
		}
		for i := 0; i < len(pairs); i += 2 {
			tx.Set(pairs[i], pairs[i+1])
		}
		set = 1
		return nil
	})
	return resp.Integer(set), nil
}

// cmdGetSet stores a value and returns the old one. Like a plain SET
// with a fresh value, the deadline is discarded.
func (h *CommandHandler) cmdGetSet(c *Conn, args []resp.Value) (resp.Value, error) {
	reply := h.nilReply()
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		if old, ok := tx.Set(args[1], args[2]); ok {
			reply = old
		}
		tx.RemoveExpiry(args[1])
		return nil
	})
	return reply, nil
}

// cmdGetRange returns the inclusive byte range [start, end]. Negative
// indexes count from the end.
func (h *CommandHandler) cmdGetRange(c *Conn, args []resp.Value) (resp.Value, error) {
	start, ok1 := args[2].ToInt64()
	end, ok2 := args[3].ToInt64()
	if !ok1 || !ok2 {
		return resp.Value{}, domain.ErrNotInteger
	}
	v, ok := h.db(c).Get(args[1])
	if !ok {
		return resp.BulkString(""), nil
	}
	lo, hi, ok := byteRange(start, end, int64(len(v.Bytes())))
	if !ok {
		return resp.BulkString(""), nil
	}
	return resp.Bulk(v.Bytes()[lo : hi+1]), nil
}

func byteRange(start, end, n int64) (lo, hi int64, ok bool) {
	if start < 0 && end < 0 && start > end {
		return 0, 0, false
	}
	if start < 0 {
		start = max(n+start, 0)
	}
	if end < 0 {
		end = max(n+end, 0)
	}
	end = min(end, n-1)
	if n == 0 || start > end {
		return 0, 0, false
	}
	return start, end, true
}

// cmdSetRange overwrites the value at offset, zero-padding a short or
// missing value. The deadline is kept.
func (h *CommandHandler) cmdSetRange(c *Conn, args []resp.Value) (resp.Value, error) {
	offset, ok := args[2].ToInt64()
	if !ok {
		return resp.Value{}, domain.ErrNotInteger
	}
	if offset < 0 {
		return resp.Value{}, domain.ErrOffsetRange
	}
	patch := args[3].Bytes()

	var n int
	err := h.db(c).Entry(args[1], func(e *memory.Entry) error {
		var cur []byte
		if e.Exists() {
			cur = e.Value().Bytes()
		}
		if len(patch) == 0 {
			n = len(cur)
			return nil
		}
		if offset > resp.MaxBulkLen-int64(len(patch)) {
			return domain.ErrTooLarge
		}
		size := max(len(cur), int(offset)+len(patch))
		buf := make([]byte, size)
		copy(buf, cur)
		copy(buf[offset:], patch)
		e.Set(resp.Bulk(buf))
		n = size
		return nil
	})
	if err != nil {
		return resp.Value{}, err
	}
	return resp.Integer(int64(n)), nil
}

// cmdIncrByFloat adds a float increment, treating a missing key as 0. The
// result is stored and returned as a bulk string in shortest decimal form.
func (h *CommandHandler) cmdIncrByFloat(c *Conn, args []resp.Value) (resp.Value, error) {
	delta, ok := parseFloat(args[2])
	if !ok {
		return resp.Value{}, domain.ErrNotFloat
	}

	var out resp.Value
	err := h.db(c).Entry(args[1], func(e *memory.Entry) error {
		cur := 0.0
		if e.Exists() {
			if cur, ok = parseFloat(e.Value()); !ok {
				return domain.ErrNotFloat
			}
		}
		f := cur + delta
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.ErrNaN
		}
		out = resp.BulkString(strconv.FormatFloat(f, 'f', -1, 64))
		e.Set(out)
		return nil
	})
	if err != nil {
		return resp.Value{}, err
	}
	return out, nil
}

func parseFloat(v resp.Value) (float64, bool) {
	f, err := strconv.ParseFloat(v.Str(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
