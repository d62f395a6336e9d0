package redisserver

import (
	"math"
	"strings"

	"github.com/yndnr/respkv/internal/core/domain"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

// maxDeadline keeps every remaining time representable as a signed reply.
const maxDeadline = math.MaxInt64

// deadline returns now + amount*unitMs, or false when the result exceeds
// maxDeadline.
func deadline(now, amount, unitMs uint64) (uint64, bool) {
	if now > maxDeadline {
		return 0, false
	}
	if unitMs != 0 && amount > maxDeadline/unitMs {
		return 0, false
	}
	d := amount * unitMs
	if d > maxDeadline-now {
		return 0, false
	}
	return now + d, true
}

func (h *CommandHandler) cmdDel(c *Conn, args []resp.Value) (resp.Value, error) {
	var n int64
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		for _, k := range args[1:] {
			if tx.Delete(k) {
				n++
			}
		}
		return nil
	})
	if h.cfg.DelReply == DelReplyCount {
		return resp.Integer(n), nil
	}
	return replyBulkOK, nil
}

func (h *CommandHandler) cmdExists(c *Conn, args []resp.Value) (resp.Value, error) {
	var n int64
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		for _, k := range args[1:] {
			if tx.Contains(k) {
				n++
			}
		}
		return nil
	})
	return resp.Integer(n), nil
}

func (h *CommandHandler) cmdKeys(c *Conn, args []resp.Value) (resp.Value, error) {
	return resp.ArrayOf(h.db(c).Keys(args[1].Str())...), nil
}

func (h *CommandHandler) cmdType(c *Conn, args []resp.Value) (resp.Value, error) {
	if h.db(c).Contains(args[1]) {
		return resp.SimpleString("string"), nil
	}
	return resp.SimpleString("none"), nil
}

func (h *CommandHandler) cmdExpire(c *Conn, args []resp.Value) (resp.Value, error) {
	return h.expire(c, args, 1000)
}

func (h *CommandHandler) cmdPExpire(c *Conn, args []resp.Value) (resp.Value, error) {
	return h.expire(c, args, 1)
}

// expire implements EXPIRE and PEXPIRE. NX and XX test for an existing
// deadline; GT and LT additionally compare against it, so a key without a
// deadline is never updated by either.
func (h *CommandHandler) expire(c *Conn, args []resp.Value, unitMs uint64) (resp.Value, error) {
	amount, ok := args[2].ToUint64()
	if !ok {
		return resp.Value{}, domain.ErrSyntax
	}
	var mode resp.SetMode
	if len(args) == 4 {
		if mode, ok = args[3].SetMode(); !ok {
			return resp.Value{}, domain.ErrSyntax
		}
	}

	var set int64
	err := h.db(c).Update(func(tx *memory.Txn) error {
		k := args[1]
		if !tx.Contains(k) {
			return nil
		}
		when, ok := deadline(tx.Now(), amount, unitMs)
		if !ok {
			return domain.ErrSyntax
		}
		old, had := tx.GetExpiry(k)

		var pass bool
		switch mode {
		case resp.SetModeNX:
			pass = !had
		case resp.SetModeXX:
			pass = had
		case resp.SetModeGT:
			pass = had && when > old
		case resp.SetModeLT:
			pass = had && when < old
		default:
			pass = true
		}
		if pass && tx.SetExpiry(k, when) {
			set = 1
		}
		return nil
	})
	if err != nil {
		return resp.Value{}, err
	}
	return resp.Integer(set), nil
}

func (h *CommandHandler) cmdPersist(c *Conn, args []resp.Value) (resp.Value, error) {
	var n int64
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		if tx.Contains(args[1]) && tx.RemoveExpiry(args[1]) {
			n = 1
		}
		return nil
	})
	return resp.Integer(n), nil
}

func (h *CommandHandler) cmdSetEx(c *Conn, args []resp.Value) (resp.Value, error) {
	seconds, ok := args[2].ToUint64()
	if !ok {
		return resp.Value{}, domain.ErrSyntax
	}
	k, v := args[1], args[3]
	err := h.db(c).Update(func(tx *memory.Txn) error {
		when, ok := deadline(tx.Now(), seconds, 1000)
		if !ok {
			return domain.ErrSyntax
		}
		tx.Set(k, v)
		tx.SetExpiry(k, when)
		return nil
	})
	if err != nil {
		return resp.Value{}, err
	}
	return replyOK, nil
}

type getexOp uint8

const (
	getexNone getexOp = iota
	getexEX
	getexPX
	getexEXAT
	getexPXAT
	getexPersist
)

func parseGetEx(args []resp.Value) (getexOp, uint64, error) {
	switch len(args) {
	case 2:
		return getexNone, 0, nil
	case 3:
		if strings.EqualFold(args[2].Str(), "PERSIST") {
			return getexPersist, 0, nil
		}
		return 0, 0, domain.ErrSyntax
	}

	var op getexOp
	switch strings.ToUpper(args[2].Str()) {
	case "EX":
		op = getexEX
	case "PX":
		op = getexPX
	case "EXAT":
		op = getexEXAT
	case "PXAT":
		op = getexPXAT
	default:
		return 0, 0, domain.ErrSyntax
	}
	n, ok := args[3].ToUint64()
	if !ok {
		return 0, 0, domain.ErrSyntax
	}
	return op, n, nil
}

func (h *CommandHandler) cmdGetEx(c *Conn, args []resp.Value) (resp.Value, error) {
	op, n, err := parseGetEx(args)
	if err != nil {
		return resp.Value{}, err
	}

	k := args[1]
	reply := h.nilReply()
	err = h.db(c).Update(func(tx *memory.Txn) error {
		v, ok := tx.Get(k)
		if !ok {
			return nil
		}

		var when uint64
		switch op {
		case getexEX:
			when, ok = deadline(tx.Now(), n, 1000)
		case getexPX:
			when, ok = deadline(tx.Now(), n, 1)
		case getexEXAT:
			when, ok = deadline(0, n, 1000)
		case getexPXAT:
			when, ok = deadline(0, n, 1)
		}
		if !ok {
			return domain.ErrSyntax
		}

		switch op {
		case getexPersist:
			tx.RemoveExpiry(k)
		case getexEX, getexPX, getexEXAT, getexPXAT:
			tx.SetExpiry(k, when)
		}
		reply = v
		return nil
	})
	if err != nil {
		return resp.Value{}, err
	}
	return reply, nil
}

func (h *CommandHandler) cmdTTL(c *Conn, args []resp.Value) (resp.Value, error) {
	return h.ttl(c, args[1], 1000), nil
}

func (h *CommandHandler) cmdPTTL(c *Conn, args []resp.Value) (resp.Value, error) {
	return h.ttl(c, args[1], 1), nil
}

// ttl replies -2 for a missing key, -1 for a key without a deadline, and
// the remaining time truncated to unitMs otherwise.
func (h *CommandHandler) ttl(c *Conn, k resp.Value, unitMs uint64) resp.Value {
	var n int64
	_ = h.db(c).Update(func(tx *memory.Txn) error {
		if !tx.Contains(k) {
			n = -2
			return nil
		}
		when, ok := tx.GetExpiry(k)
		if !ok {
			n = -1
			return nil
		}
		n = int64((when - tx.Now()) / unitMs)
		return nil
	})
	return resp.Integer(n)
}
