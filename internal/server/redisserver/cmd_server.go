package redisserver

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/yndnr/respkv/internal/core/domain"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/pkg/resp"
)

func (h *CommandHandler) cmdPing(_ *Conn, args []resp.Value) (resp.Value, error) {
	if len(args) == 2 {
		return args[1], nil
	}
	return resp.BulkString("PONG"), nil
}

func (h *CommandHandler) cmdEcho(_ *Conn, args []resp.Value) (resp.Value, error) {
	return args[1], nil
}

// cmdQuit replies OK; the connection closes once the reply is flushed.
func (h *CommandHandler) cmdQuit(c *Conn, _ []resp.Value) (resp.Value, error) {
	c.quit = true
	return replyOK, nil
}

func (h *CommandHandler) cmdConfig(_ *Conn, args []resp.Value) (resp.Value, error) {
	sub := strings.ToUpper(args[1].Str())
	switch sub {
	case "GET":
		return h.inst.ConfigGet(args[2:]), nil
	case "SET":
		pairs := args[2:]
		if len(pairs)%2 != 0 {
			return resp.Value{}, domain.NotEnoughArgs("config")
		}
		h.inst.ConfigSet(pairs)
		return replyBulkOK, nil
	default:
		return resp.Value{}, domain.NotEnoughArgs("config")
	}
}

func (h *CommandHandler) cmdCommand(_ *Conn, _ []resp.Value) (resp.Value, error) {
	return resp.Value{}, domain.NotImplemented("command")
}

func (h *CommandHandler) cmdFunction(_ *Conn, _ []resp.Value) (resp.Value, error) {
	return replyBulkOK, nil
}

func (h *CommandHandler) cmdDebug(c *Conn, args []resp.Value) (resp.Value, error) {
	h.logger.Info("debug command", "conn_id", c.id, "request", frameValue(resp.ArrayOf(args...)))
	return replyBulkOK, nil
}

// cmdSelect accepts any u64 id; negative integers are a syntax error.
func (h *CommandHandler) cmdSelect(c *Conn, args []resp.Value) (resp.Value, error) {
	id, ok := args[1].ToUint64()
	if !ok {
		if n, isInt := args[1].ToInt64(); isInt && n < 0 {
			return resp.Value{}, domain.ErrSyntax
		}
		return resp.Value{}, domain.ErrInvalidArgument
	}
	c.db = id
	return replyOK, nil
}

// cmdFlushAll accepts and ignores a SYNC or ASYNC modifier.
func (h *CommandHandler) cmdFlushAll(_ *Conn, _ []resp.Value) (resp.Value, error) {
	h.inst.Registry().FlushAll()
	return replyBulkOK, nil
}

func (h *CommandHandler) cmdFlushDB(c *Conn, args []resp.Value) (resp.Value, error) {
	if len(args) == 2 && !isFlushModifier(args[1]) {
		return resp.Value{}, domain.ErrSyntax
	}
	h.db(c).Clear()
	return replyBulkOK, nil
}

func isFlushModifier(v resp.Value) bool {
	s := v.Str()
	return strings.EqualFold(s, "SYNC") || strings.EqualFold(s, "ASYNC")
}

func (h *CommandHandler) cmdDBSize(c *Conn, _ []resp.Value) (resp.Value, error) {
	return resp.Integer(int64(h.db(c).Len())), nil
}

var infoSections = []string{"server", "clients", "stats", "keyspace"}

func (h *CommandHandler) cmdInfo(_ *Conn, args []resp.Value) (resp.Value, error) {
	sections := infoSections
	if len(args) == 2 {
		want := strings.ToLower(args[1].Str())
		if want != "all" && want != "default" && want != "everything" {
			sections = []string{want}
		}
	}

	var b strings.Builder
	for _, section := range sections {
		n := b.Len()
		h.writeInfoSection(&b, section)
		if b.Len() > n {
			b.WriteString("\r\n")
		}
	}
	return resp.BulkString(strings.TrimSuffix(b.String(), "\r\n")), nil
}

func (h *CommandHandler) writeInfoSection(b *strings.Builder, section string) {
	switch section {
	case "server":
		info := buildinfo.Get()
		b.WriteString("# Server\r\n")
		fmt.Fprintf(b, "respkv_version:%s\r\n", info.Version)
		fmt.Fprintf(b, "respkv_git_sha1:%s\r\n", info.Commit)
		fmt.Fprintf(b, "go_version:%s\r\n", runtime.Version())
		fmt.Fprintf(b, "os:%s %s\r\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(b, "process_id:%d\r\n", os.Getpid())
		fmt.Fprintf(b, "tcp_addr:%s\r\n", h.cfg.Address)
		fmt.Fprintf(b, "uptime_in_seconds:%d\r\n", int64(h.inst.Uptime().Seconds()))
	case "clients":
		b.WriteString("# Clients\r\n")
		fmt.Fprintf(b, "connected_clients:%d\r\n", h.clientCount())
	case "stats":
		var expired uint64
		for _, st := range h.inst.Registry().Stats() {
			expired += st.Expired
		}
		b.WriteString("# Stats\r\n")
		fmt.Fprintf(b, "total_commands_processed:%d\r\n", h.commandsProcessed.Load())
		fmt.Fprintf(b, "rejected_commands:%d\r\n", h.rejectedCommands.Load())
		fmt.Fprintf(b, "expired_keys:%d\r\n", expired)
		fmt.Fprintf(b, "rate_limited_clients:%d\r\n", h.limiter.Len())
	case "keyspace":
		b.WriteString("# Keyspace\r\n")
		for _, st := range h.inst.Registry().Stats() {
			if st.Keys == 0 {
				continue
			}
			fmt.Fprintf(b, "db%d:keys=%d,expires=%d\r\n", st.ID, st.Keys, st.Expires)
		}
	}
}
