package redisserver

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv/internal/core/domain"
	"github.com/yndnr/respkv/internal/core/service"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/resp"
)

// HandlerFunc executes one command. args[0] is the command name.
type HandlerFunc func(h *CommandHandler, c *Conn, args []resp.Value) (resp.Value, error)

type command struct {
	name    string // lowercase, as used in error replies and metrics
	minArgs int
	maxArgs int // -1 for unbounded
	fn      HandlerFunc
}

// commandTable is keyed by the uppercased command name.
var commandTable = map[string]*command{}

func register(name string, minArgs, maxArgs int, fn HandlerFunc) {
	commandTable[strings.ToUpper(name)] = &command{
		name:    strings.ToLower(name),
		minArgs: minArgs,
		maxArgs: maxArgs,
		fn:      fn,
	}
}

func init() {
	// Server
	register("ping", 1, 2, (*CommandHandler).cmdPing)
	register("echo", 2, 2, (*CommandHandler).cmdEcho)
	register("quit", 1, -1, (*CommandHandler).cmdQuit)
	register("config", 3, -1, (*CommandHandler).cmdConfig)
	register("command", 1, -1, (*CommandHandler).cmdCommand)
	register("function", 1, -1, (*CommandHandler).cmdFunction)
	register("debug", 1, -1, (*CommandHandler).cmdDebug)
	register("select", 2, 2, (*CommandHandler).cmdSelect)
	register("flushall", 1, 2, (*CommandHandler).cmdFlushAll)
	register("flushdb", 1, 2, (*CommandHandler).cmdFlushDB)
	register("dbsize", 1, 1, (*CommandHandler).cmdDBSize)
	register("info", 1, 2, (*CommandHandler).cmdInfo)

	// Strings
	register("set", 3, -1, (*CommandHandler).cmdSet)
	register("get", 2, 2, (*CommandHandler).cmdGet)
	register("getdel", 2, 2, (*CommandHandler).cmdGetDel)
	register("setnx", 3, 3, (*CommandHandler).cmdSetNX)
	register("incr", 2, 2, (*CommandHandler).cmdIncr)
	register("decr", 2, 2, (*CommandHandler).cmdDecr)
	register("incrby", 3, 3, (*CommandHandler).cmdIncrBy)
	register("decrby", 3, 3, (*CommandHandler).cmdDecrBy)
	register("strlen", 2, 2, (*CommandHandler).cmdStrlen)
	register("append", 3, 3, (*CommandHandler).cmdAppend)
	register("mget", 2, -1, (*CommandHandler).cmdMGet)
	register("mset", 3, -1, (*CommandHandler).cmdMSet)
	register("msetnx", 3, -1, (*CommandHandler).cmdMSetNX)
	register("getset", 3, 3, (*CommandHandler).cmdGetSet)
	register("getrange", 4, 4, (*CommandHandler).cmdGetRange)
	register("setrange", 4, 4, (*CommandHandler).cmdSetRange)
	register("incrbyfloat", 3, 3, (*CommandHandler).cmdIncrByFloat)

	// Keys and expiry
	register("del", 2, -1, (*CommandHandler).cmdDel)
	register("exists", 2, -1, (*CommandHandler).cmdExists)
	register("keys", 2, 2, (*CommandHandler).cmdKeys)
	register("type", 2, 2, (*CommandHandler).cmdType)
	register("expire", 3, 4, (*CommandHandler).cmdExpire)
	register("pexpire", 3, 4, (*CommandHandler).cmdPExpire)
	register("persist", 2, 2, (*CommandHandler).cmdPersist)
	register("setex", 4, 4, (*CommandHandler).cmdSetEx)
	register("getex", 2, 4, (*CommandHandler).cmdGetEx)
	register("ttl", 2, 2, (*CommandHandler).cmdTTL)
	register("pttl", 2, 2, (*CommandHandler).cmdPTTL)
}

// CommandHandler executes requests against an Instance.
type CommandHandler struct {
	cfg     *Config
	inst    *service.Instance
	logger  *slog.Logger
	limiter *service.RateLimiterRegistry
	metrics *metric.Registry

	clientCount func() int

	commandsProcessed atomic.Uint64
	rejectedCommands  atomic.Uint64
}

// NewCommandHandler creates a handler. A nil cfg uses DefaultConfig.
func NewCommandHandler(cfg *Config, inst *service.Instance, logger *slog.Logger, metrics *metric.Registry) *CommandHandler {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{
		cfg:         cfg,
		inst:        inst,
		logger:      logger,
		limiter:     service.NewRateLimiterRegistry(cfg.RateLimit),
		metrics:     metrics,
		clientCount: func() int { return 0 },
	}
}

// Dispatch executes one decoded request and returns its reply. Command
// failures come back as Error replies; Dispatch never fails the connection.
func (h *CommandHandler) Dispatch(c *Conn, req resp.Value) resp.Value {
	if req.Kind() != resp.KindArray {
		return h.dispatchInline(req)
	}

	args := req.Values()
	if len(args) == 0 {
		return errorReply(domain.NotImplemented("empty command"))
	}

	head := args[0]
	if head.Kind() != resp.KindBulk && head.Kind() != resp.KindSimpleString {
		return errorReply(domain.NotImplemented(head.Kind().String()))
	}

	cmd, ok := commandTable[strings.ToUpper(head.Str())]
	if !ok {
		return errorReply(domain.NotImplemented(head.Str()))
	}

	if !h.limiter.Allow(c.clientIP) {
		h.rejectedCommands.Add(1)
		h.metrics.IncRateLimited()
		return errorReply(domain.ErrRateLimited)
	}

	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		h.metrics.ObserveCommand(cmd.name, 0, true)
		return errorReply(domain.NotEnoughArgs(cmd.name))
	}

	start := time.Now()
	reply, err := cmd.fn(h, c, args)
	h.commandsProcessed.Add(1)
	h.metrics.ObserveCommand(cmd.name, time.Since(start), err != nil)

	if err != nil {
		return errorReply(err)
	}
	return reply
}

// dispatchInline handles a top-level frame that is not an array.
func (h *CommandHandler) dispatchInline(req resp.Value) resp.Value {
	if req.Kind() == resp.KindSimpleString {
		if strings.EqualFold(strings.TrimSpace(req.Str()), "ping") {
			h.commandsProcessed.Add(1)
			return resp.BulkString("PONG")
		}
		return errorReply(domain.NotImplemented("string command"))
	}
	return errorReply(domain.NotImplemented(req.Kind().String()))
}

func (h *CommandHandler) db(c *Conn) *memory.DB {
	return h.inst.DB(c.db)
}

// nilReply is the missing-key reply.
func (h *CommandHandler) nilReply() resp.Value {
	if h.cfg.NilReply == NilReplyBulk {
		return resp.NilBulk()
	}
	return resp.NilArray()
}

func errorReply(err error) resp.Value {
	return resp.Error(domain.Reply(err))
}

var (
	replyOK     = resp.SimpleString("OK")
	replyBulkOK = resp.BulkString("OK")
)
