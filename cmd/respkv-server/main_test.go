package main

import (
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/core/service"
	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/pkg/resp"
)

func captureOverrides(t *testing.T, args ...string) map[string]any {
	t.Helper()
	var got map[string]any
	app := newApp()
	app.Action = func(c *cli.Context) error {
		got = flagOverrides(c)
		return nil
	}
	if err := app.Run(append([]string{"respkv-server"}, args...)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return got
}

func TestFlagOverrides(t *testing.T) {
	got := captureOverrides(t)
	if len(got) != 0 {
		t.Errorf("no flags: overrides = %v, want empty", got)
	}

	got = captureOverrides(t, "-p", "7000", "--log-level", "debug")
	if got["server.port"] != 7000 {
		t.Errorf("server.port = %v, want 7000", got["server.port"])
	}
	if got["log.level"] != "debug" {
		t.Errorf("log.level = %v, want debug", got["log.level"])
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 7001
	cfg.Server.RateLimit = 50
	cfg.Compat.NilReply = "BULK"
	cfg.Compat.DelReply = "count"

	got := serverConfig(cfg)
	if got.Address != "127.0.0.1:7001" {
		t.Errorf("Address = %q", got.Address)
	}
	if got.RateLimit != 50 || got.ReadBufferSize != config.DefaultReadBuffer {
		t.Errorf("config = %+v", got)
	}
	if got.NilReply != redisserver.NilReplyBulk {
		t.Errorf("NilReply = %q, want bulk", got.NilReply)
	}
	if got.DelReply != redisserver.DelReplyCount {
		t.Errorf("DelReply = %q, want count", got.DelReply)
	}
}

func TestApplySeed(t *testing.T) {
	inst := service.NewInstance()
	applySeed(inst, map[string]string{"maxmemory": "100mb"})

	got := inst.ConfigGet([]resp.Value{resp.BulkString("maxmemory")})
	want := resp.ArrayOf(resp.BulkString("maxmemory"), resp.BulkString("100mb"))
	if !got.Equal(want) {
		t.Errorf("ConfigGet() = %v, want %v", got, want)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	load := func(target any) error {
		target.(*config.ServerConfig).Server.Port = -1
		return nil
	}
	if _, err := loadConfig(load); err == nil {
		t.Error("loadConfig() accepted port -1")
	}
}
