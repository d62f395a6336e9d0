package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l := Discard()
	ctx := WithLogger(context.Background(), l)

	if FromContext(ctx) != l {
		t.Error("FromContext() did not return the stored logger")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("FromContext() without a logger should return slog.Default()")
	}
}

func TestConnID(t *testing.T) {
	if got := ConnIDFromContext(context.Background()); got != "" {
		t.Errorf("ConnIDFromContext() = %q, want empty", got)
	}

	ctx := WithConnID(context.Background(), "conn-1")
	if got := ConnIDFromContext(ctx); got != "conn-1" {
		t.Errorf("ConnIDFromContext() = %q, want conn-1", got)
	}
}

func TestL(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithConnID(WithLogger(context.Background(), base), "conn-42")
	L(ctx).Info("served")
	if !strings.Contains(buf.String(), "conn_id=conn-42") {
		t.Errorf("output = %q, want conn_id", buf.String())
	}

	buf.Reset()
	L(WithLogger(context.Background(), base)).Info("plain")
	if strings.Contains(buf.String(), "conn_id") {
		t.Errorf("output = %q, want no conn_id", buf.String())
	}
}
