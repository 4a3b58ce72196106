package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithOrgID(ctx, "org-7")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"org_id\":\"org-7\"")) {
		t.Fatalf("expected org_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled")
	}
}

func TestLoggerDebugFilteredAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Debug(context.Background(), "noisy")
	if buf.Len() != 0 {
		t.Fatalf("debug entry should be dropped at info level; entry=%s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" WARN "); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestLoggerIdentityAndScopeFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Format: "json", Output: buf})

	ctx := log.WithIdentity(context.Background(), 12, "org:7")
	log.Info(ctx, "resolved")
	if !bytes.Contains(buf.Bytes(), []byte(`"user_id":12`)) || !bytes.Contains(buf.Bytes(), []byte(`"scope":"org:7"`)) {
		t.Fatalf("expected identity fields; entry=%s", buf.String())
	}

	buf.Reset()
	log.Info(log.WithScope(context.Background(), "user:5"), "scoped")
	if !bytes.Contains(buf.Bytes(), []byte(`"scope":"user:5"`)) {
		t.Fatalf("expected scope field; entry=%s", buf.String())
	}
}

func TestLoggerWarnErrHasErrorWithoutStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Format: "json", Output: buf})
	log.WarnErr(context.Background(), "publish failed", errors.New("pubsub unavailable"))
	if !bytes.Contains(buf.Bytes(), []byte(`"error":"pubsub unavailable"`)) {
		t.Fatalf("expected error field; entry=%s", buf.String())
	}
	if bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("recovered warnings should not carry a stack; entry=%s", buf.String())
	}
}
