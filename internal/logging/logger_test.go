package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/klauern/tokensync/internal/logging"
)

func TestNew_Formats(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(logging.Options{Level: logging.LevelInfo, Output: &buf})
		logger.Info("stamped token", "collection", "primitive")

		out := buf.String()
		if !strings.Contains(out, "stamped token") || !strings.Contains(out, "collection=primitive") {
			t.Errorf("unexpected text output: %s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(logging.Options{Level: logging.LevelInfo, Output: &buf, JSON: true})
		logger.Info("stamped token", "collection", "primitive")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("failed to parse JSON output: %v", err)
		}
		if entry["msg"] != "stamped token" {
			t.Errorf("msg = %v, want 'stamped token'", entry["msg"])
		}
		if entry["collection"] != "primitive" {
			t.Errorf("collection = %v, want 'primitive'", entry["collection"])
		}
	})
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: logging.LevelWarn, Output: &buf})

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "visible warn") {
		t.Errorf("expected warn message, got: %s", out)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := logging.DefaultOptions()
	if opts.Level != logging.LevelInfo {
		t.Errorf("expected Info level, got %v", opts.Level)
	}
	if opts.JSON || opts.AddSource {
		t.Error("expected text output without source by default")
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: logging.LevelInfo, Output: &buf})

	ctx := logging.NewContext(context.Background(), logger)
	logging.WithContext(ctx).Info("from context")

	if !strings.Contains(buf.String(), "from context") {
		t.Error("expected WithContext to use logger stored in context")
	}
	if logging.FromContext(context.Background()) != nil {
		t.Error("expected nil logger from empty context")
	}
}

func TestWithContext_FallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	logging.SetDefault(logging.New(logging.Options{Level: logging.LevelInfo, Output: &buf}))

	logging.WithContext(context.Background()).Info("fallback")

	if !strings.Contains(buf.String(), "fallback") {
		t.Error("expected WithContext to fall back to the default logger")
	}
}

func TestAttributeHelpers(t *testing.T) {
	tests := map[string]struct {
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		"path":        {attr: logging.Path("primitive.color.red"), wantKey: "path", wantVal: "primitive.color.red"},
		"collection":  {attr: logging.Collection("primitive"), wantKey: "collection", wantVal: "primitive"},
		"token":       {attr: logging.Token("color.red"), wantKey: "token", wantVal: "color.red"},
		"conflict id": {attr: logging.ConflictID("conflict_addition_a.b_1"), wantKey: "conflict_id", wantVal: "conflict_addition_a.b_1"},
		"kind":        {attr: logging.Kind("type-change"), wantKey: "kind", wantVal: "type-change"},
		"side":        {attr: logging.Side("remote"), wantKey: "side", wantVal: "remote"},
		"strategy":    {attr: logging.Strategy("take-local"), wantKey: "strategy", wantVal: "take-local"},
		"operation":   {attr: logging.Operation("apply"), wantKey: "operation", wantVal: "apply"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	if attr := logging.Err(nil); attr.Key != "" {
		t.Errorf("expected empty attr for nil error, got key %q", attr.Key)
	}

	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: logging.LevelInfo, Output: &buf, JSON: true})
	logger.Info("skipped", logging.Err(errors.New("bad entry")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry["error"] != "bad entry" {
		t.Errorf("error = %v, want 'bad entry'", entry["error"])
	}
}

func TestCount(t *testing.T) {
	attr := logging.Count(42)
	if attr.Key != "count" || attr.Value.Int64() != 42 {
		t.Errorf("unexpected count attr: %v", attr)
	}
}

func TestTimer(t *testing.T) {
	var buf bytes.Buffer
	logging.SetDefault(logging.New(logging.Options{Level: logging.LevelDebug, Output: &buf}))

	done := logging.Timer("detect")
	done()

	out := buf.String()
	if !strings.Contains(out, "operation=detect") {
		t.Errorf("expected operation attribute, got: %s", out)
	}
	if !strings.Contains(out, "duration=") {
		t.Errorf("expected duration attribute, got: %s", out)
	}
}

func TestPackageLevelLogging(t *testing.T) {
	var buf bytes.Buffer
	logging.SetDefault(logging.New(logging.Options{Level: logging.LevelDebug, Output: &buf}))

	logging.Debug("debug message")
	logging.Info("info message")
	logging.Warn("warn message")
	logging.Error("error message")

	out := buf.String()
	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}
