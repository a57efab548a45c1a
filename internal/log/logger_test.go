package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewJSONHandler(&buf, nil), Component: ComponentWorker})

	logger.Info("replayed", FieldSpendingID, "sp-1")

	out := buf.String()
	if !strings.Contains(out, `"`+FieldComponent+`":"`+ComponentWorker+`"`) {
		t.Fatalf("log line missing component field: %s", out)
	}
	if !strings.Contains(out, `"`+FieldSpendingID+`":"sp-1"`) {
		t.Fatalf("log line missing spending id field: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewJSONHandler(&buf, nil), Component: ComponentApp})

	logger.WithComponent(ComponentBackend).Warn("degraded")

	if out := buf.String(); !strings.Contains(out, `"`+FieldComponent+`":"`+ComponentBackend+`"`) {
		t.Fatalf("log line missing rescoped component: %s", out)
	}
}
