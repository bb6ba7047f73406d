package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	plain := NewValidationError(ErrCodePersonaNameRequired, "Persona name is required", nil)
	if got := plain.Error(); got != "PERSONA_NAME_REQUIRED: Persona name is required" {
		t.Errorf("Unexpected message: %s", got)
	}

	cause := fmt.Errorf("disk full")
	wrapped := NewStorageError(ErrCodePersistenceFailed, "failed to save persona", cause)
	if !strings.Contains(wrapped.Error(), "caused by: disk full") {
		t.Errorf("Expected cause in message, got: %s", wrapped.Error())
	}
	if wrapped.Unwrap() != cause {
		t.Error("Expected Unwrap to return the cause")
	}
	if wrapped.Type != ErrorTypeStorage {
		t.Errorf("Expected storage type, got %s", wrapped.Type)
	}
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	appErr := NewAIError(ErrCodeGenerationFailed, "generation failed", nil)
	err := fmt.Errorf("regenerate: %w", appErr)

	got, ok := AsAppError(err)
	if !ok || got != appErr {
		t.Fatal("Expected to find AppError in chain")
	}
	if !HasCode(err, ErrCodeGenerationFailed) {
		t.Error("Expected HasCode to match wrapped code")
	}
	if HasCode(err, ErrCodePersonaNotFound) {
		t.Error("Expected HasCode to reject other codes")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeGenerationFailed) {
		t.Error("Expected HasCode to be false for plain errors")
	}
	if _, ok := AsAppError(nil); ok {
		t.Error("Expected no AppError for nil")
	}
}

func TestWithContext(t *testing.T) {
	err := NewValidationError(ErrCodeRangeViolation, "out of range", nil).
		WithContext("category", 2).
		WithContext("weight", 70.0)

	if len(err.Context) != 2 || err.Context["category"] != 2 {
		t.Errorf("Unexpected context: %v", err.Context)
	}
}

func TestLogErrorWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo)

	appErr := NewValidationError(ErrCodeWeightTotalInvalid, "weights must total 100", nil).
		WithContext("total", 90.0)
	logger.LogError(fmt.Errorf("save: %w", appErr), "Save blocked", "persona", "Backend")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["error_code"] != ErrCodeWeightTotalInvalid {
		t.Errorf("Expected error_code %s, got %v", ErrCodeWeightTotalInvalid, entry["error_code"])
	}
	if entry["total"] != 90.0 {
		t.Errorf("Expected total context field, got %v", entry["total"])
	}
	if entry["persona"] != "Backend" {
		t.Errorf("Expected persona arg, got %v", entry["persona"])
	}

	buf.Reset()
	logger.LogError(fmt.Errorf("boom"), "Plain failure")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("Expected plain error field, got %s", buf.String())
	}
}

func TestNewWithWriterLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := NewWithWriter(&bytes.Buffer{}, level); err != nil {
			t.Errorf("Expected level %s to be valid, got %v", level, err)
		}
	}
	if _, err := NewWithWriter(&bytes.Buffer{}, "verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}

	var buf bytes.Buffer
	logger, _ := NewWithWriter(&buf, "warn")
	logger.Info("hidden")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected info and debug to be filtered, got %s", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("Expected warn to be written")
	}
}
