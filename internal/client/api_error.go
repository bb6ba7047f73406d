package client

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
	// Warnings holds range warnings by category position for 409 responses
	Warnings map[int]string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsRangeConflict reports whether err is the server refusing a save because of range warnings
func IsRangeConflict(err error) bool {
	var apiErr *APIError
	return stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ParseAPIError builds an APIError from a rejected response. The message is the
// first of: field-level {loc, msg} entries joined together, a detail or message
// string, or "HTTP <status>: <statusText>".
func ParseAPIError(status int, statusText string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Detail   json.RawMessage   `json:"detail"`
		Message  string            `json:"message"`
		Error    string            `json:"error"`
		Warnings map[string]string `json:"warnings"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Message = fallbackMessage(status, statusText)
		return apiErr
	}

	if len(envelope.Warnings) > 0 {
		apiErr.Warnings = make(map[int]string, len(envelope.Warnings))
		for k, v := range envelope.Warnings {
			if pos, err := strconv.Atoi(k); err == nil {
				apiErr.Warnings[pos] = v
			}
		}
	}

	switch {
	case fieldMessages(envelope.Detail) != "":
		apiErr.Message = fieldMessages(envelope.Detail)
	case detailString(envelope.Detail) != "":
		apiErr.Message = detailString(envelope.Detail)
	case strings.TrimSpace(envelope.Message) != "":
		apiErr.Message = envelope.Message
	case strings.TrimSpace(envelope.Error) != "":
		apiErr.Message = envelope.Error
	default:
		apiErr.Message = fallbackMessage(status, statusText)
	}
	return apiErr
}

type fieldIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func fieldMessages(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var issues []fieldIssue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return ""
	}
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		if strings.TrimSpace(is.Msg) == "" {
			continue
		}
		if loc := formatLoc(is.Loc); loc != "" {
			parts = append(parts, loc+": "+is.Msg)
		} else {
			parts = append(parts, is.Msg)
		}
	}
	return strings.Join(parts, "; ")
}

// formatLoc renders a location path, dropping the leading "body" segment some servers add
func formatLoc(loc []any) string {
	segs := make([]string, 0, len(loc))
	for i, l := range loc {
		s := fmt.Sprint(l)
		if f, ok := l.(float64); ok {
			s = strconv.FormatFloat(f, 'f', -1, 64)
		}
		if i == 0 && s == "body" {
			continue
		}
		segs = append(segs, s)
	}
	return strings.Join(segs, ".")
}

func detailString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func fallbackMessage(status int, statusText string) string {
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, statusText)
}
