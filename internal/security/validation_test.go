package security

import (
	"errors"
	"strings"
	"testing"
)

type chatBody struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var body chatBody
	err := DecodeJSON(strings.NewReader(`{"message":"bonjour","session_id":"abc"}`), 0, &body)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if body.Message != "bonjour" || body.SessionID != "abc" {
		t.Errorf("body = %+v", body)
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		limit int64
		want  error
	}{
		{"too large", `{"message":"` + strings.Repeat("a", 100) + `"}`, 50, ErrBodyTooLarge},
		{"malformed", `{"message":`, 0, ErrInvalidJSON},
		{"unknown field", `{"msg":"x"}`, 0, ErrInvalidJSON},
		{"trailing data", `{"message":"x"} {"message":"y"}`, 0, ErrInvalidJSON},
		{"too deep", `{"message":"x","session_id":` + strings.Repeat("[", 20) + strings.Repeat("]", 20) + `}`, 0, ErrJSONTooDeep},
		{"empty", ``, 0, ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var body chatBody
			err := DecodeJSON(strings.NewReader(tt.input), tt.limit, &body)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeJSON() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateJSONDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		limit   int
		wantErr error
	}{
		{"flat object", `{"a":1}`, 2, nil},
		{"at limit", `{"a":{"b":1}}`, 2, nil},
		{"over limit", `{"a":{"b":{"c":1}}}`, 2, ErrJSONTooDeep},
		{"arrays count", `[[[1]]]`, 2, ErrJSONTooDeep},
		{"empty", ``, 2, nil},
		{"invalid", `{"a":}`, 2, ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateJSONDepth([]byte(tt.input), tt.limit)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateJSONDepth() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
