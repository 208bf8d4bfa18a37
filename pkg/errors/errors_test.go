package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeUnknownModule, "operation %d: unknown module type %q", 3, "centrifuge")

	if err.Code != ErrCodeUnknownModule {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUnknownModule)
	}

	wantMsg := `operation 3: unknown module type "centrifuge"`
	if err.Message != wantMsg {
		t.Errorf("Message = %v, want %v", err.Message, wantMsg)
	}

	expected := "UNKNOWN_MODULE: " + wantMsg
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("exit status 2")
	err := Wrap(ErrCodeAdapterFailed, cause, "run placer")

	if err.Code != ErrCodeAdapterFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeAdapterFailed)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	expected := "ADAPTER_FAILED: run placer: exit status 2"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeCyclicDependency, "test"),
			code:     ErrCodeCyclicDependency,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeCyclicDependency, "test"),
			code:     ErrCodeUnknownModule,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeInvalidFormat, New(ErrCodeInvalidProblem, "inner"), "outer"),
			code:     ErrCodeInvalidFormat,
			expected: true,
		},
		{
			name:     "fmt wrapped error",
			err:      fmt.Errorf("load: %w", New(ErrCodeUnknownOperation, "inner")),
			code:     ErrCodeUnknownOperation,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeDuplicateOperation, "test"),
			expected: ErrCodeDuplicateOperation,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidProblem, "chip width must be positive"),
			expected: "chip width must be positive",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsStructural(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(ErrCodeCyclicDependency, "x"), true},
		{New(ErrCodeUnknownModule, "x"), true},
		{New(ErrCodeInvalidFormat, "x"), true},
		{New(ErrCodeInvalidConfig, "x"), false},
		{New(ErrCodeAdapterFailed, "x"), false},
		{errors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := IsStructural(tt.err); got != tt.want {
			t.Errorf("IsStructural(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidProblem, ErrCodeCyclicDependency, ErrCodeUnknownModule,
		ErrCodeUnknownOperation, ErrCodeDuplicateOperation, ErrCodeInvalidInput,
		ErrCodeInvalidFormat, ErrCodeInvalidConfig, ErrCodeInvalidPath,
		ErrCodeNotFound, ErrCodeFileNotFound, ErrCodeAdapterUnavailable,
		ErrCodeAdapterFailed, ErrCodeTimeout, ErrCodeInternal, ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate error code: %s", c)
		}
		seen[c] = true
	}
}
