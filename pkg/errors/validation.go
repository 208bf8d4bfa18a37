package errors

import (
	"strings"
	"unicode"
)

// ValidateName validates a problem, module or record name for safety.
// Names end up in file names of the result store and in cache keys, so the
// rules reject anything that could be used for path traversal:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "%s name cannot be empty", kind)
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "%s name too long (max 256 characters)", kind)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s name contains invalid control characters", kind)
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "%s name contains invalid characters: %q", kind, pattern)
		}
	}

	return nil
}

// ValidatePositive checks that an integer option is strictly positive.
func ValidatePositive(field string, v int) error {
	if v <= 0 {
		return New(ErrCodeInvalidConfig, "%s must be positive, got %d", field, v)
	}
	return nil
}

// ValidateNonNegative checks that an integer option is zero or positive.
func ValidateNonNegative(field string, v int) error {
	if v < 0 {
		return New(ErrCodeInvalidConfig, "%s must not be negative, got %d", field, v)
	}
	return nil
}

// ValidateRate checks that a probability lies in [0, 1].
func ValidateRate(field string, v float64) error {
	if v < 0 || v > 1 {
		return New(ErrCodeInvalidConfig, "%s must be within [0, 1], got %g", field, v)
	}
	return nil
}

// ValidateURL validates a backend URL such as a redis or mongodb address.
// Only the schemes listed in allowed are accepted.
func ValidateURL(rawURL string, allowed ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, scheme := range allowed {
		if strings.HasPrefix(rawURL, scheme+"://") {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use one of the schemes: %s", strings.Join(allowed, ", "))
}
