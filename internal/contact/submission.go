package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxSummaryRunes = 100
	anonymousName   = "익명"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User-facing validation messages, matching the site's Korean copy.
const (
	msgRequired     = "이메일과 메시지는 필수입니다."
	msgInvalidEmail = "올바른 이메일 형식이 아닙니다."
)

// Submission is one contact form post. Name is optional.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ValidationError reports a submission the client must correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks required fields and the email shape.
func (s Submission) Validate() error {
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return &ValidationError{Field: "email", Message: msgRequired}
	}
	if strings.TrimSpace(s.Message) == "" {
		return &ValidationError{Field: "message", Message: msgRequired}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: msgInvalidEmail}
	}
	return nil
}

// DisplayName returns the trimmed name or the anonymous placeholder.
func (s Submission) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return anonymousName
}

// Summary truncates text to 100 runes, appending "..." when cut.
func Summary(text string) string {
	if utf8.RuneCountInString(text) <= maxSummaryRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxSummaryRunes]) + "..."
}
