// Package validation checks note entries received by the note service.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

// Field limits enforced on incoming entries.
const (
	MaxTitleLength       = 500
	MaxDescriptionLength = 100_000
	MaxImageURLLength    = 2048
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// Summary joins the accumulated errors into one line.
func (c *Collector) Summary() string {
	parts := make([]string, len(c.errors))
	for i, e := range c.errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateImageURL accepts an empty value or an absolute http(s) URL.
func ValidateImageURL(field, value string) *ValidationError {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{
			Field:   field,
			Message: "must be an absolute http or https URL",
		}
	}
	return nil
}

// ValidateColor returns an error if c does not fit in 24 bits.
func ValidateColor(field string, c notes.Color) *ValidationError {
	if uint32(c) > 0xFFFFFF {
		return &ValidationError{
			Field:   field,
			Message: "must be #RRGGBB",
		}
	}
	return nil
}

// text runs the checks shared by every free-text field.
func text(c *Collector, field, value string, max int) {
	if err := ValidateUTF8(field, value); err != nil {
		c.Add(err)
		return
	}
	c.Add(ValidateNoNullBytes(field, value))
	c.Add(ValidateMaxLength(field, value, max))
}

// ValidateEntry checks an entry submitted for create or update.
func ValidateEntry(e notes.RemoteEntry) []ValidationError {
	var c Collector
	text(&c, "title", e.Title, MaxTitleLength)
	text(&c, "description", e.Description, MaxDescriptionLength)
	text(&c, "imageUrl", e.ImageURL, MaxImageURLLength)
	if !c.HasErrors() {
		c.Add(ValidateImageURL("imageUrl", e.ImageURL))
	}
	c.Add(ValidateColor("color", e.Color))
	if e.Created.IsZero() {
		c.Add(&ValidationError{Field: "created", Message: "is required"})
	}
	if e.Edited.IsZero() {
		c.Add(&ValidationError{Field: "edited", Message: "is required"})
	}
	return c.Errors()
}
