package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

// --- ValidateUTF8 Tests ---

func TestValidateUTF8_Valid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"ascii", "hello world"},
		{"empty", ""},
		{"unicode", "Hello, 世界"},
		{"emoji", "Hello 👋🏻"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUTF8("field", tt.value)
			if err != nil {
				t.Errorf("ValidateUTF8(%q) = %v, want nil", tt.value, err)
			}
		})
	}
}

func TestValidateUTF8_Invalid(t *testing.T) {
	// Invalid UTF-8 byte sequence
	invalidUTF8 := string([]byte{0xff, 0xfe})

	err := ValidateUTF8("description", invalidUTF8)
	if err == nil {
		t.Error("ValidateUTF8(invalid) = nil, want error")
	}
	if err != nil && err.Field != "description" {
		t.Errorf("error.Field = %q, want %q", err.Field, "description")
	}
}

// --- ValidateNoNullBytes Tests ---

func TestValidateNoNullBytes_Clean(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"normal", "hello world"},
		{"empty", ""},
		{"unicode", "Hello, 世界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNoNullBytes("field", tt.value)
			if err != nil {
				t.Errorf("ValidateNoNullBytes(%q) = %v, want nil", tt.value, err)
			}
		})
	}
}

func TestValidateNoNullBytes_WithNull(t *testing.T) {
	err := ValidateNoNullBytes("description", "hello\x00world")
	if err == nil {
		t.Error("ValidateNoNullBytes(with null) = nil, want error")
	}
	if err != nil && err.Field != "description" {
		t.Errorf("error.Field = %q, want %q", err.Field, "description")
	}
}

// --- ValidateMaxLength Tests ---

func TestValidateMaxLength_Within(t *testing.T) {
	value := strings.Repeat("a", 100)
	err := ValidateMaxLength("description", value, 4000)
	if err != nil {
		t.Errorf("ValidateMaxLength(100 chars, max 4000) = %v, want nil", err)
	}
}

func TestValidateMaxLength_AtLimit(t *testing.T) {
	value := strings.Repeat("a", 4000)
	err := ValidateMaxLength("description", value, 4000)
	if err != nil {
		t.Errorf("ValidateMaxLength(4000 chars, max 4000) = %v, want nil", err)
	}
}

func TestValidateMaxLength_Exceeds(t *testing.T) {
	value := strings.Repeat("a", 4001)
	err := ValidateMaxLength("description", value, 4000)
	if err == nil {
		t.Error("ValidateMaxLength(4001 chars, max 4000) = nil, want error")
	}
	if err != nil && err.Field != "description" {
		t.Errorf("error.Field = %q, want %q", err.Field, "description")
	}
}

func TestValidateMaxLength_MultibyteRunes(t *testing.T) {
	// 4000 emoji characters (each 4 bytes in UTF-8, but counts as 1 rune)
	value := strings.Repeat("👋", 4000)
	err := ValidateMaxLength("description", value, 4000)
	if err != nil {
		t.Errorf("ValidateMaxLength(4000 emoji, max 4000) = %v, want nil (counts runes)", err)
	}
}

func TestValidateMaxLength_MultibyteRunes_Exceeds(t *testing.T) {
	// 4001 emoji characters (exceeds 4000 rune limit)
	value := strings.Repeat("👋", 4001)
	err := ValidateMaxLength("description", value, 4000)
	if err == nil {
		t.Error("ValidateMaxLength(4001 emoji, max 4000) = nil, want error")
	}
}

// --- ValidateRequired Tests ---

func TestValidateRequired_NonEmpty(t *testing.T) {
	err := ValidateRequired("field", "value")
	if err != nil {
		t.Errorf("ValidateRequired(value) = %v, want nil", err)
	}
}

func TestValidateRequired_Empty(t *testing.T) {
	err := ValidateRequired("title", "")
	if err == nil {
		t.Error("ValidateRequired(empty) = nil, want error")
	}
	if err != nil && err.Field != "title" {
		t.Errorf("error.Field = %q, want %q", err.Field, "title")
	}
}

func TestValidateRequired_WhitespaceOnly(t *testing.T) {
	tests := []string{" ", "   ", "\t", "\n", "  \t\n  "}
	for _, value := range tests {
		t.Run("whitespace", func(t *testing.T) {
			err := ValidateRequired("field", value)
			if err == nil {
				t.Errorf("ValidateRequired(%q) = nil, want error", value)
			}
		})
	}
}

// --- Collector Tests ---

func TestCollector_AccumulatesErrors(t *testing.T) {
	c := &Collector{}
	c.Add(&ValidationError{Field: "field1", Message: "error1"})
	c.Add(&ValidationError{Field: "field2", Message: "error2"})
	c.Add(&ValidationError{Field: "field3", Message: "error3"})

	errors := c.Errors()
	if len(errors) != 3 {
		t.Errorf("len(Errors()) = %d, want 3", len(errors))
	}
}

func TestCollector_IgnoresNil(t *testing.T) {
	c := &Collector{}
	c.Add(nil)
	c.Add(&ValidationError{Field: "field", Message: "error"})
	c.Add(nil)

	errors := c.Errors()
	if len(errors) != 1 {
		t.Errorf("len(Errors()) = %d, want 1 (nil should be ignored)", len(errors))
	}
}

func TestCollector_HasErrors_Empty(t *testing.T) {
	c := &Collector{}
	if c.HasErrors() {
		t.Error("HasErrors() = true, want false for empty collector")
	}
}

func TestCollector_HasErrors_WithErrors(t *testing.T) {
	c := &Collector{}
	c.Add(&ValidationError{Field: "field", Message: "error"})
	if !c.HasErrors() {
		t.Error("HasErrors() = false, want true for collector with errors")
	}
}

func TestCollector_Errors_ReturnsSlice(t *testing.T) {
	c := &Collector{}
	c.Add(&ValidationError{Field: "f1", Message: "m1"})
	c.Add(&ValidationError{Field: "f2", Message: "m2"})

	errors := c.Errors()
	if errors[0].Field != "f1" || errors[0].Message != "m1" {
		t.Errorf("errors[0] = %+v, want {Field:f1, Message:m1}", errors[0])
	}
	if errors[1].Field != "f2" || errors[1].Message != "m2" {
		t.Errorf("errors[1] = %+v, want {Field:f2, Message:m2}", errors[1])
	}
}

// --- ValidateImageURL Tests ---

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"", true},
		{"https://example.com/a.png", true},
		{"http://cdn.example.com/x?y=1", true},
		{"ftp://example.com/a.png", false},
		{"/relative/path.png", false},
		{"https://", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := ValidateImageURL("imageUrl", tt.value)
			if tt.ok && err != nil {
				t.Errorf("ValidateImageURL(%q) = %v, want nil", tt.value, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("ValidateImageURL(%q) = nil, want error", tt.value)
			}
		})
	}
}

// --- ValidateEntry Tests ---

func validEntry() notes.RemoteEntry {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return notes.RemoteEntry{
		Title:       "Shopping",
		Description: "milk",
		Color:       notes.DefaultColor,
		ImageURL:    "https://example.com/a.png",
		Created:     ts,
		Edited:      ts,
		Viewed:      ts,
	}
}

func TestValidateEntry_Valid(t *testing.T) {
	if errs := ValidateEntry(validEntry()); len(errs) != 0 {
		t.Errorf("ValidateEntry(valid) = %v, want no errors", errs)
	}
}

func TestValidateEntry_EmptyTitleAllowed(t *testing.T) {
	e := validEntry()
	e.Title = ""
	if errs := ValidateEntry(e); len(errs) != 0 {
		t.Errorf("empty title should be allowed, got %v", errs)
	}
}

func TestValidateEntry_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*notes.RemoteEntry)
		field  string
	}{
		{"title too long", func(e *notes.RemoteEntry) { e.Title = strings.Repeat("a", MaxTitleLength+1) }, "title"},
		{"title invalid utf8", func(e *notes.RemoteEntry) { e.Title = string([]byte{0xff}) }, "title"},
		{"description null byte", func(e *notes.RemoteEntry) { e.Description = "a\x00b" }, "description"},
		{"bad image url", func(e *notes.RemoteEntry) { e.ImageURL = "not a url" }, "imageUrl"},
		{"color overflow", func(e *notes.RemoteEntry) { e.Color = notes.Color(0x1000000) }, "color"},
		{"missing created", func(e *notes.RemoteEntry) { e.Created = time.Time{} }, "created"},
		{"missing edited", func(e *notes.RemoteEntry) { e.Edited = time.Time{} }, "edited"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			errs := ValidateEntry(e)
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %v", errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestCollector_Summary(t *testing.T) {
	var c Collector
	c.Add(&ValidationError{Field: "a", Message: "bad"})
	c.Add(&ValidationError{Field: "b", Message: "worse"})
	if got := c.Summary(); got != "a: bad; b: worse" {
		t.Errorf("Summary() = %q", got)
	}
}
