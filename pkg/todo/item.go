package todo

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Item is the single managed resource: a to-do entry addressed by its id.
type Item struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fields carries the caller-supplied mutable fields used by create and full replace.
type Fields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Patch mutates only the fields the caller explicitly supplied.
// A nil pointer means "leave unchanged", which keeps an omitted field
// distinguishable from one supplied as empty or false.
type Patch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// IsZero reports whether the patch supplies no fields at all.
func (p Patch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Apply copies the supplied fields onto the item and returns the result.
func (p Patch) Apply(item Item) Item {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Completed != nil {
		item.Completed = *p.Completed
	}
	return item
}

// Fields extracts the mutable fields so a patched item can be re-validated
// against the same rules enforced at creation.
func (i Item) Fields() Fields {
	return Fields{Title: i.Title, Description: i.Description, Completed: i.Completed}
}

// Limits bounds the text fields of an item.
type Limits struct {
	MaxTitleLen       int
	MaxDescriptionLen int
}

// DefaultLimits mirrors the bounds the public API documents.
func DefaultLimits() Limits {
	return Limits{MaxTitleLen: 500, MaxDescriptionLen: 2000}
}

// Validate applies the semantic rules every stored item must satisfy.
// Structural checks (types, unknown members) belong to the transport layer.
func (f Fields) Validate(limits Limits) error {
	if strings.TrimSpace(f.Title) == "" {
		return InvalidArgumentError{Field: "title", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(f.Title); n > limits.MaxTitleLen {
		return InvalidArgumentError{Field: "title", Reason: lengthReason(n, limits.MaxTitleLen)}
	}
	if n := utf8.RuneCountInString(f.Description); n > limits.MaxDescriptionLen {
		return InvalidArgumentError{Field: "description", Reason: lengthReason(n, limits.MaxDescriptionLen)}
	}
	return nil
}

func lengthReason(got, max int) string {
	return fmt.Sprintf("must be at most %d characters, got %d", max, got)
}

// ListQuery selects a page of items with an optional completion filter.
// Nil Completed means "no filter"; nil Limit means "use the store default".
type ListQuery struct {
	Completed *bool
	Skip      int
	Limit     *int
}

// Stats aggregates live counts over the collection.
type Stats struct {
	Total          int     `json:"total_items"`
	Completed      int     `json:"completed_items"`
	Pending        int     `json:"pending_items"`
	CompletionRate float64 `json:"completion_rate"`
}
