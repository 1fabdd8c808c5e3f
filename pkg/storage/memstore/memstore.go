// Package memstore holds the authoritative in-memory item collection.
package memstore

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"todoapi/pkg/todo"
)

// Config bounds item fields and pagination.
type Config struct {
	Limits       todo.Limits
	DefaultLimit int
	MaxLimit     int
}

// DefaultConfig matches the bounds the public API documents.
func DefaultConfig() Config {
	return Config{
		Limits:       todo.DefaultLimits(),
		DefaultLimit: 10,
		MaxLimit:     100,
	}
}

// Store keeps items in insertion order. It is not safe for concurrent use on
// its own; todo.Service serializes every call through its goroutine. Items
// contain no reference types, so the value copies handed to callers never
// alias store state.
type Store struct {
	cfg   Config
	items []todo.Item
}

// New builds an empty store, falling back to defaults for zero-valued bounds.
func New(cfg Config) *Store {
	def := DefaultConfig()
	if cfg.Limits.MaxTitleLen <= 0 {
		cfg.Limits.MaxTitleLen = def.Limits.MaxTitleLen
	}
	if cfg.Limits.MaxDescriptionLen <= 0 {
		cfg.Limits.MaxDescriptionLen = def.Limits.MaxDescriptionLen
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	return &Store{cfg: cfg}
}

// Create validates the fields, assigns identity and timestamps, and inserts.
func (s *Store) Create(fields todo.Fields) (todo.Item, error) {
	if err := fields.Validate(s.cfg.Limits); err != nil {
		return todo.Item{}, err
	}
	now := time.Now().UTC()
	item := todo.Item{
		ID:          uuid.New(),
		Title:       fields.Title,
		Description: fields.Description,
		Completed:   fields.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.items = append(s.items, item)
	return item, nil
}

// Get returns the item or NotFoundError when no item has that id.
func (s *Store) Get(id uuid.UUID) (todo.Item, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			return s.items[i], nil
		}
	}
	return todo.Item{}, todo.NotFoundError{ID: id}
}

// List returns a page of items in insertion order, optionally filtered by
// completion status. Skip must be zero or positive; an explicit limit must
// stay within [1, MaxLimit] and a nil limit uses the configured default.
func (s *Store) List(q todo.ListQuery) ([]todo.Item, error) {
	if q.Skip < 0 {
		return nil, todo.InvalidArgumentError{Field: "skip", Reason: "must be zero or positive"}
	}
	limit := s.cfg.DefaultLimit
	if q.Limit != nil {
		limit = *q.Limit
		if limit < 1 || limit > s.cfg.MaxLimit {
			return nil, todo.InvalidArgumentError{
				Field:  "limit",
				Reason: fmt.Sprintf("must be between 1 and %d", s.cfg.MaxLimit),
			}
		}
	}

	page := make([]todo.Item, 0, limit)
	skipped := 0
	for i := range s.items {
		if q.Completed != nil && s.items[i].Completed != *q.Completed {
			continue
		}
		if skipped < q.Skip {
			skipped++
			continue
		}
		page = append(page, s.items[i])
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

// Replace swaps all mutable fields of an existing item and bumps updated_at.
func (s *Store) Replace(id uuid.UUID, fields todo.Fields) (todo.Item, error) {
	if err := fields.Validate(s.cfg.Limits); err != nil {
		return todo.Item{}, err
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Title = fields.Title
			s.items[i].Description = fields.Description
			s.items[i].Completed = fields.Completed
			s.items[i].UpdatedAt = time.Now().UTC()
			return s.items[i], nil
		}
	}
	return todo.Item{}, todo.NotFoundError{ID: id}
}

// Patch applies only the supplied fields, re-validates the result, and bumps
// updated_at. An empty patch returns the current item untouched.
func (s *Store) Patch(id uuid.UUID, patch todo.Patch) (todo.Item, error) {
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if patch.IsZero() {
			return s.items[i], nil
		}
		next := patch.Apply(s.items[i])
		if err := next.Fields().Validate(s.cfg.Limits); err != nil {
			return todo.Item{}, err
		}
		next.UpdatedAt = time.Now().UTC()
		s.items[i] = next
		return next, nil
	}
	return todo.Item{}, todo.NotFoundError{ID: id}
}

// Delete removes the item entirely; a second delete of the same id fails
// NotFound again because no tombstone is kept.
func (s *Store) Delete(id uuid.UUID) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return todo.NotFoundError{ID: id}
}

// Search matches text case-insensitively against title and description and
// returns hits in insertion order. An empty query matches nothing.
func (s *Store) Search(text string) ([]todo.Item, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	matches := make([]todo.Item, 0)
	if needle == "" {
		return matches, nil
	}
	for i := range s.items {
		if strings.Contains(strings.ToLower(s.items[i].Title), needle) ||
			strings.Contains(strings.ToLower(s.items[i].Description), needle) {
			matches = append(matches, s.items[i])
		}
	}
	return matches, nil
}

// Stats computes aggregate counts live so they are always consistent with
// the collection at the instant of the call.
func (s *Store) Stats() todo.Stats {
	stats := todo.Stats{Total: len(s.items)}
	for i := range s.items {
		if s.items[i].Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}
	return stats
}

// Len reports the current collection size; tests use it to assert that
// failed operations left the collection unchanged.
func (s *Store) Len() int {
	return len(s.items)
}
