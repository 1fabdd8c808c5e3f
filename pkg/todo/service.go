package todo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the authoritative holder of the item collection. Implementations
// do not need to be safe for concurrent use: the Service funnels every call
// through a single goroutine, so each operation executes as an indivisible
// unit against the collection.
type Store interface {
	Create(fields Fields) (Item, error)
	Get(id uuid.UUID) (Item, error)
	List(q ListQuery) ([]Item, error)
	Replace(id uuid.UUID, fields Fields) (Item, error)
	Patch(id uuid.UUID, patch Patch) (Item, error)
	Delete(id uuid.UUID) error
	Search(text string) ([]Item, error)
	Stats() Stats
}

// queueTimeout bounds how long a caller waits for the service goroutine
// before reporting the queue as busy.
const queueTimeout = 2 * time.Second

// command envelopes a mutation the service goroutine must perform.
type command struct {
	action string
	id     uuid.UUID
	fields Fields
	patch  Patch
	reply  chan commandResult
}

// query envelopes a read so consumers never touch shared memory directly.
type query struct {
	action string
	id     uuid.UUID
	list   ListQuery
	text   string
	reply  chan queryResult
}

// commandResult forwards the affected item or an error back to the caller.
type commandResult struct {
	item Item
	err  error
}

// queryResult carries whichever read result the action produced.
type queryResult struct {
	item  Item
	items []Item
	stats Stats
	err   error
}

// Service owns a goroutine to uphold Go's "share memory by communicating"
// approach: mutations and reads are serialized on one loop, so no operation
// ever observes another's partial effect.
type Service struct {
	store    Store
	commands chan command
	queries  chan query
	quit     chan struct{}
}

// NewService starts the background goroutine immediately so HTTP handlers
// only ever see non-blocking calls.
func NewService(store Store) *Service {
	svc := &Service{
		store:    store,
		commands: make(chan command),
		queries:  make(chan query),
		quit:     make(chan struct{}),
	}
	go svc.loop()
	return svc
}

// loop processes commands and queries sequentially so no mutexes are needed.
func (s *Service) loop() {
	for {
		select {
		case cmd := <-s.commands:
			switch cmd.action {
			case "create":
				item, err := s.store.Create(cmd.fields)
				cmd.reply <- commandResult{item: item, err: err}
			case "replace":
				item, err := s.store.Replace(cmd.id, cmd.fields)
				cmd.reply <- commandResult{item: item, err: err}
			case "patch":
				item, err := s.store.Patch(cmd.id, cmd.patch)
				cmd.reply <- commandResult{item: item, err: err}
			case "delete":
				err := s.store.Delete(cmd.id)
				cmd.reply <- commandResult{err: err}
			default:
				cmd.reply <- commandResult{err: errors.New("unknown todo action")}
			}
		case q := <-s.queries:
			switch q.action {
			case "get":
				item, err := s.store.Get(q.id)
				q.reply <- queryResult{item: item, err: err}
			case "list":
				items, err := s.store.List(q.list)
				q.reply <- queryResult{items: items, err: err}
			case "search":
				items, err := s.store.Search(q.text)
				q.reply <- queryResult{items: items, err: err}
			case "stats":
				q.reply <- queryResult{stats: s.store.Stats()}
			default:
				q.reply <- queryResult{err: errors.New("unknown todo query")}
			}
		case <-s.quit:
			return
		}
	}
}

// Create validates and stores a new item, returning it with its generated id.
func (s *Service) Create(ctx context.Context, fields Fields) (Item, error) {
	return s.do(ctx, command{action: "create", fields: fields})
}

// Get returns the item addressed by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	res, err := s.ask(ctx, query{action: "get", id: id})
	return res.item, err
}

// List returns a page of items honoring the optional completion filter.
func (s *Service) List(ctx context.Context, q ListQuery) ([]Item, error) {
	res, err := s.ask(ctx, query{action: "list", list: q})
	return res.items, err
}

// Replace swaps all mutable fields of an existing item.
func (s *Service) Replace(ctx context.Context, id uuid.UUID, fields Fields) (Item, error) {
	return s.do(ctx, command{action: "replace", id: id, fields: fields})
}

// Patch applies only the fields the caller supplied.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, patch Patch) (Item, error) {
	return s.do(ctx, command{action: "patch", id: id, patch: patch})
}

// Delete removes the item entirely; repeating the call keeps failing NotFound.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.do(ctx, command{action: "delete", id: id})
	return err
}

// Search returns items whose title or description contains the text.
func (s *Service) Search(ctx context.Context, text string) ([]Item, error) {
	res, err := s.ask(ctx, query{action: "search", text: text})
	return res.items, err
}

// Stats reports live aggregate counts over the collection.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	res, err := s.ask(ctx, query{action: "stats"})
	return res.stats, err
}

// Close stops the background goroutine when the application shuts down.
func (s *Service) Close() {
	close(s.quit)
}

// do submits a mutation and waits for its outcome while honoring the
// caller's context and the queue timeout.
func (s *Service) do(ctx context.Context, cmd command) (Item, error) {
	reply := make(chan commandResult, 1)
	cmd.reply = reply

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return Item{}, ctx.Err()
	case <-time.After(queueTimeout):
		return Item{}, errors.New("todo queue is busy")
	}

	select {
	case res := <-reply:
		return res.item, res.err
	case <-ctx.Done():
		return Item{}, ctx.Err()
	case <-time.After(queueTimeout):
		return Item{}, errors.New("todo operation timed out")
	}
}

// ask submits a read the same way do submits a mutation.
func (s *Service) ask(ctx context.Context, q query) (queryResult, error) {
	reply := make(chan queryResult, 1)
	q.reply = reply

	select {
	case s.queries <- q:
	case <-ctx.Done():
		return queryResult{}, ctx.Err()
	case <-time.After(queueTimeout):
		return queryResult{}, errors.New("todo queue is busy")
	}

	select {
	case res := <-reply:
		return res, res.err
	case <-ctx.Done():
		return queryResult{}, ctx.Err()
	case <-time.After(queueTimeout):
		return queryResult{}, errors.New("todo query timed out")
	}
}
