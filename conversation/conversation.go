// Package conversation persists the assistant conversation history as a
// single JSON array under a fixed key.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Key is the storage key the history lives under.
const Key = "conversation_history"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrNotFound     = errors.New("conversation: not found")
	ErrInvalidRole  = errors.New("conversation: invalid role")
	ErrEmptyMessage = errors.New("conversation: empty message")
)

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a titled, ordered list of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store loads and saves the whole history.
// Load reports found=false when nothing has ever been saved under Key.
type Store interface {
	Load(ctx context.Context) (history []Conversation, found bool, err error)
	Save(ctx context.Context, history []Conversation) error
}

// History is the read-modify-write layer over a Store.
// Methods are safe for concurrent use.
type History struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewHistory wraps store.
func NewHistory(store Store) *History {
	return &History{store: store, now: time.Now}
}

// load returns the persisted history, seeding it on first use.
func (h *History) load(ctx context.Context) ([]Conversation, error) {
	history, found, err := h.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		if history == nil {
			history = []Conversation{}
		}
		return history, nil
	}

	history = Samples(h.now().UTC())
	if err := h.store.Save(ctx, history); err != nil {
		return nil, fmt.Errorf("conversation: seed: %w", err)
	}
	return history, nil
}

// List returns every conversation, most recent first.
func (h *History) List(ctx context.Context) ([]Conversation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Get returns one conversation by id.
func (h *History) Get(ctx context.Context, id string) (*Conversation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	history, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(history, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return &history[i], nil
}

// Create starts a new conversation and puts it at the front of the list.
func (h *History) Create(ctx context.Context, title string) (*Conversation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	history, err := h.load(ctx)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = "New conversation"
	}
	now := h.now().UTC()
	c := Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	history = append([]Conversation{c}, history...)
	if err := h.store.Save(ctx, history); err != nil {
		return nil, err
	}
	return &c, nil
}

// AppendMessage adds a message to a conversation and moves it to the front.
func (h *History) AppendMessage(ctx context.Context, id string, msg Message) (*Conversation, error) {
	if msg.Role != RoleUser && msg.Role != RoleAssistant {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyMessage
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	history, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(history, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	now := h.now().UTC()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	c := history[i]
	c.Messages = append(append([]Message{}, c.Messages...), msg)
	c.UpdatedAt = now

	rest := append(append([]Conversation{}, history[:i]...), history[i+1:]...)
	history = append([]Conversation{c}, rest...)
	if err := h.store.Save(ctx, history); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a conversation. Missing ids are not an error.
func (h *History) Delete(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	history, err := h.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(history, id)
	if i < 0 {
		return nil
	}
	history = append(history[:i:i], history[i+1:]...)
	return h.store.Save(ctx, history)
}

func indexOf(history []Conversation, id string) int {
	for i := range history {
		if history[i].ID == id {
			return i
		}
	}
	return -1
}

// Samples returns the two conversations the history is seeded with.
func Samples(now time.Time) []Conversation {
	day := 24 * time.Hour
	first := now.Add(-day)
	second := now.Add(-3 * day)
	return []Conversation{
		{
			ID:    "sample-invoice-review",
			Title: "Overdue invoices this quarter",
			Messages: []Message{
				{Role: RoleUser, Content: "Which invoices from this quarter are still unpaid?", Timestamp: first},
				{Role: RoleAssistant, Content: "I found 4 unpaid invoices from this quarter. The largest is from Northwind Supplies, 31 days past due.", Timestamp: first.Add(time.Minute)},
			},
			CreatedAt: first,
			UpdatedAt: first.Add(time.Minute),
		},
		{
			ID:    "sample-contract-renewal",
			Title: "Contract renewal terms",
			Messages: []Message{
				{Role: RoleUser, Content: "Summarise the renewal clauses in the facilities contract.", Timestamp: second},
				{Role: RoleAssistant, Content: "The contract renews automatically for 12 months unless either party gives 60 days written notice.", Timestamp: second.Add(time.Minute)},
			},
			CreatedAt: second,
			UpdatedAt: second.Add(time.Minute),
		},
	}
}
