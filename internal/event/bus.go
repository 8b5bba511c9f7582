package event

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	// EventAnimeCached fires once per record newly inserted into the store.
	EventAnimeCached EventType = "anime_cached"
	// EventAnimeTranslated fires after a description translation is persisted.
	EventAnimeTranslated EventType = "anime_translated"
	// EventTrendingRefreshed fires after a scheduled trending refresh.
	EventTrendingRefreshed EventType = "trending_refreshed"
)

type Event struct {
	Type    EventType
	Payload any
}

// AnimeCached is the payload of EventAnimeCached.
type AnimeCached struct {
	CatalogID int `json:"catalogId"`
}

// AnimeTranslated is the payload of EventAnimeTranslated.
type AnimeTranslated struct {
	CatalogID int    `json:"catalogId"`
	Language  string `json:"language"`
}

// TrendingRefreshed is the payload of EventTrendingRefreshed.
type TrendingRefreshed struct {
	Updated  int `json:"updated"`
	Inserted int `json:"inserted"`
}

type Handler func(event Event)

type Bus interface {
	Subscribe(topic EventType, handler Handler) string
	Unsubscribe(topic EventType, subID string)
	Publish(topic EventType, payload any)
}

type subscription struct {
	id      string
	handler Handler
}

// InMemoryBus delivers every event to its subscribers on their own goroutine.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[EventType][]subscription),
	}
}

func (b *InMemoryBus) Subscribe(topic EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, handler: handler})
	return id
}

func (b *InMemoryBus) Unsubscribe(topic EventType, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[topic]
	kept := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != subID {
			kept = append(kept, s)
		}
	}
	b.handlers[topic] = kept
}

func (b *InMemoryBus) Publish(topic EventType, payload any) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	evt := Event{Type: topic, Payload: payload}
	for _, s := range subs {
		go dispatch(s, evt)
	}
}

func dispatch(s subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", string(evt.Type)).Str("subscription", s.id).Msg("event handler panicked")
		}
	}()
	s.handler(evt)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Subscribe(EventType, Handler) string { return "" }
func (Nop) Unsubscribe(EventType, string)       {}
func (Nop) Publish(EventType, any)              {}
