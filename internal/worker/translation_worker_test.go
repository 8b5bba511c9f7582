package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerjest/animeAggregator/internal/event"
	"github.com/pokerjest/animeAggregator/internal/service"
)

type recordingTranslator struct {
	ids chan int
	err error
}

func (r *recordingTranslator) TranslateDescription(_ context.Context, id int) (*service.TranslationResult, error) {
	r.ids <- id
	if r.err != nil {
		return nil, r.err
	}
	return &service.TranslationResult{CatalogID: id, Translated: true, Language: "es"}, nil
}

func waitID(t *testing.T, ids <-chan int) int {
	t.Helper()
	select {
	case id := <-ids:
		return id
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for translation")
		return 0
	}
}

func TestTranslationWorker_TranslatesCachedAnime(t *testing.T) {
	bus := event.NewInMemoryBus()
	tr := &recordingTranslator{ids: make(chan int, 4)}
	w := NewTranslationWorker(bus, tr)
	w.Start(context.Background())
	defer w.Stop()

	bus.Publish(event.EventAnimeCached, event.AnimeCached{CatalogID: 21})
	assert.Equal(t, 21, waitID(t, tr.ids))

	// unrelated payloads are ignored
	bus.Publish(event.EventAnimeCached, "not a payload")
	bus.Publish(event.EventAnimeCached, event.AnimeCached{CatalogID: 22})
	assert.Equal(t, 22, waitID(t, tr.ids))
}

func TestTranslationWorker_KeepsGoingAfterFailure(t *testing.T) {
	bus := event.NewInMemoryBus()
	tr := &recordingTranslator{ids: make(chan int, 4), err: errors.New("quota")}
	w := NewTranslationWorker(bus, tr)
	w.Start(context.Background())
	defer w.Stop()

	bus.Publish(event.EventAnimeCached, event.AnimeCached{CatalogID: 1})
	assert.Equal(t, 1, waitID(t, tr.ids))
	bus.Publish(event.EventAnimeCached, event.AnimeCached{CatalogID: 2})
	assert.Equal(t, 2, waitID(t, tr.ids))
}

func TestTranslationWorker_StopIsIdempotent(t *testing.T) {
	bus := event.NewInMemoryBus()
	w := NewTranslationWorker(bus, &recordingTranslator{ids: make(chan int, 1)})
	w.Start(context.Background())

	w.Stop()
	w.Stop()

	assert.NotPanics(t, func() {
		w.enqueue(event.Event{Type: event.EventAnimeCached, Payload: event.AnimeCached{CatalogID: 3}})
	})
}
