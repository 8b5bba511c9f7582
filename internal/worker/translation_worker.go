package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pokerjest/animeAggregator/internal/event"
	"github.com/pokerjest/animeAggregator/internal/service"
)

const queueSize = 64

// Translator is what the worker needs from the translation service.
type Translator interface {
	TranslateDescription(ctx context.Context, id int) (*service.TranslationResult, error)
}

// TranslationWorker translates descriptions of newly cached anime, one at a
// time, in the background.
type TranslationWorker struct {
	bus        event.Bus
	translator Translator

	queue  chan int
	subID  string
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewTranslationWorker(bus event.Bus, translator Translator) *TranslationWorker {
	return &TranslationWorker{
		bus:        bus,
		translator: translator,
		queue:      make(chan int, queueSize),
	}
}

// Start subscribes to anime_cached and processes the queue until ctx is
// done or Stop is called.
func (w *TranslationWorker) Start(ctx context.Context) {
	w.subID = w.bus.Subscribe(event.EventAnimeCached, w.enqueue)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case id, ok := <-w.queue:
				if !ok {
					return
				}
				w.process(ctx, id)
			}
		}
	}()
	log.Info().Msg("translation worker started")
}

func (w *TranslationWorker) enqueue(e event.Event) {
	payload, ok := e.Payload.(event.AnimeCached)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.queue <- payload.CatalogID:
	default:
		log.Warn().Int("id", payload.CatalogID).Msg("translation queue full, dropping")
	}
}

func (w *TranslationWorker) process(ctx context.Context, id int) {
	res, err := w.translator.TranslateDescription(ctx, id)
	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("auto translation failed")
		return
	}
	if res.Translated {
		log.Debug().Int("id", id).Str("lang", res.Language).Msg("auto translated description")
	}
}

// Stop unsubscribes and waits for the current job to finish.
func (w *TranslationWorker) Stop() {
	w.bus.Unsubscribe(event.EventAnimeCached, w.subID)
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
