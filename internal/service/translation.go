package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/pokerjest/animeAggregator/internal/event"
	"github.com/pokerjest/animeAggregator/internal/llm"
	"github.com/pokerjest/animeAggregator/internal/model"
)

// TranslationStore is the part of the record store translation needs.
type TranslationStore interface {
	FindByID(ctx context.Context, id int) (*model.AnimeRecord, error)
	SaveTranslation(ctx context.Context, id int, description, lang string) (*model.AnimeRecord, error)
}

type TranslationResult struct {
	CatalogID         int    `json:"idAnilist"`
	AlreadyTranslated bool   `json:"alreadyTranslated"`
	Translated        bool   `json:"translated"`
	Language          string `json:"language"`
	Description       string `json:"description"`
	Provider          string `json:"provider,omitempty"`
}

type TranslationService struct {
	store      TranslationStore
	translator llm.Translator
	bus        event.Bus
	lang       string
}

func NewTranslationService(store TranslationStore, translator llm.Translator, bus event.Bus, targetLang string) *TranslationService {
	if bus == nil {
		bus = event.Nop{}
	}
	return &TranslationService{store: store, translator: translator, bus: bus, lang: targetLang}
}

// TranslateDescription translates the stored description of id into the
// target language once. Later calls report AlreadyTranslated and leave the
// record alone.
func (s *TranslationService) TranslateDescription(ctx context.Context, id int) (*TranslationResult, error) {
	if id <= 0 {
		return nil, ErrBadInput
	}
	anime, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	description := lo.FromPtr(anime.Description)
	result := &TranslationResult{CatalogID: id, Language: s.lang, Description: description}

	if anime.IsTranslated(s.lang) {
		result.AlreadyTranslated = true
		return result, nil
	}
	if strings.TrimSpace(description) == "" {
		return result, nil
	}

	translated, err := s.translator.Translate(ctx, description)
	if err != nil {
		return nil, errors.Wrapf(err, "translate anime %d", id)
	}
	if _, err := s.store.SaveTranslation(ctx, id, translated, s.lang); err != nil {
		return nil, err
	}

	log.Info().Int("id", id).Str("lang", s.lang).Str("provider", s.translator.Name()).Msg("description translated")
	s.bus.Publish(event.EventAnimeTranslated, event.AnimeTranslated{CatalogID: id, Language: s.lang})

	result.Translated = true
	result.Description = translated
	result.Provider = s.translator.Name()
	return result, nil
}
