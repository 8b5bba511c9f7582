// Package store is the read-through cache of catalog records. Local rows are
// served first; misses go to the catalog and are persisted through a single
// insert-or-reuse path so a catalog id is never stored twice.
package store

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pokerjest/animeAggregator/internal/anilist"
	"github.com/pokerjest/animeAggregator/internal/event"
	"github.com/pokerjest/animeAggregator/internal/metrics"
	"github.com/pokerjest/animeAggregator/internal/model"
	"github.com/pokerjest/animeAggregator/internal/upstream"
)

// ErrNotFound is returned when neither the local rows nor the catalog know an id.
var ErrNotFound = errors.New("anime not found")

// Catalog is the part of the catalog client the store reads through to.
type Catalog interface {
	ByID(ctx context.Context, id int) mo.Result[*anilist.Media]
	Search(ctx context.Context, title string, filter anilist.SearchFilter) mo.Result[anilist.MediaPage]
	Trending(ctx context.Context, page, perPage int) mo.Result[[]anilist.Media]
	ByGenre(ctx context.Context, genre string, limit int) mo.Result[[]anilist.Media]
	Upcoming(ctx context.Context, limit int) mo.Result[[]anilist.Media]
	Seasonal(ctx context.Context, season string, year, limit int) mo.Result[[]anilist.Media]
	Recommendations(ctx context.Context, id, limit int) mo.Result[[]anilist.Media]
}

type Store struct {
	db      *gorm.DB
	catalog Catalog
	bus     event.Bus
	metrics metrics.Recorder
}

func New(db *gorm.DB, catalog Catalog, bus event.Bus, rec metrics.Recorder) *Store {
	if bus == nil {
		bus = event.Nop{}
	}
	return &Store{db: db, catalog: catalog, bus: bus, metrics: metrics.OrNop(rec)}
}

// SearchQuery selects a page of records by title substring.
type SearchQuery struct {
	Name   string
	Limit  int
	Page   int
	Status string
	Genre  string
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	ItemsPerPage int   `json:"itemsPerPage"`
	TotalItems   int64 `json:"totalItems"`
	TotalPages   int   `json:"totalPages"`
}

type SearchResult struct {
	Data       []model.AnimeRecord `json:"data"`
	Pagination Pagination          `json:"pagination"`
}

// FindByID serves a record from the database, fetching and persisting it
// from the catalog on a miss.
func (s *Store) FindByID(ctx context.Context, id int) (*model.AnimeRecord, error) {
	rec, err := s.local(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		s.metrics.ObserveStoreLookup(true)
		return rec, nil
	}
	s.metrics.ObserveStoreLookup(false)

	media, err := s.catalog.ByID(ctx, id).Get()
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "catalog id %d: %s", id, upstream.KindOf(err))
	}
	stored, _, err := s.insertOrReuse(ctx, anilist.ToRecord(*media))
	return stored, err
}

// FindTrending returns up to n of the most recently cached records. When
// fewer than n are cached the deficit is filled from the catalog's
// trending list, skipping ids that are already stored.
func (s *Store) FindTrending(ctx context.Context, n int) ([]model.AnimeRecord, error) {
	if n <= 0 {
		return []model.AnimeRecord{}, nil
	}

	var cached []model.AnimeRecord
	if err := s.db.WithContext(ctx).Order("created_at desc").Order("id desc").Limit(n).Find(&cached).Error; err != nil {
		return nil, errors.Wrap(err, "load cached anime")
	}
	if len(cached) >= n {
		return cached, nil
	}

	deficit := n - len(cached)
	perPage := min(n+len(cached), anilist.MaxPerPage)
	media, err := s.catalog.Trending(ctx, 1, perPage).Get()
	if err != nil {
		log.Warn().Err(err).Int("deficit", deficit).Msg("trending backfill skipped")
		return cached, nil
	}

	known := lo.Associate(cached, func(r model.AnimeRecord) (int, struct{}) { return r.CatalogID, struct{}{} })
	added := 0
	for _, m := range media {
		if added == deficit {
			break
		}
		if _, ok := known[m.ID]; ok {
			continue
		}
		rec, inserted, err := s.insertOrReuse(ctx, anilist.ToRecord(m))
		if err != nil {
			return nil, err
		}
		known[m.ID] = struct{}{}
		if inserted {
			cached = append(cached, *rec)
			added++
		}
	}
	log.Debug().Int("requested", n).Int("backfilled", added).Msg("trending served")
	return cached, nil
}

// Search pages through local records whose romaji or english title contains
// Name. An under-full page is topped up from the catalog search and the
// pagination reflects the total after that backfill.
func (s *Store) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q.Limit = max(q.Limit, 1)
	q.Page = max(q.Page, 1)

	base := s.searchScope(ctx, q)
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "count search results")
	}

	var rows []model.AnimeRecord
	if err := s.searchScope(ctx, q).
		Order("id asc").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "search anime")
	}

	if len(rows) < q.Limit {
		added, err := s.backfillSearch(ctx, q, &rows)
		if err != nil {
			return nil, err
		}
		total += int64(added)
	}

	return &SearchResult{
		Data: rows,
		Pagination: Pagination{
			CurrentPage:  q.Page,
			ItemsPerPage: q.Limit,
			TotalItems:   total,
			TotalPages:   int(math.Ceil(float64(total) / float64(q.Limit))),
		},
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (s *Store) searchScope(ctx context.Context, q SearchQuery) *gorm.DB {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Name)) + "%"
	tx := s.db.WithContext(ctx).Model(&model.AnimeRecord{}).
		Where(`(LOWER(title_romaji) LIKE ? ESCAPE '\' OR LOWER(title_english) LIKE ? ESCAPE '\')`, pattern, pattern)
	if q.Status != "" {
		tx = tx.Where("UPPER(status) = ?", strings.ToUpper(q.Status))
	}
	if q.Genre != "" {
		tx = tx.Where(`CAST(genres AS TEXT) LIKE ? ESCAPE '\'`, `%"`+likeEscaper.Replace(q.Genre)+`"%`)
	}
	return tx
}

func (s *Store) backfillSearch(ctx context.Context, q SearchQuery, rows *[]model.AnimeRecord) (int, error) {
	page, err := s.catalog.Search(ctx, q.Name, anilist.SearchFilter{
		Status:  q.Status,
		Genre:   q.Genre,
		Page:    q.Page,
		PerPage: q.Limit,
	}).Get()
	if err != nil {
		log.Warn().Err(err).Str("name", q.Name).Msg("search backfill skipped")
		return 0, nil
	}

	present := lo.Associate(*rows, func(r model.AnimeRecord) (int, struct{}) { return r.CatalogID, struct{}{} })
	added := 0
	for _, m := range page.Media {
		if len(*rows) >= q.Limit {
			break
		}
		if _, ok := present[m.ID]; ok {
			continue
		}
		rec, inserted, err := s.insertOrReuse(ctx, anilist.ToRecord(m))
		if err != nil {
			return added, err
		}
		present[m.ID] = struct{}{}
		if inserted {
			*rows = append(*rows, *rec)
			added++
		}
	}
	return added, nil
}

// Update applies a partial patch. Nil patch fields never clear stored values.
func (s *Store) Update(ctx context.Context, id int, patch model.AnimePatch) (*model.AnimeRecord, error) {
	rec, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(rec)
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, errors.Wrapf(err, "update anime %d", id)
	}
	return s.mustLocal(ctx, id)
}

// Save persists a full record.
func (s *Store) Save(ctx context.Context, rec *model.AnimeRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return errors.Wrapf(err, "save anime %d", rec.CatalogID)
	}
	return nil
}

// SaveTranslation stores a translated description and flags lang, leaving
// every other column untouched.
func (s *Store) SaveTranslation(ctx context.Context, id int, description, lang string) (*model.AnimeRecord, error) {
	rec, err := s.mustLocal(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Description = &description
	rec.MarkTranslated(lang)

	err = s.db.WithContext(ctx).Model(rec).
		Select("description", "translated_languages").
		Updates(rec).Error
	if err != nil {
		return nil, errors.Wrapf(err, "save translation for anime %d", id)
	}
	return rec, nil
}

// Recommendations lists catalog recommendations for id, cached like any
// other catalog record. Catalog failures yield an empty list.
func (s *Store) Recommendations(ctx context.Context, id, limit int) ([]model.AnimeRecord, error) {
	return s.persistAll(ctx, "recommendations", s.catalog.Recommendations(ctx, id, limit))
}

func (s *Store) ByGenre(ctx context.Context, genre string, limit int) ([]model.AnimeRecord, error) {
	return s.persistAll(ctx, "genre", s.catalog.ByGenre(ctx, genre, limit))
}

func (s *Store) Upcoming(ctx context.Context, limit int) ([]model.AnimeRecord, error) {
	return s.persistAll(ctx, "upcoming", s.catalog.Upcoming(ctx, limit))
}

func (s *Store) Seasonal(ctx context.Context, season string, year, limit int) ([]model.AnimeRecord, error) {
	return s.persistAll(ctx, "seasonal", s.catalog.Seasonal(ctx, season, year, limit))
}

// RefreshTrending re-reads the catalog's trending list and overwrites the
// catalog fields of stored rows, inserting unknown ones.
func (s *Store) RefreshTrending(ctx context.Context, n int) (updated, inserted int, err error) {
	media, err := s.catalog.Trending(ctx, 1, n).Get()
	if err != nil {
		return 0, 0, errors.Wrap(err, "fetch trending")
	}

	for _, m := range media {
		fresh := anilist.ToRecord(m)
		existing, err := s.local(ctx, m.ID)
		if err != nil {
			return updated, inserted, err
		}
		if existing == nil {
			if _, ok, err := s.insertOrReuse(ctx, fresh); err != nil {
				return updated, inserted, err
			} else if ok {
				inserted++
			}
			continue
		}
		existing.AssignCatalogFields(fresh)
		if err := s.Save(ctx, existing); err != nil {
			return updated, inserted, err
		}
		updated++
	}
	s.bus.Publish(event.EventTrendingRefreshed, event.TrendingRefreshed{Updated: updated, Inserted: inserted})
	return updated, inserted, nil
}

func (s *Store) persistAll(ctx context.Context, op string, res mo.Result[[]anilist.Media]) ([]model.AnimeRecord, error) {
	media, err := res.Get()
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("catalog list unavailable")
		return []model.AnimeRecord{}, nil
	}
	out := make([]model.AnimeRecord, 0, len(media))
	for _, m := range media {
		rec, _, err := s.insertOrReuse(ctx, anilist.ToRecord(m))
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// insertOrReuse stores rec unless its catalog id already exists and returns
// the persisted row. Concurrent callers racing on the same id both end up
// with the single stored row.
func (s *Store) insertOrReuse(ctx context.Context, rec model.AnimeRecord) (*model.AnimeRecord, bool, error) {
	existing, err := s.local(ctx, rec.CatalogID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "catalog_id"}}, DoNothing: true}).
		Create(&rec)
	if result.Error != nil {
		return nil, false, errors.Wrapf(result.Error, "insert anime %d", rec.CatalogID)
	}
	inserted := result.RowsAffected > 0

	stored, err := s.mustLocal(ctx, rec.CatalogID)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		log.Debug().Int("id", rec.CatalogID).Msg("anime cached")
		s.bus.Publish(event.EventAnimeCached, event.AnimeCached{CatalogID: rec.CatalogID})
	}
	return stored, inserted, nil
}

func (s *Store) local(ctx context.Context, id int) (*model.AnimeRecord, error) {
	var rec model.AnimeRecord
	err := s.db.WithContext(ctx).Where("catalog_id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load anime %d", id)
	}
	return &rec, nil
}

func (s *Store) mustLocal(ctx context.Context, id int) (*model.AnimeRecord, error) {
	rec, err := s.local(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.Wrapf(ErrNotFound, "anime %d", id)
	}
	return rec, nil
}
