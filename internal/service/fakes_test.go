package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/pokerjest/animeAggregator/internal/anilist"
	"github.com/pokerjest/animeAggregator/internal/anizip"
	"github.com/pokerjest/animeAggregator/internal/llm"
	"github.com/pokerjest/animeAggregator/internal/model"
	"github.com/pokerjest/animeAggregator/internal/upstream"
	"github.com/pokerjest/animeAggregator/pkg/rss"
)

const frierenID = 154587

func frieren() *model.AnimeRecord {
	return &model.AnimeRecord{
		CatalogID:   frierenID,
		Title:       model.AnimeTitle{Romaji: lo.ToPtr("Sousou no Frieren"), English: lo.ToPtr("Frieren: Beyond Journey's End")},
		Description: lo.ToPtr("The adventure is over but life goes on for an elf mage."),
		Status:      lo.ToPtr("FINISHED"),
		Episodes:    lo.ToPtr(12),
		Duration:    lo.ToPtr(24),
		Genres:      []string{"Adventure", "Fantasy"},
	}
}

type fakeAnime struct {
	mu      sync.Mutex
	records map[int]*model.AnimeRecord
	saved   map[int]string
}

func newFakeAnime(recs ...*model.AnimeRecord) *fakeAnime {
	f := &fakeAnime{records: map[int]*model.AnimeRecord{}, saved: map[int]string{}}
	for _, r := range recs {
		f.records[r.CatalogID] = r
	}
	return f
}

func (f *fakeAnime) FindByID(_ context.Context, id int) (*model.AnimeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAnime) SaveTranslation(_ context.Context, id int, description, lang string) (*model.AnimeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Description = &description
	rec.MarkTranslated(lang)
	f.saved[id] = description
	return rec, nil
}

type fakeMapping struct {
	mapping *anizip.Mapping
	calls   atomic.Int32
}

func (f *fakeMapping) EpisodesFor(_ context.Context, id int) mo.Result[*anizip.Mapping] {
	f.calls.Add(1)
	if f.mapping == nil {
		return upstream.Fail[*anizip.Mapping](upstream.NotFound("anizip", errors.New("no mapping")))
	}
	return mo.Ok(f.mapping)
}

// mappingOf builds a mapping with keys 1..n; airDate is set on every entry
// unless withAirDate is false.
func mappingOf(n int, withAirDate bool) *anizip.Mapping {
	m := &anizip.Mapping{CatalogID: frierenID, Episodes: map[string]anizip.Episode{}}
	for i := 1; i <= n; i++ {
		key := strconv.Itoa(i)
		num := anizip.FlexInt(i)
		ep := anizip.Episode{
			EpisodeNumber: &num,
			Runtime:       lo.ToPtr(anizip.FlexInt(25)),
			Title:         anizip.Titles{En: lo.ToPtr("Episode " + key)},
		}
		if withAirDate {
			ep.AirDate = lo.ToPtr("2024-01-05")
		}
		m.Keys = append(m.Keys, key)
		m.Episodes[key] = ep
	}
	return m
}

type fakeFeed struct {
	items []rss.ReleaseItem
	fail  bool
}

func (f *fakeFeed) Fetch(context.Context, string) mo.Result[[]rss.ReleaseItem] {
	if f.fail {
		return upstream.Fail[[]rss.ReleaseItem](upstream.Unavailable("feed", errors.New("down")))
	}
	return mo.Ok(f.items)
}

type fakeTorrents struct {
	calls  atomic.Int32
	failOn map[int]bool
	byEp   func(ep int) []model.TorrentCandidate
}

func (f *fakeTorrents) Search(_ context.Context, title string, ep int) mo.Result[[]model.TorrentCandidate] {
	f.calls.Add(1)
	if f.failOn[ep] {
		return upstream.Fail[[]model.TorrentCandidate](upstream.Unavailable("nyaa", errors.New("timeout")))
	}
	if f.byEp == nil {
		return mo.Ok([]model.TorrentCandidate{})
	}
	return mo.Ok(f.byEp(ep))
}

type fakeResolver struct {
	media map[string]anilist.Media
}

func (f *fakeResolver) SearchOne(_ context.Context, title string) mo.Result[*anilist.Media] {
	m, ok := f.media[title]
	if !ok {
		return upstream.Fail[*anilist.Media](upstream.NotFound("anilist", errors.New("no match")))
	}
	return mo.Ok(&m)
}

type stubCompleter struct {
	mu      sync.Mutex
	prompts []string
	systems []string
	reply   string
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, prompt, system string) (llm.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	s.systems = append(s.systems, system)
	if s.err != nil {
		return llm.Completion{}, s.err
	}
	return llm.Completion{Text: s.reply, Model: "stub", Provider: "stub"}, nil
}

type stubTranslator struct {
	calls atomic.Int32
	out   string
	err   error
}

func (s *stubTranslator) Translate(context.Context, string) (string, error) {
	s.calls.Add(1)
	return s.out, s.err
}

func (s *stubTranslator) Name() string { return "stub" }
