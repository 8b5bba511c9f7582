package model

import (
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
)

// AnimeTitle holds the catalog's three title variants; any may be missing.
type AnimeTitle struct {
	Romaji  *string `json:"romaji"`
	English *string `json:"english"`
	Native  *string `json:"native"`
}

// Preferred returns the first non-empty of romaji, english, native.
func (t AnimeTitle) Preferred() string {
	v, _ := lo.Coalesce(nonEmpty(t.Romaji), nonEmpty(t.English), nonEmpty(t.Native))
	return lo.FromPtr(v)
}

type CoverImage struct {
	ExtraLarge *string `json:"extraLarge"`
	Large      *string `json:"large"`
	Medium     *string `json:"medium"`
	Color      *string `json:"color"`
}

type AiringEpisode struct {
	Episode  int   `json:"episode"`
	AiringAt int64 `json:"airingAt"`
}

// StartDate is a partial date; each part is independently optional.
type StartDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

type Trailer struct {
	ID        *string `json:"id"`
	Site      *string `json:"site"`
	Thumbnail *string `json:"thumbnail"`
}

// AnimeRecord is the locally cached copy of a catalog entry, keyed by the
// catalog id. Everything except CatalogID may be overwritten by a fresher
// catalog fetch.
type AnimeRecord struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CatalogID int  `gorm:"uniqueIndex;not null" json:"idAnilist"`
	IDMal     *int `json:"idMal"`

	Title               AnimeTitle                  `gorm:"embedded;embeddedPrefix:title_" json:"title"`
	Description         *string                     `json:"description"`
	TranslatedLanguages datatypes.JSONSlice[string] `json:"translatedLanguages"`

	Season     *string `json:"season"`
	SeasonYear *int    `json:"seasonYear"`
	Format     *string `json:"format"`
	Status     *string `gorm:"index" json:"status"`
	Episodes   *int    `json:"episodes"`
	Duration   *int    `json:"duration"`

	Genres            datatypes.JSONSlice[string]        `json:"genres"`
	Synonyms          datatypes.JSONSlice[string]        `json:"synonyms"`
	CoverImage        datatypes.JSONType[CoverImage]     `json:"coverImage"`
	BannerImage       *string                            `json:"bannerImage"`
	NextAiringEpisode datatypes.JSONType[*AiringEpisode] `json:"nextAiringEpisode"`
	StartDate         datatypes.JSONType[StartDate]      `json:"startDate"`
	Trailer           datatypes.JSONType[*Trailer]       `json:"trailer"`
	AverageScore      *int                               `json:"averageScore"`
	Popularity        *int                               `json:"popularity"`
}

func (AnimeRecord) TableName() string { return "anime" }

// IsTranslated reports whether the stored description was machine
// translated into lang.
func (a *AnimeRecord) IsTranslated(lang string) bool {
	return lo.Contains(a.TranslatedLanguages, lang)
}

// MarkTranslated records lang as a translated language of the description.
func (a *AnimeRecord) MarkTranslated(lang string) {
	if !a.IsTranslated(lang) {
		a.TranslatedLanguages = append(a.TranslatedLanguages, lang)
	}
}

// AssignCatalogFields overwrites every catalog-sourced field with src's
// values. Identity, timestamps and translation state are kept.
func (a *AnimeRecord) AssignCatalogFields(src AnimeRecord) {
	a.IDMal = src.IDMal
	a.Title = src.Title
	if len(a.TranslatedLanguages) == 0 || a.Description == nil {
		a.Description = src.Description
	}
	a.Season = src.Season
	a.SeasonYear = src.SeasonYear
	a.Format = src.Format
	a.Status = src.Status
	a.Episodes = src.Episodes
	a.Duration = src.Duration
	a.Genres = src.Genres
	a.Synonyms = src.Synonyms
	a.CoverImage = src.CoverImage
	a.BannerImage = src.BannerImage
	a.NextAiringEpisode = src.NextAiringEpisode
	a.StartDate = src.StartDate
	a.Trailer = src.Trailer
	a.AverageScore = src.AverageScore
	a.Popularity = src.Popularity
}

// AnimePatch is a partial update. Nil fields are left untouched.
type AnimePatch struct {
	TitleRomaji  *string   `json:"titleRomaji"`
	TitleEnglish *string   `json:"titleEnglish"`
	TitleNative  *string   `json:"titleNative"`
	Description  *string   `json:"description"`
	Season       *string   `json:"season"`
	SeasonYear   *int      `json:"seasonYear"`
	Format       *string   `json:"format"`
	Status       *string   `json:"status"`
	Episodes     *int      `json:"episodes"`
	Duration     *int      `json:"duration"`
	Genres       *[]string `json:"genres"`
	Synonyms     *[]string `json:"synonyms"`
	BannerImage  *string   `json:"bannerImage"`
}

// Apply copies every non-nil patch field onto a.
func (p AnimePatch) Apply(a *AnimeRecord) {
	setIf(&a.Title.Romaji, p.TitleRomaji)
	setIf(&a.Title.English, p.TitleEnglish)
	setIf(&a.Title.Native, p.TitleNative)
	setIf(&a.Description, p.Description)
	setIf(&a.Season, p.Season)
	setIf(&a.SeasonYear, p.SeasonYear)
	setIf(&a.Format, p.Format)
	setIf(&a.Status, p.Status)
	setIf(&a.Episodes, p.Episodes)
	setIf(&a.Duration, p.Duration)
	setIf(&a.BannerImage, p.BannerImage)
	if p.Genres != nil {
		a.Genres = lo.Uniq(*p.Genres)
	}
	if p.Synonyms != nil {
		a.Synonyms = *p.Synonyms
	}
}

// IsEmpty reports whether the patch would change nothing.
func (p AnimePatch) IsEmpty() bool {
	return p == (AnimePatch{})
}

func setIf[T any](dst **T, v *T) {
	if v != nil {
		val := *v
		*dst = &val
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
