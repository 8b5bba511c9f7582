package anilist

import (
	"github.com/samber/lo"
	"gorm.io/datatypes"

	"github.com/pokerjest/animeAggregator/internal/model"
)

// ToRecord maps a catalog Media onto the stored AnimeRecord shape.
func ToRecord(m Media) model.AnimeRecord {
	rec := model.AnimeRecord{
		CatalogID: m.ID,
		IDMal:     m.IDMal,
		Title: model.AnimeTitle{
			Romaji:  m.Title.Romaji,
			English: m.Title.English,
			Native:  m.Title.Native,
		},
		Description:  m.Description,
		Season:       m.Season,
		SeasonYear:   m.SeasonYear,
		Format:       m.Format,
		Status:       m.Status,
		Episodes:     m.Episodes,
		Duration:     m.Duration,
		Genres:       datatypes.JSONSlice[string](lo.Uniq(lo.Compact(m.Genres))),
		Synonyms:     datatypes.JSONSlice[string](lo.Compact(m.Synonyms)),
		BannerImage:  m.BannerImage,
		AverageScore: m.AverageScore,
		Popularity:   m.Popularity,
		CoverImage: datatypes.NewJSONType(model.CoverImage{
			ExtraLarge: m.CoverImage.ExtraLarge,
			Large:      m.CoverImage.Large,
			Medium:     m.CoverImage.Medium,
			Color:      m.CoverImage.Color,
		}),
		StartDate: datatypes.NewJSONType(model.StartDate{
			Year:  m.StartDate.Year,
			Month: m.StartDate.Month,
			Day:   m.StartDate.Day,
		}),
	}

	var next *model.AiringEpisode
	if m.NextAiringEpisode != nil {
		next = &model.AiringEpisode{Episode: m.NextAiringEpisode.Episode, AiringAt: m.NextAiringEpisode.AiringAt}
	}
	rec.NextAiringEpisode = datatypes.NewJSONType(next)

	var trailer *model.Trailer
	if m.Trailer != nil {
		trailer = &model.Trailer{ID: m.Trailer.ID, Site: m.Trailer.Site, Thumbnail: m.Trailer.Thumbnail}
	}
	rec.Trailer = datatypes.NewJSONType(trailer)

	return rec
}

func ToRecords(media []Media) []model.AnimeRecord {
	return lo.Map(media, func(m Media, _ int) model.AnimeRecord { return ToRecord(m) })
}
