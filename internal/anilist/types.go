package anilist

type MediaTitle struct {
	Romaji  *string `json:"romaji"`
	English *string `json:"english"`
	Native  *string `json:"native"`
}

type CoverImage struct {
	ExtraLarge *string `json:"extraLarge"`
	Large      *string `json:"large"`
	Medium     *string `json:"medium"`
	Color      *string `json:"color"`
}

type AiringSchedule struct {
	Episode  int   `json:"episode"`
	AiringAt int64 `json:"airingAt"`
}

type FuzzyDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

type Trailer struct {
	ID        *string `json:"id"`
	Site      *string `json:"site"`
	Thumbnail *string `json:"thumbnail"`
}

// Media is the subset of the AniList Media object selected by mediaFields.
type Media struct {
	ID                int             `json:"id"`
	IDMal             *int            `json:"idMal"`
	Title             MediaTitle      `json:"title"`
	Description       *string         `json:"description"`
	Season            *string         `json:"season"`
	SeasonYear        *int            `json:"seasonYear"`
	Format            *string         `json:"format"`
	Status            *string         `json:"status"`
	Episodes          *int            `json:"episodes"`
	Duration          *int            `json:"duration"`
	Genres            []string        `json:"genres"`
	Synonyms          []string        `json:"synonyms"`
	CoverImage        CoverImage      `json:"coverImage"`
	BannerImage       *string         `json:"bannerImage"`
	NextAiringEpisode *AiringSchedule `json:"nextAiringEpisode"`
	StartDate         FuzzyDate       `json:"startDate"`
	Trailer           *Trailer        `json:"trailer"`
	AverageScore      *int            `json:"averageScore"`
	Popularity        *int            `json:"popularity"`
}

type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	LastPage    int  `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
	PerPage     int  `json:"perPage"`
}

type mediaData struct {
	Media *Media `json:"Media"`
}

type pageData struct {
	Page *struct {
		PageInfo PageInfo `json:"pageInfo"`
		Media    []Media  `json:"media"`
	} `json:"Page"`
}

type recommendationsData struct {
	Media *struct {
		Recommendations struct {
			Nodes []struct {
				MediaRecommendation *Media `json:"mediaRecommendation"`
			} `json:"nodes"`
		} `json:"recommendations"`
	} `json:"Media"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type envelope[T any] struct {
	Data   *T             `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// SearchFilter narrows a catalog search. Empty fields are not sent.
type SearchFilter struct {
	Status  string
	Genre   string
	Page    int
	PerPage int
}

// MediaPage is one page of catalog results.
type MediaPage struct {
	PageInfo PageInfo
	Media    []Media
}
