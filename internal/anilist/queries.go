package anilist

const mediaFields = `
fragment mediaFields on Media {
  id
  idMal
  title { romaji english native }
  description(asHtml: false)
  season
  seasonYear
  format
  status
  episodes
  duration
  genres
  synonyms
  coverImage { extraLarge large medium color }
  bannerImage
  nextAiringEpisode { episode airingAt }
  startDate { year month day }
  trailer { id site thumbnail }
  averageScore
  popularity
}
`

const pageInfoFields = `pageInfo { total currentPage lastPage hasNextPage perPage }`

const queryByID = `
query ($id: Int) {
  Media(id: $id, type: ANIME) { ...mediaFields }
}
` + mediaFields

const querySearch = `
query ($search: String, $status: MediaStatus, $genre: String, $page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    ` + pageInfoFields + `
    media(search: $search, status: $status, genre: $genre, type: ANIME, sort: SEARCH_MATCH) { ...mediaFields }
  }
}
` + mediaFields

const queryByGenre = `
query ($genre: String, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    ` + pageInfoFields + `
    media(genre: $genre, type: ANIME, sort: POPULARITY_DESC) { ...mediaFields }
  }
}
` + mediaFields

const queryTrending = `
query ($page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    ` + pageInfoFields + `
    media(type: ANIME, sort: TRENDING_DESC) { ...mediaFields }
  }
}
` + mediaFields

const queryUpcoming = `
query ($perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    ` + pageInfoFields + `
    media(type: ANIME, status: NOT_YET_RELEASED, sort: POPULARITY_DESC) { ...mediaFields }
  }
}
` + mediaFields

const querySeasonal = `
query ($season: MediaSeason, $seasonYear: Int, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    ` + pageInfoFields + `
    media(season: $season, seasonYear: $seasonYear, type: ANIME, sort: POPULARITY_DESC) { ...mediaFields }
  }
}
` + mediaFields

const queryRecommendations = `
query ($id: Int, $perPage: Int) {
  Media(id: $id, type: ANIME) {
    recommendations(perPage: $perPage, sort: RATING_DESC) {
      nodes { mediaRecommendation { ...mediaFields } }
    }
  }
}
` + mediaFields
