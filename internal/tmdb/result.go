package tmdb

import "math"

type searchPage struct {
	Results []result `json:"results"`
}

// result covers both search hits and detail records. Numeric fields are
// left untyped because TMDB occasionally sends them as null or strings.
type result struct {
	MediaType    string      `json:"media_type"`
	ID           interface{} `json:"id"`
	Title        string      `json:"title"`
	Name         string      `json:"name"`
	ReleaseDate  string      `json:"release_date"`
	FirstAirDate string      `json:"first_air_date"`
	Overview     string      `json:"overview"`
	VoteAverage  interface{} `json:"vote_average"`
	PosterPath   string      `json:"poster_path"`
}

func (r result) titleAndDate(mediaType string) (title, date string) {
	if mediaType == "movie" {
		return r.Title, r.ReleaseDate
	}
	return r.Name, r.FirstAirDate
}

func (r result) intID() (int64, bool) {
	f, ok := r.ID.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func (r result) rating() *float64 {
	f, ok := r.VoteAverage.(float64)
	if !ok {
		return nil
	}
	return &f
}

// pickFirst returns the first movie or tv hit with an integer id
func pickFirst(results []result, queryFallback, imageBase string) *Movie {
	for _, r := range results {
		if r.MediaType != "movie" && r.MediaType != "tv" {
			continue
		}
		id, ok := r.intID()
		if !ok {
			continue
		}

		title, date := r.titleAndDate(r.MediaType)
		if title == "" {
			title = queryFallback
		}

		return &Movie{
			ID:        id,
			MediaType: r.MediaType,
			Title:     title,
			Year:      pickYear(date),
			Overview:  r.Overview,
			Rating:    r.rating(),
			PosterURL: posterURL(imageBase, r.PosterPath),
		}
	}
	return nil
}

func pickYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

func posterURL(base, path string) string {
	if path == "" {
		return ""
	}
	return base + path
}
