package content

import "encoding/json"

// RichText is a structured rich-text document exactly as the content source
// delivers it. Rendering lives in the richtext package.
type RichText = json.RawMessage

// Image is an asset hosted by the content source's image service.
type Image struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Category groups plants. Slug is the routable identifier.
type Category struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Icon        Image  `json:"icon"`
	Description string `json:"description"`
}

// Author is embedded into each plant as a snapshot; Handle is used in URLs.
type Author struct {
	ID        string   `json:"id"`
	Handle    string   `json:"handle"`
	FullName  string   `json:"fullName"`
	Photo     Image    `json:"photo"`
	Biography RichText `json:"biography,omitempty"`
	Twitter   string   `json:"twitter"`
	LinkedIn  string   `json:"linkedIn"`
}

// Plant is a published plant article.
type Plant struct {
	ID          string     `json:"id"`
	PlantName   string     `json:"plantName"`
	Slug        string     `json:"slug"`
	Description RichText   `json:"description,omitempty"`
	Image       Image      `json:"image"`
	Categories  []Category `json:"categories"`
	Author      Author     `json:"author"`
}

// CategoryPlants is the result of listing plants of one category.
type CategoryPlants struct {
	Entries  []Plant  `json:"entries"`
	Category Category `json:"category"`
}

// QueryStatus tracks a single fetch from the caller's point of view.
type QueryStatus string

const (
	StatusIdle    QueryStatus = "idle"
	StatusLoading QueryStatus = "loading"
	StatusSuccess QueryStatus = "success"
	StatusError   QueryStatus = "error"
)

// PlantQuery selects a single plant.
type PlantQuery struct {
	Slug    string
	Preview bool
	Locale  string
}

// ListQuery bounds a collection fetch.
type ListQuery struct {
	Limit   int
	Locale  string
	Preview bool
}

// CategoryQuery lists plants of the category with the given slug.
type CategoryQuery struct {
	Category string
	Limit    int
	Locale   string
}

// AuthorQuery lists plants written by AuthorID.
type AuthorQuery struct {
	AuthorID string
	Limit    int
	Locale   string
}

// SearchQuery matches plants whose name contains Term.
type SearchQuery struct {
	Term   string
	Limit  int
	Locale string
}
