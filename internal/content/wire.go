package content

import "encoding/json"

type sysRef struct {
	ID string `json:"id"`
}

type richTextField struct {
	JSON json.RawMessage `json:"json"`
}

type wireCategory struct {
	Sys         sysRef `json:"sys"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        *Image `json:"icon"`
}

type wireAuthor struct {
	Sys       sysRef         `json:"sys"`
	Handle    string         `json:"handle"`
	FullName  string         `json:"fullName"`
	Twitter   string         `json:"twitter"`
	LinkedIn  string         `json:"linkedIn"`
	Photo     *Image         `json:"photo"`
	Biography *richTextField `json:"biography"`
}

type wirePlant struct {
	Sys                  sysRef         `json:"sys"`
	PlantName            string         `json:"plantName"`
	Slug                 string         `json:"slug"`
	Description          *richTextField `json:"description"`
	Image                *Image         `json:"image"`
	CategoriesCollection *struct {
		Items []*wireCategory `json:"items"`
	} `json:"categoriesCollection"`
	Author *wireAuthor `json:"author"`
}

type plantCollection struct {
	Items []*wirePlant `json:"items"`
}

type categoryCollection struct {
	Items []*wireCategory `json:"items"`
}

type authorCollection struct {
	Items []*wireAuthor `json:"items"`
}

// normalizeImage drops non-positive dimensions so a zero value always means
// "unknown" and never an invalid size.
func normalizeImage(img *Image) Image {
	if img == nil {
		return Image{}
	}
	out := *img
	if out.Width <= 0 {
		out.Width = 0
	}
	if out.Height <= 0 {
		out.Height = 0
	}
	return out
}

func richText(f *richTextField) RichText {
	if f == nil || len(f.JSON) == 0 || string(f.JSON) == "null" {
		return nil
	}
	return RichText(f.JSON)
}

func (w *wireCategory) toCategory() Category {
	return Category{
		ID:          w.Sys.ID,
		Slug:        w.Slug,
		Title:       w.Title,
		Icon:        normalizeImage(w.Icon),
		Description: w.Description,
	}
}

func (w *wireAuthor) toAuthor() Author {
	if w == nil {
		return Author{}
	}
	return Author{
		ID:        w.Sys.ID,
		Handle:    w.Handle,
		FullName:  w.FullName,
		Photo:     normalizeImage(w.Photo),
		Biography: richText(w.Biography),
		Twitter:   w.Twitter,
		LinkedIn:  w.LinkedIn,
	}
}

func (w *wirePlant) toPlant() Plant {
	categories := []Category{}
	if w.CategoriesCollection != nil {
		categories = toCategories(w.CategoriesCollection.Items)
	}
	return Plant{
		ID:          w.Sys.ID,
		PlantName:   w.PlantName,
		Slug:        w.Slug,
		Description: richText(w.Description),
		Image:       normalizeImage(w.Image),
		Categories:  categories,
		Author:      w.Author.toAuthor(),
	}
}

// Unresolvable links come back as null items; they are skipped.

func toPlants(items []*wirePlant) []Plant {
	plants := make([]Plant, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		plants = append(plants, item.toPlant())
	}
	return plants
}

func toCategories(items []*wireCategory) []Category {
	categories := make([]Category, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		categories = append(categories, item.toCategory())
	}
	return categories
}

func toAuthors(items []*wireAuthor) []Author {
	authors := make([]Author, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		authors = append(authors, item.toAuthor())
	}
	return authors
}
