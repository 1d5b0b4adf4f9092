package content

import (
	"context"
	"errors"
)

// GetPlant returns the plant with q.Slug in q.Locale, or ErrNotFound.
func (c *Client) GetPlant(ctx context.Context, q PlantQuery) (Plant, error) {
	if q.Slug == "" {
		return Plant{}, ErrNotFound
	}
	vars := variables(1, q.Locale)
	vars["slug"] = q.Slug
	vars["preview"] = q.Preview

	var data struct {
		PlantCollection plantCollection `json:"plantCollection"`
	}
	if err := c.do(ctx, "getPlant", getPlantQuery, vars, q.Preview, &data); err != nil {
		return Plant{}, err
	}

	plants := toPlants(data.PlantCollection.Items)
	if len(plants) == 0 {
		return Plant{}, ErrNotFound
	}
	return plants[0], nil
}

// GetPlantList returns up to q.Limit plants, most recently published first.
func (c *Client) GetPlantList(ctx context.Context, q ListQuery) ([]Plant, error) {
	vars := variables(q.Limit, q.Locale)
	vars["preview"] = q.Preview

	var data struct {
		PlantCollection plantCollection `json:"plantCollection"`
	}
	if err := c.do(ctx, "getPlantList", getPlantListQuery, vars, q.Preview, &data); err != nil {
		return nil, err
	}
	return toPlants(data.PlantCollection.Items), nil
}

// GetPlantListByCategory returns the category with slug q.Category and up to
// q.Limit of its plants. An unknown slug is ErrNotFound; a known category
// without plants is not an error.
func (c *Client) GetPlantListByCategory(ctx context.Context, q CategoryQuery) (CategoryPlants, error) {
	if q.Category == "" {
		return CategoryPlants{}, ErrNotFound
	}
	vars := variables(q.Limit, q.Locale)
	vars["category"] = q.Category

	var data struct {
		CategoryCollection categoryCollection `json:"categoryCollection"`
		PlantCollection    plantCollection    `json:"plantCollection"`
	}
	if err := c.do(ctx, "getPlantListByCategory", getPlantListByCategoryQuery, vars, false, &data); err != nil {
		return CategoryPlants{}, err
	}

	categories := toCategories(data.CategoryCollection.Items)
	if len(categories) == 0 {
		return CategoryPlants{}, ErrNotFound
	}
	return CategoryPlants{
		Entries:  toPlants(data.PlantCollection.Items),
		Category: categories[0],
	}, nil
}

// GetPlantListByAuthor returns up to q.Limit plants by q.AuthorID. An author
// without plants yields an empty slice.
func (c *Client) GetPlantListByAuthor(ctx context.Context, q AuthorQuery) ([]Plant, error) {
	if q.AuthorID == "" {
		return nil, errors.New("content: missing author id")
	}
	vars := variables(q.Limit, q.Locale)
	vars["authorId"] = q.AuthorID

	var data struct {
		PlantCollection plantCollection `json:"plantCollection"`
	}
	if err := c.do(ctx, "getPlantListByAuthor", getPlantListByAuthorQuery, vars, false, &data); err != nil {
		return nil, err
	}
	return toPlants(data.PlantCollection.Items), nil
}

// SearchPlants returns up to q.Limit plants whose name contains q.Term.
func (c *Client) SearchPlants(ctx context.Context, q SearchQuery) ([]Plant, error) {
	if q.Term == "" {
		return []Plant{}, nil
	}
	vars := variables(q.Limit, q.Locale)
	vars["term"] = q.Term

	var data struct {
		PlantCollection plantCollection `json:"plantCollection"`
	}
	if err := c.do(ctx, "searchPlants", searchPlantsQuery, vars, false, &data); err != nil {
		return nil, err
	}
	return toPlants(data.PlantCollection.Items), nil
}

// GetCategoryList returns up to q.Limit categories ordered by title.
func (c *Client) GetCategoryList(ctx context.Context, q ListQuery) ([]Category, error) {
	vars := variables(q.Limit, q.Locale)
	vars["preview"] = q.Preview

	var data struct {
		CategoryCollection categoryCollection `json:"categoryCollection"`
	}
	if err := c.do(ctx, "getCategoryList", getCategoryListQuery, vars, q.Preview, &data); err != nil {
		return nil, err
	}
	return toCategories(data.CategoryCollection.Items), nil
}

// GetAuthorList returns up to q.Limit authors ordered by name.
func (c *Client) GetAuthorList(ctx context.Context, q ListQuery) ([]Author, error) {
	vars := variables(q.Limit, q.Locale)
	vars["preview"] = q.Preview

	var data struct {
		AuthorCollection authorCollection `json:"authorCollection"`
	}
	if err := c.do(ctx, "getAuthorList", getAuthorListQuery, vars, q.Preview, &data); err != nil {
		return nil, err
	}
	return toAuthors(data.AuthorCollection.Items), nil
}
