package content

import "strings"

const imageFields = `fragment ImageFields on Asset {
  url
  title
  width
  height
}`

const categoryFields = `fragment CategoryFields on Category {
  sys { id }
  slug
  title
  description
  icon { ...ImageFields }
}`

const authorFields = `fragment AuthorFields on Author {
  sys { id }
  handle
  fullName
  twitter
  linkedIn
  photo { ...ImageFields }
  biography { json }
}`

const plantFields = `fragment PlantFields on Plant {
  sys { id }
  plantName
  slug
  description { json }
  image { ...ImageFields }
  categoriesCollection(limit: 10) { items { ...CategoryFields } }
  author { ...AuthorFields }
}`

func withFragments(query string, fragments ...string) string {
	return query + "\n" + strings.Join(fragments, "\n")
}

var plantFragments = []string{plantFields, categoryFields, authorFields, imageFields}

var getPlantQuery = withFragments(`query GetPlant($slug: String!, $preview: Boolean, $locale: String, $limit: Int) {
  plantCollection(where: { slug: $slug }, limit: $limit, preview: $preview, locale: $locale) {
    items { ...PlantFields }
  }
}`, plantFragments...)

var getPlantListQuery = withFragments(`query GetPlantList($limit: Int, $locale: String, $preview: Boolean) {
  plantCollection(limit: $limit, locale: $locale, preview: $preview, order: sys_firstPublishedAt_DESC) {
    items { ...PlantFields }
  }
}`, plantFragments...)

var getPlantListByCategoryQuery = withFragments(`query GetPlantListByCategory($category: String!, $limit: Int, $locale: String) {
  categoryCollection(where: { slug: $category }, limit: 1, locale: $locale) {
    items { ...CategoryFields }
  }
  plantCollection(where: { categories: { slug: $category } }, limit: $limit, locale: $locale, order: sys_firstPublishedAt_DESC) {
    items { ...PlantFields }
  }
}`, plantFragments...)

var getPlantListByAuthorQuery = withFragments(`query GetPlantListByAuthor($authorId: String!, $limit: Int, $locale: String) {
  plantCollection(where: { author: { sys: { id: $authorId } } }, limit: $limit, locale: $locale, order: sys_firstPublishedAt_DESC) {
    items { ...PlantFields }
  }
}`, plantFragments...)

var searchPlantsQuery = withFragments(`query SearchPlants($term: String!, $limit: Int, $locale: String) {
  plantCollection(where: { plantName_contains: $term }, limit: $limit, locale: $locale, order: sys_firstPublishedAt_DESC) {
    items { ...PlantFields }
  }
}`, plantFragments...)

var getCategoryListQuery = withFragments(`query GetCategoryList($limit: Int, $locale: String, $preview: Boolean) {
  categoryCollection(limit: $limit, locale: $locale, preview: $preview, order: title_ASC) {
    items { ...CategoryFields }
  }
}`, categoryFields, imageFields)

var getAuthorListQuery = withFragments(`query GetAuthorList($limit: Int, $locale: String, $preview: Boolean) {
  authorCollection(limit: $limit, locale: $locale, preview: $preview, order: fullName_ASC) {
    items { ...AuthorFields }
  }
}`, authorFields, imageFields)
