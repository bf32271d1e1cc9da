package shared

import (
	"net/http"
	"strconv"
)

// FiltersFromQuery parses the standard list filters from query params.
func FiltersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = DefaultPage
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = DefaultLimit
	}
	filters := ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if v := q.Get("is_active"); v != "" {
		isActive := v == "true"
		filters.IsActive = &isActive
	}
	for param, target := range map[string]**int64{
		"category_id": &filters.CategoryID,
		"brand_id":    &filters.BrandID,
		"supplier_id": &filters.SupplierID,
		"location_id": &filters.LocationID,
	} {
		if v := q.Get(param); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				*target = &id
			}
		}
	}
	return filters
}
