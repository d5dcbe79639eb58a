package listutil

import (
	"net/url"
	"slices"
)

// SortParams carries sorting parameters parsed from a request.
type SortParams struct {
	Sort string // column name, empty for unsorted
	Dir  string // "asc" or "desc"
}

// ParseSortParams extracts sort and dir from URL query values.
// PRE: none
// POST: Sort is empty or one of allowedColumns; Dir is always "asc" or "desc"
func ParseSortParams(q url.Values, allowedColumns []string) SortParams {
	sort := q.Get("sort")
	dir := q.Get("dir")

	if !slices.Contains(allowedColumns, sort) {
		sort = ""
	}
	if dir != "asc" && dir != "desc" {
		dir = "asc"
	}
	return SortParams{Sort: sort, Dir: dir}
}

// Encode renders the params as a query string without the leading "?".
// Unsorted params encode to "".
func (p SortParams) Encode() string {
	if p.Sort == "" {
		return ""
	}
	return url.Values{"sort": {p.Sort}, "dir": {p.Dir}}.Encode()
}

// URL returns path with the params appended.
func (p SortParams) URL(path string) string {
	if q := p.Encode(); q != "" {
		return path + "?" + q
	}
	return path
}
