package dto

import (
	"net/url"
	"strconv"
)

// ListQuery carries pagination and search parameters for list endpoints.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
}

// Page is the list envelope: {count, next, previous, results}.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage wraps one page of results. base is the absolute URL of the
// request; its query is kept and only page is rewritten.
func NewPage[T any](results []T, total int64, q ListQuery, base *url.URL) Page[T] {
	if results == nil {
		results = []T{}
	}
	p := Page[T]{Count: total, Results: results}
	if base == nil || q.PageSize <= 0 {
		return p
	}

	if int64(q.Page)*int64(q.PageSize) < total {
		next := pageURL(base, q.Page+1)
		p.Next = &next
	}
	if q.Page > 1 {
		prev := pageURL(base, q.Page-1)
		p.Previous = &prev
	}
	return p
}

func pageURL(base *url.URL, page int) string {
	u := *base
	values := u.Query()
	if page <= 1 {
		values.Del("page")
	} else {
		values.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = values.Encode()
	return u.String()
}

// Map converts each element of in with fn.
func Map[S, T any](in []S, fn func(*S) T) []T {
	out := make([]T, 0, len(in))
	for i := range in {
		out = append(out, fn(&in[i]))
	}
	return out
}
