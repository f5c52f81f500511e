package catalog

import (
	"math"
	"net/url"
	"strings"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 1000
)

// ListQuery holds the raw listing parameters exactly as the client sent them.
// Nothing here is validated; ApplyListQuery normalises every field.
type ListQuery struct {
	Q        string
	Page     string
	PageSize string
	Limit    string
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ListResult struct {
	Data       []Item     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func ParseListQuery(v url.Values) ListQuery {
	return ListQuery{
		Q:        v.Get("q"),
		Page:     v.Get("page"),
		PageSize: v.Get("pageSize"),
		Limit:    v.Get("limit"),
	}
}

// ApplyListQuery filters, paginates and finally applies the legacy limit.
// Malformed parameters fall back to defaults; it never fails.
func ApplyListQuery(items []Item, q ListQuery) ListResult {
	results := filterByName(items, q.Q)

	page, ok := parseLeadingInt(q.Page)
	if !ok || page < 1 {
		page = defaultPage
	}

	pageSize, ok := parseLeadingInt(q.PageSize)
	if !ok || pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total := len(results)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	data := results[start:end]

	if q.Limit != "" {
		if limit, ok := parseLeadingInt(q.Limit); ok && limit > 0 && limit < len(data) {
			data = data[:limit]
		}
	}

	return ListResult{
		Data: append([]Item{}, data...),
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

func filterByName(items []Item, q string) []Item {
	if q == "" {
		return items
	}

	needle := strings.ToLower(q)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Name == "" {
			continue
		}
		if strings.Contains(strings.ToLower(it.Name), needle) {
			out = append(out, it)
		}
	}
	return out
}

// parseLeadingInt reads an optionally signed integer prefix after any
// leading whitespace, ignoring whatever follows ("12abc" is 12, "1.5" is 1).
// A "0x" or "0X" prefix switches to hexadecimal ("0x10" is 16). Values beyond
// the int range saturate.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := 10
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	digits := 0
	var n int
	saturated := false
	for digits < len(s) {
		d, ok := digitValue(s[digits], base)
		if !ok {
			break
		}
		if !saturated {
			if n > (math.MaxInt-d)/base {
				saturated = true
				n = math.MaxInt
			} else {
				n = n*base + d
			}
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}

	if neg {
		return -n, true
	}
	return n, true
}

func digitValue(c byte, base int) (int, bool) {
	var d int
	switch {
	case c >= '0' && c <= '9':
		d = int(c - '0')
	case c >= 'a' && c <= 'f':
		d = int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		d = int(c-'A') + 10
	default:
		return 0, false
	}
	if d >= base {
		return 0, false
	}
	return d, true
}
