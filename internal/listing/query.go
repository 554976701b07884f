package listing

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agalitsyn/tareas/internal/pagination"
)

// Query parameter names understood by the listing pages.
const (
	ParamPage     = "pagina"
	ParamPageSize = "cantidadRegistrosPorPagina"
	ParamTerm     = "q"
)

// MaxTermLength caps the search term, in runes, for every flow.
const MaxTermLength = 100

type Query struct {
	Page     int
	PageSize int
	Term     string
}

func NewQuery(term string) Query {
	return Query{Page: 1, PageSize: pagination.DefaultPageSize, Term: term}
}

// ParseQuery reads the listing parameters. Missing or unparsable numbers keep their defaults.
func ParseQuery(v url.Values) Query {
	q := NewQuery(v.Get(ParamTerm))
	if n, err := strconv.Atoi(strings.TrimSpace(v.Get(ParamPage))); err == nil {
		q.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.Get(ParamPageSize))); err == nil {
		q.PageSize = n
	}
	return q
}

// Clean clamps paging into range, trims the term and cuts it to MaxTermLength.
func (q Query) Clean() Query {
	q.PageSize = pagination.ClampPageSize(q.PageSize)
	q.Page = pagination.ClampPage(q.Page)
	q.Term = truncate(strings.TrimSpace(q.Term), MaxTermLength)
	return q
}

func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(q.Page))
	v.Set(ParamPageSize, strconv.Itoa(q.PageSize))
	if q.Term != "" {
		v.Set(ParamTerm, q.Term)
	}
	return v
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
