// Package query builds the WHERE/ORDER/LIMIT clause set shared by every
// searchable entity. Column names only ever come from a policy allow-list;
// values are always bound parameters.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mbolis/formforge/model"
	"github.com/samber/lo"
)

const defaultPerPage = 10

// Policy is one table's column policy. Searchable entries are real SQL
// column expressions; filterable and sortable entries are request-level
// names, remapped through Aliases at SQL-building time (virtual columns
// like formName resolve to the joined table's real column here, not
// earlier).
type Policy struct {
	Searchable  []string
	Filterable  []string
	Sortable    []string
	DefaultSort string
	DateColumn  string
	Aliases     map[string]string
}

// Clause is a composed query fragment set. Where always holds at least the
// "1=1" seed, so callers can append it after WHERE unconditionally. Args
// line up positionally with the placeholders in Where and must be reused
// as-is for the matching count query.
type Clause struct {
	Where string
	Args  []any
	Order string
	Limit string
}

type Meta struct {
	Page    int    `json:"page"`
	PerPage string `json:"perPage"`
	Total   int    `json:"total"`
}

// Build composes the clause set for one request. Building never fails:
// unknown columns fall back to defaults, absent inputs contribute nothing.
func Build(p Policy, q model.QuerySpec) (Clause, Meta) {
	where := []string{"1=1"}
	args := []any{}

	if q.Search != "" {
		terms := make([]string, len(p.Searchable))
		for i, col := range p.Searchable {
			terms[i] = col + " LIKE ?"
			args = append(args, "%"+q.Search+"%")
		}
		if len(terms) > 0 {
			where = append(where, "("+strings.Join(terms, " OR ")+")")
		}
	}

	for _, key := range sortedKeys(q.Filters) {
		value := q.Filters[key]
		if value == "" || !lo.Contains(p.Filterable, key) {
			continue
		}
		where = append(where, p.column(key)+" = ?")
		args = append(args, value)
	}

	if from, to, ok := dateRange(q.DateFrom, q.DateTo); ok && p.DateColumn != "" {
		where = append(where, p.DateColumn+" >= ?", p.DateColumn+" <= ?")
		args = append(args, from, to)
	}

	sortBy := p.DefaultSort
	if lo.Contains(p.Sortable, q.OrderBy) {
		sortBy = q.OrderBy
	}
	dir := "ASC"
	if strings.EqualFold(q.Order, "desc") {
		dir = "DESC"
	}

	clause := Clause{
		Where: strings.Join(where, " AND "),
		Args:  args,
		Order: "ORDER BY " + p.column(sortBy) + " " + dir,
	}

	meta := Meta{Page: 1, PerPage: model.PerPageAll}
	if perPage, all := resolvePerPage(q.PerPage); !all {
		page := q.Page
		if page < 1 {
			page = 1
		}
		clause.Limit = fmt.Sprintf(" LIMIT %d OFFSET %d", perPage, (page-1)*perPage)
		meta.Page = page
		meta.PerPage = strconv.Itoa(perPage)
	}
	return clause, meta
}

func (p Policy) column(name string) string {
	if real, ok := p.Aliases[name]; ok {
		return real
	}
	return name
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func resolvePerPage(perPage string) (n int, all bool) {
	if strings.EqualFold(perPage, model.PerPageAll) || perPage == "0" {
		return 0, true
	}
	n, err := strconv.Atoi(perPage)
	if err != nil {
		return defaultPerPage, false
	}
	if n < 1 {
		n = 1
	}
	return n, false
}

// dateRange normalizes an ISO date pair to day bounds: 00:00:00 on from,
// 23:59:59 on to. Only the date portion of the input is read; a missing
// end falls back to the start day. Bounds are UTC, matching the UTC
// timestamps the store writes; SQLite compares the stored text
// lexicographically, so both sides must carry the same offset.
func dateRange(fromStr, toStr string) (from, to time.Time, ok bool) {
	from, ok = parseDay(fromStr)
	if !ok {
		return
	}
	if end, endOK := parseDay(toStr); endOK {
		to = end
	} else {
		to = from
	}
	to = to.Add(24*time.Hour - time.Second)
	return
}

func parseDay(s string) (time.Time, bool) {
	if len(s) > 10 {
		s = s[:10]
	}
	day, err := time.Parse("2006-01-02", s)
	return day, err == nil
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Count runs the matching-total query for a clause: the same WHERE string
// and positional args, no LIMIT/OFFSET.
func Count(ctx context.Context, db Querier, op, from, expr string, c Clause) (int, error) {
	var total int
	err := db.
		QueryRowContext(ctx, "SELECT COUNT("+expr+") FROM "+from+" WHERE "+c.Where, c.Args...).
		Scan(&total)
	if err != nil {
		return 0, &model.QueryExecutionError{Op: op, Err: err}
	}
	return total, nil
}
