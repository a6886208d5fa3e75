package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dishpal/coupon-core/internal/domain/entity"
)

// pointSQL renders a geography point from two float8 placeholders.
func pointSQL(lonArg, latArg int) string {
	return fmt.Sprintf("ST_SetSRID(ST_MakePoint($%d::float8, $%d::float8), 4326)::geography", lonArg, latArg)
}

// nullablePointSQL renders a point, or NULL when the latitude placeholder is NULL.
func nullablePointSQL(lonArg, latArg int) string {
	return fmt.Sprintf("CASE WHEN $%d::float8 IS NULL THEN NULL ELSE %s END", latArg, pointSQL(lonArg, latArg))
}

// latLonCols selects latitude and longitude of a geography column.
func latLonCols(col string) string {
	return fmt.Sprintf("ST_Y(%[1]s::geometry), ST_X(%[1]s::geometry)", col)
}

func pointArgs(p *entity.Point) (lon, lat *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Longitude, &p.Latitude
}

func pointFrom(lat, lon *float64) *entity.Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &entity.Point{Latitude: *lat, Longitude: *lon}
}

func toJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func jsonObject(b []byte) map[string]any {
	m := map[string]any{}
	if len(b) > 0 {
		_ = json.Unmarshal(b, &m)
	}
	return m
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

// add appends a condition; each "?" is replaced by the next placeholder.
func (w *whereBuilder) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere in the
// column. Backslash is the default LIKE escape character in Postgres.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
