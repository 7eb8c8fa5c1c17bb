package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/coursedesk/core"
)

const orderingParam = "ordering"

// queryOrdering reads ?ordering=name,-price_in_dollars. A leading "-" sorts
// descending; blank and repeated fields are skipped.
func queryOrdering(ctx echo.Context) []core.DBOrdering {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	var ordering []core.DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		ordering = append(ordering, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return ordering
}
