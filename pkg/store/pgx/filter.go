package pgx

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

// whereClause collects SQL conditions and their positional arguments.
type whereClause struct {
	args []any
}

func (w *whereClause) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// compileFilter turns a filter into a condition over the aliases of
// selectEntitiesSQL (e: entity_editions, i: entity_ids, t: type_ids).
func compileFilter(f store.Filter) (string, []any, error) {
	w := &whereClause{}
	cond, err := w.compile(f)
	if err != nil {
		return "", nil, err
	}
	return cond, w.args, nil
}

func (w *whereClause) compile(f store.Filter) (string, error) {
	switch f.Kind() {
	case store.FilterAll:
		if len(f.Filters()) == 0 {
			return "TRUE", nil
		}
		parts := make([]string, 0, len(f.Filters()))
		for _, c := range f.Filters() {
			cond, err := w.compile(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+cond+")")
		}
		return strings.Join(parts, " AND "), nil

	case store.FilterEditionID:
		id := f.EditionID()
		return fmt.Sprintf("e.owned_by_id = %s AND e.entity_uuid = %s AND e.entity_record_id = %s",
			w.arg(id.BaseID.OwnedByID.UUID()),
			w.arg(id.BaseID.EntityUUID.UUID()),
			w.arg(int64(id.RecordID)),
		), nil

	case store.FilterEntityID:
		id := f.EntityID()
		return fmt.Sprintf("e.owned_by_id = %s AND e.entity_uuid = %s",
			w.arg(id.OwnedByID.UUID()),
			w.arg(id.EntityUUID.UUID()),
		), nil

	case store.FilterOutgoingLinks:
		id := f.EntityID()
		return fmt.Sprintf("i.left_owned_by_id = %s AND i.left_entity_uuid = %s AND upper_inf(e.transaction_time)",
			w.arg(id.OwnedByID.UUID()),
			w.arg(id.EntityUUID.UUID()),
		), nil

	case store.FilterIncomingLinks:
		id := f.EntityID()
		return fmt.Sprintf("i.right_owned_by_id = %s AND i.right_entity_uuid = %s AND upper_inf(e.transaction_time)",
			w.arg(id.OwnedByID.UUID()),
			w.arg(id.EntityUUID.UUID()),
		), nil

	case store.FilterLeftEntity, store.FilterRightEntity:
		side := "left"
		if f.Kind() == store.FilterRightEntity {
			side = "right"
		}
		id := f.EntityID()
		return fmt.Sprintf(
			"upper_inf(e.transaction_time) AND EXISTS ("+
				"SELECT 1 FROM entity_ids l "+
				"WHERE l.owned_by_id = %s AND l.entity_uuid = %s "+
				"AND l.%[3]s_owned_by_id = e.owned_by_id AND l.%[3]s_entity_uuid = e.entity_uuid)",
			w.arg(id.OwnedByID.UUID()),
			w.arg(id.EntityUUID.UUID()),
			side,
		), nil

	case store.FilterLatest:
		return "upper_inf(e.transaction_time)", nil

	case store.FilterEntityType:
		uri := f.EntityType()
		return fmt.Sprintf("t.base_uri = %s AND t.version = %s",
			w.arg(uri.BaseURI.String()),
			w.arg(int64(uri.Version)),
		), nil

	case store.FilterOwnedBy:
		return fmt.Sprintf("e.owned_by_id = %s", w.arg(f.OwnedByID().UUID())), nil

	case store.FilterArchived:
		return fmt.Sprintf("e.archived = %s", w.arg(f.Archived())), nil

	default:
		return "", fmt.Errorf("unsupported filter %s", f)
	}
}
