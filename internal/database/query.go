package database

import (
	"strings"

	"drive-go/internal/drive"
)

// Sort keys map onto a fixed set of columns; nothing from the request is
// interpolated into SQL.
var (
	fileSortColumns = map[drive.SortKey]string{
		drive.SortByName: "name",
		drive.SortBySize: "size",
		drive.SortByDate: "created_at",
	}
	folderSortColumns = map[drive.SortKey]string{
		drive.SortByName: "name",
		drive.SortByDate: "created_at",
	}
)

// buildListQuery assembles the SELECT for an active-resource listing on table,
// whose parent column is parentCol. Unknown sort keys order by name, and id
// breaks ties so that pages are stable.
func buildListQuery(table, parentCol, columns string, sortColumns map[drive.SortKey]string, q drive.ListQuery) (string, []any) {
	var (
		where = []string{"owner_id = ?", "deleted_at IS NULL"}
		args  = []any{q.OwnerID}
	)

	if !q.AnyParent {
		if q.ParentID == nil {
			where = append(where, parentCol+" IS NULL")
		} else {
			where = append(where, parentCol+" = ?")
			args = append(args, *q.ParentID)
		}
	}

	// Terms are letters and digits only, so they carry no LIKE wildcards.
	for _, term := range q.Terms {
		where = append(where, "search_text LIKE ?")
		args = append(args, "% "+term+"%")
	}

	col, ok := sortColumns[q.Sort]
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if q.Order == drive.OrderDesc {
		dir = "DESC"
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	b.WriteString(" ORDER BY ")
	b.WriteString(col + " " + dir + ", id " + dir)
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, q.Limit, q.Offset)

	return b.String(), args
}
