package nlq

import "strings"

// allowedOrderBy reports whether every comma separated item of order names a
// known column, optionally followed by ASC or DESC. known holds lowercased
// "column" and "table.column" entries.
func allowedOrderBy(order string, known map[string]struct{}) bool {
	items := strings.Split(order, ",")
	for _, item := range items {
		fields := strings.Fields(item)
		if len(fields) == 0 || len(fields) > 2 {
			return false
		}
		if _, ok := known[strings.ToLower(fields[0])]; !ok {
			return false
		}
		if len(fields) == 2 {
			switch strings.ToLower(fields[1]) {
			case "asc", "desc":
			default:
				return false
			}
		}
	}
	return true
}

func addKnownColumns(known map[string]struct{}, table string, columns []string) {
	for _, column := range columns {
		known[strings.ToLower(column)] = struct{}{}
		known[strings.ToLower(table+"."+column)] = struct{}{}
	}
}
