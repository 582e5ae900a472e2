package database

const (
	SortByName = "name"
	SortByDOB  = "dob"
	SortByAge  = "age"
	SortByRole = "role"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

const (
	DefaultPersonSort    = SortByName
	DefaultSortDirection = SortAsc
)

// IsValidPersonSort checks if a string is a valid people sort key
func IsValidPersonSort(key string) bool {
	switch key {
	case SortByName, SortByDOB, SortByAge, SortByRole:
		return true
	default:
		return false
	}
}

// IsValidSortDirection checks if a string is asc or desc
func IsValidSortDirection(dir string) bool {
	return dir == SortAsc || dir == SortDesc
}

// PersonOrderClause returns the ORDER BY clause for a people listing. Unknown
// values fall back to name ascending. Ties are broken by key so the order is
// stable.
func PersonOrderClause(key, dir string) string {
	if !IsValidPersonSort(key) {
		key = DefaultPersonSort
	}
	if !IsValidSortDirection(dir) {
		dir = DefaultSortDirection
	}
	column := key
	if key == SortByName || key == SortByRole {
		column = key + " COLLATE NOCASE"
	}
	return column + " " + dir + ", key ASC"
}
