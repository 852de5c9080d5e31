package utils

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampInt bounds v to [min, max]; an unset (zero) v yields def.
func ClampInt(v, def, min, max int) int {
	if v == 0 {
		v = def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Offset converts a 1-based page into a row offset.
func Offset(page, size int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * size
}
