package util

import "strconv"

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// ParseFloatCell parses a numeric CSV cell. Empty cells and NaN spellings
// come back as ok=false.
func ParseFloatCell(s string) (float64, bool) {
	switch s {
	case "", "nan", "NaN", "NAN", "null", "NULL", "None":
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
