package discovery

import "regexp"

// FileName is a parsed archive file name.
type FileName struct {
	Symbol   string
	Date     string
	Interval string
}

var fileNameRe = regexp.MustCompile(`^([A-Z][A-Z0-9.]*)_(\d{8})_(\w+)\.csv$`)

// ParseFileName parses <SYMBOL>_<YYYYMMDD>_<INTERVAL>.csv.
func ParseFileName(name string) (FileName, bool) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return FileName{}, false
	}
	return FileName{Symbol: m[1], Date: m[2], Interval: m[3]}, true
}
