package contracts

import "time"

// Price represents one daily bar
type Price struct {
	Code   string
	Date   time.Time
	Close  float64
	Volume int64
}

// Security is a securities master record
type Security struct {
	Code     string
	Name     string
	Category string // e.g. "Domestic Common Stock", "Domestic Common Stock Secondary Class"
}
