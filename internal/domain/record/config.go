package record

import "time"

const (
	defaultPreviousLookupLimit = 20
	defaultMaxLookbackPages    = 5
)

// Config holds runtime knobs for the day aggregator.
type Config struct {
	Location *time.Location
	// PreviousLookupLimit is the page size used when scanning for the growth predecessor.
	PreviousLookupLimit int
	// MaxLookbackPages caps that scan.
	MaxLookbackPages int
}

func (c Config) withDefaults() Config {
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.PreviousLookupLimit <= 0 {
		c.PreviousLookupLimit = defaultPreviousLookupLimit
	}
	if c.MaxLookbackPages <= 0 {
		c.MaxLookbackPages = defaultMaxLookbackPages
	}
	return c
}
