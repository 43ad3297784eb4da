package model

import "time"

// ISOLayout has fixed millisecond width so timestamps sort as strings
const ISOLayout = "2006-01-02T15:04:05.000Z"

// ISOTime formats t in UTC with ISOLayout
func ISOTime(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}
