package sqlite

import (
	"time"
)

// ImplementationModel is a row of the implementations table.
// Timestamps are stored as Unix seconds.
type ImplementationModel struct {
	Section   string
	Key       string
	Reference string
	Module    string
	UpdatedAt int64
}

// Updated returns UpdatedAt as a time.
func (m ImplementationModel) Updated() time.Time {
	return time.Unix(m.UpdatedAt, 0)
}
