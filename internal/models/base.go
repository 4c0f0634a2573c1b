package models

import "time"

// Base carries the server-assigned identity and ownership of every stored row.
type Base struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) Meta() *Base {
	return b
}

// Stamp assigns id, owner and both timestamps. Used on create only.
func (b *Base) Stamp(id, owner string, now time.Time) {
	b.ID = id
	b.CreatedBy = owner
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Coordinates is a [lat, lon] pair.
type Coordinates []float64

func (c Coordinates) Valid() bool {
	return len(c) == 2
}

func (c Coordinates) Lat() float64 {
	if !c.Valid() {
		return 0
	}
	return c[0]
}

func (c Coordinates) Lon() float64 {
	if !c.Valid() {
		return 0
	}
	return c[1]
}
