package domain

import "time"

// Product is a flat catalog record. Tags are free-form labels, either typed
// by an operator or suggested by the tag suggester.
type Product struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Price       float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
