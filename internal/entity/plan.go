package entity

import (
	"errors"
	"time"
)

var ErrPlanNotFound = errors.New("plan not found")

type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	Interval     string    `json:"interval"` // month, year
	DurationDays int       `json:"duration_days"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Period returns the subscription window a paid charge for this plan buys,
// starting at from.
func (p *Plan) Period(from time.Time) (time.Time, time.Time) {
	if p.DurationDays > 0 {
		return from, from.AddDate(0, 0, p.DurationDays)
	}
	return from, from.AddDate(0, 1, 0)
}
