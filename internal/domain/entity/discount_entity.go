package entity

import "time"

// MaxDiscountCodeLen bounds discount codes.
const MaxDiscountCodeLen = 50

// Category groups discounts.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Discount is an offer published by a retailer at a location.
type Discount struct {
	ID             int64
	RetailerID     int64
	CategoryID     *int64
	Description    string
	DiscountCode   string
	DiscountValue  float64
	IsActive       bool
	ExpirationDate time.Time
	Location       Point
	Image          string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Populated by radius queries.
	DistanceKm *float64
}

// IsExpired reports whether the discount is past its expiration date.
func (d *Discount) IsExpired(now time.Time) bool { return !d.ExpirationDate.After(now) }

// DiscountFilter narrows discount listings and text search.
type DiscountFilter struct {
	Query      string
	RetailerID *int64
	CategoryID *int64
	MinValue   *float64
	MaxValue   *float64
	IsActive   *bool
	Limit      int
	Offset     int
}
