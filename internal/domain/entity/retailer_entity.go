package entity

import "time"

// Retailer owns discounts. OwnerID references a user in the authentication
// database and is not enforced by a foreign key.
type Retailer struct {
	ID            int64
	Name          string
	ContactInfo   string
	Location      Point
	OwnerID       *int64
	AnalyticsData map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOwnedBy reports whether userID owns the retailer.
func (r *Retailer) IsOwnedBy(userID int64) bool {
	return r.OwnerID != nil && *r.OwnerID == userID
}

// RetailerAnalytics is the aggregate view served by the analytics endpoint.
type RetailerAnalytics struct {
	TotalDiscounts        int     `json:"total_discounts"`
	ActiveDiscounts       int     `json:"active_discounts"`
	ExpiredDiscounts      int     `json:"expired_discounts"`
	AvgDiscountValue      float64 `json:"avg_discount_value"`
	TotalSharedDiscounts  int     `json:"total_shared_discounts"`
	ActiveSharedDiscounts int     `json:"active_shared_discounts"`
	AvgParticipants       float64 `json:"avg_participants"`
}
