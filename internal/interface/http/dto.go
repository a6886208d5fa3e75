package handlers

import (
	"time"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/domain/entity"
)

type roleDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toRoleDTO(r entity.Role) roleDTO {
	return roleDTO{ID: r.ID, Name: r.Name, Description: r.Description}
}

func toRoleDTOs(rs []*entity.Role) []roleDTO {
	out := make([]roleDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRoleDTO(*r))
	}
	return out
}

type userDTO struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	PhoneNumber      *string   `json:"phone_number"`
	IsGuest          bool      `json:"is_guest"`
	IsActive         bool      `json:"is_active"`
	IsStaff          bool      `json:"is_staff"`
	ActivatedProfile *bool     `json:"activated_profile"`
	Roles            []roleDTO `json:"roles"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toUserDTO(u *entity.User) userDTO {
	roles := make([]roleDTO, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, toRoleDTO(r))
	}
	return userDTO{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		PhoneNumber:      u.PhoneNumber,
		IsGuest:          u.IsGuest,
		IsActive:         u.IsActive,
		IsStaff:          u.IsStaff,
		ActivatedProfile: u.ActivatedProfile,
		Roles:            roles,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func toUserDTOs(us []*entity.User) []userDTO {
	out := make([]userDTO, 0, len(us))
	for _, u := range us {
		out = append(out, toUserDTO(u))
	}
	return out
}

// profileDTO serializes the location as a [lon, lat] pair.
type profileDTO struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	User         *userDTO       `json:"user,omitempty"`
	Preferences  map[string]any `json:"preferences"`
	Location     *[2]float64    `json:"location"`
	ProfileImage string         `json:"profile_image"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toProfileDTO(p *entity.UserProfile, u *entity.User) profileDTO {
	dto := profileDTO{
		ID:           p.ID,
		UserID:       p.UserID,
		Preferences:  p.Preferences,
		ProfileImage: p.ProfileImage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if dto.Preferences == nil {
		dto.Preferences = map[string]any{}
	}
	if p.Location != nil {
		ll := p.Location.LonLat()
		dto.Location = &ll
	}
	if u != nil {
		ud := toUserDTO(u)
		dto.User = &ud
	}
	return dto
}

func toProfileView(v *application.ProfileView) profileDTO {
	return toProfileDTO(v.Profile, v.User)
}

func toProfileDTOs(ps []*entity.UserProfile) []profileDTO {
	out := make([]profileDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProfileDTO(p, nil))
	}
	return out
}

type retailerDTO struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	ContactInfo   string         `json:"contact_info"`
	Location      entity.Point   `json:"location"`
	OwnerID       *int64         `json:"owner"`
	AnalyticsData map[string]any `json:"analytics_data"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DistanceKm    *float64       `json:"distance_km,omitempty"`
}

func toRetailerDTO(r *entity.Retailer) retailerDTO {
	data := r.AnalyticsData
	if data == nil {
		data = map[string]any{}
	}
	return retailerDTO{
		ID:            r.ID,
		Name:          r.Name,
		ContactInfo:   r.ContactInfo,
		Location:      r.Location,
		OwnerID:       r.OwnerID,
		AnalyticsData: data,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toRetailerDTOs(rs []*entity.Retailer) []retailerDTO {
	out := make([]retailerDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRetailerDTO(r))
	}
	return out
}

type discountDTO struct {
	ID             int64        `json:"id"`
	RetailerID     int64        `json:"retailer"`
	CategoryID     *int64       `json:"category"`
	Description    string       `json:"description"`
	DiscountCode   string       `json:"discount_code"`
	DiscountValue  float64      `json:"discount_value"`
	IsActive       bool         `json:"is_active"`
	ExpirationDate time.Time    `json:"expiration_date"`
	Location       entity.Point `json:"location"`
	Image          string       `json:"image"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	DistanceKm     *float64     `json:"distance_km,omitempty"`
	Distance       *float64     `json:"similarity_distance,omitempty"`
}

func toDiscountDTO(d *entity.Discount) discountDTO {
	return discountDTO{
		ID:             d.ID,
		RetailerID:     d.RetailerID,
		CategoryID:     d.CategoryID,
		Description:    d.Description,
		DiscountCode:   d.DiscountCode,
		DiscountValue:  d.DiscountValue,
		IsActive:       d.IsActive,
		ExpirationDate: d.ExpirationDate,
		Location:       d.Location,
		Image:          d.Image,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		DistanceKm:     d.DistanceKm,
	}
}

func toDiscountDTOs(ds []*entity.Discount) []discountDTO {
	out := make([]discountDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDiscountDTO(d))
	}
	return out
}

type sharedDiscountDTO struct {
	ID              int64               `json:"id"`
	DiscountID      int64               `json:"discount"`
	GroupName       string              `json:"group_name"`
	Participants    []int64             `json:"participants"`
	MinParticipants int                 `json:"min_participants"`
	MaxParticipants int                 `json:"max_participants"`
	Status          entity.SharedStatus `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func toSharedDTO(s *entity.SharedDiscount) sharedDiscountDTO {
	participants := s.Participants
	if participants == nil {
		participants = []int64{}
	}
	return sharedDiscountDTO{
		ID:              s.ID,
		DiscountID:      s.DiscountID,
		GroupName:       s.GroupName,
		Participants:    participants,
		MinParticipants: s.MinParticipants,
		MaxParticipants: s.MaxParticipants,
		Status:          s.Status,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toSharedDTOs(ss []*entity.SharedDiscount) []sharedDiscountDTO {
	out := make([]sharedDiscountDTO, 0, len(ss))
	for _, s := range ss {
		out = append(out, toSharedDTO(s))
	}
	return out
}
