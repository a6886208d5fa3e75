package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/validation"
)

// AdminService backs the staff-only user, role and profile management endpoints.
type AdminService struct {
	Users    repo.UserRepository
	Roles    repo.RoleRepository
	Profiles repo.ProfileRepository
	Index    UserIndex
	Sessions *SessionStore
	Logger   *logrus.Logger
}

func NewAdminService(users repo.UserRepository, roles repo.RoleRepository, profiles repo.ProfileRepository, index UserIndex, sessions *SessionStore, logger *logrus.Logger) *AdminService {
	return &AdminService{Users: users, Roles: roles, Profiles: profiles, Index: index, Sessions: sessions, Logger: logger}
}

// AdminUserInput creates or edits a user. Nil fields are left alone on edit.
type AdminUserInput struct {
	Username  *string `json:"username" binding:"omitempty,min=3,max=150"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Password  *string `json:"password" binding:"omitempty,pwd"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Phone     *string `json:"phone_number" binding:"omitempty,phone"`
	IsActive  *bool   `json:"is_active"`
	IsStaff   *bool   `json:"is_staff"`
	IsGuest   *bool   `json:"is_guest"`
}

// AdminUserPatch is one element of a bulk update.
type AdminUserPatch struct {
	ID int64 `json:"id" binding:"required"`
	AdminUserInput
}

func (in AdminUserInput) apply(u *entity.User) error {
	if in.Username != nil {
		u.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Password != nil {
		hash, err := helpers.HashPassword(*in.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Phone != nil {
		if *in.Phone == "" {
			u.PhoneNumber = nil
		} else {
			phone := *in.Phone
			u.PhoneNumber = &phone
		}
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsStaff != nil {
		u.IsStaff = *in.IsStaff
	}
	if in.IsGuest != nil {
		u.IsGuest = *in.IsGuest
	}
	return nil
}

// conflictCause tells a duplicate email from a duplicate username after a unique violation.
func (s *AdminService) conflictCause(ctx context.Context, u *entity.User) error {
	if other, err := s.Users.GetByEmail(ctx, u.Email); err == nil && other.ID != u.ID {
		return ErrEmailTaken
	}
	if other, err := s.Users.GetByUsername(ctx, u.Username); err == nil && other.ID != u.ID {
		return ErrUsernameTaken
	}
	return ErrPhoneTaken
}

func (s *AdminService) ListUsers(ctx context.Context, f entity.UserFilter) ([]*entity.User, int, error) {
	return s.Users.List(ctx, f)
}

func (s *AdminService) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AdminService) CreateUser(ctx context.Context, in AdminUserInput) (*entity.User, error) {
	if in.Email == nil || strings.TrimSpace(*in.Email) == "" {
		return nil, validation.Details("email", "is required")
	}
	activated := true
	u := &entity.User{IsActive: true, ActivatedProfile: &activated}
	if err := in.apply(u); err != nil {
		return nil, err
	}
	if u.Username == "" {
		name, err := uniqueUsername(ctx, s.Users, u.Email)
		if err != nil {
			return nil, err
		}
		u.Username = name
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, s.conflictCause(ctx, u)
		}
		return nil, err
	}
	p := &entity.UserProfile{UserID: u.ID, Preferences: map[string]any{}}
	if err := s.Profiles.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.reindex(ctx, u, p)
	return u, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, id int64, in AdminUserInput) (*entity.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	wasStaff, wasGuest := u.IsStaff, u.IsGuest
	if err := in.apply(u); err != nil {
		return nil, err
	}
	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, s.conflictCause(ctx, u)
		}
		return nil, err
	}
	// tokens carry the old flags, so the user has to log in again
	deactivated := in.IsActive != nil && !*in.IsActive
	if (deactivated || u.IsStaff != wasStaff || u.IsGuest != wasGuest) && s.Sessions != nil {
		_, _ = s.Sessions.RevokeAll(ctx, id)
	}
	s.reindex(ctx, u, nil)
	return u, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.forget(ctx, id)
	return nil
}

func (s *AdminService) forget(ctx context.Context, ids ...int64) {
	for _, id := range ids {
		if s.Sessions != nil {
			_, _ = s.Sessions.RevokeAll(ctx, id)
		}
	}
	if s.Index != nil {
		_ = s.Index.Remove(ctx, ids...)
	}
}

func (s *AdminService) reindex(ctx context.Context, u *entity.User, p *entity.UserProfile) {
	if s.Index == nil {
		return
	}
	if p == nil {
		p, _ = s.Profiles.GetByUserID(ctx, u.ID)
	}
	_ = s.Index.Index(ctx, u, p)
}

// AssignRole adds a role to a user.
func (s *AdminService) AssignRole(ctx context.Context, userID, roleID int64) (*entity.User, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.Roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	if u.HasRole(role.Name) {
		return nil, ErrRoleAssigned
	}
	if err := s.Roles.Assign(ctx, userID, roleID); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrRoleAssigned
		}
		return nil, err
	}
	u.Roles = append(u.Roles, *role)
	s.reindex(ctx, u, nil)
	return u, nil
}

func (s *AdminService) UnassignRole(ctx context.Context, userID, roleID int64) error {
	if err := s.Roles.Unassign(ctx, userID, roleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}
	if u, err := s.Users.GetByID(ctx, userID); err == nil {
		s.reindex(ctx, u, nil)
	}
	return nil
}

// BulkError reports the failure of one element of a bulk request.
type BulkError struct {
	Index  int    `json:"index"`
	UserID int64  `json:"user_id,omitempty"`
	Error  string `json:"error"`
}

// BulkCreateUsers creates every user it can and reports the rest.
func (s *AdminService) BulkCreateUsers(ctx context.Context, in []AdminUserInput) ([]*entity.User, []BulkError) {
	created := make([]*entity.User, 0, len(in))
	var failed []BulkError
	for i, item := range in {
		u, err := s.CreateUser(ctx, item)
		if err != nil {
			failed = append(failed, BulkError{Index: i, Error: err.Error()})
			continue
		}
		created = append(created, u)
	}
	return created, failed
}

func (s *AdminService) BulkUpdateUsers(ctx context.Context, in []AdminUserPatch) ([]*entity.User, []BulkError) {
	updated := make([]*entity.User, 0, len(in))
	var failed []BulkError
	for i, item := range in {
		u, err := s.UpdateUser(ctx, item.ID, item.AdminUserInput)
		if err != nil {
			failed = append(failed, BulkError{Index: i, UserID: item.ID, Error: err.Error()})
			continue
		}
		updated = append(updated, u)
	}
	return updated, failed
}

func (s *AdminService) BulkDeleteUsers(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, validation.Details("user_ids", "is required")
	}
	n, err := s.Users.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrUserNotFound
	}
	s.forget(ctx, ids...)
	return n, nil
}

// Roles.

func validateRoleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return "", validation.Details("name", "must be at least 3 characters long")
	}
	return name, nil
}

func (s *AdminService) ListRoles(ctx context.Context) ([]*entity.Role, error) {
	return s.Roles.List(ctx)
}

func (s *AdminService) GetRole(ctx context.Context, id int64) (*entity.Role, error) {
	r, err := s.Roles.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	return r, err
}

func (s *AdminService) CreateRole(ctx context.Context, name, description string) (*entity.Role, error) {
	name, err := validateRoleName(name)
	if err != nil {
		return nil, err
	}
	r := &entity.Role{Name: name, Description: description}
	if err := s.Roles.Create(ctx, r); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrRoleExists
		}
		return nil, err
	}
	return r, nil
}

func (s *AdminService) UpdateRole(ctx context.Context, id int64, name, description *string) (*entity.Role, error) {
	r, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		n, err := validateRoleName(*name)
		if err != nil {
			return nil, err
		}
		r.Name = n
	}
	if description != nil {
		r.Description = *description
	}
	if err := s.Roles.Update(ctx, r); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrRoleExists
		}
		return nil, err
	}
	return r, nil
}

func (s *AdminService) DeleteRole(ctx context.Context, id int64) error {
	err := s.Roles.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrRoleNotFound
	}
	return err
}

// Profiles in bulk.

func (s *AdminService) GetProfiles(ctx context.Context, userIDs []int64) ([]*entity.UserProfile, error) {
	if len(userIDs) == 0 {
		return nil, validation.Details("user_ids", "is required")
	}
	ps, err := s.Profiles.ListByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, ErrProfileNotFound
	}
	return ps, nil
}

// ProfilePatchItem targets one profile of a bulk update.
type ProfilePatchItem struct {
	UserID int64       `json:"user_id"`
	Data   ProfileData `json:"data"`
}

// ProfileData is the editable part of a profile in bulk updates.
type ProfileData struct {
	Preferences  map[string]any `json:"preferences"`
	Location     *entity.Point  `json:"location"`
	ProfileImage *string        `json:"profile_image"`
}

func (s *AdminService) UpdateProfiles(ctx context.Context, items []ProfilePatchItem) ([]*entity.UserProfile, []BulkError) {
	updated := make([]*entity.UserProfile, 0, len(items))
	var failed []BulkError
	for i, item := range items {
		if item.UserID == 0 {
			failed = append(failed, BulkError{Index: i, Error: "user_id is required"})
			continue
		}
		p, err := s.Profiles.GetByUserID(ctx, item.UserID)
		if err != nil {
			failed = append(failed, BulkError{Index: i, UserID: item.UserID, Error: ErrProfileNotFound.Error()})
			continue
		}
		if item.Data.Preferences != nil {
			p.Preferences = item.Data.Preferences
		}
		if item.Data.Location != nil {
			loc := *item.Data.Location
			p.Location = &loc
		}
		if item.Data.ProfileImage != nil {
			p.ProfileImage = *item.Data.ProfileImage
		}
		if err := s.Profiles.Update(ctx, p); err != nil {
			failed = append(failed, BulkError{Index: i, UserID: item.UserID, Error: err.Error()})
			continue
		}
		updated = append(updated, p)
	}
	return updated, failed
}

func (s *AdminService) DeleteProfiles(ctx context.Context, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, validation.Details("user_ids", "is required")
	}
	n, err := s.Profiles.DeleteByUserIDs(ctx, userIDs)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrProfileNotFound
	}
	return n, nil
}

// SearchUsers runs a full-text query against the user index.
func (s *AdminService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, validation.Details("q", "is required")
	}
	if s.Index == nil {
		return []map[string]any{}, nil
	}
	return s.Index.Search(ctx, q, size)
}
