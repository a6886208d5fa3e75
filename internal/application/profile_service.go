package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/pkg/validation"
)

// ProfileService serves the caller's own account and profile.
type ProfileService struct {
	Users    repo.UserRepository
	Profiles repo.ProfileRepository
	Images   ImageStore
	Index    UserIndex
	Sessions *SessionStore
	Logger   *logrus.Logger
}

func NewProfileService(users repo.UserRepository, profiles repo.ProfileRepository, images ImageStore, index UserIndex, sessions *SessionStore, logger *logrus.Logger) *ProfileService {
	return &ProfileService{Users: users, Profiles: profiles, Images: images, Index: index, Sessions: sessions, Logger: logger}
}

// ProfileView is a profile together with its user.
type ProfileView struct {
	User    *entity.User
	Profile *entity.UserProfile
}

// ProfileUpdate carries the editable fields. Nil pointers leave a field unchanged
// on PATCH; on PUT the handler fills every field.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Location    *entity.Point
	// ClearLocation removes the stored location.
	ClearLocation bool
	// Preferences is the raw JSON body field; it must be an object or null.
	Preferences json.RawMessage
}

func (s *ProfileService) load(ctx context.Context, uid int64) (*ProfileView, error) {
	u, err := s.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p, err := s.Profiles.GetByUserID(ctx, uid)
	if errors.Is(err, repo.ErrNotFound) {
		p = &entity.UserProfile{UserID: uid, Preferences: map[string]any{}}
		if err := s.Profiles.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create missing profile: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	return &ProfileView{User: u, Profile: p}, nil
}

func (s *ProfileService) Get(ctx context.Context, uid int64) (*ProfileView, error) {
	return s.load(ctx, uid)
}

// DecodePreferences parses a preferences payload. Null or empty input yields nil.
func DecodePreferences(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, validation.Details("preferences", "must be a JSON object")
	}
	return m, nil
}

// Update applies in to the caller's profile. With merge set (PATCH) preferences
// are shallow-merged into the stored object, otherwise they replace it.
func (s *ProfileService) Update(ctx context.Context, uid int64, in ProfileUpdate, merge bool) (*ProfileView, error) {
	prefs, err := DecodePreferences(in.Preferences)
	if err != nil {
		return nil, err
	}
	if in.PhoneNumber != nil && *in.PhoneNumber != "" {
		if err := validation.Var("phone_number", *in.PhoneNumber, "phone"); err != nil {
			return nil, err
		}
	}
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return nil, validation.Details("location", err.Error())
		}
	}

	view, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	u, p := view.User, view.Profile

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		if *in.PhoneNumber == "" {
			u.PhoneNumber = nil
		} else {
			phone := *in.PhoneNumber
			u.PhoneNumber = &phone
		}
	}
	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}

	switch {
	case in.Location != nil:
		loc := *in.Location
		p.Location = &loc
	case in.ClearLocation:
		p.Location = nil
	}
	switch {
	case prefs != nil && merge:
		if p.Preferences == nil {
			p.Preferences = map[string]any{}
		}
		for k, v := range prefs {
			p.Preferences[k] = v
		}
	case prefs != nil:
		p.Preferences = prefs
	case !merge && in.Preferences != nil:
		p.Preferences = map[string]any{}
	}
	if err := s.Profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	s.reindex(ctx, u, p)
	return view, nil
}

func (s *ProfileService) reindex(ctx context.Context, u *entity.User, p *entity.UserProfile) {
	if s.Index != nil {
		_ = s.Index.Index(ctx, u, p)
	}
}

// DeleteAccount removes the caller, their image and every session.
func (s *ProfileService) DeleteAccount(ctx context.Context, uid int64) error {
	view, err := s.load(ctx, uid)
	if err != nil {
		return err
	}
	if s.Images != nil && view.Profile.ProfileImage != "" {
		if err := s.Images.Delete(ctx, view.Profile.ProfileImage); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", uid).Warn("delete profile image failed")
		}
	}
	if err := s.Users.Delete(ctx, uid); err != nil {
		return err
	}
	if s.Sessions != nil {
		_, _ = s.Sessions.RevokeAll(ctx, uid)
	}
	if s.Index != nil {
		_ = s.Index.Remove(ctx, uid)
	}
	return nil
}

// UploadImage stores a new profile image and replaces the previous one.
func (s *ProfileService) UploadImage(ctx context.Context, uid int64, filename string, r io.Reader) (string, error) {
	if s.Images == nil {
		return "", ErrUnavailable
	}
	objectPath, contentType, err := ImageObjectPath("profile_images/"+strconv.FormatInt(uid, 10), filename)
	if err != nil {
		return "", err
	}
	view, err := s.load(ctx, uid)
	if err != nil {
		return "", err
	}
	url, err := s.Images.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	old := view.Profile.ProfileImage
	view.Profile.ProfileImage = url
	if err := s.Profiles.Update(ctx, view.Profile); err != nil {
		return "", err
	}
	if old != "" && old != url {
		_ = s.Images.Delete(ctx, old)
	}
	return url, nil
}

// DeleteImage removes the stored profile image, if any.
func (s *ProfileService) DeleteImage(ctx context.Context, uid int64) error {
	view, err := s.load(ctx, uid)
	if err != nil {
		return err
	}
	if view.Profile.ProfileImage == "" {
		return nil
	}
	if s.Images != nil {
		if err := s.Images.Delete(ctx, view.Profile.ProfileImage); err != nil {
			return err
		}
	}
	view.Profile.ProfileImage = ""
	return s.Profiles.Update(ctx, view.Profile)
}
