package users

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diredev/campushub/internal/auth"
	"gorm.io/gorm"
)

// ErrInvalidIdentity indicates the claims did not contain a usable identifier.
var ErrInvalidIdentity = errors.New("users: invalid identity")

// ErrUnknownUser indicates no identity exists for the requested user id.
var ErrUnknownUser = errors.New("users: unknown user")

const providerGoogle = "google"

// ServiceConfig describes the dependencies required for user identity resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages canonical user identifiers and provider-specific identities.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	cache sync.Map
}

// NewService constructs the identity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:  cfg.Database,
		now: clock,
	}, nil
}

// ResolveProfile returns the attribution profile for verified provider
// claims, creating the identity mapping the first time a provider
// subject is seen and refreshing stored profile fields afterwards.
func (s *Service) ResolveProfile(claims auth.GoogleClaims) (Profile, error) {
	subject := normalize(claims.Subject)
	if subject == "" {
		return Profile{}, ErrInvalidIdentity
	}

	cacheKey := providerGoogle + ":" + subject
	if cached, ok := s.cache.Load(cacheKey); ok {
		if profile, ok := cached.(Profile); ok {
			s.touch(subject)
			return profile, nil
		}
	}

	var identity Identity
	err := s.db.
		Where("provider = ? AND subject = ?", providerGoogle, subject).
		First(&identity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		identity = Identity{
			Provider:    providerGoogle,
			Subject:     subject,
			UserID:      subject,
			Email:       normalize(claims.Email),
			DisplayName: normalize(claims.Name),
			AvatarURL:   normalize(claims.Picture),
			LastSeenAt:  s.now(),
		}
		if err := s.db.Create(&identity).Error; err != nil {
			return Profile{}, err
		}
	} else if err != nil {
		return Profile{}, err
	} else {
		updates := map[string]interface{}{}
		if email := normalize(claims.Email); email != "" && email != identity.Email {
			updates["user_email"] = email
			identity.Email = email
		}
		if display := normalize(claims.Name); display != "" && display != identity.DisplayName {
			updates["user_display_name"] = display
			identity.DisplayName = display
		}
		if avatar := normalize(claims.Picture); avatar != "" && avatar != identity.AvatarURL {
			updates["user_avatar_url"] = avatar
			identity.AvatarURL = avatar
		}
		updates["last_seen_at"] = s.now()
		if len(updates) > 0 {
			_ = s.db.Model(&Identity{}).
				Where("provider = ? AND subject = ?", providerGoogle, subject).
				Updates(updates).
				Error
		}
	}

	profile := profileFromIdentity(identity)
	s.cache.Store(cacheKey, profile)
	return profile, nil
}

// GetProfile looks up the attribution profile for a canonical user id.
func (s *Service) GetProfile(userID string) (Profile, error) {
	id := normalize(userID)
	if id == "" {
		return Profile{}, ErrInvalidIdentity
	}
	var identity Identity
	err := s.db.Where("user_id = ?", id).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrUnknownUser
	}
	if err != nil {
		return Profile{}, err
	}
	return profileFromIdentity(identity), nil
}

func (s *Service) touch(subject string) {
	_ = s.db.Model(&Identity{}).
		Where("provider = ? AND subject = ?", providerGoogle, subject).
		Update("last_seen_at", s.now()).
		Error
}

func profileFromIdentity(identity Identity) Profile {
	return Profile{
		UserID:      identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		Initials:    AvatarInitials(identity.DisplayName),
	}
}
