package services

import (
	"context"

	"github.com/mycelian/mycelian-feed/internal/model"
	"github.com/mycelian/mycelian-feed/internal/profile"
	"github.com/mycelian/mycelian-feed/internal/store"
)

// Rebuilder runs a profile rebuild with a trigger label; *profile.Scheduler satisfies it.
type Rebuilder interface {
	Rebuild(ctx context.Context, userID, trigger string) (*model.PreferenceProfile, error)
}

type ProfileService struct {
	profiles store.Profiles
	rb       Rebuilder
}

func NewProfileService(profiles store.Profiles, rb Rebuilder) *ProfileService {
	return &ProfileService{profiles: profiles, rb: rb}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.PreferenceProfile, error) {
	if userID == "" {
		return nil, model.NewValidationError("userId", "required")
	}
	return s.profiles.Get(ctx, userID)
}

// RebuildProfile recomputes the profile now, outside the interaction threshold.
func (s *ProfileService) RebuildProfile(ctx context.Context, userID string) (*model.PreferenceProfile, error) {
	if userID == "" {
		return nil, model.NewValidationError("userId", "required")
	}
	return s.rb.Rebuild(ctx, userID, profile.TriggerManual)
}
