// Package store persists venues, their cached evidence, and vibe profiles.
package store

import (
	"context"

	"github.com/crowdsense/vibesense/internal/model"
)

// Store defines the persistence interface for the classification pipeline.
//
// Getters return (nil, nil) on a miss so callers can distinguish "absent"
// from an I/O failure. The profile methods are the pipeline's idempotence
// anchor: GetVibeProfile is checked before any classification work, and
// SetVibeProfile replaces the whole profile atomically.
type Store interface {
	// Venues
	UpsertVenue(ctx context.Context, v model.Venue) error
	GetVenue(ctx context.Context, venueID string) (*model.Venue, error)
	ListVenueIDs(ctx context.Context) ([]string, error)

	// Cached evidence
	SetVenuePhotos(ctx context.Context, venueID string, photos []model.Photo) error
	GetVenuePhotos(ctx context.Context, venueID string) ([]model.Photo, error)
	ListVenueIDsWithPhotos(ctx context.Context) ([]string, error)
	SetVenueInstagram(ctx context.Context, venueID string, data *model.InstagramData) error
	GetVenueInstagram(ctx context.Context, venueID string) (*model.InstagramData, error)
	SetVenueReviews(ctx context.Context, venueID string, reviews []model.Review) error
	GetVenueReviews(ctx context.Context, venueID string) ([]model.Review, error)

	// Vibe profiles
	GetVibeProfile(ctx context.Context, venueID string) (*model.VibeProfile, error)
	SetVibeProfile(ctx context.Context, profile *model.VibeProfile) error
	ListVenueIDsWithProfiles(ctx context.Context) ([]string, error)
	CountVibeProfiles(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
