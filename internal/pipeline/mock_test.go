package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// textResponse wraps a raw payload in a single-text-block response.
func textResponse(payload string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: payload}},
	}
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertVenue(ctx context.Context, v model.Venue) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockStore) GetVenue(ctx context.Context, venueID string) (*model.Venue, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Venue), args.Error(1)
}

func (m *mockStore) ListVenueIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) SetVenuePhotos(ctx context.Context, venueID string, photos []model.Photo) error {
	return m.Called(ctx, venueID, photos).Error(0)
}

func (m *mockStore) GetVenuePhotos(ctx context.Context, venueID string) ([]model.Photo, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Photo), args.Error(1)
}

func (m *mockStore) ListVenueIDsWithPhotos(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) SetVenueInstagram(ctx context.Context, venueID string, data *model.InstagramData) error {
	return m.Called(ctx, venueID, data).Error(0)
}

func (m *mockStore) GetVenueInstagram(ctx context.Context, venueID string) (*model.InstagramData, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InstagramData), args.Error(1)
}

func (m *mockStore) SetVenueReviews(ctx context.Context, venueID string, reviews []model.Review) error {
	return m.Called(ctx, venueID, reviews).Error(0)
}

func (m *mockStore) GetVenueReviews(ctx context.Context, venueID string) ([]model.Review, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Review), args.Error(1)
}

func (m *mockStore) GetVibeProfile(ctx context.Context, venueID string) (*model.VibeProfile, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VibeProfile), args.Error(1)
}

func (m *mockStore) SetVibeProfile(ctx context.Context, profile *model.VibeProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *mockStore) ListVenueIDsWithProfiles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) CountVibeProfiles(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
