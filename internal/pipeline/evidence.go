package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crowdsense/vibesense/internal/config"
	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/store"
)

// Bundle is the evidence package sent to Stage A: photo URLs in a fixed
// order (all photo indices in model output refer to this order) plus the
// optional text signals that were present in the store.
type Bundle struct {
	Venue           model.Venue
	PhotoURLs       []string
	InstagramBio    string
	InstagramPosts  []string
	Reviews         []model.Review
	DataSources     []string
	PhotosAvailable int
}

// GatherEvidence assembles the evidence bundle for a venue. Photos are
// required: a venue with no cached photos yields (nil, nil) and the caller
// skips classification. The text sources are optional and fetched
// concurrently; a missing source is simply absent from DataSources.
func GatherEvidence(ctx context.Context, st store.Store, venueID string, cfg config.VibeConfig) (*Bundle, error) {
	photos, err := st.GetVenuePhotos(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if len(photos) == 0 {
		zap.L().Debug("evidence: no photos", zap.String("venue_id", venueID))
		return nil, nil
	}

	bundle := &Bundle{
		PhotosAvailable: len(photos),
		DataSources:     []string{"photos"},
	}
	for _, p := range photos {
		if p.URL == "" {
			continue
		}
		bundle.PhotoURLs = append(bundle.PhotoURLs, p.URL)
		if cfg.TargetPhotos > 0 && len(bundle.PhotoURLs) >= cfg.TargetPhotos {
			break
		}
	}
	if len(bundle.PhotoURLs) == 0 {
		return nil, nil
	}

	// Venue metadata and the optional text sources are independent reads.
	var (
		venue   *model.Venue
		igData  *model.InstagramData
		reviews []model.Review
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		venue, err = st.GetVenue(gCtx, venueID)
		return err
	})
	g.Go(func() error {
		var err error
		igData, err = st.GetVenueInstagram(gCtx, venueID)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = st.GetVenueReviews(gCtx, venueID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if venue != nil {
		bundle.Venue = *venue
	} else {
		bundle.Venue = model.Venue{ID: venueID}
	}

	if igData != nil && igData.Bio != "" {
		bundle.InstagramBio = igData.Bio
		bundle.DataSources = append(bundle.DataSources, "ig_bio")
	}
	if igData != nil {
		for _, post := range igData.Posts {
			if post.Caption != "" {
				bundle.InstagramPosts = append(bundle.InstagramPosts, post.Caption)
			}
		}
		if len(bundle.InstagramPosts) > 0 {
			bundle.DataSources = append(bundle.DataSources, "ig_posts")
		}
	}
	if len(reviews) > 0 {
		bundle.Reviews = reviews
		bundle.DataSources = append(bundle.DataSources, "google_reviews")
	}

	return bundle, nil
}
