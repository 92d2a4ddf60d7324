package fetcher

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/store"
)

// SeedFile is a JSON document carrying venues together with their cached
// evidence, keyed inline per venue.
type SeedFile struct {
	Venues []SeedVenue `json:"venues"`
}

// SeedVenue is one venue plus its optional evidence payloads.
type SeedVenue struct {
	model.Venue
	Photos    []model.Photo        `json:"photos,omitempty"`
	Instagram *model.InstagramData `json:"instagram,omitempty"`
	Reviews   []model.Review       `json:"reviews,omitempty"`
}

// ReadSeedJSON parses a seed file from disk.
func ReadSeedJSON(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "seed: read file")
	}
	var seed SeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, eris.Wrap(err, "seed: unmarshal")
	}
	return &seed, nil
}

// ImportSeed upserts every seed venue and its evidence into the store.
// Returns the number of venues imported.
func ImportSeed(ctx context.Context, st store.Store, seed *SeedFile) (int, error) {
	imported := 0
	for _, sv := range seed.Venues {
		if sv.ID == "" || sv.Name == "" {
			zap.L().Warn("seed: skipping venue without id or name", zap.String("id", sv.ID))
			continue
		}
		if err := st.UpsertVenue(ctx, sv.Venue); err != nil {
			return imported, err
		}
		if len(sv.Photos) > 0 {
			if err := st.SetVenuePhotos(ctx, sv.ID, sv.Photos); err != nil {
				return imported, err
			}
		}
		if sv.Instagram != nil {
			if err := st.SetVenueInstagram(ctx, sv.ID, sv.Instagram); err != nil {
				return imported, err
			}
		}
		if len(sv.Reviews) > 0 {
			if err := st.SetVenueReviews(ctx, sv.ID, sv.Reviews); err != nil {
				return imported, err
			}
		}
		imported++
	}
	zap.L().Info("seed: import complete", zap.Int("venues", imported))
	return imported, nil
}

// ImportVenues upserts plain venues (no evidence) into the store.
func ImportVenues(ctx context.Context, st store.Store, venues []model.Venue) (int, error) {
	for i, v := range venues {
		if err := st.UpsertVenue(ctx, v); err != nil {
			return i, err
		}
	}
	return len(venues), nil
}
