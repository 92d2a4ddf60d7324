package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/crowdsense/vibesense/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS venues (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	venue_type TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	lat        DOUBLE PRECISION NOT NULL DEFAULT 0,
	lng        DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS venue_photos (
	id       TEXT PRIMARY KEY,
	venue_id TEXT NOT NULL REFERENCES venues(id),
	position INTEGER NOT NULL,
	url      TEXT NOT NULL,
	attribution TEXT NOT NULL DEFAULT '',
	UNIQUE (venue_id, position)
);

CREATE TABLE IF NOT EXISTS venue_instagram (
	venue_id   TEXT PRIMARY KEY REFERENCES venues(id),
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS venue_reviews (
	venue_id   TEXT PRIMARY KEY REFERENCES venues(id),
	reviews    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vibe_profiles (
	venue_id   TEXT PRIMARY KEY REFERENCES venues(id),
	profile    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_venue_photos_venue_id ON venue_photos(venue_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertVenue(ctx context.Context, v model.Venue) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO venues (id, name, venue_type, address, lat, lng, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, venue_type = excluded.venue_type,
		   address = excluded.address, lat = excluded.lat, lng = excluded.lng,
		   updated_at = now()`,
		v.ID, v.Name, v.Type, v.Address, v.Lat, v.Lng,
	)
	return eris.Wrapf(err, "postgres: upsert venue %s", v.ID)
}

func (s *PostgresStore) GetVenue(ctx context.Context, venueID string) (*model.Venue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, venue_type, address, lat, lng FROM venues WHERE id = $1`,
		venueID,
	)
	var v model.Venue
	err := row.Scan(&v.ID, &v.Name, &v.Type, &v.Address, &v.Lat, &v.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get venue %s", venueID)
	}
	return &v, nil
}

func (s *PostgresStore) ListVenueIDs(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT id FROM venues ORDER BY name`)
}

func (s *PostgresStore) SetVenuePhotos(ctx context.Context, venueID string, photos []model.Photo) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM venue_photos WHERE venue_id = $1`, venueID); err != nil {
		return eris.Wrapf(err, "postgres: clear photos %s", venueID)
	}
	for i, p := range photos {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO venue_photos (id, venue_id, position, url, attribution) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), venueID, i, p.URL, p.Attribution,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert photo %d for %s", i, venueID)
		}
	}
	return nil
}

func (s *PostgresStore) GetVenuePhotos(ctx context.Context, venueID string) ([]model.Photo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, attribution FROM venue_photos WHERE venue_id = $1 ORDER BY position`,
		venueID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get photos %s", venueID)
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.URL, &p.Attribution); err != nil {
			return nil, eris.Wrap(err, "postgres: scan photo")
		}
		photos = append(photos, p)
	}
	return photos, eris.Wrap(rows.Err(), "postgres: iterate photos")
}

func (s *PostgresStore) ListVenueIDsWithPhotos(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT DISTINCT venue_id FROM venue_photos`)
}

func (s *PostgresStore) SetVenueInstagram(ctx context.Context, venueID string, data *model.InstagramData) error {
	doc, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal instagram")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO venue_instagram (venue_id, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (venue_id) DO UPDATE SET data = excluded.data, updated_at = now()`,
		venueID, string(doc),
	)
	return eris.Wrapf(err, "postgres: set instagram %s", venueID)
}

func (s *PostgresStore) GetVenueInstagram(ctx context.Context, venueID string) (*model.InstagramData, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT data FROM venue_instagram WHERE venue_id = $1`, venueID,
	)
	var doc string
	err := row.Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get instagram %s", venueID)
	}
	var data model.InstagramData
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal instagram")
	}
	return &data, nil
}

func (s *PostgresStore) SetVenueReviews(ctx context.Context, venueID string, reviews []model.Review) error {
	doc, err := json.Marshal(reviews)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal reviews")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO venue_reviews (venue_id, reviews, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (venue_id) DO UPDATE SET reviews = excluded.reviews, updated_at = now()`,
		venueID, string(doc),
	)
	return eris.Wrapf(err, "postgres: set reviews %s", venueID)
}

func (s *PostgresStore) GetVenueReviews(ctx context.Context, venueID string) ([]model.Review, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT reviews FROM venue_reviews WHERE venue_id = $1`, venueID,
	)
	var doc string
	err := row.Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get reviews %s", venueID)
	}
	var reviews []model.Review
	if err := json.Unmarshal([]byte(doc), &reviews); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal reviews")
	}
	return reviews, nil
}

func (s *PostgresStore) GetVibeProfile(ctx context.Context, venueID string) (*model.VibeProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT profile FROM vibe_profiles WHERE venue_id = $1`, venueID,
	)
	var doc string
	err := row.Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get vibe profile %s", venueID)
	}
	var p model.VibeProfile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal vibe profile")
	}
	return &p, nil
}

func (s *PostgresStore) SetVibeProfile(ctx context.Context, profile *model.VibeProfile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal vibe profile")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO vibe_profiles (venue_id, profile, created_at) VALUES ($1, $2, now())
		 ON CONFLICT (venue_id) DO UPDATE SET profile = excluded.profile, created_at = now()`,
		profile.VenueID, string(doc),
	)
	return eris.Wrapf(err, "postgres: set vibe profile %s", profile.VenueID)
}

func (s *PostgresStore) ListVenueIDsWithProfiles(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT venue_id FROM vibe_profiles`)
}

func (s *PostgresStore) CountVibeProfiles(ctx context.Context) (int, error) {
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vibe_profiles`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count vibe profiles")
	}
	return n, nil
}

func (s *PostgresStore) listIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate ids")
}
