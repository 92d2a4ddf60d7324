package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/crowdsense/vibesense/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS venues (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	venue_type TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	lat        REAL NOT NULL DEFAULT 0,
	lng        REAL NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS venue_reviews (
	venue_id   TEXT PRIMARY KEY REFERENCES venues(id),
	reviews    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS vibe_profiles (
	venue_id   TEXT PRIMARY KEY REFERENCES venues(id),
	profile    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_venue_photos_venue_id ON venue_photos(venue_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertVenue(ctx context.Context, v model.Venue) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO venues (id, name, venue_type, address, lat, lng, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, venue_type = excluded.venue_type,
		   address = excluded.address, lat = excluded.lat, lng = excluded.lng,
		   updated_at = excluded.updated_at`,
		v.ID, v.Name, v.Type, v.Address, v.Lat, v.Lng, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert venue %s", v.ID)
}

func (s *SQLiteStore) GetVenue(ctx context.Context, venueID string) (*model.Venue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, venue_type, address, lat, lng FROM venues WHERE id = ?`,
		venueID,
	)
	var v model.Venue
	err := row.Scan(&v.ID, &v.Name, &v.Type, &v.Address, &v.Lat, &v.Lng)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get venue %s", venueID)
	}
	return &v, nil
}

func (s *SQLiteStore) ListVenueIDs(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT id FROM venues ORDER BY name`)
}

func (s *SQLiteStore) SetVenuePhotos(ctx context.Context, venueID string, photos []model.Photo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin set photos")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM venue_photos WHERE venue_id = ?`, venueID); err != nil {
		return eris.Wrapf(err, "sqlite: clear photos %s", venueID)
	}
	for i, p := range photos {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO venue_photos (id, venue_id, position, url, attribution) VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), venueID, i, p.URL, p.Attribution,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert photo %d for %s", i, venueID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit set photos")
}

func (s *SQLiteStore) GetVenuePhotos(ctx context.Context, venueID string) ([]model.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, attribution FROM venue_photos WHERE venue_id = ? ORDER BY position`,
		venueID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get photos %s", venueID)
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.URL, &p.Attribution); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan photo")
		}
		photos = append(photos, p)
	}
	return photos, eris.Wrap(rows.Err(), "sqlite: iterate photos")
}

func (s *SQLiteStore) ListVenueIDsWithPhotos(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT DISTINCT venue_id FROM venue_photos`)
}

func (s *SQLiteStore) SetVenueInstagram(ctx context.Context, venueID string, data *model.InstagramData) error {
	doc, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal instagram")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO venue_instagram (venue_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (venue_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		venueID, string(doc), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set instagram %s", venueID)
}

func (s *SQLiteStore) GetVenueInstagram(ctx context.Context, venueID string) (*model.InstagramData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM venue_instagram WHERE venue_id = ?`, venueID,
	)
	var doc string
	err := row.Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get instagram %s", venueID)
	}
	var data model.InstagramData
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal instagram")
	}
	return &data, nil
}

func (s *SQLiteStore) SetVenueReviews(ctx context.Context, venueID string, reviews []model.Review) error {
	doc, err := json.Marshal(reviews)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal reviews")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO venue_reviews (venue_id, reviews, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (venue_id) DO UPDATE SET reviews = excluded.reviews, updated_at = excluded.updated_at`,
		venueID, string(doc), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set reviews %s", venueID)
}

func (s *SQLiteStore) GetVenueReviews(ctx context.Context, venueID string) ([]model.Review, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT reviews FROM venue_reviews WHERE venue_id = ?`, venueID,
	)
	var doc string
	err := row.Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get reviews %s", venueID)
	}
	var reviews []model.Review
	if err := json.Unmarshal([]byte(doc), &reviews); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal reviews")
	}
	return reviews, nil
}

func (s *SQLiteStore) GetVibeProfile(ctx context.Context, venueID string) (*model.VibeProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT profile FROM vibe_profiles WHERE venue_id = ?`, venueID,
	)
	var doc string
	err := row.Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get vibe profile %s", venueID)
	}
	var p model.VibeProfile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal vibe profile")
	}
	return &p, nil
}

func (s *SQLiteStore) SetVibeProfile(ctx context.Context, profile *model.VibeProfile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal vibe profile")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vibe_profiles (venue_id, profile, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (venue_id) DO UPDATE SET profile = excluded.profile, created_at = excluded.created_at`,
		profile.VenueID, string(doc), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set vibe profile %s", profile.VenueID)
}

func (s *SQLiteStore) ListVenueIDsWithProfiles(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT venue_id FROM vibe_profiles`)
}

func (s *SQLiteStore) CountVibeProfiles(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vibe_profiles`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count vibe profiles")
	}
	return n, nil
}

func (s *SQLiteStore) listIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate ids")
}
