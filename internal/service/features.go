package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-viewer/internal/mapstyle"
)

// CircleRadiusProperty marks a Point feature as a circle with that radius
// in map units.
const CircleRadiusProperty = "circle_radius"

const featuresSchema = `CREATE TABLE IF NOT EXISTS drawing_features (
	layer_id VARCHAR NOT NULL,
	seq INTEGER NOT NULL,
	feature VARCHAR NOT NULL
)`

// FeatureStore keeps the features of drawing layers as GeoJSON rows in
// DuckDB.
type FeatureStore struct {
	db *sql.DB
}

// NewFeatureStore creates the features table if needed.
func NewFeatureStore(ctx context.Context, db *sql.DB) (*FeatureStore, error) {
	if _, err := db.ExecContext(ctx, featuresSchema); err != nil {
		return nil, fmt.Errorf("create drawing_features: %w", err)
	}
	return &FeatureStore{db: db}, nil
}

// Save replaces the features of a drawing layer.
func (s *FeatureStore) Save(ctx context.Context, layerID string, fc *geojson.FeatureCollection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM drawing_features WHERE layer_id = ?", layerID); err != nil {
		return fmt.Errorf("clear features of %s: %w", layerID, err)
	}
	if fc != nil {
		for i, f := range fc.Features {
			data, err := f.MarshalJSON()
			if err != nil {
				return fmt.Errorf("encode feature %d: %w", i, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO drawing_features (layer_id, seq, feature) VALUES (?, ?, ?)",
				layerID, i, string(data)); err != nil {
				return fmt.Errorf("insert feature %d: %w", i, err)
			}
		}
	}
	return tx.Commit()
}

// Load returns the features of a drawing layer in saved order. Unknown
// layers yield an empty collection.
func (s *FeatureStore) Load(ctx context.Context, layerID string) (*geojson.FeatureCollection, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT feature FROM drawing_features WHERE layer_id = ? ORDER BY seq", layerID)
	if err != nil {
		return nil, fmt.Errorf("query features of %s: %w", layerID, err)
	}
	defer rows.Close()

	fc := geojson.NewFeatureCollection()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		f, err := geojson.UnmarshalFeature([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode feature of %s: %w", layerID, err)
		}
		fc.Append(f)
	}
	return fc, rows.Err()
}

// Delete removes every feature of a drawing layer.
func (s *FeatureStore) Delete(ctx context.Context, layerID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM drawing_features WHERE layer_id = ?", layerID)
	return err
}

// LayerIDs lists the drawing layers that have stored features.
func (s *FeatureStore) LayerIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT layer_id FROM drawing_features ORDER BY layer_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StyleFeatures converts GeoJSON features into features a style can be
// resolved against. Features without an id get their index.
func StyleFeatures(fc *geojson.FeatureCollection) []mapstyle.Feature {
	if fc == nil {
		return nil
	}
	out := make([]mapstyle.Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		sf := mapstyle.Feature{
			ID:         featureID(f, i),
			Geometry:   f.Geometry,
			Properties: map[string]any(f.Properties),
		}
		if p, ok := f.Geometry.(orb.Point); ok {
			if r, ok := f.Properties[CircleRadiusProperty].(float64); ok && r > 0 {
				sf.Geometry = nil
				sf.Circle = &mapstyle.Circle{Center: p, Radius: r}
			}
		}
		out = append(out, sf)
	}
	return out
}

func featureID(f *geojson.Feature, i int) string {
	switch id := f.ID.(type) {
	case nil:
		return strconv.Itoa(i)
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}
