package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// TrailRepo implements ports.TrailRepository on a PostGIS table. Paths are
// exchanged as WKT so the geometry converter sees the same input it gets
// from any other WKT source.
type TrailRepo struct {
	db *DB
}

func NewTrailRepo(db *DB) *TrailRepo { return &TrailRepo{db: db} }

func (r *TrailRepo) Name() string { return "postgres" }

const upsertTrail = `
	INSERT INTO trail_paths (id, name, course_type, path, properties, updated_at)
	VALUES ($1, $2, $3, ST_GeomFromText($4, 4326), $5, NOW())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, course_type = EXCLUDED.course_type,
	    path = EXCLUDED.path, properties = EXCLUDED.properties, updated_at = NOW()
`

// Fetch returns every stored trail. Rows whose path cannot be rendered as
// WKT are still returned; the converter reports them per item.
func (r *TrailRepo) Fetch(ctx context.Context) (*domain.SourceDocument, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(course_type, ''), COALESCE(ST_AsText(path), ''), properties
		FROM trail_paths ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query trail_paths: %w", err)
	}
	defer rows.Close()

	doc := &domain.SourceDocument{Kind: domain.SourceWKT}
	for rows.Next() {
		var (
			rec   domain.WKTRecord
			props []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CourseType, &rec.Path, &props); err != nil {
			return nil, fmt.Errorf("scan trail: %w", err)
		}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &rec.Properties); err != nil {
				return nil, fmt.Errorf("trail %s properties: %w", rec.ID, err)
			}
		}
		doc.Records = append(doc.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *TrailRepo) Upsert(ctx context.Context, rec *domain.WKTRecord) error {
	props, err := marshalProps(rec.Properties)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, upsertTrail, rec.ID, rec.Name, rec.CourseType, rec.Path, props)
	return err
}

func (r *TrailRepo) UpsertBatch(ctx context.Context, recs []domain.WKTRecord) error {
	batch := &pgx.Batch{}
	for _, rec := range recs {
		props, err := marshalProps(rec.Properties)
		if err != nil {
			return err
		}
		batch.Queue(upsertTrail, rec.ID, rec.Name, rec.CourseType, rec.Path, props)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func (r *TrailRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM trail_paths WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func marshalProps(props map[string]any) ([]byte, error) {
	if len(props) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}
	return b, nil
}
