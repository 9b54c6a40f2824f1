// Package records provides read-only access to the raw lead, property and
// user stores. Lead and property payloads are heterogeneous JSONB documents
// owned by other business flows; this package only reads them.
package records

import (
	"context"
	"encoding/json"

	"imobportal_backend/internal/health/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// User is one row of the agent roster.
type User struct {
	ID    string
	Name  string
	Email string
}

// Repository reads raw records with pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new Repository using the provided connection pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListLeads returns every lead payload. The health engine filters by owner
// and window itself; the benchmark needs the full set anyway.
func (r *Repository) ListLeads(ctx context.Context) ([]domain.Record, error) {
	return r.listPayloads(ctx, `SELECT payload FROM lead_records`)
}

// ListProperties returns every property payload.
func (r *Repository) ListProperties(ctx context.Context) ([]domain.Record, error) {
	return r.listPayloads(ctx, `SELECT payload FROM property_records`)
}

func (r *Repository) listPayloads(ctx context.Context, query string) ([]domain.Record, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec domain.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			// A corrupt payload is a data-quality issue, not a fault; skip it.
			continue
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// ListUserIDs returns the roster of known user ids for the sweep.
func (r *Repository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
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

// GetUser returns one roster entry.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		return User{}, err
	}
	return u, nil
}
