package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/onemedi/onemedi-api/internal/domain"
)

var ErrMedicineNotFound = errors.New("medicine not found")

// CatalogRepository is the query side of the medicine catalog. Catalog prices
// are authoritative for prescription cart lines.
type CatalogRepository interface {
	Medicine(ctx context.Context, id string) (*domain.Medicine, error)
	Medicines(ctx context.Context, ids []string) (map[string]domain.Medicine, error)
	SearchMedicines(ctx context.Context, query string, limit int) ([]domain.Medicine, error)
}

type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

const medicineColumns = `id, name, manufacturer, price, mrp, prescription_required, COALESCE(image_ref, ''), in_stock`

func (r *catalogRepository) Medicine(ctx context.Context, id string) (*domain.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`

	var m domain.Medicine
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.Manufacturer, &m.Price, &m.MRP, &m.PrescriptionRequired, &m.ImageRef, &m.InStock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMedicineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query medicine: %w", err)
	}
	return &m, nil
}

func (r *catalogRepository) Medicines(ctx context.Context, ids []string) (map[string]domain.Medicine, error) {
	if len(ids) == 0 {
		return map[string]domain.Medicine{}, nil
	}

	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query medicines: %w", err)
	}
	defer rows.Close()

	medicines := make(map[string]domain.Medicine, len(ids))
	for rows.Next() {
		var m domain.Medicine
		if err := rows.Scan(&m.ID, &m.Name, &m.Manufacturer, &m.Price, &m.MRP, &m.PrescriptionRequired, &m.ImageRef, &m.InStock); err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		medicines[m.ID] = m
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate medicines: %w", err)
	}
	return medicines, nil
}

func (r *catalogRepository) SearchMedicines(ctx context.Context, query string, limit int) ([]domain.Medicine, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	q := `SELECT ` + medicineColumns + ` FROM medicines
	      WHERE name ILIKE '%' || $1 || '%' AND in_stock
	      ORDER BY name LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search medicines: %w", err)
	}
	defer rows.Close()

	var medicines []domain.Medicine
	for rows.Next() {
		var m domain.Medicine
		if err := rows.Scan(&m.ID, &m.Name, &m.Manufacturer, &m.Price, &m.MRP, &m.PrescriptionRequired, &m.ImageRef, &m.InStock); err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		medicines = append(medicines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate medicines: %w", err)
	}
	return medicines, nil
}
