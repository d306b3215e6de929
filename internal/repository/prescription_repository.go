package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/onemedi/onemedi-api/internal/domain"
)

var (
	ErrPrescriptionItemNotFound = errors.New("prescription cart item not found")
	ErrPrescriptionNotFound     = errors.New("prescription not found")
	ErrVersionConflict          = errors.New("prescription cart item was modified concurrently")
)

// PrescriptionRepository persists prescription-linked cart items and the
// prescription records they reference. Mutations carry the caller's last-seen
// version; a stale version fails with ErrVersionConflict instead of silently
// overwriting a concurrent change.
type PrescriptionRepository interface {
	AddItems(ctx context.Context, userID, prescriptionID string, items []domain.PrescriptionItem) error
	UserItems(ctx context.Context, userID string) ([]domain.PrescriptionItem, error)
	UpdateItemQuantity(ctx context.Context, userID, prescriptionItemID string, quantity int, version int64) error
	RemoveItem(ctx context.Context, userID, prescriptionItemID string, version int64) error
	ClearUserItems(ctx context.Context, userID string) error
	PrescriptionsByIDs(ctx context.Context, ids []string) ([]domain.Prescription, error)
}

type prescriptionRepository struct {
	db *sql.DB
}

func NewPrescriptionRepository(db *sql.DB) PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

// AddItems upserts all rows in one transaction: either every selected
// medicine lands in the cart or none does.
func (r *prescriptionRepository) AddItems(ctx context.Context, userID, prescriptionID string, items []domain.PrescriptionItem) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO prescription_cart_items
		            (id, user_id, prescription_item_id, prescription_id, medicine_id, medicine_name, quantity, unit_price, version, created_at, updated_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, NOW(), NOW())
		          ON CONFLICT (user_id, prescription_item_id)
		          DO UPDATE SET quantity   = EXCLUDED.quantity,
		                        unit_price = EXCLUDED.unit_price,
		                        version    = prescription_cart_items.version + 1,
		                        updated_at = NOW()`

		for _, item := range items {
			id := item.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx, query,
				id,
				userID,
				item.PrescriptionItemID,
				prescriptionID,
				item.MedicineID,
				item.MedicineName,
				item.Quantity,
				item.Price)
			if err != nil {
				return fmt.Errorf("failed to upsert prescription cart item %s: %w", item.PrescriptionItemID, err)
			}
		}
		return nil
	})
}

func (r *prescriptionRepository) UserItems(ctx context.Context, userID string) ([]domain.PrescriptionItem, error) {
	query := `SELECT id, prescription_item_id, prescription_id, medicine_id, medicine_name, quantity, unit_price, version
	          FROM prescription_cart_items
	          WHERE user_id = $1
	          ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prescription cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.PrescriptionItem
	for rows.Next() {
		var item domain.PrescriptionItem
		if err := rows.Scan(
			&item.ID,
			&item.PrescriptionItemID,
			&item.PrescriptionID,
			&item.MedicineID,
			&item.MedicineName,
			&item.Quantity,
			&item.Price,
			&item.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prescription cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prescription cart items: %w", err)
	}

	return items, nil
}

func (r *prescriptionRepository) UpdateItemQuantity(ctx context.Context, userID, prescriptionItemID string, quantity int, version int64) error {
	query := `UPDATE prescription_cart_items
	          SET quantity = $1, version = version + 1, updated_at = NOW()
	          WHERE user_id = $2 AND prescription_item_id = $3 AND version = $4`

	result, err := r.db.ExecContext(ctx, query, quantity, userID, prescriptionItemID, version)
	if err != nil {
		return fmt.Errorf("failed to update prescription cart quantity: %w", err)
	}

	return r.checkMutation(ctx, result, userID, prescriptionItemID)
}

func (r *prescriptionRepository) RemoveItem(ctx context.Context, userID, prescriptionItemID string, version int64) error {
	query := `DELETE FROM prescription_cart_items
	          WHERE user_id = $1 AND prescription_item_id = $2 AND version = $3`

	result, err := r.db.ExecContext(ctx, query, userID, prescriptionItemID, version)
	if err != nil {
		return fmt.Errorf("failed to remove prescription cart item: %w", err)
	}

	return r.checkMutation(ctx, result, userID, prescriptionItemID)
}

// checkMutation distinguishes "row gone" from "row present but at another
// version" when a version-guarded write matched nothing.
func (r *prescriptionRepository) checkMutation(ctx context.Context, result sql.Result, userID, prescriptionItemID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	probe := `SELECT EXISTS (SELECT 1 FROM prescription_cart_items WHERE user_id = $1 AND prescription_item_id = $2)`
	if err := r.db.QueryRowContext(ctx, probe, userID, prescriptionItemID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to probe prescription cart item: %w", err)
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrPrescriptionItemNotFound
}

func (r *prescriptionRepository) ClearUserItems(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM prescription_cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear prescription cart items: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) PrescriptionsByIDs(ctx context.Context, ids []string) ([]domain.Prescription, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, user_id, doctor_name, prescription_date, verification_status, COALESCE(file_ref, ''), created_at
	          FROM prescriptions
	          WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query prescriptions: %w", err)
	}
	defer rows.Close()

	var prescriptions []domain.Prescription
	for rows.Next() {
		var p domain.Prescription
		var status string
		var date time.Time
		if err := rows.Scan(&p.ID, &p.UserID, &p.DoctorName, &date, &status, &p.FileRef, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}
		p.PrescriptionDate = date
		p.VerificationStatus = domain.PrescriptionStatus(status)
		prescriptions = append(prescriptions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prescriptions: %w", err)
	}

	return prescriptions, nil
}

func (r *prescriptionRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback tx: %w", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}
