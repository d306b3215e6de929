package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/onemedi/onemedi-api/internal/domain"
	"github.com/onemedi/onemedi-api/internal/repository"
)

// MedicineSelection is one medicine picked from a verified prescription.
type MedicineSelection struct {
	MedicineID string
	Quantity   int
}

// PrescriptionCartService bridges a user's prescriptions and their cart.
// Catalog prices are authoritative: the stored line price comes from the
// medicine row, never from the client.
type PrescriptionCartService struct {
	repo    repository.PrescriptionRepository
	catalog repository.CatalogRepository
	now     func() time.Time
}

func NewPrescriptionCartService(repo repository.PrescriptionRepository, catalog repository.CatalogRepository) *PrescriptionCartService {
	return &PrescriptionCartService{
		repo:    repo,
		catalog: catalog,
		now:     time.Now,
	}
}

// AddPrescriptionItems upserts cart rows for the selected medicines of one
// prescription and returns the refreshed item list. The whole batch lands or
// none of it does.
func (s *PrescriptionCartService) AddPrescriptionItems(ctx context.Context, userID, prescriptionID string, selections []MedicineSelection) ([]domain.PrescriptionItem, error) {
	if len(selections) == 0 {
		return s.UserItems(ctx, userID)
	}

	prescriptions, err := s.repo.PrescriptionsByIDs(ctx, []string{prescriptionID})
	if err != nil {
		return nil, fmt.Errorf("failed to load prescription: %w", err)
	}
	if len(prescriptions) == 0 || prescriptions[0].UserID != userID {
		return nil, ErrUnknownPrescription
	}

	medicineIDs := make([]string, 0, len(selections))
	for _, sel := range selections {
		medicineIDs = append(medicineIDs, sel.MedicineID)
	}

	medicines, err := s.catalog.Medicines(ctx, medicineIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load medicines: %w", err)
	}

	items := make([]domain.PrescriptionItem, 0, len(selections))
	for _, sel := range selections {
		med, ok := medicines[sel.MedicineID]
		if !ok {
			return nil, fmt.Errorf("medicine %s: %w", sel.MedicineID, repository.ErrMedicineNotFound)
		}
		quantity := sel.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, domain.PrescriptionItem{
			PrescriptionItemID: prescriptionID + ":" + sel.MedicineID,
			PrescriptionID:     prescriptionID,
			MedicineID:         sel.MedicineID,
			MedicineName:       med.Name,
			Price:              med.Price,
			Quantity:           quantity,
		})
	}

	if err := s.repo.AddItems(ctx, userID, prescriptionID, items); err != nil {
		log.Printf("repo add prescription items error: %v", err)
		return nil, err
	}

	return s.UserItems(ctx, userID)
}

func (s *PrescriptionCartService) UserItems(ctx context.Context, userID string) ([]domain.PrescriptionItem, error) {
	items, err := s.repo.UserItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prescription cart items: %w", err)
	}
	return items, nil
}

// CartPrescriptionInfo derives PrescriptionInfo for the distinct
// prescriptions referenced by the given items.
func (s *PrescriptionCartService) CartPrescriptionInfo(ctx context.Context, items []domain.PrescriptionItem) ([]domain.PrescriptionInfo, error) {
	if len(items) == 0 {
		return nil, nil
	}

	counts := make(map[string]int)
	var ids []string
	for _, item := range items {
		if _, seen := counts[item.PrescriptionID]; !seen {
			ids = append(ids, item.PrescriptionID)
		}
		counts[item.PrescriptionID]++
	}

	prescriptions, err := s.repo.PrescriptionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load prescriptions: %w", err)
	}

	infos := make([]domain.PrescriptionInfo, 0, len(prescriptions))
	for _, p := range prescriptions {
		infos = append(infos, domain.PrescriptionInfo{
			PrescriptionID:   p.ID,
			DoctorName:       p.DoctorName,
			PrescriptionDate: p.PrescriptionDate,
			Status:           p.VerificationStatus,
			ItemsCount:       counts[p.ID],
		})
	}
	return infos, nil
}

func (s *PrescriptionCartService) UpdateItemQuantity(ctx context.Context, userID, prescriptionItemID string, quantity int, version int64) error {
	if quantity < 1 {
		quantity = 1
	}
	if err := s.repo.UpdateItemQuantity(ctx, userID, prescriptionItemID, quantity, version); err != nil {
		log.Printf("repo update prescription quantity error: %v", err)
		return err
	}
	return nil
}

func (s *PrescriptionCartService) RemoveItem(ctx context.Context, userID, prescriptionItemID string, version int64) error {
	if err := s.repo.RemoveItem(ctx, userID, prescriptionItemID, version); err != nil {
		log.Printf("repo remove prescription item error: %v", err)
		return err
	}
	return nil
}

func (s *PrescriptionCartService) ClearUserItems(ctx context.Context, userID string) error {
	return s.repo.ClearUserItems(ctx, userID)
}

// ValidateCartForCheckout loads the prescription records behind the items and
// runs the pure eligibility check against them.
func (s *PrescriptionCartService) ValidateCartForCheckout(ctx context.Context, items []domain.PrescriptionItem) (domain.ValidationResult, error) {
	infos, err := s.CartPrescriptionInfo(ctx, items)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return domain.ValidateCartForCheckout(items, infos, s.now()), nil
}
