package domain

import (
	"fmt"
	"time"
)

// ValidationResult is the checkout-eligibility outcome for the prescription
// side of the cart. Errors block checkout, warnings do not.
// Invariant: Valid == (len(Errors) == 0), enforced by NewValidationResult.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func NewValidationResult(errors, warnings []string) ValidationResult {
	return ValidationResult{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
}

// ValidateCartForCheckout is pure: it inspects the prescription item set and
// the prescription records they reference and produces the same result for
// the same inputs. An item whose prescription is missing, unverified or past
// its validity contributes an error; a verified prescription close to expiry
// contributes a warning.
func ValidateCartForCheckout(items []PrescriptionItem, infos []PrescriptionInfo, now time.Time) ValidationResult {
	if len(items) == 0 {
		return NewValidationResult(nil, nil)
	}

	byID := make(map[string]PrescriptionInfo, len(infos))
	for _, info := range infos {
		byID[info.PrescriptionID] = info
	}

	var errors, warnings []string
	seen := make(map[string]bool)

	for _, item := range items {
		if seen[item.PrescriptionID] {
			continue
		}
		seen[item.PrescriptionID] = true

		info, ok := byID[item.PrescriptionID]
		if !ok {
			errors = append(errors, fmt.Sprintf("prescription %s not found", item.PrescriptionID))
			continue
		}

		switch info.Status {
		case PrescriptionStatusVerified:
			if info.Expired(now) {
				errors = append(errors, fmt.Sprintf("prescription from Dr. %s has expired", info.DoctorName))
			} else if info.ExpiresSoon(now) {
				warnings = append(warnings, fmt.Sprintf("prescription from Dr. %s expires on %s", info.DoctorName, info.ExpiresAt().Format("02 Jan 2006")))
			}
		case PrescriptionStatusRejected:
			errors = append(errors, fmt.Sprintf("prescription from Dr. %s was rejected", info.DoctorName))
		case PrescriptionStatusUploaded, PrescriptionStatusUnderReview:
			errors = append(errors, fmt.Sprintf("prescription from Dr. %s is pending verification", info.DoctorName))
		default:
			errors = append(errors, fmt.Sprintf("prescription %s has unknown status %q", info.PrescriptionID, info.Status))
		}
	}

	return NewValidationResult(errors, warnings)
}
