package domain

import "time"

type PrescriptionStatus string

const (
	PrescriptionStatusUploaded    PrescriptionStatus = "uploaded"
	PrescriptionStatusUnderReview PrescriptionStatus = "under_review"
	PrescriptionStatusVerified    PrescriptionStatus = "verified"
	PrescriptionStatusRejected    PrescriptionStatus = "rejected"
)

func (s PrescriptionStatus) String() string { return string(s) }

// PrescriptionValidity is how long a verified prescription stays usable for
// ordering. NearExpiryWindow is the advisory window before that cutoff.
const (
	PrescriptionValidity = 180 * 24 * time.Hour
	NearExpiryWindow     = 7 * 24 * time.Hour
)

// Prescription is the persisted prescription record.
type Prescription struct {
	ID                 string
	UserID             string
	DoctorName         string
	PrescriptionDate   time.Time
	VerificationStatus PrescriptionStatus
	FileRef            string
	CreatedAt          time.Time
}

// PrescriptionInfo is the read-only join of prescription cart items against
// their prescription records. Recomputed whenever the item set changes.
type PrescriptionInfo struct {
	PrescriptionID   string             `json:"prescription_id"`
	DoctorName       string             `json:"doctor_name"`
	PrescriptionDate time.Time          `json:"prescription_date"`
	Status           PrescriptionStatus `json:"status"`
	ItemsCount       int                `json:"items_count"`
}

func (p PrescriptionInfo) ExpiresAt() time.Time {
	return p.PrescriptionDate.Add(PrescriptionValidity)
}

func (p PrescriptionInfo) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt())
}

func (p PrescriptionInfo) ExpiresSoon(now time.Time) bool {
	return !p.Expired(now) && now.After(p.ExpiresAt().Add(-NearExpiryWindow))
}
