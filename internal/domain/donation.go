package domain

import "time"

// ShelfLife is the fixed policy for donated blood: a batch created from a
// donation expires 35 days after collection.
const ShelfLife = 35 * 24 * time.Hour

type Donor struct {
	ID          int64     `json:"donor_id"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	BloodTypeID int16     `json:"blood_type_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type TestResult string

const (
	TestResultPass    TestResult = "pass"
	TestResultFail    TestResult = "fail"
	TestResultPending TestResult = "pending"
)

type Donation struct {
	ID          int64      `json:"donation_id"`
	DonorID     *int64     `json:"donor_id,omitempty"`
	RetailerID  int64      `json:"retailer_id"`
	CollectedAt time.Time  `json:"collected_at"`
	VolumeML    int        `json:"volume_ml"`
	Tested      bool       `json:"tested"`
	TestResult  TestResult `json:"test_result"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BatchExpiry applies the shelf-life policy to a collection time.
func BatchExpiry(collectedAt time.Time) time.Time {
	return collectedAt.Add(ShelfLife)
}
