package domain

import "time"

type BatchStatus string

const (
	BatchStatusAvailable   BatchStatus = "available"
	BatchStatusReserved    BatchStatus = "reserved"
	BatchStatusSold        BatchStatus = "sold"
	BatchStatusExpired     BatchStatus = "expired"
	BatchStatusQuarantined BatchStatus = "quarantined"
)

type BatchQuality string

const (
	QualityA BatchQuality = "A"
	QualityB BatchQuality = "B"
	QualityC BatchQuality = "C"
)

// InventoryBatch is a priced, quantified lot of blood of one type held by one
// retailer. Money fields are in minor units (paise).
type InventoryBatch struct {
	ID           int64        `json:"batch_id"`
	DonationID   *int64       `json:"donation_id,omitempty"`
	RetailerID   int64        `json:"retailer_id"`
	BloodTypeID  int16        `json:"blood_type_id"`
	QuantityML   int          `json:"quantity_ml"`
	UnitCount    int          `json:"unit_count"`
	Quality      BatchQuality `json:"quality"`
	Status       BatchStatus  `json:"status"`
	PricePerUnit int64        `json:"price_per_unit"`
	CollectedAt  *time.Time   `json:"collected_at,omitempty"`
	ExpiryDate   *time.Time   `json:"expiry_date,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// BatchListing is an available batch joined with retailer and blood type
// details, as shown in the customer browse view.
type BatchListing struct {
	BatchID      int64      `json:"batch_id"`
	RetailerID   int64      `json:"retailer_id"`
	RetailerName string     `json:"retailer_name"`
	City         string     `json:"city"`
	BloodType    string     `json:"blood_type"`
	QuantityML   int        `json:"quantity_ml"`
	UnitCount    int        `json:"unit_count"`
	Quality      string     `json:"quality"`
	PricePerUnit int64      `json:"price_per_unit"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
}
