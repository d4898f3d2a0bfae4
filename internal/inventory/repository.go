package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/skundu/blood-market/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type BrowseFilter struct {
	BloodType string
	City      string
	MaxPrice  int64
}

// BrowseAvailable returns purchasable batches for the customer portal:
// status=available and not past expiry, optionally narrowed by blood type
// code, retailer city and price ceiling.
func (r *Repository) BrowseAvailable(ctx context.Context, f BrowseFilter) ([]domain.BatchListing, error) {
	q := `
		SELECT i.batch_id, i.retailer_id, COALESCE(rt.name, 'Unknown'), COALESCE(rt.city, ''),
		       bt.code, i.quantity_ml, i.unit_count, i.quality, i.price_per_unit, i.expiry_date
		FROM inventory_batches i
		JOIN retailers rt ON i.retailer_id = rt.retailer_id
		JOIN blood_types bt ON i.blood_type_id = bt.id
		WHERE i.status = 'available'
		  AND (i.expiry_date IS NULL OR i.expiry_date >= CURRENT_DATE)`

	var args []any
	if f.BloodType != "" {
		args = append(args, f.BloodType)
		q += fmt.Sprintf(" AND bt.code = $%d", len(args))
	}
	if f.City != "" {
		args = append(args, "%"+f.City+"%")
		q += fmt.Sprintf(" AND rt.city ILIKE $%d", len(args))
	}
	if f.MaxPrice > 0 {
		args = append(args, f.MaxPrice)
		q += fmt.Sprintf(" AND i.price_per_unit <= $%d", len(args))
	}
	q += " ORDER BY bt.code, i.price_per_unit"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.Persistence("browse inventory", err)
	}
	defer func() { _ = rows.Close() }()

	listings := []domain.BatchListing{}
	for rows.Next() {
		var l domain.BatchListing
		if err := rows.Scan(&l.BatchID, &l.RetailerID, &l.RetailerName, &l.City,
			&l.BloodType, &l.QuantityML, &l.UnitCount, &l.Quality, &l.PricePerUnit, &l.ExpiryDate); err != nil {
			return nil, domain.Persistence("scan listing", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("browse inventory", err)
	}

	return listings, nil
}

// ListByRetailer returns all of a retailer's batches, newest first.
func (r *Repository) ListByRetailer(ctx context.Context, retailerID int64) ([]domain.InventoryBatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT batch_id, donation_id, retailer_id, blood_type_id, quantity_ml, unit_count,
		       quality, status, price_per_unit, collected_at, expiry_date, created_at
		FROM inventory_batches
		WHERE retailer_id = $1
		ORDER BY created_at DESC
	`, retailerID)
	if err != nil {
		return nil, domain.Persistence("list retailer inventory", err)
	}
	defer func() { _ = rows.Close() }()

	batches := []domain.InventoryBatch{}
	for rows.Next() {
		var b domain.InventoryBatch
		if err := rows.Scan(&b.ID, &b.DonationID, &b.RetailerID, &b.BloodTypeID, &b.QuantityML,
			&b.UnitCount, &b.Quality, &b.Status, &b.PricePerUnit, &b.CollectedAt, &b.ExpiryDate, &b.CreatedAt); err != nil {
			return nil, domain.Persistence("scan batch", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("list retailer inventory", err)
	}

	return batches, nil
}

func (r *Repository) GetBatch(ctx context.Context, batchID int64) (*domain.InventoryBatch, error) {
	b := &domain.InventoryBatch{}
	err := r.db.QueryRowContext(ctx, `
		SELECT batch_id, donation_id, retailer_id, blood_type_id, quantity_ml, unit_count,
		       quality, status, price_per_unit, collected_at, expiry_date, created_at
		FROM inventory_batches
		WHERE batch_id = $1
	`, batchID).Scan(&b.ID, &b.DonationID, &b.RetailerID, &b.BloodTypeID, &b.QuantityML,
		&b.UnitCount, &b.Quality, &b.Status, &b.PricePerUnit, &b.CollectedAt, &b.ExpiryDate, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("get batch", err)
	}
	return b, nil
}

// AddBatch records manually procured stock. The batch starts available with
// the operator-supplied expiry and no donation linkage.
func (r *Repository) AddBatch(ctx context.Context, retailerID int64, bloodTypeID int16,
	quantityML int, quality domain.BatchQuality, pricePerUnit int64, expiry time.Time) (int64, error) {

	var batchID int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO inventory_batches
			(donation_id, retailer_id, blood_type_id, quantity_ml, unit_count, quality, status,
			 price_per_unit, collected_at, expiry_date)
		VALUES (NULL, $1, $2, $3, 1, $4, 'available', $5, now(), $6)
		RETURNING batch_id
	`, retailerID, bloodTypeID, quantityML, quality, pricePerUnit, expiry).Scan(&batchID)
	if err != nil {
		return 0, domain.Persistence("insert batch", err)
	}
	return batchID, nil
}

type DonationIntake struct {
	RetailerID   int64
	DonorName    string
	DonorPhone   string
	BloodTypeID  int16
	VolumeML     int
	PricePerUnit int64
	CollectedAt  time.Time
}

type DonationResult struct {
	DonorID    int64 `json:"donor_id"`
	DonationID int64 `json:"donation_id"`
	BatchID    int64 `json:"batch_id"`
}

// RecordDonation runs the intake transaction: find-or-create the donor by
// phone, insert the donation, then the linked batch with expiry set by the
// fixed shelf-life policy. Donor phone uniqueness is enforced by the schema;
// a concurrent intake for the same new phone loses the race and fails the
// transaction rather than creating a duplicate donor.
func (r *Repository) RecordDonation(ctx context.Context, in DonationIntake) (DonationResult, error) {
	var res DonationResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, domain.Persistence("begin intake tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		SELECT donor_id FROM donors WHERE phone = $1
	`, in.DonorPhone).Scan(&res.DonorID)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO donors (full_name, phone, blood_type_id)
			VALUES ($1, $2, $3)
			RETURNING donor_id
		`, in.DonorName, in.DonorPhone, in.BloodTypeID).Scan(&res.DonorID)
	}
	if err != nil {
		return res, domain.Persistence("resolve donor", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO donations (donor_id, retailer_id, collected_at, volume_ml, tested, test_result)
		VALUES ($1, $2, $3, $4, TRUE, 'pass')
		RETURNING donation_id
	`, res.DonorID, in.RetailerID, in.CollectedAt, in.VolumeML).Scan(&res.DonationID)
	if err != nil {
		return res, domain.Persistence("insert donation", err)
	}

	expiry := domain.BatchExpiry(in.CollectedAt)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO inventory_batches
			(donation_id, retailer_id, blood_type_id, quantity_ml, unit_count, quality, status,
			 price_per_unit, collected_at, expiry_date)
		VALUES ($1, $2, $3, $4, 1, 'A', 'available', $5, $6, $7)
		RETURNING batch_id
	`, res.DonationID, in.RetailerID, in.BloodTypeID, in.VolumeML, in.PricePerUnit,
		in.CollectedAt, expiry).Scan(&res.BatchID)
	if err != nil {
		return res, domain.Persistence("insert donation batch", err)
	}

	if err := tx.Commit(); err != nil {
		return res, domain.Persistence("commit intake tx", err)
	}

	return res, nil
}

type DonationRecord struct {
	domain.Donation
	DonorName  string `json:"donor_name,omitempty"`
	DonorPhone string `json:"donor_phone,omitempty"`
}

func (r *Repository) ListDonations(ctx context.Context, retailerID int64) ([]DonationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.donation_id, d.donor_id, d.retailer_id, d.collected_at, d.volume_ml,
		       d.tested, d.test_result, d.created_at,
		       COALESCE(dn.full_name, ''), COALESCE(dn.phone, '')
		FROM donations d
		LEFT JOIN donors dn ON d.donor_id = dn.donor_id
		WHERE d.retailer_id = $1
		ORDER BY d.collected_at DESC
	`, retailerID)
	if err != nil {
		return nil, domain.Persistence("list donations", err)
	}
	defer func() { _ = rows.Close() }()

	records := []DonationRecord{}
	for rows.Next() {
		var rec DonationRecord
		if err := rows.Scan(&rec.ID, &rec.DonorID, &rec.RetailerID, &rec.CollectedAt, &rec.VolumeML,
			&rec.Tested, &rec.TestResult, &rec.CreatedAt, &rec.DonorName, &rec.DonorPhone); err != nil {
			return nil, domain.Persistence("scan donation", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("list donations", err)
	}

	return records, nil
}

func (r *Repository) BloodTypes(ctx context.Context) ([]domain.BloodType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code FROM blood_types ORDER BY code`)
	if err != nil {
		return nil, domain.Persistence("list blood types", err)
	}
	defer func() { _ = rows.Close() }()

	types := []domain.BloodType{}
	for rows.Next() {
		var bt domain.BloodType
		if err := rows.Scan(&bt.ID, &bt.Code); err != nil {
			return nil, domain.Persistence("scan blood type", err)
		}
		types = append(types, bt)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("list blood types", err)
	}

	return types, nil
}

// BloodTypeIDByCode resolves a code like "O-" to its id. Unknown codes are a
// validation failure, caught before any write.
func (r *Repository) BloodTypeIDByCode(ctx context.Context, code string) (int16, error) {
	var id int16
	err := r.db.QueryRowContext(ctx, `SELECT id FROM blood_types WHERE code = $1`, code).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.Validationf("unknown blood type %q", code)
		}
		return 0, domain.Persistence("resolve blood type", err)
	}
	return id, nil
}
