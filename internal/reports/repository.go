package reports

import (
	"context"
	"database/sql"

	"github.com/skundu/blood-market/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type SalesPoint struct {
	Day     string `json:"day"`
	Orders  int64  `json:"orders"`
	Revenue int64  `json:"revenue"`
}

// SalesOverTime aggregates the last 30 days of non-cancelled orders per day.
// retailerID 0 means platform-wide.
func (r *Repository) SalesOverTime(ctx context.Context, retailerID int64) ([]SalesPoint, error) {
	q := `
		SELECT to_char(placed_at::date, 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE status NOT IN ('cancelled', 'refunded')
		  AND placed_at >= now() - INTERVAL '30 days'`
	args := []any{}
	if retailerID > 0 {
		args = append(args, retailerID)
		q += " AND retailer_id = $1"
	}
	q += " GROUP BY placed_at::date ORDER BY placed_at::date"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.Persistence("sales over time", err)
	}
	defer func() { _ = rows.Close() }()

	points := []SalesPoint{}
	for rows.Next() {
		var p SalesPoint
		if err := rows.Scan(&p.Day, &p.Orders, &p.Revenue); err != nil {
			return nil, domain.Persistence("scan sales point", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

type LowStockRow struct {
	RetailerID     int64  `json:"retailer_id"`
	RetailerName   string `json:"retailer_name"`
	BloodType      string `json:"blood_type"`
	AvailableUnits int64  `json:"available_units"`
}

// LowStock lists retailer/blood-type pairs whose available (unexpired) unit
// count is below the threshold. Every blood type is checked, so types with
// zero stock show up too.
func (r *Repository) LowStock(ctx context.Context, retailerID int64, threshold int) ([]LowStockRow, error) {
	q := `
		SELECT rt.retailer_id, rt.name, bt.code,
		       COALESCE(SUM(i.unit_count) FILTER (
		           WHERE i.status = 'available'
		             AND (i.expiry_date IS NULL OR i.expiry_date >= CURRENT_DATE)), 0) AS available
		FROM retailers rt
		CROSS JOIN blood_types bt
		LEFT JOIN inventory_batches i
		  ON i.retailer_id = rt.retailer_id AND i.blood_type_id = bt.id`
	args := []any{threshold}
	if retailerID > 0 {
		args = append(args, retailerID)
		q += " WHERE rt.retailer_id = $2"
	}
	q += `
		GROUP BY rt.retailer_id, rt.name, bt.code
		HAVING COALESCE(SUM(i.unit_count) FILTER (
		           WHERE i.status = 'available'
		             AND (i.expiry_date IS NULL OR i.expiry_date >= CURRENT_DATE)), 0) < $1
		ORDER BY rt.name, bt.code`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.Persistence("low stock", err)
	}
	defer func() { _ = rows.Close() }()

	out := []LowStockRow{}
	for rows.Next() {
		var row LowStockRow
		if err := rows.Scan(&row.RetailerID, &row.RetailerName, &row.BloodType, &row.AvailableUnits); err != nil {
			return nil, domain.Persistence("scan low stock row", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type RatingSummary struct {
	RetailerID   int64   `json:"retailer_id"`
	RetailerName string  `json:"retailer_name"`
	AvgRating    float64 `json:"avg_rating"`
	Ratings      int64   `json:"ratings"`
}

func (r *Repository) RatingSummaries(ctx context.Context, retailerID int64) ([]RatingSummary, error) {
	q := `
		SELECT rt.retailer_id, rt.name, ROUND(AVG(g.rating)::numeric, 2), COUNT(g.rating_id)
		FROM retailers rt
		JOIN ratings g ON g.retailer_id = rt.retailer_id`
	args := []any{}
	if retailerID > 0 {
		args = append(args, retailerID)
		q += " WHERE rt.retailer_id = $1"
	}
	q += " GROUP BY rt.retailer_id, rt.name ORDER BY AVG(g.rating) DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.Persistence("rating summaries", err)
	}
	defer func() { _ = rows.Close() }()

	out := []RatingSummary{}
	for rows.Next() {
		var s RatingSummary
		if err := rows.Scan(&s.RetailerID, &s.RetailerName, &s.AvgRating, &s.Ratings); err != nil {
			return nil, domain.Persistence("scan rating summary", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type BloodTypeSales struct {
	BloodType string `json:"blood_type"`
	Orders    int64  `json:"orders"`
	VolumeML  int64  `json:"volume_ml"`
	Revenue   int64  `json:"revenue"`
}

func (r *Repository) SalesByBloodType(ctx context.Context, retailerID int64) ([]BloodTypeSales, error) {
	q := `
		SELECT bt.code, COUNT(DISTINCT o.order_id),
		       COALESCE(SUM(oi.quantity_ml), 0), COALESCE(SUM(oi.subtotal), 0)
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.order_id
		JOIN blood_types bt ON oi.blood_type_id = bt.id
		WHERE o.status NOT IN ('cancelled', 'refunded')`
	args := []any{}
	if retailerID > 0 {
		args = append(args, retailerID)
		q += " AND o.retailer_id = $1"
	}
	q += " GROUP BY bt.code ORDER BY SUM(oi.subtotal) DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.Persistence("sales by blood type", err)
	}
	defer func() { _ = rows.Close() }()

	out := []BloodTypeSales{}
	for rows.Next() {
		var s BloodTypeSales
		if err := rows.Scan(&s.BloodType, &s.Orders, &s.VolumeML, &s.Revenue); err != nil {
			return nil, domain.Persistence("scan blood type sales", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type RetailerPerformance struct {
	RetailerID   int64  `json:"retailer_id"`
	RetailerName string `json:"retailer_name"`
	Orders       int64  `json:"orders"`
	Cancelled    int64  `json:"cancelled"`
	Revenue      int64  `json:"revenue"`
}

// RetailerPerformances is the admin overview: order volume, cancellation
// count and captured revenue per retailer.
func (r *Repository) RetailerPerformances(ctx context.Context) ([]RetailerPerformance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rt.retailer_id, rt.name,
		       COUNT(o.order_id),
		       COUNT(o.order_id) FILTER (WHERE o.status IN ('cancelled', 'refunded')),
		       COALESCE(SUM(o.total_amount) FILTER (WHERE o.status NOT IN ('cancelled', 'refunded')), 0)
		FROM retailers rt
		LEFT JOIN orders o ON o.retailer_id = rt.retailer_id
		GROUP BY rt.retailer_id, rt.name
		ORDER BY COUNT(o.order_id) DESC
	`)
	if err != nil {
		return nil, domain.Persistence("retailer performance", err)
	}
	defer func() { _ = rows.Close() }()

	out := []RetailerPerformance{}
	for rows.Next() {
		var p RetailerPerformance
		if err := rows.Scan(&p.RetailerID, &p.RetailerName, &p.Orders, &p.Cancelled, &p.Revenue); err != nil {
			return nil, domain.Persistence("scan retailer performance", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type TopDonor struct {
	DonorID   int64  `json:"donor_id"`
	FullName  string `json:"full_name"`
	BloodType string `json:"blood_type"`
	Donations int64  `json:"donations"`
	VolumeML  int64  `json:"volume_ml"`
}

func (r *Repository) TopDonors(ctx context.Context, retailerID int64) ([]TopDonor, error) {
	q := `
		SELECT dn.donor_id, dn.full_name, bt.code, COUNT(d.donation_id), COALESCE(SUM(d.volume_ml), 0)
		FROM donations d
		JOIN donors dn ON d.donor_id = dn.donor_id
		JOIN blood_types bt ON dn.blood_type_id = bt.id`
	args := []any{}
	if retailerID > 0 {
		args = append(args, retailerID)
		q += " WHERE d.retailer_id = $1"
	}
	q += `
		GROUP BY dn.donor_id, dn.full_name, bt.code
		ORDER BY SUM(d.volume_ml) DESC
		LIMIT 10`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.Persistence("top donors", err)
	}
	defer func() { _ = rows.Close() }()

	out := []TopDonor{}
	for rows.Next() {
		var d TopDonor
		if err := rows.Scan(&d.DonorID, &d.FullName, &d.BloodType, &d.Donations, &d.VolumeML); err != nil {
			return nil, domain.Persistence("scan top donor", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SubmitRating stores a customer's review of a retailer they have ordered
// from. Ratings without a completed order are rejected.
func (r *Repository) SubmitRating(ctx context.Context, customerID, retailerID int64, rating int, review string) (int64, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE customer_id = $1 AND retailer_id = $2
			  AND status NOT IN ('cancelled', 'refunded')
		)
	`, customerID, retailerID).Scan(&exists)
	if err != nil {
		return 0, domain.Persistence("check rating eligibility", err)
	}
	if !exists {
		return 0, domain.Validationf("you can only rate retailers you have ordered from")
	}

	var ratingID int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO ratings (retailer_id, customer_id, rating, review)
		VALUES ($1, $2, $3, $4)
		RETURNING rating_id
	`, retailerID, customerID, rating, review).Scan(&ratingID)
	if err != nil {
		return 0, domain.Persistence("insert rating", err)
	}
	return ratingID, nil
}
