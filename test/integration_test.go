//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skundu/blood-market/internal/domain"
	"github.com/skundu/blood-market/internal/identity"
	"github.com/skundu/blood-market/internal/inventory"
	"github.com/skundu/blood-market/internal/messaging"
	"github.com/skundu/blood-market/internal/orders"
	"github.com/skundu/blood-market/internal/redisx"
	"github.com/skundu/blood-market/internal/reports"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	phoneSeq   atomic.Int64
)

func signup(ctx context.Context, t *testing.T, svc *identity.Service, role domain.Role, tag string) int64 {
	t.Helper()

	id, err := svc.Signup(ctx, identity.SignupInput{
		Role:     role,
		FullName: "Test " + tag,
		Email:    fmt.Sprintf("%s@example.com", tag),
		Phone:    fmt.Sprintf("+9198765%05d", phoneSeq.Add(1)),
		Password: "s3cret-pass",
		Confirm:  "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("failed to sign up %s: %v", tag, err)
	}
	return id
}

func addBatch(ctx context.Context, t *testing.T, repo *inventory.Repository, retailerID int64, price int64) int64 {
	t.Helper()

	btID, err := repo.BloodTypeIDByCode(ctx, "O-")
	if err != nil {
		t.Fatalf("failed to resolve blood type: %v", err)
	}
	batchID, err := repo.AddBatch(ctx, retailerID, btID, 450, domain.QualityA, price,
		time.Now().UTC().AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("failed to add batch: %v", err)
	}
	return batchID
}

func TestPurchaseFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	identitySvc := identity.NewService(identity.NewRepository(db), nil)
	retailerID := signup(ctx, t, identitySvc, domain.RoleRetailer, "flow-retailer")
	customerID := signup(ctx, t, identitySvc, domain.RoleCustomer, "flow-customer")

	invRepo := inventory.NewRepository(db)
	batchID := addBatch(ctx, t, invRepo, retailerID, 200000) // ₹2000.00

	ordersRepo := orders.NewRepository(db)
	res, err := ordersRepo.PlaceOrder(ctx, customerID, batchID, "urgent")
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	if res.Order.Status != domain.OrderStatusPlaced {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusPlaced, res.Order.Status)
	}
	if res.Order.TotalAmount != 200000 {
		t.Fatalf("expected total 200000, got %d", res.Order.TotalAmount)
	}
	if res.Payment.Status != domain.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", res.Payment.Status)
	}
	if res.RetailerEmail != "flow-retailer@example.com" {
		t.Fatalf("unexpected retailer email in result: %s", res.RetailerEmail)
	}

	batch, err := invRepo.GetBatch(ctx, batchID)
	if err != nil {
		t.Fatalf("failed to get batch: %v", err)
	}
	if batch.Status != domain.BatchStatusReserved {
		t.Fatalf("expected batch reserved after purchase, got %s", batch.Status)
	}

	payment, err := ordersRepo.CompletePayment(ctx, customerID, res.Order.ID, orders.SimulatedGateway{})
	if err != nil {
		t.Fatalf("failed to complete payment: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %s", payment.Status)
	}
	if payment.Method != domain.MethodUPI {
		t.Fatalf("expected method upi after capture, got %s", payment.Method)
	}
	if payment.TxnRef == "" {
		t.Fatal("expected txn_ref to be set")
	}

	order, err := ordersRepo.GetByID(ctx, res.Order.ID)
	if err != nil {
		t.Fatalf("failed to get order: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order after payment, got %s", order.Status)
	}

	// paying twice must not double-capture
	if _, err := ordersRepo.CompletePayment(ctx, customerID, res.Order.ID, orders.SimulatedGateway{}); !errors.Is(err, domain.ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable on second payment, got %v", err)
	}
}

func TestConcurrentPurchaseSingleWinner(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	identitySvc := identity.NewService(identity.NewRepository(db), nil)
	retailerID := signup(ctx, t, identitySvc, domain.RoleRetailer, "race-retailer")
	customerA := signup(ctx, t, identitySvc, domain.RoleCustomer, "race-customer-a")
	customerB := signup(ctx, t, identitySvc, domain.RoleCustomer, "race-customer-bb")

	invRepo := inventory.NewRepository(db)
	batchID := addBatch(ctx, t, invRepo, retailerID, 150000)

	ordersRepo := orders.NewRepository(db)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, customerID := range []int64{customerA, customerB} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := ordersRepo.PlaceOrder(ctx, id, batchID, "")
			results <- err
		}(customerID)
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrNotAvailable):
			lost++
		default:
			t.Fatalf("unexpected error from concurrent purchase: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected exactly one winner and one loser, got %d winners %d losers", won, lost)
	}
}

func TestCancellationRestocksAndRefunds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	identitySvc := identity.NewService(identity.NewRepository(db), nil)
	retailerID := signup(ctx, t, identitySvc, domain.RoleRetailer, "cancel-retailer")
	customerID := signup(ctx, t, identitySvc, domain.RoleCustomer, "cancel-customer")

	invRepo := inventory.NewRepository(db)
	batchID := addBatch(ctx, t, invRepo, retailerID, 120000)

	ordersRepo := orders.NewRepository(db)
	res, err := ordersRepo.PlaceOrder(ctx, customerID, batchID, "")
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}
	if _, err := ordersRepo.CompletePayment(ctx, customerID, res.Order.ID, orders.SimulatedGateway{}); err != nil {
		t.Fatalf("failed to complete payment: %v", err)
	}

	upd, err := ordersRepo.UpdateStatus(ctx, retailerID, res.Order.ID, domain.OrderStatusCancelled, orders.SimulatedGateway{})
	if err != nil {
		t.Fatalf("failed to cancel order: %v", err)
	}
	if len(upd.BatchIDs) != 1 || upd.BatchIDs[0] != batchID {
		t.Fatalf("expected batch %d restocked, got %v", batchID, upd.BatchIDs)
	}

	batch, err := invRepo.GetBatch(ctx, batchID)
	if err != nil {
		t.Fatalf("failed to get batch: %v", err)
	}
	if batch.Status != domain.BatchStatusAvailable {
		t.Fatalf("expected batch available after cancellation, got %s", batch.Status)
	}

	var paymentStatus string
	if err := db.QueryRowContext(ctx,
		`SELECT status FROM payments WHERE order_id = $1`, res.Order.ID).Scan(&paymentStatus); err != nil {
		t.Fatalf("failed to read payment: %v", err)
	}
	if paymentStatus != string(domain.PaymentStatusRefunded) {
		t.Fatalf("expected refunded payment after cancellation, got %s", paymentStatus)
	}

	// a second cancellation must not restock again
	if _, err := ordersRepo.UpdateStatus(ctx, retailerID, res.Order.ID, domain.OrderStatusCancelled, orders.SimulatedGateway{}); !errors.Is(err, domain.ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable on double cancel, got %v", err)
	}
}

func TestDonationIntakeReusesDonor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	identitySvc := identity.NewService(identity.NewRepository(db), nil)
	retailerID := signup(ctx, t, identitySvc, domain.RoleRetailer, "donation-retailer")

	invRepo := inventory.NewRepository(db)
	btID, err := invRepo.BloodTypeIDByCode(ctx, "A+")
	if err != nil {
		t.Fatalf("failed to resolve blood type: %v", err)
	}

	collected := time.Now().UTC()
	intake := inventory.DonationIntake{
		RetailerID:   retailerID,
		DonorName:    "Ravi Donor",
		DonorPhone:   "+919812345678",
		BloodTypeID:  btID,
		VolumeML:     450,
		PricePerUnit: 90000,
		CollectedAt:  collected,
	}

	first, err := invRepo.RecordDonation(ctx, intake)
	if err != nil {
		t.Fatalf("failed to record first donation: %v", err)
	}
	second, err := invRepo.RecordDonation(ctx, intake)
	if err != nil {
		t.Fatalf("failed to record second donation: %v", err)
	}

	if first.DonorID != second.DonorID {
		t.Fatalf("expected same donor reused, got %d and %d", first.DonorID, second.DonorID)
	}
	if first.BatchID == second.BatchID {
		t.Fatal("expected distinct batches per donation")
	}

	batch, err := invRepo.GetBatch(ctx, first.BatchID)
	if err != nil {
		t.Fatalf("failed to get donation batch: %v", err)
	}
	if batch.ExpiryDate == nil {
		t.Fatal("expected expiry date on donation batch")
	}
	wantExpiry := domain.BatchExpiry(collected)
	if batch.ExpiryDate.Format("2006-01-02") != wantExpiry.Format("2006-01-02") {
		t.Fatalf("expected expiry %s, got %s", wantExpiry.Format("2006-01-02"), batch.ExpiryDate.Format("2006-01-02"))
	}
}

func TestLowStockReportCaching(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	redisAddr, cleanupRedis := SetupRedis(ctx, t)
	defer cleanupRedis()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	identitySvc := identity.NewService(identity.NewRepository(db), nil)
	retailerID := signup(ctx, t, identitySvc, domain.RoleRetailer, "report-retailer")

	invRepo := inventory.NewRepository(db)
	addBatch(ctx, t, invRepo, retailerID, 100000)

	rdb := redisx.New(redisAddr)
	defer func() { _ = rdb.Close() }()

	handler := reports.NewHandler(reports.NewRepository(db), rdb, 30*time.Second, 5, testLogger)
	actor := domain.Actor{UserID: retailerID, Role: domain.RoleRetailer}

	fetch := func() []reports.LowStockRow {
		req := httptest.NewRequest(http.MethodGet, "/reports/low-stock", nil)
		rec := httptest.NewRecorder()
		handler.HandleLowStock(rec, req, actor)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		var rows []reports.LowStockRow
		if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
			t.Fatalf("failed to decode report: %v", err)
		}
		return rows
	}

	first := fetch()
	// one batch of O-, everything else is at zero; all 8 types are below the
	// threshold of 5
	if len(first) != 8 {
		t.Fatalf("expected 8 low-stock rows, got %d", len(first))
	}

	// the second fetch is served from cache and must not see this new batch
	addBatch(ctx, t, invRepo, retailerID, 100000)
	second := fetch()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected cached report, got fresh data at row %d", i)
		}
	}
}

func TestOrderPlacedEventRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	producer := messaging.NewProducer(brokers, messaging.TopicOrderPlaced)
	defer func() { _ = producer.Close() }()
	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderPlaced, "integration-test")
	defer func() { _ = consumer.Close() }()

	sent := domain.OrderPlacedEvent{
		OrderID:       42,
		BatchID:       7,
		CustomerID:    1,
		RetailerID:    2,
		TotalAmount:   200000,
		RetailerEmail: "retailer@example.com",
		Timestamp:     time.Now().UTC(),
	}
	if err := producer.Publish(ctx, messaging.OrderKey(sent.OrderID), sent); err != nil {
		t.Fatalf("failed to publish event: %v", err)
	}

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()

	var got domain.OrderPlacedEvent
	err := consumer.Consume(consumeCtx, func(_ context.Context, payload []byte) error {
		if err := json.Unmarshal(payload, &got); err != nil {
			return err
		}
		stop()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("consumer error: %v", err)
	}

	if got.OrderID != sent.OrderID || got.RetailerEmail != sent.RetailerEmail {
		t.Fatalf("event mismatch: sent %+v, got %+v", sent, got)
	}
}
