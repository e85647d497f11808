package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xui-shop-bot/internal/models"
	"xui-shop-bot/internal/storage"
	"xui-shop-bot/pkg/zibal"
)

// fakeGateway serves canned gateway responses
type fakeGateway struct {
	trackID    int64
	requestErr error
	verifyErr  error
	inquiry    *zibal.InquiryResult
	inquiryErr error
}

func (g *fakeGateway) CreatePayment(ctx context.Context, amount int64, callbackURL string) (*zibal.RequestResult, error) {
	if g.requestErr != nil {
		return nil, g.requestErr
	}
	return &zibal.RequestResult{Result: zibal.ResultOK, TrackID: g.trackID}, nil
}

func (g *fakeGateway) PaymentURL(trackID int64) string {
	return "https://gateway.zibal.ir/start/4040"
}

func (g *fakeGateway) Verify(ctx context.Context, trackID int64) (*zibal.VerifyResult, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return &zibal.VerifyResult{Result: zibal.ResultOK, Status: g.inquiry.Status}, nil
}

func (g *fakeGateway) Inquiry(ctx context.Context, trackID int64) (*zibal.InquiryResult, error) {
	if g.inquiryErr != nil {
		return nil, g.inquiryErr
	}
	return g.inquiry, nil
}

// fakeApplier counts purchase applications
type fakeApplier struct {
	applied atomic.Int64
	result  bool
}

func (a *fakeApplier) ApplyPurchase(ctx context.Context, txn *models.Transaction, plan *models.SubscriptionPlan) (string, bool) {
	a.applied.Add(1)
	if !a.result {
		return "", false
	}
	return "sub-granted", true
}

// fakeCatalog resolves every plan id to the test plan
type fakeCatalog struct{}

func (fakeCatalog) FindByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	return testPlan, nil
}

// notifierRecorder captures outbound notifications
type notifierRecorder struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	flagged   int
	links     []string
}

func (n *notifierRecorder) PaymentSucceeded(tgID int64, txn *models.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.succeeded++
}

func (n *notifierRecorder) PaymentFailed(tgID int64, trackID string, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
}

func (n *notifierRecorder) EntitlementFailed(tgID int64, trackID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flagged++
}

func (n *notifierRecorder) SendSubscriptionLink(tgID int64, subID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links = append(n.links, subID)
}

func paymentFixture(t *testing.T, gateway *fakeGateway, applier *fakeApplier) (*PaymentService, *storage.TransactionStore, *notifierRecorder) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	transactions := storage.NewTransactionStore(db)
	notifier := &notifierRecorder{}
	svc := NewPaymentService(gateway, transactions, fakeCatalog{}, applier, notifier, "https://bot.example/payment/callback", testLogger())

	return svc, transactions, notifier
}

func paidInquiry() *zibal.InquiryResult {
	return &zibal.InquiryResult{
		Result: zibal.ResultOK, Status: zibal.StatusVerified,
		CardNumber: "6037****1234", RefNumber: "777", PaidAt: "2026-08-30 10:00:00",
	}
}

func TestCreateOrderRecordsPendingTransaction(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{trackID: 4040, inquiry: paidInquiry()}
	svc, transactions, _ := paymentFixture(t, gateway, &fakeApplier{result: true})

	url, err := svc.CreateOrder(ctx, 100, testPlan, models.NewSubscriptionKey)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.zibal.ir/start/4040", url)

	txn, err := transactions.FindByRef(ctx, "4040")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, txn.Status)
	assert.Equal(t, int64(100), txn.UserID)
	assert.Equal(t, testPlan.Amount, txn.Amount)
	assert.Equal(t, models.NewSubscriptionKey, txn.UserSubscriptionID)
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	gateway := &fakeGateway{requestErr: errors.New("gateway down")}
	svc, _, _ := paymentFixture(t, gateway, &fakeApplier{result: true})

	_, err := svc.CreateOrder(context.Background(), 100, testPlan, models.NewSubscriptionKey)
	assert.Error(t, err)
}

func TestConfirmPaidTransaction(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{trackID: 4040, inquiry: paidInquiry()}
	applier := &fakeApplier{result: true}
	svc, transactions, notifier := paymentFixture(t, gateway, applier)

	_, err := svc.CreateOrder(ctx, 100, testPlan, models.NewSubscriptionKey)
	require.NoError(t, err)

	assert.True(t, svc.Confirm(ctx, "4040"))
	assert.Equal(t, int64(1), applier.applied.Load())
	assert.Equal(t, 1, notifier.succeeded)
	assert.Equal(t, []string{"sub-granted"}, notifier.links)

	txn, err := transactions.FindByRef(ctx, "4040")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, txn.Status)
	assert.Equal(t, "777", txn.RefNumber)
}

func TestConfirmIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{trackID: 4040, inquiry: paidInquiry()}
	applier := &fakeApplier{result: true}
	svc, _, _ := paymentFixture(t, gateway, applier)

	_, err := svc.CreateOrder(ctx, 100, testPlan, models.NewSubscriptionKey)
	require.NoError(t, err)

	assert.True(t, svc.Confirm(ctx, "4040"))
	// Webhook retries after settlement are no-ops
	assert.False(t, svc.Confirm(ctx, "4040"))
	assert.False(t, svc.Confirm(ctx, "4040"))
	assert.Equal(t, int64(1), applier.applied.Load())
}

func TestConfirmConcurrentDeliveries(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{trackID: 4040, inquiry: paidInquiry()}
	applier := &fakeApplier{result: true}
	svc, transactions, _ := paymentFixture(t, gateway, applier)

	_, err := svc.CreateOrder(ctx, 100, testPlan, models.NewSubscriptionKey)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var wins atomic.Int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Confirm(ctx, "4040") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly one delivery claims the transition and applies the purchase
	assert.Equal(t, int64(1), wins.Load())
	assert.Equal(t, int64(1), applier.applied.Load())

	txn, err := transactions.FindByRef(ctx, "4040")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, txn.Status)
}

func TestConfirmFailedPayment(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{trackID: 4040, inquiry: &zibal.InquiryResult{Result: zibal.ResultOK, Status: 3, Message: "cancelled by user"}}
	applier := &fakeApplier{result: true}
	svc, transactions, notifier := paymentFixture(t, gateway, applier)

	_, err := svc.CreateOrder(ctx, 100, testPlan, models.NewSubscriptionKey)
	require.NoError(t, err)

	assert.False(t, svc.Confirm(ctx, "4040"))
	assert.Equal(t, int64(0), applier.applied.Load())
	assert.Equal(t, 1, notifier.failed)

	txn, err := transactions.FindByRef(ctx, "4040")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, txn.Status)
}

func TestConfirmInquiryFailureLeavesTransactionPending(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{trackID: 4040, inquiry: paidInquiry(), inquiryErr: errors.New("timeout")}
	svc, transactions, _ := paymentFixture(t, gateway, &fakeApplier{result: true})

	_, err := svc.CreateOrder(ctx, 100, testPlan, models.NewSubscriptionKey)
	require.NoError(t, err)

	assert.False(t, svc.Confirm(ctx, "4040"))

	// Still pending: the gateway retry can settle it later
	txn, err := transactions.FindByRef(ctx, "4040")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, txn.Status)
}

func TestConfirmVerifyFailureDoesNotBlockSettlement(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{trackID: 4040, inquiry: paidInquiry(), verifyErr: errors.New("already verified")}
	applier := &fakeApplier{result: true}
	svc, _, _ := paymentFixture(t, gateway, applier)

	_, err := svc.CreateOrder(ctx, 100, testPlan, models.NewSubscriptionKey)
	require.NoError(t, err)

	assert.True(t, svc.Confirm(ctx, "4040"))
	assert.Equal(t, int64(1), applier.applied.Load())
}

func TestConfirmUnknownTrackID(t *testing.T) {
	gateway := &fakeGateway{trackID: 4040, inquiry: paidInquiry()}
	applier := &fakeApplier{result: true}
	svc, _, _ := paymentFixture(t, gateway, applier)

	assert.False(t, svc.Confirm(context.Background(), "9999"))
	assert.Equal(t, int64(0), applier.applied.Load())
}

func TestConfirmEntitlementFailureFlagsForFollowUp(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{trackID: 4040, inquiry: paidInquiry()}
	applier := &fakeApplier{result: false}
	svc, transactions, notifier := paymentFixture(t, gateway, applier)

	_, err := svc.CreateOrder(ctx, 100, testPlan, models.NewSubscriptionKey)
	require.NoError(t, err)

	assert.False(t, svc.Confirm(ctx, "4040"))
	assert.Equal(t, 1, notifier.flagged)

	// Money was captured: the transaction stays paid for manual follow-up
	txn, err := transactions.FindByRef(ctx, "4040")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, txn.Status)
}
