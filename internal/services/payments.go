package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"

	apperrors "xui-shop-bot/internal/errors"
	"xui-shop-bot/internal/models"
	"xui-shop-bot/internal/storage"
	"xui-shop-bot/pkg/zibal"
)

// GatewayAPI is the slice of the payment gateway the ledger consumes
type GatewayAPI interface {
	CreatePayment(ctx context.Context, amount int64, callbackURL string) (*zibal.RequestResult, error)
	PaymentURL(trackID int64) string
	Verify(ctx context.Context, trackID int64) (*zibal.VerifyResult, error)
	Inquiry(ctx context.Context, trackID int64) (*zibal.InquiryResult, error)
}

// transactionLedger is the slice of the transaction store the service uses
type transactionLedger interface {
	Create(ctx context.Context, t *models.Transaction) error
	FindByRef(ctx context.Context, refID string) (*models.Transaction, error)
	MarkTerminal(ctx context.Context, refID, status string, fields storage.TerminalFields) (bool, error)
}

// planCatalog resolves plans during confirmation
type planCatalog interface {
	FindByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error)
}

// purchaseApplier applies a paid transaction to the panel
type purchaseApplier interface {
	ApplyPurchase(ctx context.Context, txn *models.Transaction, plan *models.SubscriptionPlan) (string, bool)
}

// PaymentNotifier delivers payment outcomes to the user and operators.
// All methods are fire-and-forget.
type PaymentNotifier interface {
	PaymentSucceeded(tgID int64, txn *models.Transaction)
	PaymentFailed(tgID int64, trackID string, message string)
	EntitlementFailed(tgID int64, trackID string)
	SendSubscriptionLink(tgID int64, subID string)
}

// PaymentService tracks a payment's lifecycle: pending on order creation,
// then exactly one transition to paid or failed on confirmation.
type PaymentService struct {
	gateway      GatewayAPI
	transactions transactionLedger
	plans        planCatalog
	purchases    purchaseApplier
	notifier     PaymentNotifier
	callbackURL  string
	logger       *logrus.Logger
}

// NewPaymentService creates a new payment service. The notifier may be nil.
func NewPaymentService(
	gateway GatewayAPI,
	transactions transactionLedger,
	plans planCatalog,
	purchases purchaseApplier,
	notifier PaymentNotifier,
	callbackURL string,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		gateway:      gateway,
		transactions: transactions,
		plans:        plans,
		purchases:    purchases,
		notifier:     notifier,
		callbackURL:  callbackURL,
		logger:       logger,
	}
}

// CreateOrder requests a payment link from the gateway and records the
// pending transaction keyed by the returned track id. userSubID is either
// an existing subId to renew or models.NewSubscriptionKey.
func (s *PaymentService) CreateOrder(ctx context.Context, tgID int64, plan *models.SubscriptionPlan, userSubID string) (string, error) {
	result, err := s.gateway.CreatePayment(ctx, plan.Amount, s.callbackURL)
	if err != nil {
		return "", err
	}

	txn := &models.Transaction{
		UserID:             tgID,
		SubscriptionPlanID: plan.ID,
		UserSubscriptionID: userSubID,
		Amount:             plan.Amount,
		Gateway:            "zibal",
		RefID:              strconv.FormatInt(result.TrackID, 10),
		Status:             models.StatusPending,
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		return "", err
	}

	s.logger.Infof("Created order %d for user %d (plan %s, track %d)", txn.ID, tgID, plan.Slug, result.TrackID)
	return s.gateway.PaymentURL(result.TrackID), nil
}

// Confirm settles the transaction identified by the gateway track id and,
// on payment, applies the purchase. Unknown or already-terminal track ids
// are a logged no-op: this is the idempotence boundary of the payment flow,
// and gateway webhook retries are expected to land here.
func (s *PaymentService) Confirm(ctx context.Context, trackID string) bool {
	txn, err := s.transactions.FindByRef(ctx, trackID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warnf("%v", &apperrors.TransactionNotFoundOrTerminalError{TrackID: trackID})
		} else {
			s.logger.Errorf("Failed to look up transaction %s: %v", trackID, err)
		}
		return false
	}
	if txn.IsTerminal() {
		s.logger.Warnf("%v", &apperrors.TransactionNotFoundOrTerminalError{TrackID: trackID, Status: txn.Status})
		return false
	}

	trackNum, err := strconv.ParseInt(trackID, 10, 64)
	if err != nil {
		s.logger.Errorf("Malformed track id %q: %v", trackID, err)
		return false
	}

	if _, err := s.gateway.Verify(ctx, trackNum); err != nil {
		// Verify fails on already-verified payments; inquiry is the
		// authoritative report either way.
		s.logger.Warnf("Gateway verify for track %s: %v", trackID, err)
	}

	report, err := s.gateway.Inquiry(ctx, trackNum)
	if err != nil {
		// No state change: the gateway will retry the callback.
		s.logger.Errorf("Gateway inquiry for track %s failed: %v", trackID, err)
		return false
	}

	status := models.StatusFailed
	if report.Paid() {
		status = models.StatusPaid
	}

	claimed, err := s.transactions.MarkTerminal(ctx, trackID, status, storage.TerminalFields{
		CardNumber:  report.CardNumber,
		RefNumber:   report.RefNumber,
		PaidAt:      report.PaidAt,
		Description: report.Description,
	})
	if err != nil {
		s.logger.Errorf("Failed to settle transaction %s: %v", trackID, err)
		return false
	}
	if !claimed {
		// A concurrent duplicate delivery won the transition.
		s.logger.Warnf("%v", &apperrors.TransactionNotFoundOrTerminalError{TrackID: trackID, Status: status})
		return false
	}

	txn.Status = status
	txn.CardNumber = report.CardNumber
	txn.RefNumber = report.RefNumber
	txn.PaidAt = report.PaidAt
	txn.Description = report.Description

	if status == models.StatusFailed {
		s.logger.Errorf("Transaction %s failed at the gateway: %s", trackID, report.Message)
		if s.notifier != nil {
			s.notifier.PaymentFailed(txn.UserID, trackID, report.Message)
		}
		return false
	}

	subID, ok := s.purchases.ApplyPurchase(ctx, txn, s.resolvePlan(ctx, txn))
	if !ok {
		// Money was captured; the transaction stays paid and the case is
		// flagged for manual follow-up instead of being rolled back.
		s.logger.Errorf("%v", &apperrors.PurchaseApplicationFailedError{
			TransactionID: txn.ID,
			Reason:        "entitlement application failed after payment",
		})
		if s.notifier != nil {
			s.notifier.EntitlementFailed(txn.UserID, trackID)
		}
		return false
	}

	s.logger.Infof("Transaction %s confirmed and applied for user %d", trackID, txn.UserID)
	if s.notifier != nil {
		s.notifier.PaymentSucceeded(txn.UserID, txn)
		s.notifier.SendSubscriptionLink(txn.UserID, subID)
	}
	return true
}

func (s *PaymentService) resolvePlan(ctx context.Context, txn *models.Transaction) *models.SubscriptionPlan {
	plan, err := s.plans.FindByID(ctx, txn.SubscriptionPlanID)
	if err != nil {
		s.logger.Errorf("Plan %d not found for transaction %d: %v", txn.SubscriptionPlanID, txn.ID, err)
		return nil
	}
	return plan
}
