package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"xui-shop-bot/internal/helpers"
	"xui-shop-bot/internal/models"
)

// NotificationService pushes one-way messages to users and admins over
// Telegram. It never polls for updates; delivery failures are logged and
// swallowed so callers stay on their own path.
type NotificationService struct {
	bot          *telebot.Bot
	qrService    *QRService
	adminIDs     []int64
	subURLPrefix string
	logger       *logrus.Logger

	// send delivers one plain message; swapped out in tests
	send func(tgID int64, message string)
}

// NewNotificationService creates a send-only Telegram notifier
func NewNotificationService(token string, adminIDs []int64, subURLPrefix string, qrService *QRService, logger *logrus.Logger) (*NotificationService, error) {
	// No Poller: the bot is used for outbound sends only
	bot, err := telebot.NewBot(telebot.Settings{
		Token: token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	s := &NotificationService{
		bot:          bot,
		qrService:    qrService,
		adminIDs:     adminIDs,
		subURLPrefix: subURLPrefix,
		logger:       logger,
	}
	s.send = s.sendMessage

	return s, nil
}

// PaymentSucceeded tells the user their payment went through and gives the
// operators the settlement summary.
func (s *NotificationService) PaymentSucceeded(tgID int64, txn *models.Transaction) {
	msg := fmt.Sprintf(
		"✅ Payment confirmed.\n\nAmount: %d\nReference: %s\nYour subscription is now active.",
		txn.Amount, txn.RefNumber,
	)
	s.send(tgID, msg)

	s.NotifyAdmins(fmt.Sprintf(
		"💰 Payment received from user %d.\nAmount: %d\nCard: %s\nReference: %s\nPaid at: %s",
		tgID, txn.Amount, txn.CardNumber, txn.RefNumber, txn.PaidAt,
	))
}

// PaymentFailed tells the user their payment did not complete and alerts
// the operators with the gateway's reason.
func (s *NotificationService) PaymentFailed(tgID int64, trackID string, message string) {
	msg := fmt.Sprintf(
		"❌ Payment was not completed.\n\nTracking code: %s\n%s\nIf money left your account it will be refunded by the gateway.",
		trackID, message,
	)
	s.send(tgID, msg)

	s.NotifyAdmins(fmt.Sprintf(
		"❌ Payment failed for user %d (track %s): %s", tgID, trackID, message,
	))
}

// EntitlementFailed alerts the admins that a paid purchase could not be
// applied and the user needs manual follow-up.
func (s *NotificationService) EntitlementFailed(tgID int64, trackID string) {
	s.send(tgID, "⚠️ Your payment was received but activating the subscription hit a problem. Support has been notified and will fix it shortly.")
	s.NotifyAdmins(fmt.Sprintf("Paid transaction %s for user %d was NOT applied. Manual follow-up required.", trackID, tgID))
}

// SendSubscriptionStatus delivers a formatted usage summary for one
// subscription.
func (s *NotificationService) SendSubscriptionStatus(tgID int64, subID string, record models.SubscriptionRecord) {
	msg := helpers.FormatSubscriptionSummary(subID, record)
	if _, err := s.bot.Send(&telebot.User{ID: tgID}, msg, telebot.ModeHTML); err != nil {
		s.logger.Errorf("Failed to send subscription status to %d: %v", tgID, err)
	}
}

// SendSubscriptionLink delivers the subscription URL with a QR code photo
func (s *NotificationService) SendSubscriptionLink(tgID int64, subID string) {
	link := s.subURLPrefix + subID

	png, err := s.qrService.GenerateQR(link)
	if err != nil {
		s.send(tgID, link)
		return
	}

	photo := &telebot.Photo{
		File:    telebot.FromReader(bytes.NewReader(png)),
		Caption: link,
	}
	if _, err := s.bot.Send(&telebot.User{ID: tgID}, photo); err != nil {
		s.logger.Errorf("Failed to send subscription link to %d: %v", tgID, err)
	}
}

// NotifyAdmins sends the same message to every configured admin
func (s *NotificationService) NotifyAdmins(message string) {
	for _, id := range s.adminIDs {
		s.send(id, message)
	}
}

// Broadcast sends a message to every user id in the list, with a small
// delay between sends to stay under the Telegram rate limit.
func (s *NotificationService) Broadcast(tgIDs []int64, message string) {
	for _, id := range tgIDs {
		s.send(id, message)
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *NotificationService) sendMessage(tgID int64, message string) {
	if _, err := s.bot.Send(&telebot.User{ID: tgID}, message); err != nil {
		s.logger.Errorf("Failed to send Telegram message to %d: %v", tgID, err)
	}
}
