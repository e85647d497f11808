package services

import (
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// QRService renders subscription links as QR code images
type QRService struct {
	logger *logrus.Logger
}

// NewQRService creates a new QR code service
func NewQRService(logger *logrus.Logger) *QRService {
	return &QRService{logger: logger}
}

// GenerateQR encodes the given text as a PNG QR code
func (s *QRService) GenerateQR(text string) ([]byte, error) {
	png, err := qrcode.Encode(text, qrcode.Medium, qrImageSize)
	if err != nil {
		s.logger.Errorf("Failed to generate QR code: %v", err)
		return nil, err
	}
	return png, nil
}
