package services

import (
	"context"
	"encoding/json"

	"xui-shop-bot/internal/models"
)

// PanelAPI is the slice of the panel client the services consume
type PanelAPI interface {
	ListInbounds(ctx context.Context) ([]models.Inbound, error)
	AddClient(ctx context.Context, inboundID int, client models.Client) error
	UpdateClient(ctx context.Context, inboundID int, clientID string, client models.Client) error
	DeleteClient(ctx context.Context, inboundID int, clientID string) error
	ResetClientTraffic(ctx context.Context, inboundID int, email string) error
}

// parseInboundClients decodes the clients array out of an inbound's opaque
// settings blob. Inbounds not managed by this reseller may carry settings
// this shape doesn't fit; the caller treats a failure as "zero clients".
func parseInboundClients(inbound models.Inbound) ([]models.Client, error) {
	var settings models.InboundSettings
	if err := json.Unmarshal([]byte(inbound.Settings), &settings); err != nil {
		return nil, err
	}
	return settings.Clients, nil
}
