package helpers

import (
	"fmt"
	"strings"
	"time"

	"xui-shop-bot/internal/constants"
	"xui-shop-bot/internal/models"
)

// FormatGB renders a byte count in gigabytes with two decimals
func FormatGB(bytes int64) string {
	return fmt.Sprintf("%.2f GB", float64(bytes)/constants.BytesInGB)
}

// FormatSubscriptionSummary renders one subscription as an HTML Telegram
// message: state, quota usage and expiry.
func FormatSubscriptionSummary(subID string, r models.SubscriptionRecord) string {
	var sb strings.Builder

	state := "🔴 inactive"
	if r.Status {
		state = "🟢 active"
	}

	sb.WriteString(fmt.Sprintf("<b>Subscription</b> <code>%s</code>\n", subID))
	sb.WriteString(fmt.Sprintf("Status: %s\n", state))
	sb.WriteString(fmt.Sprintf("Download: %s\n", FormatGB(r.Download)))
	sb.WriteString(fmt.Sprintf("Upload: %s\n", FormatGB(r.Upload)))

	if r.Usage != nil {
		sb.WriteString(fmt.Sprintf("Quota used: %.2f%% of %s\n", *r.Usage, FormatGB(r.TotalGB)))
	} else {
		sb.WriteString("Quota: unlimited\n")
	}

	if r.TimeLimit > 0 {
		sb.WriteString(fmt.Sprintf("Expires: %s", time.UnixMilli(r.TimeLimit).Format(constants.DateFormat)))
	} else {
		sb.WriteString("Expires: never")
	}

	return sb.String()
}
