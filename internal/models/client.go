package models

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"xui-shop-bot/internal/constants"
)

// FlexInt64 decodes panel fields that appear as either a JSON number or a
// numeric string. 3x-ui stores tgId as a string for clients created through
// its web UI and as a number for clients created through the API.
type FlexInt64 int64

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Non-numeric owner ids are panel noise, not a decode failure.
			*f = 0
			return nil
		}
		*f = FlexInt64(n)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		var fl float64
		if err2 := json.Unmarshal(data, &fl); err2 != nil {
			return err
		}
		n = int64(fl)
	}
	*f = FlexInt64(n)
	return nil
}

// Int64 returns the plain value
func (f FlexInt64) Int64() int64 {
	return int64(f)
}

// Client represents the provisioning intent for one client within one inbound
type Client struct {
	ID         string    `json:"id"`
	Flow       string    `json:"flow"`
	Email      string    `json:"email"`
	LimitIP    int       `json:"limitIp"`
	TotalGB    int64     `json:"totalGB"`
	ExpiryTime int64     `json:"expiryTime"`
	Enable     bool      `json:"enable"`
	TgID       FlexInt64 `json:"tgId"`
	SubID      string    `json:"subId"`
	Reset      int64     `json:"reset"`
	Comment    string    `json:"comment,omitempty"`
}

// GenerateSubID generates a random subscription identifier
func GenerateSubID() string {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "sub_" + hex.EncodeToString([]byte("fallback"))
	}

	b64 := base64.StdEncoding.EncodeToString(raw)
	b64 = strings.ReplaceAll(b64, "=", "")
	b64 = strings.ReplaceAll(b64, "+", "")
	b64 = strings.ReplaceAll(b64, "/", "")

	if len(b64) > constants.SubIDLength {
		b64 = b64[:constants.SubIDLength]
	}

	return b64
}
