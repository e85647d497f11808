package helpers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"xui-shop-bot/internal/constants"
)

// The panel's email field doubles as a metadata carrier for data migrated
// from the legacy panel: "<last5(subId)>--<inboundId>(((Name - Nuser)))".
// New clients also get the display name in the explicit comment field, but
// the textual convention is preserved so migrated entries stay consistent.

var (
	legacyPrefixPattern = regexp.MustCompile(`\d+--|\d+==|b--`)
	wrappedNamePattern  = regexp.MustCompile(`\(\(\((.*)\)\)\)`)
	userCountPattern    = regexp.MustCompile(`^(.*?)(?:\s*-\s*(\d+)user)?$`)
)

// ClientNameMeta is the metadata packed into a panel email
type ClientNameMeta struct {
	RealName  string
	UserCount int
}

// BuildClientEmail formats the panel email for a client replica on one inbound
func BuildClientEmail(subID string, inboundID int, realName string, userCount int) string {
	tag := subID
	if len(tag) > constants.EmailSubIDSuffix {
		tag = tag[len(tag)-constants.EmailSubIDSuffix:]
	}

	meta := realName
	if userCount > 0 {
		meta = fmt.Sprintf("%s - %duser", realName, userCount)
	}

	return fmt.Sprintf("%s--%d(((%s)))", tag, inboundID, meta)
}

// ParseClientEmail extracts the display name and device count from a panel
// email, understanding both the wrapped convention and bare legacy names
// like "AminAbdi-3user".
func ParseClientEmail(email string) ClientNameMeta {
	email = strings.TrimSpace(email)

	if m := wrappedNamePattern.FindStringSubmatch(email); m != nil {
		return splitNameMeta(m[1])
	}

	cleaned := legacyPrefixPattern.ReplaceAllString(email, "")
	return splitNameMeta(cleaned)
}

func splitNameMeta(s string) ClientNameMeta {
	m := userCountPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ClientNameMeta{RealName: s}
	}

	meta := ClientNameMeta{RealName: strings.TrimSpace(m[1])}
	if m[2] != "" {
		if n, err := strconv.Atoi(m[2]); err == nil {
			meta.UserCount = n
		}
	}
	return meta
}
