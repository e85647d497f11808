package models

// Inbound represents one traffic-routing rule on the panel.
// Settings is an opaque JSON blob containing the provisioned clients;
// ClientStats carries the observed usage keyed by email.
type Inbound struct {
	ID          int          `json:"id"`
	Up          int64        `json:"up"`
	Down        int64        `json:"down"`
	Total       int64        `json:"total"`
	Remark      string       `json:"remark"`
	Enable      bool         `json:"enable"`
	ExpiryTime  int64        `json:"expiryTime"`
	ClientStats []ClientStat `json:"clientStats"`
	Listen      string       `json:"listen"`
	Port        int          `json:"port"`
	Protocol    string       `json:"protocol"`
	Settings    string       `json:"settings"`
}

// ClientStat represents observed usage for a client within one inbound
type ClientStat struct {
	ID         int    `json:"id"`
	InboundID  int    `json:"inboundId"`
	Enable     bool   `json:"enable"`
	Email      string `json:"email"`
	Up         int64  `json:"up"`
	Down       int64  `json:"down"`
	ExpiryTime int64  `json:"expiryTime"`
	Total      int64  `json:"total"`
	Reset      int64  `json:"reset"`
}

// InboundSettings is the decoded shape of Inbound.Settings
type InboundSettings struct {
	Clients []Client `json:"clients"`
}
