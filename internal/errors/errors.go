package errors

import (
	"fmt"
)

// PanelUnreachableError represents a network-level failure talking to the panel
type PanelUnreachableError struct {
	Endpoint string
	Err      error
}

// Error returns the error message
func (e *PanelUnreachableError) Error() string {
	return fmt.Sprintf("panel unreachable at %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error
func (e *PanelUnreachableError) Unwrap() error {
	return e.Err
}

// PanelAuthExpiredError represents an auth failure mid-session
type PanelAuthExpiredError struct {
	Endpoint string
}

// Error returns the error message
func (e *PanelAuthExpiredError) Error() string {
	return fmt.Sprintf("panel session expired at %s", e.Endpoint)
}

// PanelRequestFailedError represents an application-level rejection from the panel
type PanelRequestFailedError struct {
	Endpoint string
	Status   int
	Body     string
}

// Error returns the error message
func (e *PanelRequestFailedError) Error() string {
	return fmt.Sprintf("panel request failed at %s (status %d): %s", e.Endpoint, e.Status, e.Body)
}

// ReconciliationSourceUnavailableError aborts a sync pass when the inbound list cannot be fetched
type ReconciliationSourceUnavailableError struct {
	Err error
}

// Error returns the error message
func (e *ReconciliationSourceUnavailableError) Error() string {
	return fmt.Sprintf("reconciliation source unavailable: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *ReconciliationSourceUnavailableError) Unwrap() error {
	return e.Err
}

// MalformedInboundDataError represents unparsable settings on a single inbound
type MalformedInboundDataError struct {
	InboundID int
	Err       error
}

// Error returns the error message
func (e *MalformedInboundDataError) Error() string {
	return fmt.Sprintf("malformed settings on inbound %d: %v", e.InboundID, e.Err)
}

// TransactionNotFoundOrTerminalError marks a confirmation no-op
type TransactionNotFoundOrTerminalError struct {
	TrackID string
	Status  string
}

// Error returns the error message
func (e *TransactionNotFoundOrTerminalError) Error() string {
	return fmt.Sprintf("transaction %s not found or already terminal (status %q)", e.TrackID, e.Status)
}

// PurchaseApplicationFailedError marks a paid transaction whose entitlement was not granted
type PurchaseApplicationFailedError struct {
	TransactionID int64
	Reason        string
}

// Error returns the error message
func (e *PurchaseApplicationFailedError) Error() string {
	return fmt.Sprintf("purchase application failed for transaction %d: %s", e.TransactionID, e.Reason)
}

// GatewayError represents a failure from the payment gateway
type GatewayError struct {
	Operation string
	Result    int
	Message   string
}

// Error returns the error message
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error during %s (result %d): %s", e.Operation, e.Result, e.Message)
}

// ConfigError represents an error related to configuration
type ConfigError struct {
	Section string
	Message string
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Section, e.Message)
}
