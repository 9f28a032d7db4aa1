package handler

import (
	"time"

	"github.com/big14way/afri-asset/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// ErrorDetails is the details member of an error envelope.
type ErrorDetails struct {
	// ContractCode is the numeric registry error code, when the error has one.
	ContractCode uint32 `json:"contract_code,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// InitializeRequest is the request body for POST /v1/registry/initialize.
type InitializeRequest struct {
	Admin domain.Principal `json:"admin"`
}

// RegistryResponse is the response body for GET /v1/registry.
type RegistryResponse struct {
	Initialized bool             `json:"initialized"`
	Admin       domain.Principal `json:"admin,omitempty"`
	TokenCount  uint64           `json:"token_count"`
}

// MintRequest is the request body for POST /v1/tokens.
type MintRequest struct {
	IPFSHash  string           `json:"ipfs_hash"`
	Owner     domain.Principal `json:"owner"`
	YieldData domain.Amount    `json:"yield_data"`
}

// MintResponse is the response body for POST /v1/tokens.
type MintResponse struct {
	TokenID domain.TokenID `json:"token_id"`
}

// TransferRequest is the request body for POST /v1/tokens/{id}/transfer.
type TransferRequest struct {
	To domain.Principal `json:"to"`
}

// TradeRequest is the request body for POST /v1/tokens/{id}/trade.
type TradeRequest struct {
	Buyer  domain.Principal `json:"buyer"`
	Escrow domain.Amount    `json:"escrow"`
}

// TokenResponse represents a token in API responses.
type TokenResponse = domain.Token

// ListTokensResponse is the response body for GET /v1/tokens.
type ListTokensResponse struct {
	Items    []*TokenResponse `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// EscrowResponse is the response body for GET /v1/tokens/{id}/escrow.
// Escrow is absent when no trade has recorded one.
type EscrowResponse struct {
	TokenID domain.TokenID `json:"token_id"`
	Escrow  *domain.Amount `json:"escrow,omitempty"`
}

// ListEventsResponse is the response body for GET /v1/events.
type ListEventsResponse struct {
	Items []domain.Event `json:"items"`
	// Next is the cursor for the following page: pass it as "after".
	Next uint64 `json:"next"`
}
