package command

import (
	"github.com/big14way/afri-asset/internal/core/domain"
)

// Wire types of the registry HTTP API.

type registryInfo struct {
	Initialized bool             `json:"initialized"`
	Admin       domain.Principal `json:"admin,omitempty"`
	TokenCount  uint64           `json:"token_count"`
}

type mintRequest struct {
	IPFSHash  string           `json:"ipfs_hash"`
	Owner     domain.Principal `json:"owner"`
	YieldData domain.Amount    `json:"yield_data"`
}

type mintResult struct {
	TokenID domain.TokenID `json:"token_id"`
}

type tokenPage struct {
	Items    []*domain.Token `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type escrowInfo struct {
	TokenID domain.TokenID `json:"token_id"`
	Escrow  *domain.Amount `json:"escrow,omitempty"`
}

type eventPage struct {
	Items []domain.Event `json:"items"`
	Next  uint64         `json:"next"`
}

type keyInfo struct {
	Address string `json:"address"`
	KeyFile string `json:"key_file"`
}
