package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/internal/storage"
)

// Paging defaults for listings.
const (
	DefaultPageSize   = 20
	MaxPageSize       = 100
	DefaultEventLimit = 100
	MaxEventLimit     = 1000
)

// GetToken returns the record for id, or domain.ErrTokenNotFound.
func (s *RegistryService) GetToken(ctx context.Context, id domain.TokenID) (*domain.Token, error) {
	var token *domain.Token
	err := s.view(ctx, OpGetToken, func(r storage.Reader) error {
		var err error
		token, err = loadToken(r, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// GetTokenCount returns the number of tokens minted so far (the next id).
// An uninitialized registry reports 0.
func (s *RegistryService) GetTokenCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.view(ctx, OpGetTokenCount, func(r storage.Reader) error {
		var err error
		count, err = loadCounter(r)
		return err
	})
	return count, err
}

// GetAdmin returns the administrator, or ok=false before initialization.
func (s *RegistryService) GetAdmin(ctx context.Context) (admin domain.Principal, ok bool, err error) {
	err = s.view(ctx, OpGetAdmin, func(r storage.Reader) error {
		var err error
		admin, ok, err = loadAdmin(r)
		return err
	})
	return admin, ok, err
}

// GetEscrow returns the escrow declared at the token's latest trade, or
// ok=false if the token was never traded (or does not exist).
func (s *RegistryService) GetEscrow(ctx context.Context, id domain.TokenID) (amount domain.Amount, ok bool, err error) {
	err = s.view(ctx, OpGetEscrow, func(r storage.Reader) error {
		var err error
		amount, ok, err = loadEscrow(r, id)
		return err
	})
	return amount, ok, err
}

// ListTokensRequest selects a page of tokens in id order.
type ListTokensRequest struct {
	Filter   domain.TokenFilter
	Page     int // 1-indexed, default 1
	PageSize int // default 20, max 100
}

// ListTokensResponse is one page of tokens.
type ListTokensResponse struct {
	Tokens   []*domain.Token
	Total    int // tokens matching the filter
	Page     int
	PageSize int
}

// ListTokens returns tokens matching the filter, paged.
func (s *RegistryService) ListTokens(ctx context.Context, req *ListTokensRequest) (*ListTokensResponse, error) {
	if req == nil {
		req = &ListTokensRequest{}
	}
	page, pageSize := req.Page, req.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	// Pages past the last possible token are empty; the bound keeps skip
	// from overflowing.
	skip := math.MaxInt
	if page-1 <= (math.MaxInt-1)/pageSize {
		skip = (page - 1) * pageSize
	}

	resp := &ListTokensResponse{
		Tokens:   make([]*domain.Token, 0, pageSize),
		Page:     page,
		PageSize: pageSize,
	}
	err := s.view(ctx, OpListTokens, func(r storage.Reader) error {
		var decodeErr error
		scanErr := r.Scan(tokenScanPrefix, func(_, value []byte) bool {
			token, err := decodeToken(value)
			if err != nil {
				decodeErr = err
				return false
			}
			if !req.Filter.Match(token) {
				return true
			}
			if resp.Total >= skip && len(resp.Tokens) < pageSize {
				resp.Tokens = append(resp.Tokens, token)
			}
			resp.Total++
			return true
		})
		if scanErr != nil {
			return scanErr
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListEvents returns up to limit events with sequence numbers above after,
// oldest first.
func (s *RegistryService) ListEvents(ctx context.Context, after uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}

	events := make([]domain.Event, 0)
	if after == math.MaxUint64 {
		return events, nil
	}
	err := s.view(ctx, OpListEvents, func(r storage.Reader) error {
		var decodeErr error
		scanErr := r.ScanFrom(eventScanPrefix, eventKey(after+1), func(key, value []byte) bool {
			seq, err := decodeUint64(key[1:])
			if err != nil {
				decodeErr = err
				return false
			}
			if seq <= after {
				return true
			}
			var ev domain.Event
			if err := json.Unmarshal(value, &ev); err != nil {
				decodeErr = domain.ErrStorageError.WithDetails("corrupt event record").WithCause(err)
				return false
			}
			events = append(events, ev)
			return len(events) < limit
		})
		if scanErr != nil {
			return scanErr
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Ping checks that the store answers reads.
func (s *RegistryService) Ping(ctx context.Context) error {
	return normalizeError(s.store.View(ctx, func(r storage.Reader) error {
		_, err := r.Has(keyAdmin)
		return err
	}))
}

func (s *RegistryService) view(ctx context.Context, op string, fn func(r storage.Reader) error) error {
	ctx, span := s.tracer.Start(ctx, "registry."+op)
	defer span.End()
	start := time.Now()

	err := normalizeError(s.store.View(ctx, fn))
	s.finish(span, op, err, time.Since(start))
	return err
}
