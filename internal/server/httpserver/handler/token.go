package handler

import (
	"net/http"
	"strconv"

	"github.com/big14way/afri-asset/internal/core/domain"
	"github.com/big14way/afri-asset/internal/core/service"
)

// handleMint handles POST /v1/tokens.
func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := requireAccount(req.Owner); err != nil {
		WriteError(w, r, err)
		return
	}

	id, err := h.registry.Mint(r.Context(), &domain.MintRequest{
		IPFSHash:  req.IPFSHash,
		Owner:     req.Owner,
		YieldData: req.YieldData,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, MintResponse{TokenID: id})
}

// handleGetToken handles GET /v1/tokens/{id}.
func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	id, err := pathTokenID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.registry.GetToken(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, token)
}

// handleListTokens handles GET /v1/tokens.
//
// Query parameters: owner, active (true|false), page, page_size.
func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := &service.ListTokensRequest{
		Filter: domain.TokenFilter{Owner: domain.Principal(query.Get("owner"))},
	}
	if active := query.Get("active"); active != "" {
		v, err := strconv.ParseBool(active)
		if err != nil {
			WriteError(w, r, domain.ErrInvalidArgument.WithDetails("active must be true or false"))
			return
		}
		req.Filter.ActiveOnly = v
	}

	var err error
	if req.Page, err = intParam(query.Get("page")); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.PageSize, err = intParam(query.Get("page_size")); err != nil {
		WriteError(w, r, err)
		return
	}

	resp, err := h.registry.ListTokens(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ListTokensResponse{
		Items:    resp.Tokens,
		Total:    resp.Total,
		Page:     resp.Page,
		PageSize: resp.PageSize,
	})
}

// handleTransfer handles POST /v1/tokens/{id}/transfer.
func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathTokenID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req TransferRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := requireAccount(req.To); err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.registry.TransferToken(r.Context(), id, req.To)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, token)
}

// handleTrade handles POST /v1/tokens/{id}/trade.
func (h *Handler) handleTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathTokenID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req TradeRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := requireAccount(req.Buyer); err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.registry.TradeToken(r.Context(), id, req.Buyer, req.Escrow)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, token)
}

// handleBurn handles POST /v1/tokens/{id}/burn.
func (h *Handler) handleBurn(w http.ResponseWriter, r *http.Request) {
	id, err := pathTokenID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.registry.BurnToken(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, token)
}

// handleGetEscrow handles GET /v1/tokens/{id}/escrow.
func (h *Handler) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	id, err := pathTokenID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	amount, ok, err := h.registry.GetEscrow(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := EscrowResponse{TokenID: id}
	if ok {
		resp.Escrow = &amount
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domain.ErrInvalidArgument.WithDetails("expected a non-negative integer, got " + strconv.Quote(raw))
	}
	return v, nil
}
