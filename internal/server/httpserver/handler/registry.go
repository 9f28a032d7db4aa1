package handler

import (
	"net/http"
)

// handleInitialize handles POST /v1/registry/initialize.
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := requireAccount(req.Admin); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.registry.Initialize(r.Context(), req.Admin); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, RegistryResponse{
		Initialized: true,
		Admin:       req.Admin,
	})
}

// handleGetRegistry handles GET /v1/registry.
func (h *Handler) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	admin, ok, err := h.registry.GetAdmin(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !ok {
		h.writeJSON(w, r, http.StatusOK, RegistryResponse{})
		return
	}

	count, err := h.registry.GetTokenCount(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, RegistryResponse{
		Initialized: true,
		Admin:       admin,
		TokenCount:  count,
	})
}
