package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eadhub/eadhub-payments/internal/entity"
	"github.com/eadhub/eadhub-payments/internal/usecase"
)

type ConfigHandler struct {
	Config *usecase.PaymentConfigService
}

func NewConfigHandler(config *usecase.PaymentConfigService) *ConfigHandler {
	return &ConfigHandler{Config: config}
}

func (h *ConfigHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Config.GetConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandleUpdate applies a partial config update. Validation runs on the
// merged view server-side; a field omitted from the body keeps its value.
func (h *ConfigHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update entity.PaymentConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_JSON", Message: err.Error()})
		return
	}

	cfg, err := h.Config.UpdateConfig(r.Context(), update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
