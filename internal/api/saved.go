package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/recipe"
	"github.com/cartsmith/cartsmith/internal/saved"
)

// maxRecipeBytes bounds the save-recipe request body. Recipes carry full
// instructions, so the limit is looser than for chat messages.
const maxRecipeBytes = 256 << 10

type savedHandler struct {
	service *saved.Service
	logger  log.Logger
}

// list returns every saved recipe, oldest first.
func (h *savedHandler) list(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("listing saved recipes failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load saved recipes", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, recipes, h.logger)
}

type saveRequest struct {
	Recipe recipe.Recipe `json:"recipe"`
}

// save stores one recipe from a chat result.
func (h *savedHandler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecipeBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON", h.logger)
		return
	}

	if err := h.service.Save(r.Context(), req.Recipe); err != nil {
		h.logger.Error("saving recipe failed", "id", req.Recipe.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not save recipe", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Recipe saved."}, h.logger)
}

// remove deletes one saved recipe by id.
func (h *savedHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "recipe id must be numeric", h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, saved.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no saved recipe with that id", h.logger)
			return
		}
		h.logger.Error("deleting saved recipe failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete recipe", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Recipe unsaved."}, h.logger)
}
