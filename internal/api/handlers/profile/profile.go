// Package profile serves the saved-selection routes.
package profile

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"label-checker/internal/api/handlers"
	"label-checker/internal/core/allergen"
	"label-checker/internal/infrastructure/storage"
	"label-checker/internal/pkg/common"
)

// Store persists profiles.
type Store interface {
	SaveProfile(ctx context.Context, p *storage.Profile) error
	GetProfile(ctx context.Context, id string) (*storage.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

type Handler struct {
	store Store
	table *allergen.Table
}

// NewHandler creates a Handler. Ids are checked against table so a profile
// only ever holds known selections.
func NewHandler(store Store, table *allergen.Table) *Handler {
	return &Handler{store: store, table: table}
}

type saveRequest struct {
	Allergies   []string `json:"allergies"`
	Preferences []string `json:"preferences"`
}

// HandleSave handles PUT /api/v1/profiles/:id.
func (h *Handler) HandleSave(c *gin.Context) {
	var req saveRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	for _, id := range req.Allergies {
		if _, ok := h.table.Allergen(id); !ok {
			handlers.RespondError(c, common.ErrInvalidRequest.WithErr(common.NewValidationError("unknown allergy: "+id)))
			return
		}
	}
	for _, id := range req.Preferences {
		if _, ok := h.table.Preference(id); !ok {
			handlers.RespondError(c, common.ErrInvalidRequest.WithErr(common.NewValidationError("unknown preference: "+id)))
			return
		}
	}

	p := &storage.Profile{
		ID:          c.Param("id"),
		Allergies:   req.Allergies,
		Preferences: req.Preferences,
	}
	if err := h.store.SaveProfile(c.Request.Context(), p); err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "profile": p})
}

// HandleGet handles GET /api/v1/profiles/:id.
func (h *Handler) HandleGet(c *gin.Context) {
	p, err := h.store.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": p})
}

// HandleDelete handles DELETE /api/v1/profiles/:id.
func (h *Handler) HandleDelete(c *gin.Context) {
	if err := h.store.DeleteProfile(c.Request.Context(), c.Param("id")); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
