package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/itemhub/internal/services"
	"github.com/charlesng35/itemhub/pkg/response"
)

// ItemHandler exposes item CRUD endpoints scoped to the caller.
type ItemHandler struct {
	svc *services.ItemService
}

func NewItemHandler(svc *services.ItemService) (*ItemHandler, error) {
	if svc == nil {
		return nil, errors.New("item handler: service is required")
	}
	return &ItemHandler{svc: svc}, nil
}

type createItemRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

type updateItemRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// GET /api/v1/items
func (h *ItemHandler) List(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	// skip is accepted as an alias of offset
	offset := parseIntQuery(c, "offset", parseIntQuery(c, "skip", 0))
	opts := services.ListOptions{
		Offset: offset,
		Limit:  parseIntQuery(c, "limit", services.DefaultPageLimit),
	}

	items, total, err := h.svc.List(requestContext(c), actor, opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, pageMeta(opts, total))
}

// POST /api/v1/items
func (h *ItemHandler) Create(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req createItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.svc.Create(requestContext(c), actor.ID, services.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, item)
}

// GET /api/v1/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	item, err := h.svc.Get(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, item)
}

// PUT /api/v1/items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.svc.Update(requestContext(c), actor, c.Param("id"), services.UpdateItemInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, item)
}

// DELETE /api/v1/items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	item, err := h.svc.Delete(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, item)
}
