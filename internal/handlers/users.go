package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/itemhub/internal/services"
	appErrors "github.com/charlesng35/itemhub/pkg/errors"
	"github.com/charlesng35/itemhub/pkg/response"
)

// UserHandler exposes user management endpoints.
type UserHandler struct {
	svc              *services.UserService
	openRegistration bool
}

func NewUserHandler(svc *services.UserService, openRegistration bool) (*UserHandler, error) {
	if svc == nil {
		return nil, errors.New("user handler: service is required")
	}
	return &UserHandler{svc: svc, openRegistration: openRegistration}, nil
}

type createUserRequest struct {
	Email       string `json:"email" validate:"required,email,max=320"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	FullName    string `json:"full_name" validate:"max=255"`
	IsSuperuser bool   `json:"is_superuser"`
	IsActive    *bool  `json:"is_active"`
}

type registerUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	FullName string `json:"full_name" validate:"max=255"`
}

type updateMeRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=320"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}

type updateUserRequest struct {
	Email       *string `json:"email" validate:"omitempty,email,max=320"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=128"`
	FullName    *string `json:"full_name" validate:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	opts := services.ListOptions{
		Offset: parseIntQuery(c, "offset", 0),
		Limit:  parseIntQuery(c, "limit", services.DefaultPageLimit),
	}

	users, total, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, pageMeta(opts, total))
}

// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Create(requestContext(c), services.CreateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		IsSuperuser: req.IsSuperuser,
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}

// GET /api/v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updateMeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updated, err := h.svc.Update(requestContext(c), user.ID, services.UpdateUserInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated)
}

// POST /api/v1/users/open
func (h *UserHandler) Register(c *gin.Context) {
	if !h.openRegistration {
		response.Error(c, services.ErrOpenRegistrationDisabled)
		return
	}

	var req registerUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Create(requestContext(c), services.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}

// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == actor.ID {
		response.Success(c, http.StatusOK, actor)
		return
	}
	if !actor.IsSuperuser {
		response.Error(c, appErrors.ErrInsufficientPrivileges)
		return
	}

	user, err := h.svc.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Update(requestContext(c), c.Param("id"), services.UpdateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == actor.ID {
		response.Error(c, appErrors.ErrForbidden.WithMessage("Super users are not allowed to delete themselves"))
		return
	}

	if err := h.svc.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func pageMeta(opts services.ListOptions, total int64) *response.Meta {
	opts = opts.Normalise()
	return &response.Meta{Offset: opts.Offset, Limit: opts.Limit, Total: total}
}
