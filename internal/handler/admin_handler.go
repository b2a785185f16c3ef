package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"clinicapi/internal/service"
)

// AdminHandler serves account management and reporting.
type AdminHandler struct {
	admin service.AdminService
}

// NewAdminHandler creates a handler for admin routes.
func NewAdminHandler(admin service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// CreateDoctorRequest represents a new doctor account.
type CreateDoctorRequest struct {
	FullName  string `json:"full_name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Phone     string `json:"phone" validate:"max=50"`
	Specialty string `json:"specialty" validate:"required,max=100"`
}

// ChangeRoleRequest represents a role assignment.
type ChangeRoleRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required" enums:"Admin,Doctor,User"`
}

// ListUsers godoc
// @Summary List all users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.admin.ListUsers(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// CreateDoctor godoc
// @Summary Create a doctor account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateDoctorRequest true "Doctor"
// @Success 201 {object} model.Doctor
// @Failure 400 {object} errors.ErrorResponse
// @Router /admin/create-doctor [post]
func (h *AdminHandler) CreateDoctor(c echo.Context) error {
	var req CreateDoctorRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	doctor, err := h.admin.CreateDoctor(c.Request().Context(), service.CreateDoctorInput{
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Specialty: req.Specialty,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, doctor)
}

// ChangeRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangeRoleRequest true "Role"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/change-role [put]
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	var req ChangeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.admin.ChangeRole(c.Request().Context(), req.UserID, req.Role)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/user/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.admin.DeleteUser(c.Request().Context(), claims.UserID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}

// Stats godoc
// @Summary Appointment statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Stats
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.admin.Stats(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
