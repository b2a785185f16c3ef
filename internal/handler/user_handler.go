package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"clinicapi/internal/errors"
	"clinicapi/internal/schedule"
	"clinicapi/internal/service"
)

// UserHandler serves the patient area.
type UserHandler struct {
	users    service.UserService
	bookings service.BookingService
	auth     service.AuthService
	loc      *time.Location
}

// NewUserHandler creates a handler for patient routes. Dates in query strings
// are read in loc.
func NewUserHandler(users service.UserService, bookings service.BookingService, auth service.AuthService, loc *time.Location) *UserHandler {
	if loc == nil {
		loc = time.Local
	}
	return &UserHandler{users: users, bookings: bookings, auth: auth, loc: loc}
}

// BookRequest represents a booking request.
type BookRequest struct {
	DoctorID  uint   `json:"doctor_id" validate:"required"`
	StartTime string `json:"start_time" validate:"required" example:"20/10/2026 09:30"`
	Reason    string `json:"reason" validate:"max=500"`
}

// CancelRequest represents a cancellation request.
type CancelRequest struct {
	AppointmentID uint   `json:"appointment_id" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
}

// UpdateUserProfileRequest represents editable patient fields.
type UpdateUserProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=150"`
	Phone    string `json:"phone_number" validate:"max=50"`
}

// ChangePasswordRequest represents a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// SlotsResponse lists free start times for a doctor on a day.
type SlotsResponse struct {
	DoctorID uint     `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

// Dashboard godoc
// @Summary Patient dashboard
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Dashboard
// @Failure 500 {object} errors.ErrorResponse
// @Router /user/dashboard [get]
func (h *UserHandler) Dashboard(c echo.Context) error {
	dashboard, err := h.users.Dashboard(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, dashboard)
}

// GetProfile godoc
// @Summary Current user profile
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /user/profile [get]
func (h *UserHandler) GetProfile(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	user, err := h.users.Profile(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update current user profile
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateUserProfileRequest true "Profile"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /user/profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req UpdateUserProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.Request().Context(), claims.UserID, req.FullName, req.Phone)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListAppointments godoc
// @Summary List own appointments, newest first
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AppointmentResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /user/appointments [get]
func (h *UserHandler) ListAppointments(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	list, err := h.bookings.ListForPatient(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAppointmentResponses(list))
}

// GetAppointment godoc
// @Summary Get one of own appointments
// @Tags user
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} AppointmentResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /user/appointments/{id} [get]
func (h *UserHandler) GetAppointment(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.bookings.GetForPatient(c.Request().Context(), claims.UserID, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

// AvailableSlots godoc
// @Summary Free slots of a doctor on a day
// @Tags user
// @Produce json
// @Security BearerAuth
// @Param doctorId query int true "Doctor ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} SlotsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /user/available-slots [get]
func (h *UserHandler) AvailableSlots(c echo.Context) error {
	doctorID, err := strconv.ParseUint(c.QueryParam("doctorId"), 10, 64)
	if err != nil || doctorID == 0 {
		return badRequest("invalid doctorId")
	}
	day, err := schedule.ParseDate(c.QueryParam("date"), h.loc)
	if err != nil {
		return respondError(errors.ErrInvalidDate)
	}

	slots, err := h.bookings.AvailableSlots(c.Request().Context(), uint(doctorID), day)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, SlotsResponse{
		DoctorID: uint(doctorID),
		Date:     day.Format(schedule.DateLayout),
		Slots:    slots,
	})
}

// Book godoc
// @Summary Book an appointment
// @Description start_time uses dd/MM/yyyy HH:mm. The confirmation email is sent asynchronously.
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BookRequest true "Booking"
// @Success 201 {object} AppointmentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /user/book [post]
func (h *UserHandler) Book(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	appt, err := h.bookings.Book(c.Request().Context(), claims.UserID, req.DoctorID, req.StartTime, req.Reason)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}

// Cancel godoc
// @Summary Cancel an appointment
// @Description Allowed until 2 hours before the start time.
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CancelRequest true "Cancellation"
// @Success 200 {object} AppointmentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /user/cancel [post]
func (h *UserHandler) Cancel(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req CancelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	appt, err := h.bookings.Cancel(c.Request().Context(), claims.UserID, req.AppointmentID, req.Reason)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

// ChangePassword godoc
// @Summary Change own password
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /user/change-password [post]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	return changePassword(c, h.auth)
}

func changePassword(c echo.Context, authService service.AuthService) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		return badRequest("new password must not be blank")
	}

	if err := authService.ChangePassword(c.Request().Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password changed successfully"})
}
