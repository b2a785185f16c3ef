package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"clinicapi/internal/errors"
	"clinicapi/internal/schedule"
	"clinicapi/internal/service"
)

// DoctorHandler serves the doctor area.
type DoctorHandler struct {
	doctors service.DoctorService
	auth    service.AuthService
	loc     *time.Location
}

// NewDoctorHandler creates a handler for doctor routes.
func NewDoctorHandler(doctors service.DoctorService, auth service.AuthService, loc *time.Location) *DoctorHandler {
	if loc == nil {
		loc = time.Local
	}
	return &DoctorHandler{doctors: doctors, auth: auth, loc: loc}
}

// DiagnosisRequest represents a diagnosis submission.
type DiagnosisRequest struct {
	AppointmentID uint   `json:"appointment_id" validate:"required"`
	Diagnosis     string `json:"diagnosis" validate:"required,max=500"`
	Notes         string `json:"notes" validate:"max=1000"`
}

// UpdateDoctorProfileRequest represents editable doctor fields.
type UpdateDoctorProfileRequest struct {
	Name      string `json:"name" validate:"max=120"`
	Phone     string `json:"phone" validate:"max=50"`
	Specialty string `json:"specialty" validate:"max=100"`
}

// DayScheduleResponse is the doctor's agenda for one day.
type DayScheduleResponse struct {
	Date string                `json:"date"`
	Data []AppointmentResponse `json:"data"`
}

// WeekScheduleResponse is the doctor's agenda for the current week.
type WeekScheduleResponse struct {
	Start string                `json:"start"`
	End   string                `json:"end"`
	Data  []AppointmentResponse `json:"data"`
}

// AvatarResponse carries the public URL of an uploaded avatar.
type AvatarResponse struct {
	AvatarPath string `json:"avatar_path"`
}

// Appointments godoc
// @Summary Appointments of the current doctor on a day
// @Tags doctor
// @Produce json
// @Security BearerAuth
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} DayScheduleResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctor/appointments [get]
func (h *DoctorHandler) Appointments(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var day time.Time
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		day, err = schedule.ParseDate(raw, h.loc)
		if err != nil {
			return respondError(errors.ErrInvalidDate)
		}
	}

	agenda, err := h.doctors.Appointments(c.Request().Context(), claims.UserID, day)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, DayScheduleResponse{
		Date: agenda.Start.Format(schedule.DateLayout),
		Data: toAppointmentResponses(agenda.Appointments),
	})
}

// Week godoc
// @Summary Appointments of the current doctor this week
// @Description The week starts on Monday.
// @Tags doctor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} WeekScheduleResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctor/week [get]
func (h *DoctorHandler) Week(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	agenda, err := h.doctors.Week(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, WeekScheduleResponse{
		Start: agenda.Start.Format(schedule.DateLayout),
		End:   agenda.End.Format(schedule.DateLayout),
		Data:  toAppointmentResponses(agenda.Appointments),
	})
}

// Appointment godoc
// @Summary Appointment detail
// @Tags doctor
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} AppointmentResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctor/appointment/{id} [get]
func (h *DoctorHandler) Appointment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.doctors.Appointment(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

// History godoc
// @Summary Completed appointments of the current doctor
// @Tags doctor
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AppointmentResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctor/history [get]
func (h *DoctorHandler) History(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	list, err := h.doctors.History(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAppointmentResponses(list))
}

// SubmitDiagnosis godoc
// @Summary Record a diagnosis and complete the appointment
// @Tags doctor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DiagnosisRequest true "Diagnosis"
// @Success 200 {object} AppointmentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctor/diagnosis [post]
func (h *DoctorHandler) SubmitDiagnosis(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req DiagnosisRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	appt, err := h.doctors.SubmitDiagnosis(c.Request().Context(), claims.UserID, req.AppointmentID, req.Diagnosis, req.Notes)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

// GetProfile godoc
// @Summary Current doctor profile
// @Tags doctor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Doctor
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctor/profile [get]
func (h *DoctorHandler) GetProfile(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	doctor, err := h.doctors.Profile(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, doctor)
}

// UpdateProfile godoc
// @Summary Update current doctor profile
// @Tags doctor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateDoctorProfileRequest true "Profile"
// @Success 200 {object} model.Doctor
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctor/profile [put]
func (h *DoctorHandler) UpdateProfile(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req UpdateDoctorProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	doctor, err := h.doctors.UpdateProfile(c.Request().Context(), claims.UserID, service.DoctorProfileInput{
		Name:      req.Name,
		Phone:     req.Phone,
		Specialty: req.Specialty,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, doctor)
}

// UploadAvatar godoc
// @Summary Upload the doctor's avatar
// @Tags doctor
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image"
// @Success 200 {object} AvatarResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctor/upload-avatar [post]
func (h *DoctorHandler) UploadAvatar(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		return respondError(errors.ErrEmptyAvatar)
	}
	src, err := file.Open()
	if err != nil {
		return badRequest("cannot read avatar")
	}
	defer src.Close()

	url, err := h.doctors.UploadAvatar(c.Request().Context(), claims.UserID, file.Filename, file.Size, src)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, AvatarResponse{AvatarPath: url})
}

// ChangePassword godoc
// @Summary Change own password
// @Tags doctor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /doctor/change-password [post]
func (h *DoctorHandler) ChangePassword(c echo.Context) error {
	return changePassword(c, h.auth)
}
