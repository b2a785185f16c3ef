package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"clinicapi/internal/auth"
	"clinicapi/internal/errors"
	"clinicapi/internal/middleware"
	"clinicapi/internal/model"
)

// MessageResponse is the body of operations that return no data.
type MessageResponse struct {
	Message string `json:"message"`
}

// AppointmentResponse is the public view of an appointment.
type AppointmentResponse struct {
	ID           uint                    `json:"id"`
	DoctorID     uint                    `json:"doctor_id"`
	DoctorName   string                  `json:"doctor_name"`
	Specialty    string                  `json:"specialty"`
	DoctorAvatar string                  `json:"doctor_avatar"`
	PatientID    uint                    `json:"patient_id"`
	PatientName  string                  `json:"patient_name,omitempty"`
	PatientEmail string                  `json:"patient_email,omitempty"`
	PatientPhone string                  `json:"patient_phone,omitempty"`
	StartTime    time.Time               `json:"start_time"`
	Reason       string                  `json:"reason"`
	Status       model.AppointmentStatus `json:"status"`
	CancelReason string                  `json:"cancel_reason,omitempty"`
	Diagnosis    string                  `json:"diagnosis,omitempty"`
	Notes        string                  `json:"notes,omitempty"`
}

func toAppointmentResponse(a *model.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:           a.ID,
		DoctorID:     a.DoctorID,
		PatientID:    a.PatientID,
		StartTime:    a.StartTime,
		Reason:       a.Reason,
		Status:       a.Status(),
		CancelReason: a.CancelReason,
		Diagnosis:    a.Diagnosis,
		Notes:        a.Notes,
	}
	if a.Doctor != nil {
		resp.DoctorName = a.Doctor.Name
		resp.Specialty = a.Doctor.Specialty
		resp.DoctorAvatar = a.Doctor.AvatarPath
	}
	if a.Patient != nil {
		resp.PatientName = a.Patient.Name
		resp.PatientEmail = a.Patient.Email
		resp.PatientPhone = a.Patient.PhoneNumber
	}
	return resp
}

func toAppointmentResponses(list []model.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAppointmentResponse(&list[i]))
	}
	return out
}

// respondError converts a service error into the standard error body.
func respondError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  "INVALID_REQUEST",
	})
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

func currentClaims(c echo.Context) (*auth.Claims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "missing or invalid access token",
			Code:  "UNAUTHORIZED",
		})
	}
	return claims, nil
}

func pathID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid " + name)
	}
	return uint(id), nil
}
