package errors

import (
	"errors"
	"net/http"
)

// Validation errors.
var (
	// ErrInvalidStartTime is returned when a booking time is not dd/MM/yyyy HH:mm.
	ErrInvalidStartTime = errors.New("invalid start time, expected format dd/MM/yyyy HH:mm")
	// ErrInvalidDate is returned when a calendar date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected format YYYY-MM-DD")
	// ErrInvalidRole is returned when a role is not Admin, Doctor or User.
	ErrInvalidRole = errors.New("invalid role")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already exists")
	// ErrPasswordChangeFailed is returned when the current password does not match.
	ErrPasswordChangeFailed = errors.New("password change failed")
	// ErrEmptyAvatar is returned when an avatar upload carries no data.
	ErrEmptyAvatar = errors.New("avatar file is required")
	// ErrUnsupportedAvatar is returned when an avatar is not a jpg, png, gif or webp file.
	ErrUnsupportedAvatar = errors.New("avatar must be a .jpg, .jpeg, .png, .gif or .webp image")
)

// Authentication errors.
var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRefreshToken is returned when refresh token is unknown, revoked or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrTokenRevoked is returned when an access token was logged out.
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Authorization errors.
var (
	// ErrNotOwner is returned when the caller does not own the resource.
	ErrNotOwner = errors.New("resource belongs to another user")
	// ErrRoleForbidden is returned when the caller's role may not use the route.
	ErrRoleForbidden = errors.New("role is not allowed")
	// ErrSelfDelete is returned when an admin tries to delete their own account.
	ErrSelfDelete = errors.New("cannot delete the current user")
)

// Not-found errors.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient profile not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Booking conflict and policy errors.
var (
	// ErrSlotTaken is returned when the doctor already has an appointment at that time.
	ErrSlotTaken = errors.New("time slot is already booked")
	// ErrCancellationWindow is returned when cancelling less than two hours ahead.
	ErrCancellationWindow = errors.New("appointments cannot be canceled less than 2 hours before start")
	// ErrAppointmentClosed is returned when an appointment is already canceled or completed.
	ErrAppointmentClosed = errors.New("appointment is already closed")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

type mapping struct {
	err    error
	status int
	code   string
}

var mappings = []mapping{
	{ErrInvalidStartTime, http.StatusBadRequest, "INVALID_START_TIME"},
	{ErrInvalidDate, http.StatusBadRequest, "INVALID_DATE"},
	{ErrInvalidRole, http.StatusBadRequest, "INVALID_ROLE"},
	{ErrEmailTaken, http.StatusBadRequest, "EMAIL_EXISTS"},
	{ErrPasswordChangeFailed, http.StatusBadRequest, "PASSWORD_CHANGE_FAILED"},
	{ErrEmptyAvatar, http.StatusBadRequest, "EMPTY_AVATAR"},
	{ErrUnsupportedAvatar, http.StatusBadRequest, "UNSUPPORTED_AVATAR"},

	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	{ErrTokenRevoked, http.StatusUnauthorized, "TOKEN_REVOKED"},

	{ErrNotOwner, http.StatusForbidden, "NOT_OWNER"},
	{ErrRoleForbidden, http.StatusForbidden, "ROLE_FORBIDDEN"},
	{ErrSelfDelete, http.StatusForbidden, "SELF_DELETE"},

	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrDoctorNotFound, http.StatusNotFound, "DOCTOR_NOT_FOUND"},
	{ErrPatientNotFound, http.StatusNotFound, "PATIENT_NOT_FOUND"},
	{ErrAppointmentNotFound, http.StatusNotFound, "APPOINTMENT_NOT_FOUND"},

	{ErrSlotTaken, http.StatusBadRequest, "SLOT_TAKEN"},
	{ErrCancellationWindow, http.StatusBadRequest, "CANCELLATION_WINDOW"},
	{ErrAppointmentClosed, http.StatusBadRequest, "APPOINTMENT_CLOSED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
