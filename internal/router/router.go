package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"clinicapi/internal/auth"
	"clinicapi/internal/handler"
	"clinicapi/internal/middleware"
	"clinicapi/internal/model"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Doctor *handler.DoctorHandler
	Admin  *handler.AdminHandler
}

// MaxAvatarBody caps the request size of an avatar upload.
const MaxAvatarBody = "5M"

// Deps are the collaborators the middleware chain needs.
type Deps struct {
	JWT        *auth.JWTService
	TokenStore auth.TokenStoreInterface
	Logger     zerolog.Logger
	// UploadDir is served read-only under UploadURL when both are set.
	UploadDir string
	UploadURL string
}

// Register wires routes and middleware.
func Register(e *echo.Echo, deps Deps, h Handlers) {
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(deps.Logger))
	e.Use(middleware.Recovery(deps.Logger))

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if deps.UploadDir != "" && deps.UploadURL != "" {
		e.Static(deps.UploadURL, deps.UploadDir)
	}

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Secured routes (require a valid, non-revoked access token)
	secured := api.Group("", middleware.JWT(deps.JWT), middleware.RejectRevoked(deps.TokenStore))
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/verify", h.Auth.Verify)

	user := secured.Group("/user", middleware.RequireRole(model.RoleUser))
	user.GET("/dashboard", h.User.Dashboard)
	user.GET("/profile", h.User.GetProfile)
	user.PUT("/profile", h.User.UpdateProfile)
	user.GET("/appointments", h.User.ListAppointments)
	user.GET("/appointments/:id", h.User.GetAppointment)
	user.GET("/available-slots", h.User.AvailableSlots)
	user.POST("/book", h.User.Book)
	user.POST("/cancel", h.User.Cancel)
	user.POST("/change-password", h.User.ChangePassword)

	doctor := secured.Group("/doctor", middleware.RequireRole(model.RoleDoctor))
	doctor.GET("/appointments", h.Doctor.Appointments)
	doctor.GET("/week", h.Doctor.Week)
	doctor.GET("/appointment/:id", h.Doctor.Appointment)
	doctor.POST("/diagnosis", h.Doctor.SubmitDiagnosis)
	doctor.GET("/history", h.Doctor.History)
	doctor.GET("/profile", h.Doctor.GetProfile)
	doctor.PUT("/profile", h.Doctor.UpdateProfile)
	doctor.POST("/upload-avatar", h.Doctor.UploadAvatar, echomw.BodyLimit(MaxAvatarBody))
	doctor.POST("/change-password", h.Doctor.ChangePassword)

	admin := secured.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", h.Admin.ListUsers)
	admin.POST("/create-doctor", h.Admin.CreateDoctor)
	admin.PUT("/change-role", h.Admin.ChangeRole)
	admin.DELETE("/user/:id", h.Admin.DeleteUser)
	admin.GET("/stats", h.Admin.Stats)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
