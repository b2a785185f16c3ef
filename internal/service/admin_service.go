package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"clinicapi/internal/cache"
	apperrors "clinicapi/internal/errors"
	"clinicapi/internal/model"
	"clinicapi/internal/repository"
	"clinicapi/internal/schedule"
)

// CreateDoctorInput is the admin form for a new doctor account.
type CreateDoctorInput struct {
	FullName  string
	Email     string
	Password  string
	Phone     string
	Specialty string
}

// DoctorCount is one row of the per-doctor statistics.
type DoctorCount struct {
	Doctor string `json:"doctor"`
	Count  int    `json:"count"`
}

// DateCount is one row of the per-day statistics.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats aggregates appointments across the clinic.
type Stats struct {
	TotalAppointments     int           `json:"total_appointments"`
	CompletedAppointments int           `json:"completed_appointments"`
	CompletionRate        float64       `json:"completion_rate"`
	AppointmentsByDoctor  []DoctorCount `json:"appointments_by_doctor"`
	AppointmentsByDate    []DateCount   `json:"appointments_by_date"`
}

// AdminService manages accounts and reports on the clinic.
type AdminService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateDoctor(ctx context.Context, in CreateDoctorInput) (*model.Doctor, error)
	ChangeRole(ctx context.Context, userID uint, role string) (*model.User, error)
	DeleteUser(ctx context.Context, actorID, userID uint) error
	Stats(ctx context.Context) (*Stats, error)
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

type adminService struct {
	repos         repository.Repositories
	store         repository.Store
	cache         *cache.Client
	defaultAvatar string
	loc           *time.Location
	log           zerolog.Logger
	onDirectory   func(ctx context.Context)
}

// AdminServiceOption customizes an AdminService.
type AdminServiceOption func(*adminService)

// WithAdminLocation sets the time zone statistics are grouped by day in.
func WithAdminLocation(loc *time.Location) AdminServiceOption {
	return func(s *adminService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithDirectoryChangeHook registers a callback run whenever the set of listed
// doctors may have changed, after the cached directory is dropped.
func WithDirectoryChangeHook(fn func(ctx context.Context)) AdminServiceOption {
	return func(s *adminService) {
		if fn != nil {
			s.onDirectory = fn
		}
	}
}

// NewAdminService creates an admin service. New doctor profiles get defaultAvatar.
func NewAdminService(repos repository.Repositories, store repository.Store, cache *cache.Client, defaultAvatar string, log zerolog.Logger, opts ...AdminServiceOption) AdminService {
	s := &adminService{
		repos:         repos,
		store:         store,
		cache:         cache,
		defaultAvatar: defaultAvatar,
		loc:           time.Local,
		log:           log,
		onDirectory:   func(context.Context) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *adminService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repos.Users.List(ctx)
}

// CreateDoctor creates the user account and its doctor profile atomically.
func (s *adminService) CreateDoctor(ctx context.Context, in CreateDoctorInput) (*model.Doctor, error) {
	email := strings.TrimSpace(in.Email)
	taken, err := s.repos.Users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if taken {
		return nil, apperrors.ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var doctor *model.Doctor
	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user := &model.User{
			FullName:     in.FullName,
			Email:        email,
			PhoneNumber:  in.Phone,
			PasswordHash: string(hashed),
			Role:         model.RoleDoctor,
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			if isDuplicate(err) {
				return apperrors.ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		doctor = &model.Doctor{
			UserID:     user.ID,
			Name:       in.FullName,
			Email:      email,
			Phone:      in.Phone,
			Specialty:  in.Specialty,
			AvatarPath: s.defaultAvatar,
		}
		if err := repos.Doctors.Create(ctx, doctor); err != nil {
			return fmt.Errorf("create doctor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDirectory(ctx)
	s.log.Info().Uint("doctor_id", doctor.ID).Str("email", email).Msg("doctor account created")
	return doctor, nil
}

// ChangeRole assigns a validated role. Promotion to Doctor creates the
// doctor profile if the user has none.
func (s *adminService) ChangeRole(ctx context.Context, userID uint, role string) (*model.User, error) {
	parsed, err := model.ParseRole(role)
	if err != nil {
		return nil, apperrors.ErrInvalidRole
	}

	var user *model.User
	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		found, err := repos.Users.FindByID(ctx, userID)
		if err != nil {
			return notFound(err, apperrors.ErrUserNotFound)
		}
		user = found
		user.Role = parsed
		if err := repos.Users.Update(ctx, user); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		if parsed != model.RoleDoctor {
			return nil
		}

		_, err = repos.Doctors.FindByUserID(ctx, user.ID)
		if err == nil {
			return nil
		}
		if !isNotFound(err) {
			return fmt.Errorf("find doctor: %w", err)
		}
		doctor := &model.Doctor{
			UserID:     user.ID,
			Name:       placeholder(user.FullName, model.PlaceholderAddress),
			Email:      user.Email,
			Phone:      placeholder(user.PhoneNumber, model.PlaceholderPhone),
			Specialty:  model.PlaceholderAddress,
			AvatarPath: s.defaultAvatar,
		}
		if err := repos.Doctors.Create(ctx, doctor); err != nil {
			return fmt.Errorf("create doctor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDirectory(ctx)
	return user, nil
}

// DeleteUser soft-deletes an account and revokes its refresh tokens. A
// deleted doctor drops out of the directory and can no longer be booked.
func (s *adminService) DeleteUser(ctx context.Context, actorID, userID uint) error {
	if actorID == userID {
		return apperrors.ErrSelfDelete
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.FindByID(ctx, userID); err != nil {
			return notFound(err, apperrors.ErrUserNotFound)
		}
		if err := repos.RefreshTokens.RevokeAllForUser(ctx, userID); err != nil {
			return fmt.Errorf("revoke tokens: %w", err)
		}
		if err := repos.Users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateDirectory(ctx)
	return nil
}

// Stats loads every appointment and groups them in memory.
func (s *adminService) Stats(ctx context.Context) (*Stats, error) {
	appointments, err := s.repos.Appointments.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	stats := &Stats{
		TotalAppointments:    len(appointments),
		AppointmentsByDoctor: []DoctorCount{},
		AppointmentsByDate:   []DateCount{},
	}
	byDoctor := map[string]int{}
	byDate := map[string]int{}
	for _, a := range appointments {
		if a.Completed {
			stats.CompletedAppointments++
		}
		name := "Unknown"
		if a.Doctor != nil {
			name = a.Doctor.Name
		}
		byDoctor[name]++
		byDate[a.StartTime.In(s.loc).Format(schedule.DateLayout)]++
	}

	if stats.TotalAppointments > 0 {
		stats.CompletionRate = decimal.NewFromInt(int64(stats.CompletedAppointments)).
			Div(decimal.NewFromInt(int64(stats.TotalAppointments))).
			Mul(decimal.NewFromInt(100)).
			Round(1).
			InexactFloat64()
	}

	for name, n := range byDoctor {
		stats.AppointmentsByDoctor = append(stats.AppointmentsByDoctor, DoctorCount{Doctor: name, Count: n})
	}
	sort.Slice(stats.AppointmentsByDoctor, func(i, j int) bool {
		a, b := stats.AppointmentsByDoctor[i], stats.AppointmentsByDoctor[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Doctor < b.Doctor
	})

	for date, n := range byDate {
		stats.AppointmentsByDate = append(stats.AppointmentsByDate, DateCount{Date: date, Count: n})
	}
	sort.Slice(stats.AppointmentsByDate, func(i, j int) bool {
		return stats.AppointmentsByDate[i].Date < stats.AppointmentsByDate[j].Date
	})

	return stats, nil
}

// EnsureAdmin creates the bootstrap admin account if the email is unused.
// An email held by a soft-deleted account counts as used; the admin is then
// left for an operator to restore.
func (s *adminService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	taken, err := s.repos.Users.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("find admin: %w", err)
	}
	if taken {
		return false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.User{
		FullName:     "Administrator",
		Email:        email,
		PasswordHash: string(hashed),
		Role:         model.RoleAdmin,
	}
	if err := s.repos.Users.Create(ctx, admin); err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func (s *adminService) invalidateDirectory(ctx context.Context) {
	_ = s.cache.Delete(ctx, DoctorDirectoryKey)
	s.onDirectory(ctx)
}

func placeholder(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
