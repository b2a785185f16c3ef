package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinicapi/internal/cache"
	apperrors "clinicapi/internal/errors"
	"clinicapi/internal/model"
	"clinicapi/internal/repository"
)

const (
	// DoctorDirectoryKey caches the doctor list shown on the dashboard.
	DoctorDirectoryKey = "doctors:directory"
	directoryCacheTTL  = 5 * time.Minute
)

// Facility is a static showcase entry on the patient dashboard.
type Facility struct {
	Image string `json:"image"`
	Title string `json:"title"`
}

// Facilities are shown to every patient.
var Facilities = []Facility{
	{Image: "/images/facility1.jpg", Title: "Modern examination rooms"},
	{Image: "/images/facility2.jpg", Title: "Advanced medical equipment"},
	{Image: "/images/facility3.jpg", Title: "Comfortable waiting area"},
}

// Dashboard is the patient landing page.
type Dashboard struct {
	Doctors    []model.Doctor `json:"doctors"`
	Facilities []Facility     `json:"facilities"`
}

// UserService exposes the patient's own account.
type UserService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	Profile(ctx context.Context, userID uint) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, fullName, phone string) (*model.User, error)
}

type userService struct {
	users    repository.UserRepository
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	cache    *cache.Client
}

// NewUserService builds a UserService with repositories and cache.
func NewUserService(repos repository.Repositories, cache *cache.Client) UserService {
	return &userService{
		users:    repos.Users,
		doctors:  repos.Doctors,
		patients: repos.Patients,
		cache:    cache,
	}
}

func (s *userService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var doctors []model.Doctor
	if !s.cache.GetJSON(ctx, DoctorDirectoryKey, &doctors) {
		var err error
		doctors, err = s.doctors.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list doctors: %w", err)
		}
		s.cache.SetJSON(ctx, DoctorDirectoryKey, doctors, directoryCacheTTL)
	}
	if doctors == nil {
		doctors = []model.Doctor{}
	}
	return &Dashboard{Doctors: doctors, Facilities: Facilities}, nil
}

func (s *userService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	return user, nil
}

// UpdateProfile changes name and phone, mirroring them onto the patient
// profile when one exists.
func (s *userService) UpdateProfile(ctx context.Context, userID uint, fullName, phone string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	if name := strings.TrimSpace(fullName); name != "" {
		user.FullName = name
	}
	user.PhoneNumber = phone
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	patient, err := s.patients.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		patient.Name = user.FullName
		if phone != "" {
			patient.PhoneNumber = phone
		}
		if err := s.patients.Update(ctx, patient); err != nil {
			return nil, fmt.Errorf("update patient: %w", err)
		}
	case !isNotFound(err):
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return user, nil
}
