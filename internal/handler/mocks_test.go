package handler

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"clinicapi/internal/auth"
	"clinicapi/internal/model"
	"clinicapi/internal/service"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	args := m.Called(ctx, email, password, fullName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string, access *auth.Claims) error {
	return m.Called(ctx, refreshToken, access).Error(0)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

type mockBookingService struct{ mock.Mock }

func (m *mockBookingService) AvailableSlots(ctx context.Context, doctorID uint, day time.Time) ([]string, error) {
	args := m.Called(ctx, doctorID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockBookingService) Book(ctx context.Context, userID, doctorID uint, startTime, reason string) (*model.Appointment, error) {
	args := m.Called(ctx, userID, doctorID, startTime, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *mockBookingService) Cancel(ctx context.Context, userID, appointmentID uint, reason string) (*model.Appointment, error) {
	args := m.Called(ctx, userID, appointmentID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *mockBookingService) ListForPatient(ctx context.Context, userID uint) ([]model.Appointment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *mockBookingService) GetForPatient(ctx context.Context, userID, appointmentID uint) (*model.Appointment, error) {
	args := m.Called(ctx, userID, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

type mockUserService struct{ mock.Mock }

func (m *mockUserService) Dashboard(ctx context.Context) (*service.Dashboard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Dashboard), args.Error(1)
}

func (m *mockUserService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID uint, fullName, phone string) (*model.User, error) {
	args := m.Called(ctx, userID, fullName, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockDoctorService struct{ mock.Mock }

func (m *mockDoctorService) Appointments(ctx context.Context, userID uint, day time.Time) (*service.Schedule, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Schedule), args.Error(1)
}

func (m *mockDoctorService) Week(ctx context.Context, userID uint) (*service.Schedule, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Schedule), args.Error(1)
}

func (m *mockDoctorService) Appointment(ctx context.Context, appointmentID uint) (*model.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *mockDoctorService) History(ctx context.Context, userID uint) ([]model.Appointment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *mockDoctorService) SubmitDiagnosis(ctx context.Context, userID, appointmentID uint, diagnosis, notes string) (*model.Appointment, error) {
	args := m.Called(ctx, userID, appointmentID, diagnosis, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *mockDoctorService) Profile(ctx context.Context, userID uint) (*model.Doctor, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Doctor), args.Error(1)
}

func (m *mockDoctorService) UpdateProfile(ctx context.Context, userID uint, in service.DoctorProfileInput) (*model.Doctor, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Doctor), args.Error(1)
}

func (m *mockDoctorService) UploadAvatar(ctx context.Context, userID uint, filename string, size int64, content io.Reader) (string, error) {
	args := m.Called(ctx, userID, filename, size, content)
	return args.String(0), args.Error(1)
}

type mockAdminService struct{ mock.Mock }

func (m *mockAdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *mockAdminService) CreateDoctor(ctx context.Context, in service.CreateDoctorInput) (*model.Doctor, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Doctor), args.Error(1)
}

func (m *mockAdminService) ChangeRole(ctx context.Context, userID uint, role string) (*model.User, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAdminService) DeleteUser(ctx context.Context, actorID, userID uint) error {
	return m.Called(ctx, actorID, userID).Error(0)
}

func (m *mockAdminService) Stats(ctx context.Context) (*service.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Stats), args.Error(1)
}

func (m *mockAdminService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	args := m.Called(ctx, email, password)
	return args.Bool(0), args.Error(1)
}
