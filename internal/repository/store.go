package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles repositories that share one database handle.
type Repositories struct {
	Users         UserRepository
	Doctors       DoctorRepository
	Patients      PatientRepository
	Appointments  AppointmentRepository
	RefreshTokens RefreshTokenRepository
}

// Store runs work spanning several repositories inside one transaction.
type Store interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a transaction-capable store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// NewRepositories builds every repository over db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Doctors:       NewDoctorRepository(db),
		Patients:      NewPatientRepository(db),
		Appointments:  NewAppointmentRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
	}
}

// WithTransaction executes fn with repositories bound to a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}
