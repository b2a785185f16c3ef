package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinicapi/internal/model"
)

// AppointmentRepository defines appointment persistence operations.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Update(ctx context.Context, appointment *model.Appointment) error
	FindByID(ctx context.Context, id uint) (*model.Appointment, error)
	// LockActiveByDoctorBetween returns non-canceled appointments of the
	// doctor starting strictly between after and before, locking the rows.
	LockActiveByDoctorBetween(ctx context.Context, doctorID uint, after, before time.Time) ([]model.Appointment, error)
	// ListActiveByDoctor returns non-canceled appointments starting in [from, to).
	ListActiveByDoctor(ctx context.Context, doctorID uint, from, to time.Time) ([]model.Appointment, error)
	ListCompletedByDoctor(ctx context.Context, doctorID uint) ([]model.Appointment, error)
	ListByPatient(ctx context.Context, patientID uint) ([]model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(appointment).Error
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uint) (*model.Appointment, error) {
	var appointment model.Appointment
	if err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		First(&appointment, id).Error; err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) LockActiveByDoctorBetween(ctx context.Context, doctorID uint, after, before time.Time) ([]model.Appointment, error) {
	var appointments []model.Appointment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("doctor_id = ? AND canceled = ?", doctorID, false).
		Where("start_time > ? AND start_time < ?", after, before).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) ListActiveByDoctor(ctx context.Context, doctorID uint, from, to time.Time) ([]model.Appointment, error) {
	var appointments []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ? AND canceled = ?", doctorID, false).
		Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) ListCompletedByDoctor(ctx context.Context, doctorID uint) ([]model.Appointment, error) {
	var appointments []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ? AND completed = ?", doctorID, true).
		Order("start_time DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uint) ([]model.Appointment, error) {
	var appointments []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("start_time DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) ListAll(ctx context.Context) ([]model.Appointment, error) {
	var appointments []model.Appointment
	if err := r.db.WithContext(ctx).Preload("Doctor").Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}
