package repository

import (
	"context"

	"gorm.io/gorm"

	"clinicapi/internal/model"
)

// DoctorRepository defines doctor profile persistence operations.
// FindByID and List only see listed doctors: profiles whose user still
// exists and still holds the Doctor role.
type DoctorRepository interface {
	Create(ctx context.Context, doctor *model.Doctor) error
	Update(ctx context.Context, doctor *model.Doctor) error
	FindByID(ctx context.Context, id uint) (*model.Doctor, error)
	FindByUserID(ctx context.Context, userID uint) (*model.Doctor, error)
	List(ctx context.Context) ([]model.Doctor, error)
}

// listed restricts a doctors query to profiles owned by an active Doctor user.
func listed(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN users ON users.id = doctors.user_id AND users.deleted_at IS NULL AND users.role = ?", model.RoleDoctor)
}

type doctorRepository struct {
	db *gorm.DB
}

// NewDoctorRepository creates a new doctor repository.
func NewDoctorRepository(db *gorm.DB) DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	return r.db.WithContext(ctx).Create(doctor).Error
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	return r.db.WithContext(ctx).Save(doctor).Error
}

func (r *doctorRepository) FindByID(ctx context.Context, id uint) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := r.db.WithContext(ctx).Scopes(listed).First(&doctor, id).Error; err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) FindByUserID(ctx context.Context, userID uint) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&doctor).Error; err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) List(ctx context.Context) ([]model.Doctor, error) {
	var doctors []model.Doctor
	if err := r.db.WithContext(ctx).Scopes(listed).Order("doctors.name ASC").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}
