package model

import (
	"fmt"
	"time"
)

// AppointmentStatus is derived from the canceled and completed flags.
type AppointmentStatus string

const (
	StatusUpcoming  AppointmentStatus = "Upcoming"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCanceled  AppointmentStatus = "Canceled"
)

// DefaultCancelReason is stored when a patient cancels without a reason.
const DefaultCancelReason = "No reason"

// Appointment is a booked visit of a patient with a doctor.
type Appointment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PatientID    uint      `json:"patient_id" gorm:"not null;index"`
	DoctorID     uint      `json:"doctor_id" gorm:"not null;index:idx_doctor_start"`
	StartTime    time.Time `json:"start_time" gorm:"not null;index:idx_doctor_start"`
	Reason       string    `json:"reason" gorm:"size:500"`
	Completed    bool      `json:"completed" gorm:"default:false;index"`
	Canceled     bool      `json:"canceled" gorm:"default:false;index"`
	CancelReason string    `json:"cancel_reason,omitempty" gorm:"size:500"`
	Diagnosis    string    `json:"diagnosis,omitempty" gorm:"size:500"`
	Notes        string    `json:"notes,omitempty" gorm:"size:1000"`
	// SlotKey is set while the appointment is active and cleared on cancel,
	// so the unique index only covers non-canceled rows.
	SlotKey   *string   `json:"-" gorm:"size:64;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Patient *Patient `json:"patient,omitempty" gorm:"foreignKey:PatientID"`
	Doctor  *Doctor  `json:"doctor,omitempty" gorm:"foreignKey:DoctorID"`
}

// Status derives the lifecycle state. Canceled wins over Completed.
func (a *Appointment) Status() AppointmentStatus {
	switch {
	case a.Canceled:
		return StatusCanceled
	case a.Completed:
		return StatusCompleted
	default:
		return StatusUpcoming
	}
}

// Closed reports whether the appointment reached a terminal state.
func (a *Appointment) Closed() bool {
	return a.Canceled || a.Completed
}

// SlotKeyFor builds the uniqueness key of an active appointment.
func SlotKeyFor(doctorID uint, start time.Time) *string {
	key := fmt.Sprintf("%d@%d", doctorID, start.Truncate(time.Minute).Unix())
	return &key
}
