package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "clinicapi/internal/errors"
	"clinicapi/internal/model"
	"clinicapi/internal/notify"
	"clinicapi/internal/repository"
	"clinicapi/internal/schedule"
	"clinicapi/internal/storage"
)

// DoctorProfileInput carries editable doctor fields.
type DoctorProfileInput struct {
	Name      string
	Phone     string
	Specialty string
}

// Schedule is a doctor's agenda over [Start, End).
type Schedule struct {
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	Appointments []model.Appointment `json:"appointments"`
}

// DoctorService is the doctor's view of their schedule and patients.
type DoctorService interface {
	Appointments(ctx context.Context, userID uint, day time.Time) (*Schedule, error)
	Week(ctx context.Context, userID uint) (*Schedule, error)
	Appointment(ctx context.Context, appointmentID uint) (*model.Appointment, error)
	History(ctx context.Context, userID uint) ([]model.Appointment, error)
	SubmitDiagnosis(ctx context.Context, userID, appointmentID uint, diagnosis, notes string) (*model.Appointment, error)
	Profile(ctx context.Context, userID uint) (*model.Doctor, error)
	UpdateProfile(ctx context.Context, userID uint, in DoctorProfileInput) (*model.Doctor, error)
	UploadAvatar(ctx context.Context, userID uint, filename string, size int64, content io.Reader) (string, error)
}

type doctorService struct {
	repos      repository.Repositories
	files      storage.FileStore
	dispatcher notify.Dispatcher
	loc        *time.Location
	now        Clock
	log        zerolog.Logger
	onChange   func(ctx context.Context)
}

// DoctorServiceOption customizes a DoctorService.
type DoctorServiceOption func(*doctorService)

// WithDoctorClock overrides the time source used for "today" and "this week".
func WithDoctorClock(now Clock) DoctorServiceOption {
	return func(s *doctorService) { s.now = now.orDefault() }
}

// WithDoctorLocation sets the clinic time zone.
func WithDoctorLocation(loc *time.Location) DoctorServiceOption {
	return func(s *doctorService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithProfileChangeHook registers a callback run after a profile or avatar
// change, used to invalidate the doctor directory cache.
func WithProfileChangeHook(fn func(ctx context.Context)) DoctorServiceOption {
	return func(s *doctorService) { s.onChange = fn }
}

// NewDoctorService creates a doctor service.
func NewDoctorService(repos repository.Repositories, files storage.FileStore, dispatcher notify.Dispatcher, log zerolog.Logger, opts ...DoctorServiceOption) DoctorService {
	if dispatcher == nil {
		dispatcher = nopDispatcher{}
	}
	s := &doctorService{
		repos:      repos,
		files:      files,
		dispatcher: dispatcher,
		loc:        time.Local,
		now:        time.Now,
		log:        log,
		onChange:   func(context.Context) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *doctorService) doctor(ctx context.Context, userID uint) (*model.Doctor, error) {
	doctor, err := s.repos.Doctors.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrDoctorNotFound)
	}
	return doctor, nil
}

// Appointments lists the doctor's non-canceled appointments on day; a zero
// day means today.
func (s *doctorService) Appointments(ctx context.Context, userID uint, day time.Time) (*Schedule, error) {
	if day.IsZero() {
		day = s.now()
	}
	from, to := schedule.DayBounds(day.In(s.loc))
	return s.agenda(ctx, userID, from, to)
}

// Week lists the non-canceled appointments of the current Monday-based week.
func (s *doctorService) Week(ctx context.Context, userID uint) (*Schedule, error) {
	from, to := schedule.WeekBounds(s.now().In(s.loc))
	return s.agenda(ctx, userID, from, to)
}

func (s *doctorService) agenda(ctx context.Context, userID uint, from, to time.Time) (*Schedule, error) {
	doctor, err := s.doctor(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Appointments.ListActiveByDoctor(ctx, doctor.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return &Schedule{Start: from, End: to, Appointments: list}, nil
}

func (s *doctorService) Appointment(ctx context.Context, appointmentID uint) (*model.Appointment, error) {
	appointment, err := s.repos.Appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrAppointmentNotFound)
	}
	return appointment, nil
}

func (s *doctorService) History(ctx context.Context, userID uint) ([]model.Appointment, error) {
	doctor, err := s.doctor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repos.Appointments.ListCompletedByDoctor(ctx, doctor.ID)
}

// SubmitDiagnosis records the outcome and marks the appointment completed.
// Submitting again overwrites the previous diagnosis.
func (s *doctorService) SubmitDiagnosis(ctx context.Context, userID, appointmentID uint, diagnosis, notes string) (*model.Appointment, error) {
	doctor, err := s.doctor(ctx, userID)
	if err != nil {
		return nil, err
	}
	appointment, err := s.repos.Appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrAppointmentNotFound)
	}
	if appointment.DoctorID != doctor.ID {
		return nil, apperrors.ErrNotOwner
	}
	if appointment.Canceled {
		return nil, apperrors.ErrAppointmentClosed
	}

	appointment.Diagnosis = diagnosis
	appointment.Notes = notes
	appointment.Completed = true
	if err := s.repos.Appointments.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("save diagnosis: %w", err)
	}

	if appointment.Patient != nil && appointment.Patient.Email != "" {
		event := notify.Event{
			Kind: notify.KindDiagnosisReady,
			To:   appointment.Patient.Email,
			Data: map[string]string{
				notify.FieldName:      appointment.Patient.Name,
				notify.FieldDoctor:    doctor.Name,
				notify.FieldDiagnosis: diagnosis,
				notify.FieldNotes:     notes,
				notify.FieldTime:      appointment.StartTime.In(s.loc).Format(schedule.StartTimeLayout),
			},
		}
		if err := s.dispatcher.Dispatch(ctx, event); err != nil {
			s.log.Warn().Err(err).Uint("appointment_id", appointment.ID).Msg("diagnosis notification not queued")
		}
	}
	return appointment, nil
}

func (s *doctorService) Profile(ctx context.Context, userID uint) (*model.Doctor, error) {
	return s.doctor(ctx, userID)
}

func (s *doctorService) UpdateProfile(ctx context.Context, userID uint, in DoctorProfileInput) (*model.Doctor, error) {
	doctor, err := s.doctor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		doctor.Name = name
	}
	doctor.Phone = in.Phone
	doctor.Specialty = in.Specialty
	if err := s.repos.Doctors.Update(ctx, doctor); err != nil {
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	s.onChange(ctx)
	return doctor, nil
}

// avatarExtensions lists the image types accepted as avatars.
var avatarExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadAvatar stores the image and points the profile at its URL.
func (s *doctorService) UploadAvatar(ctx context.Context, userID uint, filename string, size int64, content io.Reader) (string, error) {
	if size <= 0 || content == nil {
		return "", apperrors.ErrEmptyAvatar
	}
	if !avatarExtensions[strings.ToLower(filepath.Ext(filename))] {
		return "", apperrors.ErrUnsupportedAvatar
	}
	doctor, err := s.doctor(ctx, userID)
	if err != nil {
		return "", err
	}
	url, err := s.files.Save(ctx, filename, content)
	if err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}
	doctor.AvatarPath = url
	if err := s.repos.Doctors.Update(ctx, doctor); err != nil {
		return "", fmt.Errorf("update doctor: %w", err)
	}
	s.onChange(ctx)
	return url, nil
}
