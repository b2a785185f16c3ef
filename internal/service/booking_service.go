package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "clinicapi/internal/errors"
	"clinicapi/internal/model"
	"clinicapi/internal/notify"
	"clinicapi/internal/repository"
	"clinicapi/internal/schedule"
)

// CancellationNotice is how far ahead of its start an appointment may still be canceled.
const CancellationNotice = 2 * time.Hour

// BookingService books, lists and cancels patient appointments.
type BookingService interface {
	AvailableSlots(ctx context.Context, doctorID uint, day time.Time) ([]string, error)
	Book(ctx context.Context, userID, doctorID uint, startTime, reason string) (*model.Appointment, error)
	Cancel(ctx context.Context, userID, appointmentID uint, reason string) (*model.Appointment, error)
	ListForPatient(ctx context.Context, userID uint) ([]model.Appointment, error)
	GetForPatient(ctx context.Context, userID, appointmentID uint) (*model.Appointment, error)
}

// BookingConfig holds the scheduling rules.
type BookingConfig struct {
	Window   schedule.Window
	Span     time.Duration
	Location *time.Location
	Now      Clock
}

type bookingService struct {
	repos      repository.Repositories
	store      repository.Store
	dispatcher notify.Dispatcher
	cfg        BookingConfig
	now        Clock
	log        zerolog.Logger
}

// NewBookingService creates a booking service.
func NewBookingService(repos repository.Repositories, store repository.Store, dispatcher notify.Dispatcher, cfg BookingConfig, log zerolog.Logger) BookingService {
	if cfg.Window.Step <= 0 {
		cfg.Window = schedule.DefaultWindow
	}
	if cfg.Span <= 0 {
		cfg.Span = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if dispatcher == nil {
		dispatcher = nopDispatcher{}
	}
	return &bookingService{
		repos:      repos,
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        cfg.Now.orDefault(),
		log:        log,
	}
}

// AvailableSlots lists the free HH:mm slots of the doctor on day.
func (s *bookingService) AvailableSlots(ctx context.Context, doctorID uint, day time.Time) ([]string, error) {
	from, to := schedule.DayBounds(day.In(s.cfg.Location))
	booked, err := s.repos.Appointments.ListActiveByDoctor(ctx, doctorID, from.Add(-s.cfg.Span), to)
	if err != nil {
		return nil, fmt.Errorf("list booked appointments: %w", err)
	}

	starts := make([]time.Time, 0, len(booked))
	for _, a := range booked {
		starts = append(starts, a.StartTime)
	}
	return s.cfg.Window.Available(from, starts, s.cfg.Span), nil
}

// Book creates an appointment for the calling user. The conflict check and
// the insert run in one transaction holding row locks on the doctor's
// neighbouring appointments.
func (s *bookingService) Book(ctx context.Context, userID, doctorID uint, startTime, reason string) (*model.Appointment, error) {
	start, err := schedule.ParseStartTime(strings.TrimSpace(startTime), s.cfg.Location)
	if err != nil {
		return nil, apperrors.ErrInvalidStartTime
	}

	doctor, err := s.repos.Doctors.FindByID(ctx, doctorID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrDoctorNotFound)
	}

	user, patient, err := s.ensurePatient(ctx, userID)
	if err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		StartTime: start,
		Reason:    reason,
		SlotKey:   model.SlotKeyFor(doctor.ID, start),
	}

	insert := func(ctx context.Context, repos repository.Repositories) error {
		after, before := schedule.ConflictRange(start, s.cfg.Span)
		existing, err := repos.Appointments.LockActiveByDoctorBetween(ctx, doctor.ID, after, before)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		for _, other := range existing {
			if schedule.Overlaps(start, s.cfg.Span, other.StartTime, s.cfg.Span) {
				return apperrors.ErrSlotTaken
			}
		}
		if err := repos.Appointments.Create(ctx, appointment); err != nil {
			if isDuplicate(err) {
				return apperrors.ErrSlotTaken
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	}
	// A concurrent booking for the same doctor can make InnoDB abort this
	// transaction. One retry sees the winner's row and reports the slot as taken.
	for attempt := 0; ; attempt++ {
		appointment.ID = 0
		err = s.store.WithTransaction(ctx, insert)
		if err == nil || !isLockConflict(err) {
			break
		}
		if attempt == 1 {
			s.log.Warn().Err(err).Uint("doctor_id", doctor.ID).Msg("booking lost lock race twice")
			err = apperrors.ErrSlotTaken
			break
		}
	}
	if err != nil {
		return nil, err
	}

	appointment.Doctor = doctor
	appointment.Patient = patient

	s.dispatch(ctx, notify.Event{
		Kind: notify.KindBookingConfirmed,
		To:   user.Email,
		Data: map[string]string{
			notify.FieldName:      user.FullName,
			notify.FieldDoctor:    doctor.Name,
			notify.FieldSpecialty: doctor.Specialty,
			notify.FieldTime:      start.Format(schedule.StartTimeLayout),
			notify.FieldReason:    reason,
		},
	})

	return appointment, nil
}

// Cancel cancels an upcoming appointment owned by the calling user.
func (s *bookingService) Cancel(ctx context.Context, userID, appointmentID uint, reason string) (*model.Appointment, error) {
	appointment, err := s.repos.Appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrAppointmentNotFound)
	}

	patient, err := s.repos.Patients.FindByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrNotOwner
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	if appointment.PatientID != patient.ID {
		return nil, apperrors.ErrNotOwner
	}
	if appointment.Closed() {
		return nil, apperrors.ErrAppointmentClosed
	}
	if appointment.StartTime.Sub(s.now()) < CancellationNotice {
		return nil, apperrors.ErrCancellationWindow
	}

	appointment.Canceled = true
	appointment.CancelReason = reason
	if strings.TrimSpace(reason) == "" {
		appointment.CancelReason = model.DefaultCancelReason
	}
	appointment.SlotKey = nil

	if err := s.repos.Appointments.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	event := notify.Event{
		Kind: notify.KindBookingCanceled,
		To:   patient.Email,
		Data: map[string]string{
			notify.FieldName:         patient.Name,
			notify.FieldTime:         appointment.StartTime.In(s.cfg.Location).Format(schedule.StartTimeLayout),
			notify.FieldCancelReason: appointment.CancelReason,
		},
	}
	if appointment.Doctor != nil {
		event.Data[notify.FieldDoctor] = appointment.Doctor.Name
		event.Data[notify.FieldSpecialty] = appointment.Doctor.Specialty
	}
	s.dispatch(ctx, event)

	return appointment, nil
}

// ListForPatient returns the caller's appointments, newest first. A user who
// never booked has no patient profile and an empty history.
func (s *bookingService) ListForPatient(ctx context.Context, userID uint) ([]model.Appointment, error) {
	patient, err := s.repos.Patients.FindByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return []model.Appointment{}, nil
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return s.repos.Appointments.ListByPatient(ctx, patient.ID)
}

// GetForPatient returns one of the caller's appointments.
func (s *bookingService) GetForPatient(ctx context.Context, userID, appointmentID uint) (*model.Appointment, error) {
	appointment, err := s.repos.Appointments.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrAppointmentNotFound)
	}
	patient, err := s.repos.Patients.FindByUserID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrNotOwner
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	if appointment.PatientID != patient.ID {
		return nil, apperrors.ErrNotOwner
	}
	return appointment, nil
}

// ensurePatient loads the user's patient profile, creating it with
// placeholder contact details on first use.
func (s *bookingService) ensurePatient(ctx context.Context, userID uint) (*model.User, *model.Patient, error) {
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, notFound(err, apperrors.ErrUserNotFound)
	}

	patient, err := s.repos.Patients.FindByUserID(ctx, userID)
	if err == nil {
		return user, patient, nil
	}
	if !isNotFound(err) {
		return nil, nil, fmt.Errorf("find patient: %w", err)
	}

	patient = &model.Patient{
		UserID:      user.ID,
		Name:        user.FullName,
		Email:       user.Email,
		Address:     model.PlaceholderAddress,
		PhoneNumber: model.PlaceholderPhone,
	}
	if err := s.repos.Patients.Create(ctx, patient); err != nil {
		return nil, nil, fmt.Errorf("create patient: %w", err)
	}
	s.log.Info().Uint("user_id", user.ID).Uint("patient_id", patient.ID).Msg("patient profile created")
	return user, patient, nil
}

func (s *bookingService) dispatch(ctx context.Context, event notify.Event) {
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("kind", string(event.Kind)).Str("to", event.To).Msg("notification not queued")
	}
}
