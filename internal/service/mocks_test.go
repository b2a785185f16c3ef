package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"clinicapi/internal/model"
	"clinicapi/internal/notify"
	"clinicapi/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockDoctorRepository is a mock implementation of DoctorRepository.
type MockDoctorRepository struct {
	mock.Mock
}

func (m *MockDoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	args := m.Called(ctx, doctor)
	return args.Error(0)
}

func (m *MockDoctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	args := m.Called(ctx, doctor)
	return args.Error(0)
}

func (m *MockDoctorRepository) FindByID(ctx context.Context, id uint) (*model.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Doctor), args.Error(1)
}

func (m *MockDoctorRepository) FindByUserID(ctx context.Context, userID uint) (*model.Doctor, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Doctor), args.Error(1)
}

func (m *MockDoctorRepository) List(ctx context.Context) ([]model.Doctor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Doctor), args.Error(1)
}

// MockPatientRepository is a mock implementation of PatientRepository.
type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockPatientRepository) Update(ctx context.Context, patient *model.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockPatientRepository) FindByUserID(ctx context.Context, userID uint) (*model.Patient, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

// MockDispatcher records dispatched notifications.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event notify.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of auth.TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// MockFileStore is a mock implementation of storage.FileStore.
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, filename string, content io.Reader) (string, error) {
	args := m.Called(ctx, filename, content)
	return args.String(0), args.Error(1)
}

// txStore runs transactional work directly against the given repositories.
type txStore struct {
	repos repository.Repositories
	calls int
}

func (s *txStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.calls++
	return fn(ctx, s.repos)
}

// memAppointments is an in-memory AppointmentRepository with the same
// filtering rules as the SQL one, including the active slot uniqueness.
type memAppointments struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*model.Appointment
	// patients and doctors are attached on reads, like Preload.
	patients map[uint]*model.Patient
	doctors  map[uint]*model.Doctor
	locks    int
}

func newMemAppointments() *memAppointments {
	return &memAppointments{
		rows:     map[uint]*model.Appointment{},
		patients: map[uint]*model.Patient{},
		doctors:  map[uint]*model.Doctor{},
	}
}

func (r *memAppointments) attach(a model.Appointment) model.Appointment {
	a.Patient = r.patients[a.PatientID]
	a.Doctor = r.doctors[a.DoctorID]
	return a
}

func (r *memAppointments) slotTaken(a *model.Appointment) bool {
	if a.SlotKey == nil {
		return false
	}
	for id, row := range r.rows {
		if id != a.ID && row.SlotKey != nil && *row.SlotKey == *a.SlotKey {
			return true
		}
	}
	return false
}

func (r *memAppointments) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slotTaken(a) {
		return gorm.ErrDuplicatedKey
	}
	r.nextID++
	a.ID = r.nextID
	row := *a
	row.Patient, row.Doctor = nil, nil
	r.rows[a.ID] = &row
	return nil
}

func (r *memAppointments) Update(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if r.slotTaken(a) {
		return gorm.ErrDuplicatedKey
	}
	row := *a
	row.Patient, row.Doctor = nil, nil
	r.rows[a.ID] = &row
	return nil
}

func (r *memAppointments) FindByID(_ context.Context, id uint) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	a := r.attach(*row)
	return &a, nil
}

func (r *memAppointments) filter(keep func(*model.Appointment) bool, less func(a, b model.Appointment) bool) []model.Appointment {
	out := []model.Appointment{}
	for _, row := range r.rows {
		if keep(row) {
			out = append(out, r.attach(*row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func ascending(a, b model.Appointment) bool  { return a.StartTime.Before(b.StartTime) }
func descending(a, b model.Appointment) bool { return a.StartTime.After(b.StartTime) }

func (r *memAppointments) LockActiveByDoctorBetween(_ context.Context, doctorID uint, after, before time.Time) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks++
	return r.filter(func(a *model.Appointment) bool {
		return a.DoctorID == doctorID && !a.Canceled && a.StartTime.After(after) && a.StartTime.Before(before)
	}, ascending), nil
}

func (r *memAppointments) ListActiveByDoctor(_ context.Context, doctorID uint, from, to time.Time) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a *model.Appointment) bool {
		return a.DoctorID == doctorID && !a.Canceled && !a.StartTime.Before(from) && a.StartTime.Before(to)
	}, ascending), nil
}

func (r *memAppointments) ListCompletedByDoctor(_ context.Context, doctorID uint) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a *model.Appointment) bool {
		return a.DoctorID == doctorID && a.Completed
	}, descending), nil
}

func (r *memAppointments) ListByPatient(_ context.Context, patientID uint) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a *model.Appointment) bool { return a.PatientID == patientID }, descending), nil
}

func (r *memAppointments) ListAll(_ context.Context) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(*model.Appointment) bool { return true }, ascending), nil
}

// memRefreshTokens is an in-memory RefreshTokenRepository.
type memRefreshTokens struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*model.RefreshToken
}

func newMemRefreshTokens() *memRefreshTokens {
	return &memRefreshTokens{rows: map[uint]*model.RefreshToken{}}
}

func (r *memRefreshTokens) Create(_ context.Context, t *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	row := *t
	r.rows[t.ID] = &row
	return nil
}

func (r *memRefreshTokens) FindActive(_ context.Context, token string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Token == token && !row.Revoked {
			t := *row
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRefreshTokens) Revoke(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Revoked {
		return false, nil
	}
	row.Revoked = true
	return true, nil
}

func (r *memRefreshTokens) RevokeAllForUser(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID {
			row.Revoked = true
		}
	}
	return nil
}

func (r *memRefreshTokens) active(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.UserID == userID && !row.Revoked {
			n++
		}
	}
	return n
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
