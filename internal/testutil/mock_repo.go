package testutil

import (
	"context"
	"errors"
	"time"

	"github.com/poyrazK/licenseHub/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockRepo is a testify mock of ports.RegistrationRepository.
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) CreateIfAbsent(ctx context.Context, clientKey string) (bool, int64, error) {
	args := m.Called(clientKey)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepo) GetByKey(ctx context.Context, clientKey string) (*domain.Registration, error) {
	args := m.Called(clientKey)
	reg, _ := args.Get(0).(*domain.Registration)
	return reg, args.Error(1)
}

func (m *MockRepo) ListAll(ctx context.Context) ([]domain.Registration, error) {
	args := m.Called()
	regs, _ := args.Get(0).([]domain.Registration)
	return regs, args.Error(1)
}

func (m *MockRepo) ListPending(ctx context.Context) ([]domain.Registration, error) {
	args := m.Called()
	regs, _ := args.Get(0).([]domain.Registration)
	return regs, args.Error(1)
}

func (m *MockRepo) Decide(ctx context.Context, id int64, status domain.Status, decidedAt time.Time) (int64, error) {
	args := m.Called(id, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepo) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepo) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// RecordingNotifier counts change announcements for assertions.
type RecordingNotifier struct {
	Announcements int
	Fail          bool
}

func (n *RecordingNotifier) Announce(ctx context.Context) error {
	n.Announcements++
	if n.Fail {
		return errors.New("broadcast channel down")
	}
	return nil
}
