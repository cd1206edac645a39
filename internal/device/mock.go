package device

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MockDevice is a testify mock of Device.
type MockDevice struct {
	mock.Mock
}

var _ Device = (*MockDevice)(nil)

func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

func (m *MockDevice) ReadLine(timeout time.Duration) (string, error) {
	args := m.Called(timeout)
	return args.String(0), args.Error(1)
}

func (m *MockDevice) WriteLine(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockDevice) ResetInput() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDevice) Close() error {
	args := m.Called()
	return args.Error(0)
}
