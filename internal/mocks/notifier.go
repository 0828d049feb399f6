package mocks

import (
	"context"

	"github.com/segyhp/loanlink/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipient string, n domain.Notification) domain.Delivery {
	args := m.Called(ctx, recipient, n)
	return args.Get(0).(domain.Delivery)
}

// NewMockNotifier creates a notifier mock
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}
