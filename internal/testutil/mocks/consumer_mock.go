package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/mathtermind/internal/models"
	"github.com/vytor/mathtermind/internal/outbox"
)

// MockConsumer is a mock implementation of outbox.Consumer
type MockConsumer struct {
	mock.Mock
	ConsumerName string
}

func (m *MockConsumer) Name() string {
	return m.ConsumerName
}

func (m *MockConsumer) Handle(ctx context.Context, event models.ProgressEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockDispatcher is a mock implementation of services.EventDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context) (outbox.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).(outbox.Summary), args.Error(1)
}
