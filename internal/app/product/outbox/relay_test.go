package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
	"github.com/light-bringer/worktrack-service/internal/pkg/logging"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FetchPending(ctx context.Context, limit int) ([]*m_outbox.Data, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*m_outbox.Data)
	return events, args.Error(1)
}

func (m *mockStore) MarkCompleted(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *mockStore) MarkFailed(ctx context.Context, eventID string, retryCount int64, reason string) error {
	return m.Called(ctx, eventID, retryCount, reason).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event *m_outbox.Data) error {
	return m.Called(ctx, event).Error(0)
}

func TestRelay_RunOnce(t *testing.T) {
	ctx := context.Background()
	ok := &m_outbox.Data{EventID: "evt-1", EventType: "product.created", AggregateID: "PO-1"}
	bad := &m_outbox.Data{EventID: "evt-2", EventType: "unit.status_changed", AggregateID: "PO-1", RetryCount: 2}

	store := &mockStore{}
	store.On("FetchPending", ctx, 10).Return([]*m_outbox.Data{ok, bad}, nil)
	store.On("MarkCompleted", ctx, "evt-1").Return(nil)
	store.On("MarkFailed", ctx, "evt-2", int64(3), "broker down").Return(nil)

	publisher := &mockPublisher{}
	publisher.On("Publish", ctx, ok).Return(nil)
	publisher.On("Publish", ctx, bad).Return(errors.New("broker down"))

	stats, err := NewRelay(store, publisher, 10, logging.NewNop()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Published: 1, Failed: 1}, stats)
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRelay_FetchFailure(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	store.On("FetchPending", ctx, 100).Return(nil, errors.New("spanner unavailable"))
	publisher := &mockPublisher{}

	_, err := NewRelay(store, publisher, 0, logging.NewNop()).RunOnce(ctx)
	assert.Error(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &mockStore{}
	store.On("FetchPending", mock.Anything, 100).Return([]*m_outbox.Data{}, nil).Run(func(mock.Arguments) { cancel() })

	err := NewRelay(store, &mockPublisher{}, 0, logging.NewNop()).Run(ctx, 0)
	assert.NoError(t, err)
}
