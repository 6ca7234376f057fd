package services

import (
	"context"
	"time"

	"github.com/soundvault/backend/internal/payments"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(params payments.CheckoutParams) (string, error) {
	args := m.Called(params)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) VerifyEvent(payload []byte, sigHeader string) (payments.Event, error) {
	args := m.Called(payload, sigHeader)
	return args.Get(0).(payments.Event), args.Error(1)
}

type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) SignDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	args := m.Called(bucket, key, expires)
	return args.String(0), args.Error(1)
}
