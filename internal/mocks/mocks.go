package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"presence-gateway/internal/models"
	"presence-gateway/internal/rabbitmq"
	"presence-gateway/internal/repositories"
)

// MockFriendRepository mocks friendship storage for handlers and services.
type MockFriendRepository struct {
	mock.Mock
}

func (m *MockFriendRepository) AddFriendship(ctx context.Context, userID, friendID string) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *MockFriendRepository) ListFriends(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var friends []string
	if val := args.Get(0); val != nil {
		friends = val.([]string)
	}
	return friends, args.Error(1)
}

func (m *MockFriendRepository) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	args := m.Called(ctx, userID, otherID)
	return args.Bool(0), args.Error(1)
}

// MockUserRepository mocks profile lookups.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	var profile *models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(*models.Profile)
	}
	return profile, args.Error(1)
}

// MockPublisher mocks RabbitMQ publishing.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Compile-time assertions
var _ repositories.FriendRepository = (*MockFriendRepository)(nil)
var _ repositories.UserRepository = (*MockUserRepository)(nil)
var _ rabbitmq.Publisher = (*MockPublisher)(nil)
