package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/repository"
)

type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminUser), args.Error(1)
}

func TestAdminService_Login(t *testing.T) {
	ctx := context.Background()

	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	admin := &model.AdminUser{
		ID:           1,
		Email:        "admin@zingsurvey.com",
		PasswordHash: hash,
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		repo := new(MockAdminRepository)
		service := NewAdminService(repo, "test-jwt-secret")

		repo.On("GetByEmail", ctx, "admin@zingsurvey.com").Return(admin, nil)

		resp, err := service.Login(ctx, model.AdminLoginRequest{
			Email:    "admin@zingsurvey.com",
			Password: "correct-horse",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)

		email, err := service.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "admin@zingsurvey.com", email)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(MockAdminRepository)
		service := NewAdminService(repo, "test-jwt-secret")

		repo.On("GetByEmail", ctx, "admin@zingsurvey.com").Return(admin, nil)

		_, err := service.Login(ctx, model.AdminLoginRequest{
			Email:    "admin@zingsurvey.com",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email looks like wrong password", func(t *testing.T) {
		repo := new(MockAdminRepository)
		service := NewAdminService(repo, "test-jwt-secret")

		repo.On("GetByEmail", ctx, "nobody@zingsurvey.com").Return(nil, repository.ErrAdminNotFound)

		_, err := service.Login(ctx, model.AdminLoginRequest{
			Email:    "nobody@zingsurvey.com",
			Password: "whatever",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		repo := new(MockAdminRepository)
		service := NewAdminService(repo, "test-jwt-secret")
		other := NewAdminService(repo, "another-secret")

		repo.On("GetByEmail", ctx, "admin@zingsurvey.com").Return(admin, nil)

		resp, err := other.Login(ctx, model.AdminLoginRequest{
			Email:    "admin@zingsurvey.com",
			Password: "correct-horse",
		})
		require.NoError(t, err)

		_, err = service.ValidateToken(resp.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		service := NewAdminService(new(MockAdminRepository), "test-jwt-secret")
		_, err := service.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
