package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/services"
	xhttp "github.com/zingsurvey/payment-gateway/pkg/http"
)

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Login(ctx context.Context, req model.AdminLoginRequest) (*model.AdminLoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminLoginResponse), args.Error(1)
}

func (m *MockAdminService) ValidateToken(tokenString string) (string, error) {
	args := m.Called(tokenString)
	return args.String(0), args.Error(1)
}

func TestAdminHandler_Login(t *testing.T) {
	t.Run("valid credentials return a token", func(t *testing.T) {
		svc := new(MockAdminService)
		handler := NewAdminHandler(svc, nil, nil)

		svc.On("Login", mock.Anything, model.AdminLoginRequest{
			Email:    "admin@zingsurvey.com",
			Password: "hunter2",
		}).Return(&model.AdminLoginResponse{Token: "signed-token", Email: "admin@zingsurvey.com"}, nil)

		bodyBytes, _ := json.Marshal(model.AdminLoginRequest{Email: "admin@zingsurvey.com", Password: "hunter2"})
		ctx := setupTestContext("POST", "/admin/login", bodyBytes)
		handler.Login(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var resp model.AdminLoginResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, "signed-token", resp.Token)

		svc.AssertExpectations(t)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		svc := new(MockAdminService)
		handler := NewAdminHandler(svc, nil, nil)

		svc.On("Login", mock.Anything, mock.Anything).Return(nil, services.ErrInvalidCredentials)

		bodyBytes, _ := json.Marshal(model.AdminLoginRequest{Email: "admin@zingsurvey.com", Password: "nope"})
		ctx := setupTestContext("POST", "/admin/login", bodyBytes)
		handler.Login(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewAdminHandler(new(MockAdminService), nil, nil)

		ctx := setupTestContext("POST", "/admin/login", []byte("{"))
		handler.Login(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestAdminHandler_RequireAuth(t *testing.T) {
	protected := func(svc AdminService) (xhttp.RequestHandler, *bool) {
		called := false
		h := NewAdminHandler(svc, nil, nil)
		wrapped := h.RequireAuth(func(ctx *xhttp.RequestCtx) {
			called = true
			email, _ := ctx.UserValue("admin_email").(string)
			ctx.Response.SetBodyString(email)
		})
		return wrapped, &called
	}

	t.Run("valid token passes through", func(t *testing.T) {
		svc := new(MockAdminService)
		svc.On("ValidateToken", "good-token").Return("admin@zingsurvey.com", nil)

		wrapped, called := protected(svc)

		ctx := setupTestContext("GET", "/admin/stats", nil)
		ctx.Request.Header.Set("Authorization", "Bearer good-token")
		wrapped(ctx)

		assert.True(t, *called)
		assert.Equal(t, "admin@zingsurvey.com", string(ctx.Response.Body()))
	})

	t.Run("missing header", func(t *testing.T) {
		wrapped, called := protected(new(MockAdminService))

		ctx := setupTestContext("GET", "/admin/stats", nil)
		wrapped(ctx)

		assert.False(t, *called)
		assert.Equal(t, 401, ctx.Response.StatusCode())
	})

	t.Run("header without bearer prefix", func(t *testing.T) {
		wrapped, called := protected(new(MockAdminService))

		ctx := setupTestContext("GET", "/admin/stats", nil)
		ctx.Request.Header.Set("Authorization", "some-token")
		wrapped(ctx)

		assert.False(t, *called)
		assert.Equal(t, 401, ctx.Response.StatusCode())
	})

	t.Run("rejected token", func(t *testing.T) {
		svc := new(MockAdminService)
		svc.On("ValidateToken", "expired").Return("", errors.New("token is expired"))

		wrapped, called := protected(svc)

		ctx := setupTestContext("GET", "/admin/stats", nil)
		ctx.Request.Header.Set("Authorization", "Bearer expired")
		wrapped(ctx)

		assert.False(t, *called)
		assert.Equal(t, 401, ctx.Response.StatusCode())
	})
}
