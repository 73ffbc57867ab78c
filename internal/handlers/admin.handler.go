package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/fasthttp/router"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/services"
	xhttp "github.com/zingsurvey/payment-gateway/pkg/http"
)

type AdminService interface {
	Login(ctx context.Context, req model.AdminLoginRequest) (*model.AdminLoginResponse, error)
	ValidateToken(tokenString string) (string, error)
}

type AdminHandler struct {
	svc      AdminService
	paymentH *PaymentHandler
	surveyH  *SurveyHandler
}

func NewAdminHandler(adminService AdminService, paymentH *PaymentHandler, surveyH *SurveyHandler) *AdminHandler {
	return &AdminHandler{
		svc:      adminService,
		paymentH: paymentH,
		surveyH:  surveyH,
	}
}

// RegisterAdminRoutes mounts the login endpoint plus the authenticated
// dashboard views. Everything under the auth wrapper requires a valid
// bearer token.
func RegisterAdminRoutes(e *router.Group, h *AdminHandler) {
	e.POST("/admin/login", h.Login)
	e.GET("/admin/stats", h.RequireAuth(h.surveyH.GetStats))
	e.GET("/admin/demographics", h.RequireAuth(h.surveyH.GetDemographics))
	e.GET("/admin/language-analytics", h.RequireAuth(h.surveyH.GetLanguageAnalytics))
	e.GET("/admin/payment-analytics", h.RequireAuth(h.surveyH.GetPaymentAnalytics))
	e.GET("/admin/payments", h.RequireAuth(h.paymentH.ListPayments))
	e.GET("/admin/responses", h.RequireAuth(h.surveyH.ListResponses))
}

func (h *AdminHandler) Login(ctx *xhttp.RequestCtx) {
	var req model.AdminLoginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	resp, err := h.svc.Login(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(ctx, 401, err.Error())
			return
		}
		writeValidationOrInternal(ctx, err)
		return
	}

	writeJSON(ctx, 200, resp)
}

// RequireAuth wraps a handler with bearer token validation.
func (h *AdminHandler) RequireAuth(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		header := string(ctx.Request.Header.Peek("Authorization"))
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			writeError(ctx, 401, "missing bearer token")
			return
		}

		email, err := h.svc.ValidateToken(token)
		if err != nil {
			writeError(ctx, 401, "invalid or expired token")
			return
		}

		ctx.SetUserValue("admin_email", email)
		next(ctx)
	}
}
