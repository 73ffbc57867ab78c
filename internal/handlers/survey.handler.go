package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/services"
	xhttp "github.com/zingsurvey/payment-gateway/pkg/http"
)

type SurveyService interface {
	Create(ctx context.Context, req model.SurveyResponseCreateRequest) (*model.SurveyResponse, int64, error)
	Get(ctx context.Context, id int64) (*model.SurveyResponse, error)
	List(ctx context.Context, f model.SurveyFilter) ([]*model.SurveyResponse, int64, error)
	Stats(ctx context.Context) (*model.DashboardStats, error)
	Demographics(ctx context.Context) (*model.Demographics, error)
	LanguageAnalytics(ctx context.Context) (*model.LanguageAnalytics, error)
	PaymentAnalytics(ctx context.Context) (*model.PaymentAnalytics, error)
}

type SurveyHandler struct {
	svc SurveyService
}

func RegisterSurveyRoutes(e *router.Group, h *SurveyHandler) {
	e.POST("/responses", h.CreateResponse)
	e.GET("/responses/{id}", h.GetResponse)
}

func NewSurveyHandler(surveyService SurveyService) *SurveyHandler {
	return &SurveyHandler{
		svc: surveyService,
	}
}

type createResponseResult struct {
	Response *model.SurveyResponse `json:"response"`
	Amount   int64                 `json:"amount"`
	Currency string                `json:"currency"`
}

type surveyListResponse struct {
	Items []*model.SurveyResponse `json:"items"`
	Total int64                   `json:"total"`
}

func (h *SurveyHandler) CreateResponse(ctx *xhttp.RequestCtx) {
	var req model.SurveyResponseCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	resp, amount, err := h.svc.Create(ctx, req)
	if err != nil {
		writeValidationOrInternal(ctx, err)
		return
	}

	writeJSON(ctx, 201, createResponseResult{
		Response: resp,
		Amount:   amount,
		Currency: "NGN",
	})
}

func (h *SurveyHandler) GetResponse(ctx *xhttp.RequestCtx) {
	idStr, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}

	resp, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrResponseMissing) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}

	writeJSON(ctx, 200, resp)
}

func (h *SurveyHandler) ListResponses(ctx *xhttp.RequestCtx) {
	var f model.SurveyFilter

	if v := query(ctx, "email"); v != "" {
		f.Email = &v
	}
	if v := query(ctx, "completed"); v != "" {
		completed := strings.EqualFold(v, "true")
		f.Completed = &completed
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, surveyListResponse{Items: items, Total: total})
}

func (h *SurveyHandler) GetStats(ctx *xhttp.RequestCtx) {
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, stats)
}

func (h *SurveyHandler) GetDemographics(ctx *xhttp.RequestCtx) {
	out, err := h.svc.Demographics(ctx)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, out)
}

func (h *SurveyHandler) GetLanguageAnalytics(ctx *xhttp.RequestCtx) {
	out, err := h.svc.LanguageAnalytics(ctx)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, out)
}

func (h *SurveyHandler) GetPaymentAnalytics(ctx *xhttp.RequestCtx) {
	out, err := h.svc.PaymentAnalytics(ctx)
	if err != nil {
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, out)
}
