package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/services"
	"github.com/zingsurvey/payment-gateway/pkg/crypto"
	xhttp "github.com/zingsurvey/payment-gateway/pkg/http"
)

type PaymentService interface {
	Initiate(ctx context.Context, req model.PaymentInitiateRequest) (*services.PaymentInitiateResult, error)
	Verify(ctx context.Context, reference string) (*model.PaymentVerifyResult, error)
	ProcessWebhook(ctx context.Context, payload model.WebhookPayload) (*model.PaymentVerifyResult, error)
	List(ctx context.Context, f model.PaymentFilter) ([]*model.PaymentTransaction, int64, error)
	Get(ctx context.Context, reference string) (*model.PaymentTransaction, error)
}

type PaymentHandler struct {
	svc           PaymentService
	webhookSecret []byte
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler) {
	e.POST("/payments/initiate", h.InitiatePayment)
	e.POST("/payments/verify", h.VerifyPayment)
	e.POST("/payments/webhook", h.Webhook)
	e.GET("/payments/{reference}", h.GetPayment)
}

func NewPaymentHandler(paymentService PaymentService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		svc:           paymentService,
		webhookSecret: []byte(webhookSecret),
	}
}

type verifyRequest struct {
	Reference string `json:"reference"`
}

type bankDetailsPayload struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	BankName      string `json:"bankName"`
	Reference     string `json:"reference"`
}

// initiateResponse is the wire shape the payer consumes: the references,
// the amount owed and where to send it.
type initiateResponse struct {
	Success       bool               `json:"success"`
	Reference     string             `json:"reference"`
	BankReference string             `json:"bankReference"`
	Amount        int64              `json:"amount"`
	BankDetails   bankDetailsPayload `json:"bankDetails"`
}

type verifyResponse struct {
	Success     bool                      `json:"success"`
	Status      string                    `json:"status"`
	Transaction *model.PaymentTransaction `json:"transaction,omitempty"`
}

type webhookAck struct {
	Received bool `json:"received"`
}

type paymentListResponse struct {
	Items []*model.PaymentTransaction `json:"items"`
	Total int64                       `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *PaymentHandler) InitiatePayment(ctx *xhttp.RequestCtx) {
	var req model.PaymentInitiateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	req.IPAddress = ctx.RemoteIP().String()
	req.UserAgent = string(ctx.UserAgent())

	result, err := h.svc.Initiate(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrResponseMissing):
			writeError(ctx, 404, err.Error())
		case errors.Is(err, services.ErrAmountMismatch):
			writeError(ctx, 400, err.Error())
		case errors.Is(err, services.ErrBusy):
			writeError(ctx, 409, err.Error())
		default:
			writeValidationOrInternal(ctx, err)
		}
		return
	}

	writeJSON(ctx, 201, initiateResponse{
		Success:       true,
		Reference:     result.Transaction.Reference,
		BankReference: result.Transfer.BankReference,
		Amount:        result.Transaction.Amount,
		BankDetails: bankDetailsPayload{
			AccountName:   result.Transfer.AccountHolder,
			AccountNumber: result.Transfer.AccountNumber,
			BankName:      result.Transfer.BankName,
			Reference:     result.Transfer.BankReference,
		},
	})
}

func (h *PaymentHandler) VerifyPayment(ctx *xhttp.RequestCtx) {
	var req verifyRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Reference == "" {
		writeError(ctx, 400, "reference is required")
		return
	}

	result, err := h.svc.Verify(ctx, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(ctx, 404, err.Error())
		case errors.Is(err, services.ErrBusy):
			writeError(ctx, 409, err.Error())
		default:
			writeError(ctx, 500, err.Error())
		}
		return
	}

	resp := verifyResponse{
		Success: result.Verified,
		Status:  string(result.Transaction.Status),
	}
	if result.Verified {
		resp.Transaction = result.Transaction
	}
	writeJSON(ctx, 200, resp)
}

// Webhook applies a bank callback. The signature is computed over the raw
// request body; any mismatch, or a missing header, is rejected before the
// payload is even parsed.
func (h *PaymentHandler) Webhook(ctx *xhttp.RequestCtx) {
	body := ctx.PostBody()
	signature := string(ctx.Request.Header.Peek("x-signature"))

	if len(h.webhookSecret) == 0 || !crypto.VerifySignature(h.webhookSecret, body, signature) {
		writeError(ctx, 401, "invalid signature")
		return
	}

	var payload model.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	payload.Raw = body

	if err := payload.Validate(); err != nil {
		writeError(ctx, 400, err.Error())
		return
	}

	if _, err := h.svc.ProcessWebhook(ctx, payload); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(ctx, 404, err.Error())
		case errors.Is(err, services.ErrBusy):
			writeError(ctx, 409, err.Error())
		default:
			writeValidationOrInternal(ctx, err)
		}
		return
	}

	writeJSON(ctx, 200, webhookAck{Received: true})
}

func (h *PaymentHandler) GetPayment(ctx *xhttp.RequestCtx) {
	reference, ok := ctx.UserValue("reference").(string)
	if !ok || reference == "" {
		writeError(ctx, 400, "reference is required")
		return
	}

	payment, err := h.svc.Get(ctx, reference)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, err.Error())
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}

	writeJSON(ctx, 200, payment)
}

func (h *PaymentHandler) ListPayments(ctx *xhttp.RequestCtx) {
	var f model.PaymentFilter

	if v := query(ctx, "response_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.ResponseID = &id
		}
	}
	if v := query(ctx, "email"); v != "" {
		f.Email = &v
	}
	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.PaymentStatus(parts[i]))
			}
		}
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
	writeJSON(ctx, 200, paymentListResponse{Items: items, Total: total})
}

/* --------------------------------- Helpers ----------------------------------- */

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeValidationOrInternal maps request-validation failures to 400 and
// everything else to a generic 500.
func writeValidationOrInternal(ctx *xhttp.RequestCtx, err error) {
	if errors.Is(err, model.ErrValidation) {
		writeError(ctx, 400, err.Error())
		return
	}
	writeError(ctx, 500, err.Error())
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
