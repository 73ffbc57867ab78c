package fixtures

import (
	"time"

	"github.com/zingsurvey/payment-gateway/internal/model"
)

var (
	TestResponseOver18 = model.SurveyResponse{
		ID:         1,
		Email:      "adult@example.com",
		FullName:   "Ada Obi",
		AgeBracket: model.AgeBracketOver18,
		Language:   "en",
		Answers:    `{"q1":"yes"}`,
	}

	TestResponseUnder18 = model.SurveyResponse{
		ID:         2,
		Email:      "teen@example.com",
		FullName:   "Bola Ade",
		AgeBracket: model.AgeBracketUnder18,
		Language:   "yo",
		Answers:    `{"q1":"no"}`,
	}
)

func NewTestResponse(email, fullName string, bracket model.AgeBracket) *model.SurveyResponse {
	return &model.SurveyResponse{
		Email:      email,
		FullName:   fullName,
		AgeBracket: bracket,
		Language:   "en",
		Answers:    "{}",
		CreatedAt:  time.Now(),
	}
}

func NewTestPayment(responseID int64, reference string, amount int64, status model.PaymentStatus) *model.PaymentTransaction {
	return &model.PaymentTransaction{
		Reference:  reference,
		ResponseID: responseID,
		Email:      "payer@example.com",
		Amount:     amount,
		Currency:   "NGN",
		Status:     status,
		CreatedAt:  time.Now(),
	}
}

func PaymentInitiateRequestOver18(responseID int64) model.PaymentInitiateRequest {
	return model.PaymentInitiateRequest{
		ResponseID: responseID,
		Email:      "payer@example.com",
		Amount:     model.AmountOver18,
	}
}

func PaymentInitiateRequestUnder18(responseID int64) model.PaymentInitiateRequest {
	return model.PaymentInitiateRequest{
		ResponseID: responseID,
		Email:      "payer@example.com",
		Amount:     model.AmountUnder18,
	}
}

func WebhookSuccess(reference string) model.WebhookPayload {
	return model.WebhookPayload{
		Event:     model.WebhookEventSuccess,
		Reference: reference,
	}
}

func WebhookFailed(reference, code string) model.WebhookPayload {
	return model.WebhookPayload{
		Event:     model.WebhookEventFailed,
		Reference: reference,
		Details:   map[string]interface{}{"code": code},
	}
}

func PaymentFilterByStatus(status model.PaymentStatus) model.PaymentFilter {
	return model.PaymentFilter{
		Statuses: []model.PaymentStatus{status},
		Limit:    50,
	}
}

func SurveyFilterByEmail(email string) model.SurveyFilter {
	return model.SurveyFilter{
		Email: &email,
		Limit: 50,
	}
}
