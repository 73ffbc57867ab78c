package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/repository"
)

type SurveyRepository interface {
	Create(ctx context.Context, resp *model.SurveyResponse) (*model.SurveyResponse, error)
	GetByID(ctx context.Context, id int64) (*model.SurveyResponse, error)
	List(ctx context.Context, f model.SurveyFilter) ([]*model.SurveyResponse, int64, error)
	Count(ctx context.Context) (int64, error)
	CountCompleted(ctx context.Context) (int64, error)
	CountByBracket(ctx context.Context) (map[string]int64, error)
	LanguageCounts(ctx context.Context) ([]model.LanguageCount, error)
	ResponsesByDay(ctx context.Context, days int) ([]model.DayCount, error)
}

type RevenueSource interface {
	RevenueTotal(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status model.PaymentStatus) (int64, error)
}

type SurveyService struct {
	surveyRepo SurveyRepository
	revenue    RevenueSource
}

func NewSurveyService(surveyRepo SurveyRepository, revenue RevenueSource) *SurveyService {
	return &SurveyService{
		surveyRepo: surveyRepo,
		revenue:    revenue,
	}
}

// Create stores a survey response. The fee the respondent owes is
// derived from the age bracket and returned alongside the response.
func (s *SurveyService) Create(ctx context.Context, req model.SurveyResponseCreateRequest) (*model.SurveyResponse, int64, error) {
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	answers := req.Answers
	if answers == "" {
		answers = "{}"
	}

	resp, err := s.surveyRepo.Create(ctx, &model.SurveyResponse{
		Email:      req.Email,
		FullName:   req.FullName,
		AgeBracket: req.AgeBracket,
		Language:   req.Language,
		Answers:    answers,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create survey response: %w", err)
	}

	amount, _ := model.AmountForBracket(resp.AgeBracket)
	return resp, amount, nil
}

func (s *SurveyService) Get(ctx context.Context, id int64) (*model.SurveyResponse, error) {
	resp, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrResponseNotFound) {
			return nil, ErrResponseMissing
		}
		return nil, err
	}
	return resp, nil
}

func (s *SurveyService) List(ctx context.Context, f model.SurveyFilter) ([]*model.SurveyResponse, int64, error) {
	return s.surveyRepo.List(ctx, f)
}

// Stats aggregates the admin dashboard numbers.
func (s *SurveyService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	total, err := s.surveyRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count responses: %w", err)
	}

	completed, err := s.surveyRepo.CountCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("count completed: %w", err)
	}

	revenue, err := s.revenue.RevenueTotal(ctx)
	if err != nil {
		return nil, fmt.Errorf("revenue total: %w", err)
	}

	distribution, err := s.surveyRepo.CountByBracket(ctx)
	if err != nil {
		return nil, fmt.Errorf("age distribution: %w", err)
	}

	languages, err := s.surveyRepo.LanguageCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("language counts: %w", err)
	}
	topLanguage := ""
	if len(languages) > 0 {
		topLanguage = languages[0].Language
	}

	byDay, err := s.surveyRepo.ResponsesByDay(ctx, 7)
	if err != nil {
		return nil, fmt.Errorf("responses by day: %w", err)
	}

	completionRate := 0.0
	if total > 0 {
		completionRate = float64(completed) / float64(total)
	}

	return &model.DashboardStats{
		TotalResponses:  total,
		TotalRevenue:    revenue,
		CompletionRate:  completionRate,
		AgeDistribution: distribution,
		TopLanguage:     topLanguage,
		ResponsesByDay:  byDay,
	}, nil
}

// Demographics breaks the respondent pool down by age bracket.
func (s *SurveyService) Demographics(ctx context.Context) (*model.Demographics, error) {
	distribution, err := s.surveyRepo.CountByBracket(ctx)
	if err != nil {
		return nil, fmt.Errorf("age distribution: %w", err)
	}

	var total int64
	for _, n := range distribution {
		total += n
	}

	out := &model.Demographics{Total: total}
	for _, bracket := range []model.AgeBracket{model.AgeBracketUnder18, model.AgeBracketOver18} {
		count := distribution[string(bracket)]
		out.Brackets = append(out.Brackets, model.BracketShare{
			Bracket:    string(bracket),
			Count:      count,
			Percentage: percentage(count, total),
		})
	}
	return out, nil
}

// LanguageAnalytics reports every submission language with its share,
// largest first.
func (s *SurveyService) LanguageAnalytics(ctx context.Context) (*model.LanguageAnalytics, error) {
	languages, err := s.surveyRepo.LanguageCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("language counts: %w", err)
	}

	var total int64
	for _, l := range languages {
		total += l.Count
	}

	out := &model.LanguageAnalytics{Total: total}
	for _, l := range languages {
		out.Languages = append(out.Languages, model.LanguageStat{
			Language:   l.Language,
			Count:      l.Count,
			Percentage: percentage(l.Count, total),
		})
	}
	return out, nil
}

// PaymentAnalytics counts payments per lifecycle state next to the
// completed revenue.
func (s *SurveyService) PaymentAnalytics(ctx context.Context) (*model.PaymentAnalytics, error) {
	out := &model.PaymentAnalytics{}

	for _, q := range []struct {
		status model.PaymentStatus
		dst    *int64
	}{
		{model.PaymentStatusCompleted, &out.Completed},
		{model.PaymentStatusPending, &out.Pending},
		{model.PaymentStatusFailed, &out.Failed},
	} {
		n, err := s.revenue.CountByStatus(ctx, q.status)
		if err != nil {
			return nil, fmt.Errorf("count %s payments: %w", q.status, err)
		}
		*q.dst = n
	}

	revenue, err := s.revenue.RevenueTotal(ctx)
	if err != nil {
		return nil, fmt.Errorf("revenue total: %w", err)
	}
	out.TotalRevenue = revenue

	return out, nil
}

func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
