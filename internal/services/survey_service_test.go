package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/internal/model"
)

type MockSurveyRepository struct {
	mock.Mock
}

func (m *MockSurveyRepository) Create(ctx context.Context, resp *model.SurveyResponse) (*model.SurveyResponse, error) {
	args := m.Called(ctx, resp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SurveyResponse), args.Error(1)
}

func (m *MockSurveyRepository) GetByID(ctx context.Context, id int64) (*model.SurveyResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SurveyResponse), args.Error(1)
}

func (m *MockSurveyRepository) List(ctx context.Context, f model.SurveyFilter) ([]*model.SurveyResponse, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.SurveyResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockSurveyRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSurveyRepository) CountCompleted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSurveyRepository) CountByBracket(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockSurveyRepository) LanguageCounts(ctx context.Context) ([]model.LanguageCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.LanguageCount), args.Error(1)
}

func (m *MockSurveyRepository) ResponsesByDay(ctx context.Context, days int) ([]model.DayCount, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]model.DayCount), args.Error(1)
}

type MockRevenueSource struct {
	mock.Mock
}

func (m *MockRevenueSource) RevenueTotal(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRevenueSource) CountByStatus(ctx context.Context, status model.PaymentStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func TestSurveyService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the bracket fee", func(t *testing.T) {
		repo := new(MockSurveyRepository)
		service := NewSurveyService(repo, new(MockRevenueSource))

		repo.On("Create", ctx, mock.AnythingOfType("*model.SurveyResponse")).Return(&model.SurveyResponse{
			ID:         1,
			Email:      "a@example.com",
			AgeBracket: model.AgeBracketUnder18,
		}, nil)

		resp, amount, err := service.Create(ctx, model.SurveyResponseCreateRequest{
			Email:      "a@example.com",
			FullName:   "A Person",
			AgeBracket: model.AgeBracketUnder18,
			Language:   "hausa",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.ID)
		assert.Equal(t, model.AmountUnder18, amount)
	})

	t.Run("rejects unknown bracket", func(t *testing.T) {
		service := NewSurveyService(new(MockSurveyRepository), new(MockRevenueSource))

		_, _, err := service.Create(ctx, model.SurveyResponseCreateRequest{
			Email:      "a@example.com",
			FullName:   "A Person",
			AgeBracket: "middle-aged",
			Language:   "hausa",
		})
		assert.Error(t, err)
	})
}

func TestSurveyService_Stats(t *testing.T) {
	ctx := context.Background()

	repo := new(MockSurveyRepository)
	revenue := new(MockRevenueSource)
	service := NewSurveyService(repo, revenue)

	repo.On("Count", ctx).Return(int64(10), nil)
	repo.On("CountCompleted", ctx).Return(int64(4), nil)
	revenue.On("RevenueTotal", ctx).Return(int64(20000), nil)
	repo.On("CountByBracket", ctx).Return(map[string]int64{"over18": 6, "under18": 4}, nil)
	repo.On("LanguageCounts", ctx).Return([]model.LanguageCount{
		{Language: "yoruba", Count: 6},
		{Language: "hausa", Count: 4},
	}, nil)
	repo.On("ResponsesByDay", ctx, 7).Return([]model.DayCount{
		{Day: "2026-08-27", Count: 4},
		{Day: "2026-08-28", Count: 6},
	}, nil)

	stats, err := service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalResponses)
	assert.Equal(t, int64(20000), stats.TotalRevenue)
	assert.InDelta(t, 0.4, stats.CompletionRate, 0.001)
	assert.Equal(t, "yoruba", stats.TopLanguage)
	assert.Len(t, stats.ResponsesByDay, 2)
}

func TestSurveyService_Demographics(t *testing.T) {
	ctx := context.Background()

	t.Run("shares add up across brackets", func(t *testing.T) {
		repo := new(MockSurveyRepository)
		service := NewSurveyService(repo, new(MockRevenueSource))

		repo.On("CountByBracket", ctx).Return(map[string]int64{"over18": 6, "under18": 4}, nil)

		out, err := service.Demographics(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(10), out.Total)
		require.Len(t, out.Brackets, 2)
		assert.Equal(t, "under18", out.Brackets[0].Bracket)
		assert.InDelta(t, 40.0, out.Brackets[0].Percentage, 0.001)
		assert.Equal(t, "over18", out.Brackets[1].Bracket)
		assert.InDelta(t, 60.0, out.Brackets[1].Percentage, 0.001)
	})

	t.Run("no responses yet", func(t *testing.T) {
		repo := new(MockSurveyRepository)
		service := NewSurveyService(repo, new(MockRevenueSource))

		repo.On("CountByBracket", ctx).Return(map[string]int64{}, nil)

		out, err := service.Demographics(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), out.Total)
		for _, b := range out.Brackets {
			assert.Zero(t, b.Count)
			assert.Zero(t, b.Percentage)
		}
	})
}

func TestSurveyService_LanguageAnalytics(t *testing.T) {
	ctx := context.Background()

	repo := new(MockSurveyRepository)
	service := NewSurveyService(repo, new(MockRevenueSource))

	repo.On("LanguageCounts", ctx).Return([]model.LanguageCount{
		{Language: "yoruba", Count: 6},
		{Language: "hausa", Count: 3},
		{Language: "igbo", Count: 1},
	}, nil)

	out, err := service.LanguageAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.Total)
	require.Len(t, out.Languages, 3)
	assert.Equal(t, "yoruba", out.Languages[0].Language)
	assert.InDelta(t, 60.0, out.Languages[0].Percentage, 0.001)
	assert.InDelta(t, 10.0, out.Languages[2].Percentage, 0.001)
}

func TestSurveyService_PaymentAnalytics(t *testing.T) {
	ctx := context.Background()

	repo := new(MockSurveyRepository)
	revenue := new(MockRevenueSource)
	service := NewSurveyService(repo, revenue)

	revenue.On("CountByStatus", ctx, model.PaymentStatusCompleted).Return(int64(4), nil)
	revenue.On("CountByStatus", ctx, model.PaymentStatusPending).Return(int64(3), nil)
	revenue.On("CountByStatus", ctx, model.PaymentStatusFailed).Return(int64(1), nil)
	revenue.On("RevenueTotal", ctx).Return(int64(20000), nil)

	out, err := service.PaymentAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Completed)
	assert.Equal(t, int64(3), out.Pending)
	assert.Equal(t, int64(1), out.Failed)
	assert.Equal(t, int64(20000), out.TotalRevenue)

	revenue.AssertExpectations(t)
}
