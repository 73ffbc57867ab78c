package repository

import (
	"context"
	"errors"

	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrResponseNotFound = errors.New("survey response not found")
)

type SurveyRepository struct {
	*pg.DB
}

func NewSurveyRepository(db *pg.DB) *SurveyRepository {
	return &SurveyRepository{
		db,
	}
}

func (r *SurveyRepository) Create(ctx context.Context, resp *model.SurveyResponse) (*model.SurveyResponse, error) {
	entity := toSurveyResponseEntity(resp)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toSurveyResponseModel(entity), nil
}

func (r *SurveyRepository) GetByID(ctx context.Context, id int64) (*model.SurveyResponse, error) {
	var entity SurveyResponseEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}

	return toSurveyResponseModel(&entity), nil
}

// MarkCompleted flips the completed flag once the response's payment
// settles.
func (r *SurveyRepository) MarkCompleted(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&SurveyResponseEntity{}).
		Where("id = ?", id).
		Update("completed", true)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResponseNotFound
	}
	return nil
}

func (r *SurveyRepository) List(ctx context.Context, f model.SurveyFilter) ([]*model.SurveyResponse, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&SurveyResponseEntity{})

	if f.Email != nil && *f.Email != "" {
		q = q.Where("email = ?", *f.Email)
	}
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*SurveyResponseEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toSurveyResponseModels(entities), total, nil
}

func (r *SurveyRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&SurveyResponseEntity{}).
		Count(&total).
		Error
	return total, err
}

func (r *SurveyRepository) CountCompleted(ctx context.Context) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&SurveyResponseEntity{}).
		Where("completed = ?", true).
		Count(&total).
		Error
	return total, err
}

func (r *SurveyRepository) CountByBracket(ctx context.Context) (map[string]int64, error) {
	type row struct {
		AgeBracket string `gorm:"column:age_bracket"`
		Count      int64  `gorm:"column:count"`
	}

	var rows []row
	err := r.Read(ctx).WithContext(ctx).
		Model(&SurveyResponseEntity{}).
		Select("age_bracket, COUNT(*) AS count").
		Group("age_bracket").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.AgeBracket] = r.Count
	}
	return out, nil
}

func (r *SurveyRepository) LanguageCounts(ctx context.Context) ([]model.LanguageCount, error) {
	var rows []model.LanguageCount
	err := r.Read(ctx).WithContext(ctx).
		Model(&SurveyResponseEntity{}).
		Select("language, COUNT(*) AS count").
		Group("language").
		Order("count DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ResponsesByDay buckets responses by calendar day over the last `days`
// days. date() is understood by both postgres and sqlite.
func (r *SurveyRepository) ResponsesByDay(ctx context.Context, days int) ([]model.DayCount, error) {
	if days <= 0 {
		days = 7
	}

	var rows []model.DayCount
	err := r.Read(ctx).WithContext(ctx).
		Model(&SurveyResponseEntity{}).
		Select("date(created_at) AS day, COUNT(*) AS count").
		Group("date(created_at)").
		Order("day ASC").
		Limit(days).
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
