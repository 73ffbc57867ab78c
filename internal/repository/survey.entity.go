package repository

import (
	"time"

	"github.com/zingsurvey/payment-gateway/internal/model"
)

type SurveyResponseEntity struct {
	ID         int64     `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Email      string    `db:"email"       gorm:"column:email;not null;index"`
	FullName   string    `db:"full_name"   gorm:"column:full_name;not null"`
	AgeBracket string    `db:"age_bracket" gorm:"column:age_bracket;not null"`
	Language   string    `db:"language"    gorm:"column:language;not null"`
	Answers    string    `db:"answers"     gorm:"column:answers;not null"`
	Completed  bool      `db:"completed"   gorm:"column:completed;not null;default:false"`
	CreatedAt  time.Time `db:"created_at"  gorm:"column:created_at;autoCreateTime"`
}

func (SurveyResponseEntity) TableName() string {
	return "survey_responses"
}

func toSurveyResponseEntity(m *model.SurveyResponse) *SurveyResponseEntity {
	if m == nil {
		return nil
	}
	return &SurveyResponseEntity{
		ID:         m.ID,
		Email:      m.Email,
		FullName:   m.FullName,
		AgeBracket: string(m.AgeBracket),
		Language:   m.Language,
		Answers:    m.Answers,
		Completed:  m.Completed,
		CreatedAt:  m.CreatedAt,
	}
}

func toSurveyResponseModel(e *SurveyResponseEntity) *model.SurveyResponse {
	if e == nil {
		return nil
	}
	return &model.SurveyResponse{
		ID:         e.ID,
		Email:      e.Email,
		FullName:   e.FullName,
		AgeBracket: model.AgeBracket(e.AgeBracket),
		Language:   e.Language,
		Answers:    e.Answers,
		Completed:  e.Completed,
		CreatedAt:  e.CreatedAt,
	}
}

func toSurveyResponseModels(entities []*SurveyResponseEntity) []*model.SurveyResponse {
	if entities == nil {
		return nil
	}
	models := make([]*model.SurveyResponse, len(entities))
	for i, e := range entities {
		models[i] = toSurveyResponseModel(e)
	}
	return models
}
