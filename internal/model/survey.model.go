package model

import (
	"fmt"
	"time"
)

// AgeBracket determines the fee a respondent pays.
type AgeBracket string

const (
	AgeBracketUnder18 AgeBracket = "under18"
	AgeBracketOver18  AgeBracket = "over18"
)

// Amounts are NGN in major units.
const (
	AmountUnder18 int64 = 3000
	AmountOver18  int64 = 5000
)

// AmountForBracket returns the survey fee for an age bracket.
func AmountForBracket(b AgeBracket) (int64, error) {
	switch b {
	case AgeBracketUnder18:
		return AmountUnder18, nil
	case AgeBracketOver18:
		return AmountOver18, nil
	default:
		return 0, fmt.Errorf("%w: unknown age bracket %q", ErrValidation, b)
	}
}

type SurveyResponse struct {
	ID         int64      `json:"id"          db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Email      string     `json:"email"       db:"email"       gorm:"column:email;not null"`
	FullName   string     `json:"full_name"   db:"full_name"   gorm:"column:full_name;not null"`
	AgeBracket AgeBracket `json:"age_bracket" db:"age_bracket" gorm:"column:age_bracket;not null"`
	Language   string     `json:"language"    db:"language"    gorm:"column:language;not null"`
	Answers    string     `json:"answers"     db:"answers"     gorm:"column:answers;not null"` // raw JSON document
	Completed  bool       `json:"completed"   db:"completed"   gorm:"column:completed;not null;default:false"`
	CreatedAt  time.Time  `json:"created_at"  db:"created_at"  gorm:"column:created_at;autoCreateTime"`
}

func (SurveyResponse) TableName() string { return "survey_responses" }

// SurveyResponseCreateRequest is the input for submitting a response.
type SurveyResponseCreateRequest struct {
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	AgeBracket AgeBracket `json:"age_bracket"`
	Language   string     `json:"language"`
	Answers    string     `json:"answers"`
}

func (p SurveyResponseCreateRequest) Validate() error {
	if p.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if p.FullName == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if _, err := AmountForBracket(p.AgeBracket); err != nil {
		return err
	}
	if p.Language == "" {
		return fmt.Errorf("%w: language is required", ErrValidation)
	}
	return nil
}

// SurveyFilter controls List queries.
type SurveyFilter struct {
	Email     *string
	Completed *bool
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}

// DashboardStats is the aggregate view shown on the admin dashboard.
type DashboardStats struct {
	TotalResponses  int64            `json:"total_responses"`
	TotalRevenue    int64            `json:"total_revenue"`
	CompletionRate  float64          `json:"completion_rate"`
	AgeDistribution map[string]int64 `json:"age_distribution"`
	TopLanguage     string           `json:"top_language"`
	ResponsesByDay  []DayCount       `json:"responses_by_day"`
}

type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

type LanguageCount struct {
	Language string `json:"language"`
	Count    int64  `json:"count"`
}

// Demographics breaks responses down by age bracket with shares.
type Demographics struct {
	Total    int64          `json:"total"`
	Brackets []BracketShare `json:"brackets"`
}

type BracketShare struct {
	Bracket    string  `json:"bracket"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LanguageAnalytics is the full per-language breakdown, largest first.
type LanguageAnalytics struct {
	Total     int64          `json:"total"`
	Languages []LanguageStat `json:"languages"`
}

type LanguageStat struct {
	Language   string  `json:"language"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// PaymentAnalytics counts payments per status alongside revenue.
type PaymentAnalytics struct {
	Completed    int64 `json:"completed"`
	Pending      int64 `json:"pending"`
	Failed       int64 `json:"failed"`
	TotalRevenue int64 `json:"total_revenue"`
}
