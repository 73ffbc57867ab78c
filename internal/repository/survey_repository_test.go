package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zingsurvey/payment-gateway/internal/model"
)

func seedResponse(t *testing.T, db *testDB, email, bracket, language string, completed bool) *SurveyResponseEntity {
	t.Helper()
	entity := &SurveyResponseEntity{
		Email:      email,
		FullName:   "Test Person",
		AgeBracket: bracket,
		Language:   language,
		Answers:    `{"q1":"yes"}`,
		Completed:  completed,
	}
	require.NoError(t, db.rawDB.Create(entity).Error)
	return entity
}

func TestSurveyRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSurveyRepository(db.DB)
	ctx := context.Background()

	seedResponse(t, db, "a@example.com", "over18", "yoruba", true)
	seedResponse(t, db, "b@example.com", "over18", "yoruba", true)
	seedResponse(t, db, "c@example.com", "under18", "hausa", false)

	t.Run("get by id", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.SurveyResponse{
			Email:      "d@example.com",
			FullName:   "Fourth Person",
			AgeBracket: model.AgeBracketOver18,
			Language:   "igbo",
			Answers:    `{}`,
		})
		require.NoError(t, err)

		found, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "d@example.com", found.Email)
		assert.False(t, found.Completed)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999)
		assert.ErrorIs(t, err, ErrResponseNotFound)
	})

	t.Run("mark completed", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.SurveyResponse{
			Email:      "e@example.com",
			FullName:   "Fifth Person",
			AgeBracket: model.AgeBracketUnder18,
			Language:   "hausa",
			Answers:    `{}`,
		})
		require.NoError(t, err)

		require.NoError(t, repo.MarkCompleted(ctx, created.ID))

		found, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, found.Completed)

		assert.ErrorIs(t, repo.MarkCompleted(ctx, 99999), ErrResponseNotFound)
	})

	t.Run("filter by completed", func(t *testing.T) {
		completed := true
		_, total, err := repo.List(ctx, model.SurveyFilter{Completed: &completed})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("age distribution", func(t *testing.T) {
		dist, err := repo.CountByBracket(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), dist["over18"])
		assert.Equal(t, int64(2), dist["under18"])
	})

	t.Run("language counts ordered by frequency", func(t *testing.T) {
		counts, err := repo.LanguageCounts(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, counts)
		assert.Equal(t, "yoruba", counts[0].Language)
		assert.Equal(t, int64(2), counts[0].Count)
	})

	t.Run("responses by day", func(t *testing.T) {
		days, err := repo.ResponsesByDay(ctx, 7)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, int64(5), days[0].Count)
	})
}
