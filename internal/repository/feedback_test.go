package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"codegardener/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFeedbackRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()

	feedback := &models.Feedback{
		PostID:  10,
		UserID:  2,
		Content: "Consider extracting the retry loop.",
		Rating:  4.5,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "feedbacks"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "feedback_count"=feedback_count + 1 WHERE id = $1`)).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(ctx, feedback)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()

	t.Run("Success With Lines And Comments", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "post_id", "user_id", "content"}).
			AddRow(5, 10, 2, "Consider extracting the retry loop.")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "feedbacks" WHERE "feedbacks"."id" = $1 ORDER BY "feedbacks"."id" LIMIT $2`)).
			WithArgs(5, 1).
			WillReturnRows(rows)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "feedback_comments" WHERE "feedback_comments"."feedback_id" = $1`)).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "feedback_id"}))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "line_feedbacks" WHERE "line_feedbacks"."feedback_id" = $1`)).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "feedback_id", "line"}).AddRow(1, 5, 42))

		feedback, err := repo.GetByID(ctx, 5)
		assert.NoError(t, err)
		if assert.NotNil(t, feedback) {
			assert.Len(t, feedback.Lines, 1)
			assert.Equal(t, 42, feedback.Lines[0].Line)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "feedbacks" WHERE "feedbacks"."id" = $1`)).
			WithArgs(404, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		feedback, err := repo.GetByID(ctx, 404)
		assert.Nil(t, feedback)
		var appErr *models.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, models.CodeNotFound, appErr.Code)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFeedbackRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()

	t.Run("Decrements Post Counter", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "feedbacks" WHERE "feedbacks"."id" = $1`)).
			WithArgs(5, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "post_id"}).AddRow(5, 10))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "feedbacks" WHERE "feedbacks"."id" = $1`)).
			WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "feedback_count"=feedback_count - 1 WHERE id = $1 AND feedback_count > 0`)).
			WithArgs(10).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Delete(ctx, 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Feedback Maps To NotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "feedbacks" WHERE "feedbacks"."id" = $1`)).
			WithArgs(404, 1).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectRollback()

		err := repo.Delete(ctx, 404)
		var appErr *models.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, models.CodeNotFound, appErr.Code)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFeedbackRepository_MarkAdopted(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "feedbacks" SET "adopted"=$1`)).
		WithArgs(true, sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.MarkAdopted(ctx, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepository_HasAdoptedFeedback(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "feedbacks" WHERE post_id = $1 AND adopted = $2`)).
		WithArgs(10, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	adopted, err := repo.HasAdoptedFeedback(ctx, 10)
	require.NoError(t, err)
	assert.True(t, adopted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepository_ToggleLike(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "feedback_likes" WHERE user_id = $1 AND feedback_id = $2`)).
		WithArgs(2, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "feedback_likes"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "feedbacks" SET "likes_count"=likes_count + 1 WHERE id = $1`)).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	liked, err := repo.ToggleLike(ctx, 2, 5)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepository_CountsByUserSince(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()
	since := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

	t.Run("All Feedback", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"user_id", "count"}).
			AddRow(3, 7).
			AddRow(1, 4)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, COUNT(*) as count FROM "feedbacks" WHERE created_at >= $1 GROUP BY "user_id" ORDER BY count DESC, user_id ASC LIMIT $2`)).
			WithArgs(since, 10).
			WillReturnRows(rows)

		counts, err := repo.CountsByUserSince(ctx, since, false, 10, 0)
		require.NoError(t, err)
		if assert.Len(t, counts, 2) {
			assert.Equal(t, uint(3), counts[0].UserID)
			assert.EqualValues(t, 7, counts[0].Count)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Adopted Only", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, COUNT(*) as count FROM "feedbacks" WHERE created_at >= $1 AND adopted = $2 GROUP BY "user_id" ORDER BY count DESC, user_id ASC LIMIT $3`)).
			WithArgs(since, true, 10).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "count"}).AddRow(2, 3))

		counts, err := repo.CountsByUserSince(ctx, since, true, 10, 0)
		require.NoError(t, err)
		assert.Len(t, counts, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFeedbackRepository_CountUsersWithFeedbackSince(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFeedbackRepository(db)
	ctx := context.Background()
	since := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(DISTINCT("user_id")) FROM "feedbacks" WHERE created_at >= $1`)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	total, err := repo.CountUsersWithFeedbackSince(ctx, since, false)
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
