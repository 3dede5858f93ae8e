package repository

import (
	"context"
	"regexp"
	"testing"

	"codegardener/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func boolPtr(b bool) *bool { return &b }

func TestPostRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "user_id", "title"}).
			AddRow(10, 1, "Review my parser")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1 ORDER BY "posts"."id" LIMIT $2`)).
			WithArgs(10, 1).
			WillReturnRows(rows)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "gardener"))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE "profiles"."user_id" = $1`)).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1))

		post, err := repo.GetByID(ctx, 10)
		assert.NoError(t, err)
		if assert.NotNil(t, post) {
			assert.Equal(t, "Review my parser", post.Title)
			assert.NotNil(t, post.User)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1`)).
			WithArgs(404, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		post, err := repo.GetByID(ctx, 404)
		assert.Nil(t, post)
		var appErr *models.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, models.CodeNotFound, appErr.Code)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_Discover(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	t.Run("Keyword And Tag Filters", func(t *testing.T) {
		filter := PostFilter{
			Keyword:      "%json parser%",
			LangPattern:  "(^|,)(go|rust)(,|$)",
			ContentsType: boolPtr(true),
			Sort:         "latest",
			Limit:        20,
			Offset:       0,
		}

		mock.ExpectQuery(`SELECT count\(\*\) FROM "posts" JOIN users ON users\.id = posts\.user_id`).
			WithArgs(true, "%json parser%", "%json parser%", "%json parser%", "(^|,)(go|rust)(,|$)").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		postRows := sqlmock.NewRows([]string{"id", "user_id", "title"}).
			AddRow(2, 1, "JSON parser in Go").
			AddRow(1, 1, "Streaming JSON parser")
		mock.ExpectQuery(`SELECT posts\.\* FROM "posts" JOIN users ON users\.id = posts\.user_id`).
			WithArgs(true, "%json parser%", "%json parser%", "%json parser%", "(^|,)(go|rust)(,|$)", 20).
			WillReturnRows(postRows)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "gardener"))

		posts, total, err := repo.Discover(ctx, filter)
		assert.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, posts, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Filters", func(t *testing.T) {
		filter := PostFilter{Sort: "views", Limit: 10, Offset: 10}

		mock.ExpectQuery(`SELECT count\(\*\) FROM "posts"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT posts\.\* FROM "posts"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		posts, total, err := repo.Discover(ctx, filter)
		assert.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, posts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_IncrementViews(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "views"=views + 1 WHERE id = $1`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.IncrementViews(ctx, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ToggleLike(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	t.Run("Like When Absent", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "post_likes" WHERE user_id = $1 AND post_id = $2`)).
			WithArgs(1, 10).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "post_likes"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "likes_count"=likes_count + 1 WHERE id = $1`)).
			WithArgs(10).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		liked, err := repo.ToggleLike(ctx, 1, 10)
		require.NoError(t, err)
		assert.True(t, liked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unlike When Present", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "post_likes" WHERE user_id = $1 AND post_id = $2`)).
			WithArgs(1, 10).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "likes_count"=likes_count - 1 WHERE id = $1 AND likes_count > 0`)).
			WithArgs(10).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		liked, err := repo.ToggleLike(ctx, 1, 10)
		require.NoError(t, err)
		assert.False(t, liked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_ToggleScrap(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "post_scraps" WHERE user_id = $1 AND post_id = $2`)).
		WithArgs(3, 10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "post_scraps"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "scrap_count"=scrap_count + 1 WHERE id = $1`)).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	scrapped, err := repo.ToggleScrap(ctx, 3, 10)
	require.NoError(t, err)
	assert.True(t, scrapped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_LikedPostIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	t.Run("Empty Input Skips Query", func(t *testing.T) {
		ids, err := repo.LikedPostIDs(ctx, 1, nil)
		assert.NoError(t, err)
		assert.Nil(t, ids)
	})

	t.Run("Plucks Matching IDs", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "post_id" FROM "post_likes" WHERE user_id = $1 AND post_id IN ($2,$3)`)).
			WithArgs(1, 10, 11).
			WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow(11))

		ids, err := repo.LikedPostIDs(ctx, 1, []uint{10, 11})
		assert.NoError(t, err)
		assert.Equal(t, []uint{11}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_UpdateAIFeedback(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "ai_feedback"=$1`)).
		WithArgs("Looks solid overall.", sqlmock.AnyArg(), 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.UpdateAIFeedback(ctx, 10, "Looks solid overall."))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_PopularTop(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	t.Run("Unfiltered", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" ORDER BY likes_count DESC, created_at DESC LIMIT $1`)).
			WithArgs(4).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "likes_count"}).
				AddRow(1, 2, 30).
				AddRow(2, 3, 12))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(3))

		posts, err := repo.PopularTop(ctx, 4, nil)
		assert.NoError(t, err)
		assert.Len(t, posts, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Filtered By Content Type", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE contents_type = $1 ORDER BY likes_count DESC, created_at DESC LIMIT $2`)).
			WithArgs(false, 4).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "contents_type"}).
				AddRow(5, 2, false))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

		posts, err := repo.PopularTop(ctx, 4, boolPtr(false))
		assert.NoError(t, err)
		require.Len(t, posts, 1)
		assert.False(t, posts[0].ContentsType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
