package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"codegardener/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "username", "email"}).
			AddRow(1, "gardener", "gardener@example.com")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
			WithArgs(1, 1).
			WillReturnRows(rows)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE "profiles"."user_id" = $1`)).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "points", "grade"}).AddRow(1, 2500, "sprout"))

		user, err := repo.GetByID(ctx, 1)
		assert.NoError(t, err)
		if assert.NotNil(t, user) {
			assert.Equal(t, "gardener", user.Username)
			if assert.NotNil(t, user.Profile) {
				assert.Equal(t, 2500, user.Profile.Points)
			}
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
			WithArgs(99, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		user, err := repo.GetByID(ctx, 99)
		assert.Nil(t, user)
		var appErr *models.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, models.CodeNotFound, appErr.Code)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
			WithArgs(1, 1).
			WillReturnError(errors.New("connection timeout"))

		user, err := repo.GetByID(ctx, 1)
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		email := "gardener@example.com"
		rows := sqlmock.NewRows([]string{"id", "email"}).AddRow(1, email)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
			WithArgs(email, 1).
			WillReturnRows(rows)

		user, err := repo.GetByEmail(ctx, email)
		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, email, user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		email := "ghost@example.com"
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
			WithArgs(email, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		user, err := repo.GetByEmail(ctx, email)
		assert.NoError(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Creates User And Profile Transactionally", func(t *testing.T) {
		user := &models.User{Username: "newgardener", Email: "new@example.com"}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "profiles"`)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1))
		mock.ExpectCommit()

		err := repo.Create(ctx, user)
		assert.NoError(t, err)
		assert.NotNil(t, user.Profile)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Maps To AlreadyExists", func(t *testing.T) {
		user := &models.User{Username: "dupe", Email: "dupe@example.com"}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnError(errors.New(`duplicate key value violates unique constraint "uni_users_email" (SQLSTATE 23505)`))
		mock.ExpectRollback()

		err := repo.Create(ctx, user)
		var appErr *models.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, models.CodeAlreadyExists, appErr.Code)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Typed PgError Maps To AlreadyExists", func(t *testing.T) {
		user := &models.User{Username: "dupe2", Email: "dupe2@example.com"}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uni_users_username"})
		mock.ExpectRollback()

		err := repo.Create(ctx, user)
		var appErr *models.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, models.CodeAlreadyExists, appErr.Code)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_TopByPoints(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "username"}).
		AddRow(3, "first").
		AddRow(1, "second")
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN profiles ON profiles.user_id = users.id`)).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE "profiles"."user_id" IN ($1,$2)`)).
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "points"}).AddRow(3, 9000).AddRow(1, 4000))

	users, err := repo.TopByPoints(ctx, 10, 0)
	assert.NoError(t, err)
	if assert.Len(t, users, 2) {
		assert.Equal(t, "first", users[0].Username)
		assert.Equal(t, 9000, users[0].Profile.Points)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Empty Input Skips Query", func(t *testing.T) {
		users, err := repo.GetByIDs(ctx, nil)
		assert.NoError(t, err)
		assert.Nil(t, users)
	})

	t.Run("Loads Users", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "username"}).
			AddRow(2, "beta").
			AddRow(5, "epsilon")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id IN ($1,$2)`)).
			WithArgs(2, 5).
			WillReturnRows(rows)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE "profiles"."user_id" IN ($1,$2)`)).
			WithArgs(2, 5).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2).AddRow(5))

		users, err := repo.GetByIDs(ctx, []uint{2, 5})
		assert.NoError(t, err)
		assert.Len(t, users, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	profile := &models.Profile{UserID: 1, Points: 2050, Grade: "sprout"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "profiles" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateProfile(ctx, profile)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users" WHERE "users"."id" = $1`)).
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Delete(ctx, 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Row Maps To NotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users" WHERE "users"."id" = $1`)).
			WithArgs(42).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.Delete(ctx, 42)
		var appErr *models.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, models.CodeNotFound, appErr.Code)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
