package service

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"go-rating/internal/database"
	"go-rating/internal/logging"
	"go-rating/internal/model"
	"go-rating/internal/spam"
)

type testEnv struct {
	db       *gorm.DB
	articles *ArticleService
	ratings  *RatingService
	spam     *SpamService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T, cfg spam.ClassifierConfig, probDiff float64) *testEnv {
	t.Helper()

	db := newTestDB(t)
	logger := logging.Discard()
	articles := NewArticleService(db, nil)

	return &testEnv{
		db:       db,
		articles: articles,
		ratings:  NewRatingService(db, articles, spam.NewClassifier(cfg), logger, nil),
		spam:     NewSpamService(db, articles, probDiff, logger, nil),
	}
}

func inactiveClassifier() spam.ClassifierConfig {
	return spam.ClassifierConfig{IsActive: false, MinRatingCount: 100, ZScoreBound: 2}
}

func activeClassifier() spam.ClassifierConfig {
	return spam.ClassifierConfig{IsActive: true, MinRatingCount: 100, ZScoreBound: 2}
}

func createUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{Username: name, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

var userSeq atomic.Int64

func createUsers(t *testing.T, db *gorm.DB, n int) []*model.User {
	t.Helper()
	users := make([]*model.User, n)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("user-%d", userSeq.Add(1)))
	}
	return users
}

func createArticle(t *testing.T, db *gorm.DB, a model.Article) *model.Article {
	t.Helper()
	if a.Title == "" {
		a.Title = "article"
	}
	require.NoError(t, db.Create(&a).Error)
	return &a
}

func reloadArticle(t *testing.T, db *gorm.DB, id uint) *model.Article {
	t.Helper()
	var a model.Article
	require.NoError(t, db.First(&a, id).Error)
	return &a
}

func reloadRating(t *testing.T, db *gorm.DB, id uint) *model.Rating {
	t.Helper()
	var r model.Rating
	require.NoError(t, db.First(&r, id).Error)
	return &r
}
