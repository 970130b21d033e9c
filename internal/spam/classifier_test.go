package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-rating/internal/model"
)

func TestClassify(t *testing.T) {
	active := ClassifierConfig{IsActive: true, MinRatingCount: 100, ZScoreBound: 2}

	tests := []struct {
		name     string
		cfg      ClassifierConfig
		score    int
		count    int64
		mean     float64
		variance float64
		want     model.SpamStatus
	}{
		{name: "inactive", cfg: ClassifierConfig{MinRatingCount: 100, ZScoreBound: 2}, score: 0, count: 101, mean: 4.5, variance: 4, want: model.SpamStatusNotSpam},
		{name: "not enough ratings", cfg: active, score: 0, count: 99, mean: 4.5, variance: 4, want: model.SpamStatusNotSpam},
		{name: "zero variance", cfg: active, score: 0, count: 101, mean: 4.5, variance: 0, want: model.SpamStatusNotSpam},
		{name: "out of bound low", cfg: active, score: 0, count: 101, mean: 4.5, variance: 4, want: model.SpamStatusProbableSpam},
		{name: "out of bound high", cfg: active, score: 5, count: 100, mean: 0.5, variance: 1, want: model.SpamStatusProbableSpam},
		{name: "within bound", cfg: active, score: 3, count: 101, mean: 4.5, variance: 4, want: model.SpamStatusNotSpam},
		{name: "exactly on bound", cfg: active, score: 1, count: 101, mean: 3, variance: 1, want: model.SpamStatusNotSpam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.cfg)
			assert.Equal(t, tt.want, c.Classify(tt.score, tt.count, tt.mean, tt.variance))
		})
	}
}

func TestClassifyForArticle(t *testing.T) {
	c := NewClassifier(ClassifierConfig{IsActive: true, MinRatingCount: 100, ZScoreBound: 2})

	article := &model.Article{RatingCount: 101, RatingAverage: 4.5, SumSqDev: 404}
	assert.Equal(t, model.SpamStatusProbableSpam, c.ClassifyForArticle(0, article))
	assert.Equal(t, model.SpamStatusNotSpam, c.ClassifyForArticle(5, article))
}
