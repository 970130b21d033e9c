package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-rating/internal/service"
)

type blockingReconciler struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingReconciler) HandleProbableSpamRatings(ctx context.Context) (service.ReconcileResult, error) {
	close(b.started)
	<-b.release
	return service.ReconcileResult{SpamCount: 1, NotSpamCount: 2}, nil
}

func TestExclusiveReconcilerRejectsOverlap(t *testing.T) {
	inner := &blockingReconciler{started: make(chan struct{}), release: make(chan struct{})}
	r := NewExclusiveReconciler(inner)

	done := make(chan service.ReconcileResult)
	go func() {
		res, _ := r.HandleProbableSpamRatings(context.Background())
		done <- res
	}()
	<-inner.started

	_, err := r.HandleProbableSpamRatings(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.ErrorIs(t, err, service.ErrConflict)

	close(inner.release)
	assert.Equal(t, service.ReconcileResult{SpamCount: 1, NotSpamCount: 2}, <-done)
}

type countingReconciler struct{ calls int }

func (c *countingReconciler) HandleProbableSpamRatings(ctx context.Context) (service.ReconcileResult, error) {
	c.calls++
	return service.ReconcileResult{}, nil
}

func TestExclusiveReconcilerSequentialRuns(t *testing.T) {
	inner := &countingReconciler{}
	r := NewExclusiveReconciler(inner)

	require.NoError(t, r.Job(context.Background()))
	require.NoError(t, r.Job(context.Background()))
	assert.Equal(t, 2, inner.calls)
}
