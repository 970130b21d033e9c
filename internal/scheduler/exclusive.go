package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go-rating/internal/service"
)

// ErrAlreadyRunning 上一次复核尚未结束
var ErrAlreadyRunning = fmt.Errorf("%w: spam reconciliation already running", service.ErrConflict)

type reconciler interface {
	HandleProbableSpamRatings(ctx context.Context) (service.ReconcileResult, error)
}

// ExclusiveReconciler 保证进程内同一时间只有一次复核在运行,
// 定时任务和手动触发共用同一个实例
type ExclusiveReconciler struct {
	mu    sync.Mutex
	inner reconciler
}

func NewExclusiveReconciler(inner reconciler) *ExclusiveReconciler {
	return &ExclusiveReconciler{inner: inner}
}

func (r *ExclusiveReconciler) HandleProbableSpamRatings(ctx context.Context) (service.ReconcileResult, error) {
	if !r.mu.TryLock() {
		return service.ReconcileResult{}, ErrAlreadyRunning
	}
	defer r.mu.Unlock()
	return r.inner.HandleProbableSpamRatings(ctx)
}

// Job 适配为调度任务
func (r *ExclusiveReconciler) Job(ctx context.Context) error {
	_, err := r.HandleProbableSpamRatings(ctx)
	return err
}
