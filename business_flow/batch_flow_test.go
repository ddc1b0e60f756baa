package businessflow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/repository"
	"github.com/anshu-9837/Banning/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

var ignoreDBGoroutines = goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")

func (h *harness) storeBatch(t *testing.T, actorID int64, count, delay int, mutate ...func(*models.Batch)) *models.Batch {
	t.Helper()
	batchID, err := newBatchID(utils.UTCNow(), actorID)
	require.NoError(t, err)
	b := &models.Batch{
		BatchID:      batchID,
		ActorID:      actorID,
		ActorName:    fmt.Sprintf("actor-%d", actorID),
		Language:     models.LanguageHindi,
		Target:       "@spam_account",
		ReportType:   models.ReportTypeAccount,
		Category:     "spam",
		TotalCount:   count,
		DelaySeconds: delay,
		Status:       models.BatchStatusRunning,
		StartedAt:    utils.UTCNow(),
	}
	for _, m := range mutate {
		m(b)
	}
	require.NoError(t, h.batchRepo.Save(context.Background(), b))
	return b
}

func (h *harness) reloadBatch(t *testing.T, id uint) *models.Batch {
	t.Helper()
	b, err := h.batchRepo.ByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func (h *harness) batchReports(t *testing.T, batchID string) int64 {
	t.Helper()
	n, err := h.reportRepo.Count(context.Background(), models.ReportFilter{BatchID: &batchID})
	require.NoError(t, err)
	return n
}

func TestBatchRun(t *testing.T) {
	ctx := context.Background()

	t.Run("CompletesEveryItem", func(t *testing.T) {
		submitter := &sequenceSubmitter{outcomes: []bool{true, false, true}}
		h := newHarness(t, withSubmitter(submitter))
		b := h.storeBatch(t, 1, 3, 2)

		sink := &recordingSink{}
		summary, err := h.batches.Run(ctx, b, sink)
		require.NoError(t, err)

		assert.Equal(t, models.BatchStatusCompleted, summary.Status)
		assert.Equal(t, 3, summary.Completed)
		assert.Equal(t, 2, summary.Successful)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 66.67, summary.SuccessRate)
		assert.Equal(t, 6, summary.ElapsedSeconds)
		assert.True(t, strings.HasPrefix(summary.Text, "🎉 **Reporting Completed!**"))

		progress, summaries := sink.snapshot()
		require.Len(t, progress, 3)
		require.Len(t, summaries, 1, "completion is delivered exactly once")
		for i, p := range progress {
			assert.Equal(t, i+1, p.Completed)
			assert.Equal(t, p.Completed, p.Successful+p.Failed)
		}
		assert.Equal(t, []int{4, 2, 0}, []int{progress[0].ETASeconds, progress[1].ETASeconds, progress[2].ETASeconds})
		assert.Equal(t, 33.3, progress[0].Percent)
		assert.Equal(t, "[███░░░░░░░] 33.3%", progress[0].ProgressBar)
		assert.Equal(t, 100.0, progress[2].Percent)

		stored := h.reloadBatch(t, b.ID)
		assert.Equal(t, models.BatchStatusCompleted, stored.Status)
		assert.NotNil(t, stored.EndedAt)
		assert.Equal(t, 3, stored.CompletedCount)
		assert.Equal(t, stored.CompletedCount, stored.SuccessfulCount+stored.FailedCount)
		assert.Equal(t, int64(3), h.batchReports(t, b.BatchID))

		stat, err := h.statRepo.ByActorAndDate(ctx, 1, utils.TodayStatDate())
		require.NoError(t, err)
		assert.Equal(t, 3, stat.TotalReports)
		assert.Equal(t, 2, stat.Successful)
		assert.Equal(t, 1, stat.Failed)
	})

	t.Run("ResumesFromCompletedCount", func(t *testing.T) {
		h := newHarness(t)
		b := h.storeBatch(t, 1, 4, 0, func(b *models.Batch) {
			b.CompletedCount = 2
			b.SuccessfulCount = 1
			b.FailedCount = 1
		})

		sink := &recordingSink{}
		summary, err := h.batches.Run(ctx, b, sink)
		require.NoError(t, err)
		assert.Equal(t, 4, summary.Completed)
		assert.Equal(t, 3, summary.Successful)
		assert.Equal(t, 1, summary.Failed)

		progress, _ := sink.snapshot()
		require.Len(t, progress, 2)
		assert.Equal(t, 3, progress[0].Completed)
		assert.Equal(t, int64(2), h.batchReports(t, b.BatchID))
	})

	t.Run("StorageFaultCountsAsFailedAndContinues", func(t *testing.T) {
		h := newHarness(t, withStatRepo(func(r repository.DailyStatRepository) repository.DailyStatRepository {
			return &flakyStatRepo{DailyStatRepository: r, failOn: map[int]bool{2: true}}
		}))
		b := h.storeBatch(t, 1, 3, 0)

		summary, err := h.batches.Run(ctx, b, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Completed)
		assert.Equal(t, 2, summary.Successful)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 1, summary.StorageFaults)

		stored := h.reloadBatch(t, b.ID)
		assert.Equal(t, 3, stored.CompletedCount)
		assert.Equal(t, 1, stored.FailedCount)
		assert.Equal(t, 1, stored.StorageFaultCount)
		assert.Equal(t, int64(2), h.batchReports(t, b.BatchID), "the faulted item leaves no report behind")
	})

	t.Run("ProgressDeliveryErrorsAreSwallowed", func(t *testing.T) {
		h := newHarness(t)
		b := h.storeBatch(t, 1, 2, 0)

		sink := &recordingSink{fail: true}
		summary, err := h.batches.Run(ctx, b, sink)
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusCompleted, summary.Status)
		progress, summaries := sink.snapshot()
		assert.Len(t, progress, 2)
		assert.Len(t, summaries, 1)
	})

	t.Run("LockedElsewhere", func(t *testing.T) {
		h := newHarness(t)
		b := h.storeBatch(t, 1, 2, 0)
		ok, err := h.locker.Acquire(ctx, b.BatchID)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = h.batches.Run(ctx, b, nil)
		assert.True(t, IsBatchLocked(err))
		assert.Equal(t, models.BatchStatusRunning, h.reloadBatch(t, b.ID).Status)
		assert.Zero(t, h.batchReports(t, b.BatchID))
	})

	t.Run("FinishedBatchIsNotRerun", func(t *testing.T) {
		h := newHarness(t)
		b := h.storeBatch(t, 1, 2, 0, func(b *models.Batch) { b.Status = models.BatchStatusCompleted })

		_, err := h.batches.Run(ctx, b, nil)
		assert.ErrorIs(t, err, ErrBatchNotRunning)
	})

	t.Run("ContextDoneLeavesBatchRunning", func(t *testing.T) {
		h := newHarness(t)
		b := h.storeBatch(t, 1, 5, 10)

		runCtx, cancel := context.WithCancel(ctx)
		sink := &recordingSink{}
		done := make(chan error, 1)
		go func() {
			_, err := h.batches.Run(runCtx, b, sink)
			done <- err
		}()

		require.Eventually(t, func() bool {
			p, _ := sink.snapshot()
			return len(p) >= 1
		}, 2*time.Second, 5*time.Millisecond)
		cancel()

		assert.ErrorIs(t, <-done, context.Canceled)
		stored := h.reloadBatch(t, b.ID)
		assert.Equal(t, models.BatchStatusRunning, stored.Status)
		assert.Nil(t, stored.EndedAt)
		assert.Less(t, stored.CompletedCount, 5)
		_, summaries := sink.snapshot()
		assert.Empty(t, summaries)
	})
}

func TestStartBatchValidation(t *testing.T) {
	ctx := context.Background()
	settings := DefaultReportSettings()
	settings.MaxReportsPerDay = 5
	h := newHarness(t, withSettings(settings))
	_, _, err := h.fixtures.LoggedInOperator(1, models.TierUser)
	require.NoError(t, err)

	base := dto.StartBatchRequest{Target: "@x", Category: "spam", Count: 2, DelaySeconds: 1}

	_, err = h.batches.StartBatch(ctx, 99, &base)
	assert.True(t, IsNotLoggedIn(err))

	for _, count := range []int{0, 26} {
		req := base
		req.Count = count
		_, err = h.batches.StartBatch(ctx, 1, &req)
		assert.ErrorIs(t, err, ErrInvalidBatchCount, "count %d", count)
	}
	for _, delay := range []int{-1, 11} {
		req := base
		req.DelaySeconds = delay
		_, err = h.batches.StartBatch(ctx, 1, &req)
		assert.ErrorIs(t, err, ErrInvalidBatchDelay, "delay %d", delay)
	}

	req := base
	req.Count = 6
	_, err = h.batches.StartBatch(ctx, 1, &req)
	assert.True(t, IsDailyLimitReached(err))

	n, err := h.batchRepo.Count(ctx, models.BatchFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartBatchDispatches(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), ignoreDBGoroutines)

	ctx := context.Background()
	h := newHarness(t)

	var g errgroup.Group
	started := make([]*dto.BatchDTO, 3)
	for i := range 3 {
		actorID := int64(i + 1)
		_, _, err := h.fixtures.LoggedInOperator(actorID, models.TierUser)
		require.NoError(t, err)
		g.Go(func() error {
			b, err := h.batches.StartBatch(ctx, actorID, &dto.StartBatchRequest{
				Target:       fmt.Sprintf("@target_%d", actorID),
				Category:     "spam",
				Count:        int(actorID) + 1,
				DelaySeconds: 1,
			})
			started[actorID-1] = b
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, b := range started {
		require.NotNil(t, b)
		assert.True(t, strings.HasPrefix(b.BatchID, "MULTI"))
		assert.Equal(t, models.BatchStatusRunning, b.Status)
	}

	require.Eventually(t, func() bool {
		for _, b := range started {
			if len(h.sink.summariesFor(b.BatchID)) != 1 {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	for i, b := range started {
		stored, err := h.batchRepo.ByBatchID(ctx, b.BatchID)
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusCompleted, stored.Status)
		assert.Equal(t, i+2, stored.CompletedCount)
		assert.Equal(t, int64(i+2), h.batchReports(t, b.BatchID))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, h.batches.Shutdown(shutdownCtx))
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	batches := []*models.Batch{
		h.storeBatch(t, 1, 3, 1),
		h.storeBatch(t, 2, 4, 0),
		h.storeBatch(t, 3, 2, 1),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range batches {
		g.Go(func() error {
			_, err := h.batches.Run(gctx, b, nil)
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, b := range batches {
		stored := h.reloadBatch(t, b.ID)
		assert.Equal(t, b.TotalCount, stored.CompletedCount)
		assert.Equal(t, int64(b.TotalCount), h.batchReports(t, b.BatchID))

		stat, err := h.statRepo.ByActorAndDate(ctx, b.ActorID, utils.TodayStatDate())
		require.NoError(t, err)
		assert.Equal(t, b.TotalCount, stat.TotalReports)
	}

	t.Run("SameBatchTwiceInProcess", func(t *testing.T) {
		b := h.storeBatch(t, 4, 3, 10)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = h.batches.Run(ctx, b, nil)
		}()

		require.Eventually(t, func() bool {
			h.batches.mu.Lock()
			defer h.batches.mu.Unlock()
			_, ok := h.batches.runs[b.BatchID]
			return ok
		}, time.Second, time.Millisecond)

		_, err := h.batches.Run(ctx, b, nil)
		assert.True(t, IsBatchLocked(err))
		<-done
	})
}

func TestCancelBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("StopsExecutingBatch", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), ignoreDBGoroutines)

		h := newHarness(t)
		_, _, err := h.fixtures.LoggedInOperator(1, models.TierUser)
		require.NoError(t, err)

		started, err := h.batches.StartBatch(ctx, 1, &dto.StartBatchRequest{Target: "@x", Category: "spam", Count: 10, DelaySeconds: 10})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			p, _ := h.sink.snapshot()
			return len(p) >= 1
		}, 2*time.Second, 5*time.Millisecond)

		cancelled, err := h.batches.Cancel(ctx, 1, started.BatchID)
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.EndedAt)
		assert.Less(t, cancelled.CompletedCount, 10)
		assert.Equal(t, cancelled.CompletedCount, cancelled.SuccessfulCount+cancelled.FailedCount)

		summaries := h.sink.summariesFor(started.BatchID)
		require.Len(t, summaries, 1)
		assert.Equal(t, models.BatchStatusCancelled, summaries[0].Status)
		assert.Equal(t, cancelled.CompletedCount, summaries[0].Completed)

		_, err = h.batches.Cancel(ctx, 1, started.BatchID)
		assert.ErrorIs(t, err, ErrBatchNotRunning)

		require.NoError(t, h.batches.Shutdown(ctx))
	})

	t.Run("OrphanedBatchIsFinishedDirectly", func(t *testing.T) {
		h := newHarness(t)
		b := h.storeBatch(t, 1, 5, 0, func(b *models.Batch) {
			b.CompletedCount = 2
			b.SuccessfulCount = 2
		})

		cancelled, err := h.batches.Cancel(ctx, 1, b.BatchID)
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusCancelled, cancelled.Status)

		summaries := h.sink.summariesFor(b.BatchID)
		require.Len(t, summaries, 1)
		assert.Equal(t, 2, summaries[0].Completed)

		_, err = h.batches.Run(ctx, b, nil)
		assert.ErrorIs(t, err, ErrBatchNotRunning)
	})

	t.Run("OnlyOwnerMayCancel", func(t *testing.T) {
		h := newHarness(t)
		b := h.storeBatch(t, 1, 5, 0)

		_, err := h.batches.Cancel(ctx, 2, b.BatchID)
		assert.True(t, IsBatchNotFound(err))
		_, err = h.batches.Get(ctx, 2, b.BatchID)
		assert.True(t, IsBatchNotFound(err))
		_, err = h.batches.Cancel(ctx, 1, "MULTI-missing")
		assert.True(t, IsBatchNotFound(err))

		got, err := h.batches.Get(ctx, 1, b.BatchID)
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusRunning, got.Status)
	})

	t.Run("StoppedByAnotherProcess", func(t *testing.T) {
		h := newHarness(t)
		b := h.storeBatch(t, 1, 10, 10)

		sink := &recordingSink{}
		done := make(chan *dto.BatchSummary, 1)
		go func() {
			summary, _ := h.batches.Run(ctx, b, sink)
			done <- summary
		}()

		require.Eventually(t, func() bool {
			p, _ := sink.snapshot()
			return len(p) >= 1
		}, 2*time.Second, 5*time.Millisecond)

		ok, err := h.batchRepo.Finish(ctx, b.ID, models.BatchStatusCancelled, utils.UTCNow())
		require.NoError(t, err)
		require.True(t, ok)

		select {
		case summary := <-done:
			require.NotNil(t, summary)
			assert.Equal(t, models.BatchStatusCancelled, summary.Status)
		case <-time.After(3 * time.Second):
			t.Fatal("runner did not notice the external cancel")
		}
		_, summaries := sink.snapshot()
		assert.Empty(t, summaries, "the canceller delivers the completion, not the runner")
	})
}

func TestShutdownAndResume(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), ignoreDBGoroutines)

	ctx := context.Background()
	h := newHarness(t)
	_, _, err := h.fixtures.LoggedInOperator(1, models.TierUser)
	require.NoError(t, err)

	started, err := h.batches.StartBatch(ctx, 1, &dto.StartBatchRequest{Target: "@x", Category: "spam", Count: 6, DelaySeconds: 5})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p, _ := h.sink.snapshot()
		return len(p) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.batches.Shutdown(ctx))

	stored, err := h.batchRepo.ByBatchID(ctx, started.BatchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusRunning, stored.Status, "shutdown pauses rather than cancels")
	assert.Less(t, stored.CompletedCount, 6)
	assert.Empty(t, h.sink.summariesFor(started.BatchID))

	_, err = h.batches.StartBatch(ctx, 1, &dto.StartBatchRequest{Target: "@x", Category: "spam", Count: 1})
	require.NoError(t, err, "a batch stored after shutdown waits for the next resume")

	// a fresh process picks the batches up where they stopped
	restarted := newBatchFlow(h.auth, h.executor, h.batchRepo, h.statRepo, h.locker, h.sink, DefaultReportSettings(), nil, h.db)
	restarted.delayUnit = time.Millisecond
	resumed, err := restarted.ResumeRunning(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resumed)

	require.Eventually(t, func() bool {
		return len(h.sink.summariesFor(started.BatchID)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	final, err := h.batchRepo.ByBatchID(ctx, started.BatchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, final.Status)
	assert.Equal(t, 6, final.CompletedCount)
	assert.Equal(t, int64(6), h.batchReports(t, started.BatchID), "no item is executed twice")

	require.NoError(t, restarted.Shutdown(ctx))
}
