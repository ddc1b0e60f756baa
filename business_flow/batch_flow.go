package businessflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/repository"
	"github.com/anshu-9837/Banning/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errDispatcherClosed = errors.New("batch dispatcher is shut down")

// ProgressSink receives batch progress. Delivery errors never stop a batch.
type ProgressSink interface {
	Progress(ctx context.Context, progress dto.BatchProgress) error
	Completed(ctx context.Context, summary dto.BatchSummary) error
}

// ProgressSinkFuncs adapts plain functions to ProgressSink; nil funcs are skipped
type ProgressSinkFuncs struct {
	OnProgress  func(ctx context.Context, progress dto.BatchProgress) error
	OnCompleted func(ctx context.Context, summary dto.BatchSummary) error
}

func (f ProgressSinkFuncs) Progress(ctx context.Context, progress dto.BatchProgress) error {
	if f.OnProgress == nil {
		return nil
	}
	return f.OnProgress(ctx, progress)
}

func (f ProgressSinkFuncs) Completed(ctx context.Context, summary dto.BatchSummary) error {
	if f.OnCompleted == nil {
		return nil
	}
	return f.OnCompleted(ctx, summary)
}

// BatchLocker guarantees a batch is executed by at most one runner at a time
type BatchLocker interface {
	Acquire(ctx context.Context, batchID string) (bool, error)
	Refresh(ctx context.Context, batchID string) error
	Release(ctx context.Context, batchID string) error
}

// BatchFlow starts, runs, cancels and resumes batch reports
type BatchFlow interface {
	StartBatch(ctx context.Context, actorID int64, request *dto.StartBatchRequest) (*dto.BatchDTO, error)
	Run(ctx context.Context, batch *models.Batch, sink ProgressSink) (*dto.BatchSummary, error)
	Cancel(ctx context.Context, actorID int64, batchID string) (*dto.BatchDTO, error)
	Get(ctx context.Context, actorID int64, batchID string) (*dto.BatchDTO, error)
	ResumeRunning(ctx context.Context) (int, error)
	Shutdown(ctx context.Context) error
}

// batchRun is the in-process handle of an executing batch
type batchRun struct {
	cancelOnce sync.Once
	cancelled  chan struct{}
	done       chan struct{}
}

func newBatchRun() *batchRun {
	return &batchRun{
		cancelled: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (r *batchRun) cancel() {
	r.cancelOnce.Do(func() { close(r.cancelled) })
}

func (r *batchRun) isCancelled() bool {
	select {
	case <-r.cancelled:
		return true
	default:
		return false
	}
}

// batchCounters mirrors the persisted counters of a batch while it runs
type batchCounters struct {
	completed     int
	successful    int
	failed        int
	storageFaults int
}

// BatchFlowImpl implements BatchFlow and runs each batch in its own goroutine
type BatchFlowImpl struct {
	auth      AuthFlow
	executor  ActionExecutor
	batchRepo repository.BatchRepository
	statRepo  repository.DailyStatRepository
	locker    BatchLocker
	sink      ProgressSink
	settings  ReportSettings
	logger    *zap.Logger
	db        *gorm.DB
	delayUnit time.Duration

	mu      sync.Mutex
	rootCtx context.Context
	stopAll context.CancelFunc
	runs    map[string]*batchRun
	wg      sync.WaitGroup
	closed  bool
}

// NewBatchFlow creates a new batch flow. sink receives progress of dispatched batches.
func NewBatchFlow(
	auth AuthFlow,
	executor ActionExecutor,
	batchRepo repository.BatchRepository,
	statRepo repository.DailyStatRepository,
	locker BatchLocker,
	sink ProgressSink,
	settings ReportSettings,
	logger *zap.Logger,
	db *gorm.DB,
) BatchFlow {
	return newBatchFlow(auth, executor, batchRepo, statRepo, locker, sink, settings, logger, db)
}

func newBatchFlow(
	auth AuthFlow,
	executor ActionExecutor,
	batchRepo repository.BatchRepository,
	statRepo repository.DailyStatRepository,
	locker BatchLocker,
	sink ProgressSink,
	settings ReportSettings,
	logger *zap.Logger,
	db *gorm.DB,
) *BatchFlowImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = ProgressSinkFuncs{}
	}
	rootCtx, stopAll := context.WithCancel(context.Background())
	return &BatchFlowImpl{
		auth:      auth,
		executor:  executor,
		batchRepo: batchRepo,
		statRepo:  statRepo,
		locker:    locker,
		sink:      sink,
		settings:  settings,
		logger:    logger,
		db:        db,
		delayUnit: time.Second,
		rootCtx:   rootCtx,
		stopAll:   stopAll,
		runs:      make(map[string]*batchRun),
	}
}

// StartBatch validates and stores a new batch, then dispatches it
func (bf *BatchFlowImpl) StartBatch(ctx context.Context, actorID int64, request *dto.StartBatchRequest) (*dto.BatchDTO, error) {
	session, err := bf.auth.CurrentSession(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if request.Count < 1 || request.Count > bf.settings.MaxBatchCount {
		return nil, NewBusinessErrorf("INVALID_BATCH_COUNT", "Count must be between 1 and %d", ErrInvalidBatchCount, bf.settings.MaxBatchCount)
	}
	if request.DelaySeconds < 0 || request.DelaySeconds > bf.settings.MaxDelaySeconds {
		return nil, NewBusinessErrorf("INVALID_BATCH_DELAY", "Delay must be between 0 and %d seconds", ErrInvalidBatchDelay, bf.settings.MaxDelaySeconds)
	}
	action, err := normalizeAction(request.Target, request.ReportType, request.Category, request.ReportText)
	if err != nil {
		return nil, NewBusinessError("REPORT_VALIDATION_FAILED", "Report validation failed", err)
	}

	now := utils.UTCNow()
	batchID, err := newBatchID(now, actorID)
	if err != nil {
		return nil, NewBusinessError("BATCH_CREATE_FAILED", "Failed to generate batch id", err)
	}

	batch := &models.Batch{
		BatchID:      batchID,
		ActorID:      actorID,
		ActorName:    session.ActorName,
		Language:     session.Language,
		Target:       action.Target,
		ReportType:   action.ReportType,
		Category:     action.Category,
		ReportText:   action.ReportText,
		TotalCount:   request.Count,
		DelaySeconds: request.DelaySeconds,
		Status:       models.BatchStatusRunning,
		StartedAt:    now,
	}
	var quotaErr error
	err = repository.WithTransaction(ctx, bf.db, func(txCtx context.Context) error {
		if quotaErr = ensureDailyQuota(txCtx, bf.statRepo, bf.batchRepo, actorID, request.Count, bf.settings.MaxReportsPerDay); quotaErr != nil {
			return quotaErr
		}
		return bf.batchRepo.Save(txCtx, batch)
	})
	if quotaErr != nil {
		return nil, quotaErr
	}
	if err != nil {
		return nil, NewBusinessError("BATCH_CREATE_FAILED", "Failed to create batch", storageFault("save batch", err))
	}

	if err := bf.dispatch(ctx, batch, bf.sink); err != nil {
		// the row stays running and is picked up by the next resume
		bf.logger.Warn("Batch stored but not dispatched", zap.String("batch_id", batchID), zap.Error(err))
	}

	bf.logger.Info("Batch started",
		zap.String("batch_id", batchID),
		zap.Int64("actor_id", actorID),
		zap.Int("count", request.Count),
		zap.Int("delay_seconds", request.DelaySeconds))

	out := ToBatchDTO(*batch)
	return &out, nil
}

// Run executes the remaining items of batch in the calling goroutine
func (bf *BatchFlowImpl) Run(ctx context.Context, batch *models.Batch, sink ProgressSink) (*dto.BatchSummary, error) {
	if sink == nil {
		sink = ProgressSinkFuncs{}
	}
	run, err := bf.track(batch.BatchID, false)
	if err != nil {
		return nil, err
	}
	defer bf.untrack(batch.BatchID, run)

	if err := bf.lock(ctx, batch.BatchID); err != nil {
		return nil, err
	}
	return bf.execute(ctx, batch, sink, run)
}

// Cancel stops a running batch owned by actorID
func (bf *BatchFlowImpl) Cancel(ctx context.Context, actorID int64, batchID string) (*dto.BatchDTO, error) {
	batch, err := bf.owned(ctx, actorID, batchID)
	if err != nil {
		return nil, err
	}
	if !batch.IsRunning() {
		return nil, NewBusinessError("BATCH_NOT_RUNNING", "Batch is not running", ErrBatchNotRunning)
	}

	bf.mu.Lock()
	run, executing := bf.runs[batchID]
	bf.mu.Unlock()

	if executing {
		run.cancel()
		select {
		case <-run.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		// not executing here: finish the row directly so no runner resumes it
		if _, err := bf.finish(ctx, batch, models.BatchStatusCancelled, bf.sink); err != nil {
			return nil, NewBusinessError("BATCH_CANCEL_FAILED", "Failed to cancel batch", err)
		}
	}

	bf.logger.Info("Batch cancelled", zap.String("batch_id", batchID), zap.Int64("actor_id", actorID))

	return bf.Get(ctx, actorID, batchID)
}

// Get returns a batch to its owner
func (bf *BatchFlowImpl) Get(ctx context.Context, actorID int64, batchID string) (*dto.BatchDTO, error) {
	batch, err := bf.owned(ctx, actorID, batchID)
	if err != nil {
		return nil, err
	}
	out := ToBatchDTO(*batch)
	return &out, nil
}

// ResumeRunning dispatches every running batch that no runner holds. A batch whose
// lock is still held (running here, elsewhere, or left by a crashed process until
// its TTL lapses) is skipped and picked up by a later call. The count covers only
// batches whose lock was acquired.
func (bf *BatchFlowImpl) ResumeRunning(ctx context.Context) (int, error) {
	batches, err := bf.batchRepo.ListRunning(ctx)
	if err != nil {
		return 0, storageFault("list running batches", err)
	}

	resumed := 0
	for _, b := range batches {
		err := bf.dispatch(ctx, b, bf.sink)
		switch {
		case err == nil:
		case errors.Is(err, errDispatcherClosed):
			return resumed, err
		case IsBatchLocked(err):
			continue
		default:
			bf.logger.Warn("Failed to resume batch", zap.String("batch_id", b.BatchID), zap.Error(err))
			continue
		}
		resumed++
		bf.logger.Info("Batch resumed",
			zap.String("batch_id", b.BatchID),
			zap.Int("completed", b.CompletedCount),
			zap.Int("total", b.TotalCount))
	}

	return resumed, nil
}

// Shutdown stops every batch goroutine and waits for them. Stopped batches stay
// running in storage and resume on the next start.
func (bf *BatchFlowImpl) Shutdown(ctx context.Context) error {
	bf.mu.Lock()
	bf.closed = true
	bf.mu.Unlock()
	bf.stopAll()

	done := make(chan struct{})
	go func() {
		bf.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track registers a run handle; background runs are also added to the shutdown wait group
func (bf *BatchFlowImpl) track(batchID string, background bool) (*batchRun, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.closed {
		return nil, errDispatcherClosed
	}
	if _, ok := bf.runs[batchID]; ok {
		return nil, NewBusinessError("BATCH_LOCKED", "Batch is already running", ErrBatchLocked)
	}
	run := newBatchRun()
	bf.runs[batchID] = run
	if background {
		bf.wg.Add(1)
	}
	return run, nil
}

func (bf *BatchFlowImpl) untrack(batchID string, run *batchRun) {
	bf.mu.Lock()
	if bf.runs[batchID] == run {
		delete(bf.runs, batchID)
	}
	bf.mu.Unlock()
	close(run.done)
}

// lock takes the cross-process batch lock
func (bf *BatchFlowImpl) lock(ctx context.Context, batchID string) error {
	acquired, err := bf.locker.Acquire(ctx, batchID)
	if err != nil {
		return NewBusinessError("BATCH_LOCK_FAILED", "Failed to lock batch", err)
	}
	if !acquired {
		return NewBusinessError("BATCH_LOCKED", "Batch is being processed elsewhere", ErrBatchLocked)
	}
	return nil
}

// dispatch locks the batch and runs it on its own goroutine. The lock is taken
// before returning so callers learn whether the batch actually started.
func (bf *BatchFlowImpl) dispatch(ctx context.Context, batch *models.Batch, sink ProgressSink) error {
	run, err := bf.track(batch.BatchID, true)
	if err != nil {
		return err
	}
	if err := bf.lock(ctx, batch.BatchID); err != nil {
		bf.untrack(batch.BatchID, run)
		bf.wg.Done()
		return err
	}

	go func() {
		defer bf.wg.Done()
		defer bf.untrack(batch.BatchID, run)

		summary, err := bf.execute(bf.rootCtx, batch, sink, run)
		switch {
		case err == nil:
			bf.logger.Info("Batch finished",
				zap.String("batch_id", summary.BatchID),
				zap.String("status", summary.Status),
				zap.Int("successful", summary.Successful),
				zap.Int("failed", summary.Failed))
		case errors.Is(err, context.Canceled):
			bf.logger.Info("Batch paused for shutdown", zap.String("batch_id", batch.BatchID))
		case errors.Is(err, ErrBatchNotRunning):
			bf.logger.Debug("Batch finished before it was resumed", zap.String("batch_id", batch.BatchID))
		default:
			bf.logger.Error("Batch run failed", zap.String("batch_id", batch.BatchID), zap.Error(err))
		}
	}()

	return nil
}

// execute runs the loop with the batch lock already held and releases it on return
func (bf *BatchFlowImpl) execute(ctx context.Context, batch *models.Batch, sink ProgressSink, run *batchRun) (*dto.BatchSummary, error) {
	defer func() {
		if err := bf.locker.Release(context.WithoutCancel(ctx), batch.BatchID); err != nil {
			bf.logger.Warn("Failed to release batch lock", zap.String("batch_id", batch.BatchID), zap.Error(err))
		}
	}()

	current, err := bf.batchRepo.ByID(ctx, batch.ID)
	if err != nil {
		return nil, storageFault("load batch", err)
	}
	if current == nil {
		return nil, NewBusinessError("BATCH_NOT_FOUND", "Batch not found", ErrBatchNotFound)
	}
	if !current.IsRunning() {
		return nil, NewBusinessError("BATCH_NOT_RUNNING", "Batch is not running", ErrBatchNotRunning)
	}

	batchesStarted.Inc()
	batchesRunning.Inc()
	defer batchesRunning.Dec()

	counters := batchCounters{
		completed:     current.CompletedCount,
		successful:    current.SuccessfulCount,
		failed:        current.FailedCount,
		storageFaults: current.StorageFaultCount,
	}
	total := current.TotalCount
	delay := time.Duration(current.DelaySeconds) * bf.delayUnit

	for i := current.CompletedCount; i < total; i++ {
		if run.isCancelled() {
			return bf.finishWith(ctx, current, counters, models.BatchStatusCancelled, sink)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stopped, err := bf.stoppedElsewhere(ctx, current.ID); err != nil || stopped {
			if err != nil {
				return nil, err
			}
			return bf.summaryFromStore(ctx, current.ID)
		}

		outcome, err := bf.executeItem(ctx, current)
		if err != nil {
			return nil, err
		}
		counters.completed++
		switch outcome {
		case itemOutcomeSuccess:
			counters.successful++
		case itemOutcomeFailed:
			counters.failed++
		case itemOutcomeStorageFault:
			counters.failed++
			counters.storageFaults++
		}
		batchItems.WithLabelValues(outcome).Inc()

		if err := bf.locker.Refresh(ctx, current.BatchID); err != nil {
			bf.logger.Warn("Failed to refresh batch lock", zap.String("batch_id", current.BatchID), zap.Error(err))
		}

		progress := bf.progress(current, counters)
		if err := sink.Progress(ctx, progress); err != nil {
			bf.logger.Debug("Progress delivery failed", zap.String("batch_id", current.BatchID), zap.Error(err))
		}

		if i < total-1 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-run.cancelled:
				timer.Stop()
			case <-ctx.Done():
				timer.Stop()
			}
		}
	}

	return bf.finishWith(ctx, current, counters, models.BatchStatusCompleted, sink)
}

// executeItem runs one report and advances the batch counters in the same transaction.
// A persistence failure rolls the item back and records it as a failed storage fault.
func (bf *BatchFlowImpl) executeItem(ctx context.Context, batch *models.Batch) (string, error) {
	var success bool
	err := repository.WithTransaction(ctx, bf.db, func(txCtx context.Context) error {
		result, err := bf.executor.Execute(txCtx, ActionRequest{
			ActorID:    batch.ActorID,
			ActorName:  batch.ActorName,
			Target:     batch.Target,
			ReportType: batch.ReportType,
			Category:   batch.Category,
			ReportText: batch.ReportText,
			BatchID:    &batch.BatchID,
		})
		if err != nil {
			return err
		}
		success = result.Success
		if err := bf.batchRepo.RecordOutcome(txCtx, batch.ID, result.Success); err != nil {
			return storageFault("record outcome", err)
		}
		return nil
	})
	if err == nil {
		if success {
			return itemOutcomeSuccess, nil
		}
		return itemOutcomeFailed, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	bf.logger.Error("Batch item storage fault",
		zap.String("batch_id", batch.BatchID),
		zap.Int64("actor_id", batch.ActorID),
		zap.Error(err))
	if err := bf.batchRepo.RecordStorageFault(ctx, batch.ID); err != nil {
		bf.logger.Error("Failed to record storage fault", zap.String("batch_id", batch.BatchID), zap.Error(err))
	}

	return itemOutcomeStorageFault, nil
}

// stoppedElsewhere reports whether the stored batch left running, e.g. cancelled by another process
func (bf *BatchFlowImpl) stoppedElsewhere(ctx context.Context, id uint) (bool, error) {
	stored, err := bf.batchRepo.ByID(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, storageFault("load batch", err)
	}
	return stored == nil || !stored.IsRunning(), nil
}

func (bf *BatchFlowImpl) summaryFromStore(ctx context.Context, id uint) (*dto.BatchSummary, error) {
	stored, err := bf.batchRepo.ByID(ctx, id)
	if err != nil {
		return nil, storageFault("load batch", err)
	}
	if stored == nil {
		return nil, NewBusinessError("BATCH_NOT_FOUND", "Batch not found", ErrBatchNotFound)
	}
	summary := bf.summary(stored, batchCounters{
		completed:     stored.CompletedCount,
		successful:    stored.SuccessfulCount,
		failed:        stored.FailedCount,
		storageFaults: stored.StorageFaultCount,
	}, stored.Status)
	return &summary, nil
}

func (bf *BatchFlowImpl) finishWith(ctx context.Context, batch *models.Batch, counters batchCounters, status string, sink ProgressSink) (*dto.BatchSummary, error) {
	snapshot := *batch
	snapshot.CompletedCount = counters.completed
	snapshot.SuccessfulCount = counters.successful
	snapshot.FailedCount = counters.failed
	snapshot.StorageFaultCount = counters.storageFaults
	return bf.finish(ctx, &snapshot, status, sink)
}

// finish moves the batch to status and delivers the summary, once, to sink
func (bf *BatchFlowImpl) finish(ctx context.Context, batch *models.Batch, status string, sink ProgressSink) (*dto.BatchSummary, error) {
	ctx = context.WithoutCancel(ctx)

	updated, err := bf.batchRepo.Finish(ctx, batch.ID, status, utils.UTCNow())
	if err != nil {
		return nil, storageFault("finish batch", err)
	}
	if !updated {
		return bf.summaryFromStore(ctx, batch.ID)
	}

	batchesFinished.WithLabelValues(status).Inc()

	summary := bf.summary(batch, batchCounters{
		completed:     batch.CompletedCount,
		successful:    batch.SuccessfulCount,
		failed:        batch.FailedCount,
		storageFaults: batch.StorageFaultCount,
	}, status)
	if err := sink.Completed(ctx, summary); err != nil {
		bf.logger.Debug("Completion delivery failed", zap.String("batch_id", batch.BatchID), zap.Error(err))
	}

	return &summary, nil
}

func (bf *BatchFlowImpl) progress(batch *models.Batch, c batchCounters) dto.BatchProgress {
	percent := utils.Percent(c.completed, batch.TotalCount)
	eta := (batch.TotalCount - c.completed) * batch.DelaySeconds
	return dto.BatchProgress{
		BatchID:       batch.BatchID,
		ActorID:       batch.ActorID,
		Target:        batch.Target,
		Completed:     c.completed,
		Total:         batch.TotalCount,
		Successful:    c.successful,
		Failed:        c.failed,
		StorageFaults: c.storageFaults,
		Percent:       utils.RoundTo(percent, 1),
		ETASeconds:    eta,
		ProgressBar:   RenderProgressBar(percent),
		Text:          FormatProgressText(batch.Target, c.completed, batch.TotalCount, c.successful, c.failed, percent, eta),
	}
}

func (bf *BatchFlowImpl) summary(batch *models.Batch, c batchCounters, status string) dto.BatchSummary {
	rate := utils.Percent(c.successful, batch.TotalCount)
	elapsed := batch.TotalCount * batch.DelaySeconds
	text := FormatCompletionText(batch.Target, batch.TotalCount, c.successful, c.failed, rate, elapsed)
	if status == models.BatchStatusCancelled {
		elapsed = c.completed * batch.DelaySeconds
		text = FormatCancelledText(batch.Target, c.completed, batch.TotalCount, c.successful, c.failed)
	}
	return dto.BatchSummary{
		BatchID:        batch.BatchID,
		ActorID:        batch.ActorID,
		Target:         batch.Target,
		Status:         status,
		Total:          batch.TotalCount,
		Completed:      c.completed,
		Successful:     c.successful,
		Failed:         c.failed,
		StorageFaults:  c.storageFaults,
		SuccessRate:    utils.RoundTo(rate, 2),
		ElapsedSeconds: elapsed,
		Text:           text,
	}
}

func (bf *BatchFlowImpl) owned(ctx context.Context, actorID int64, batchID string) (*models.Batch, error) {
	batch, err := bf.batchRepo.ByBatchID(ctx, batchID)
	if err != nil {
		return nil, NewBusinessError("FETCH_BATCH_FAILED", "Failed to fetch batch", storageFault("load batch", err))
	}
	if batch == nil || batch.ActorID != actorID {
		return nil, NewBusinessError("BATCH_NOT_FOUND", "Batch not found", ErrBatchNotFound)
	}
	return batch, nil
}
