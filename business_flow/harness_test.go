package businessflow

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/app/services"
	"github.com/anshu-9837/Banning/repository"
	testutil "github.com/anshu-9837/Banning/testing"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type harness struct {
	db       *gorm.DB
	fixtures *testutil.TestFixtures
	sms      *services.MockSMSService
	tokens   services.TokenService

	operatorRepo repository.OperatorRepository
	codeRepo     repository.OneTimeCodeRepository
	sessionRepo  repository.SessionRepository
	loginLogRepo repository.LoginLogRepository
	reportRepo   repository.ReportRepository
	batchRepo    repository.BatchRepository
	statRepo     repository.DailyStatRepository

	auth      AuthFlow
	executor  ActionExecutor
	reports   ReportFlow
	batches   *BatchFlowImpl
	operators OperatorFlow
	sink      *recordingSink
	locker    *services.MemoryBatchLocker
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	submitter ReportSubmitter
	settings  ReportSettings
	wrapBatch func(repository.BatchRepository) repository.BatchRepository
	wrapStats func(repository.DailyStatRepository) repository.DailyStatRepository
}

func withSubmitter(s ReportSubmitter) harnessOption {
	return func(c *harnessConfig) { c.submitter = s }
}

func withSettings(s ReportSettings) harnessOption {
	return func(c *harnessConfig) { c.settings = s }
}

func withStatRepo(wrap func(repository.DailyStatRepository) repository.DailyStatRepository) harnessOption {
	return func(c *harnessConfig) { c.wrapStats = wrap }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{
		submitter: NewSimulatedSubmitter(1),
		settings:  DefaultReportSettings(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	tdb := testutil.SetupTestDB(t)
	db := tdb.DB

	tokens, err := services.NewTokenService(time.Hour, "banning", "banning-api", false, "", "", "test-secret-key-that-is-long-enough")
	require.NoError(t, err)

	h := &harness{
		db:           db,
		fixtures:     testutil.NewTestFixtures(tdb),
		sms:          services.NewMockSMSService(nil),
		tokens:       tokens,
		operatorRepo: repository.NewOperatorRepository(db),
		codeRepo:     repository.NewOneTimeCodeRepository(db),
		sessionRepo:  repository.NewSessionRepository(db),
		loginLogRepo: repository.NewLoginLogRepository(db),
		reportRepo:   repository.NewReportRepository(db),
		batchRepo:    repository.NewBatchRepository(db),
		statRepo:     repository.NewDailyStatRepository(db),
		sink:         &recordingSink{},
		locker:       services.NewMemoryBatchLocker(),
	}
	if cfg.wrapBatch != nil {
		h.batchRepo = cfg.wrapBatch(h.batchRepo)
	}
	if cfg.wrapStats != nil {
		h.statRepo = cfg.wrapStats(h.statRepo)
	}

	settings := DefaultAuthSettings()
	settings.BcryptCost = bcrypt.MinCost

	logger := zap.NewNop()
	h.auth = NewAuthFlow(h.operatorRepo, h.codeRepo, h.sessionRepo, h.loginLogRepo, tokens,
		services.NewNotificationService(h.sms), settings, logger, db)
	h.executor = NewActionExecutor(cfg.submitter, h.reportRepo, h.statRepo, db)
	h.reports = NewReportFlow(h.auth, h.executor, h.reportRepo, h.statRepo, h.batchRepo, cfg.settings, logger, db)
	h.batches = newBatchFlow(h.auth, h.executor, h.batchRepo, h.statRepo, h.locker, h.sink, cfg.settings, logger, db)
	h.batches.delayUnit = 10 * time.Millisecond
	h.operators = NewOperatorFlow(h.auth, h.operatorRepo, h.sessionRepo, logger, db)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.batches.Shutdown(ctx)
	})

	return h
}

var codePattern = regexp.MustCompile(`\d{6}`)

// sentCode extracts the last login code delivered to phone
func (h *harness) sentCode(t *testing.T, phone string) string {
	t.Helper()
	msg, ok := h.sms.LastMessageTo(phone)
	require.True(t, ok, "no code sent to %s", phone)
	code := codePattern.FindString(msg.Message)
	require.NotEmpty(t, code)
	return code
}

// recordingSink captures everything a batch delivers
type recordingSink struct {
	mu        sync.Mutex
	progress  []dto.BatchProgress
	summaries []dto.BatchSummary
	fail      bool
}

func (s *recordingSink) Progress(_ context.Context, p dto.BatchProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, p)
	if s.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (s *recordingSink) Completed(_ context.Context, summary dto.BatchSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	if s.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (s *recordingSink) snapshot() ([]dto.BatchProgress, []dto.BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.BatchProgress(nil), s.progress...), append([]dto.BatchSummary(nil), s.summaries...)
}

func (s *recordingSink) summariesFor(batchID string) []dto.BatchSummary {
	_, all := s.snapshot()
	var out []dto.BatchSummary
	for _, summary := range all {
		if summary.BatchID == batchID {
			out = append(out, summary)
		}
	}
	return out
}

// sequenceSubmitter returns the given outcomes in order, then repeats the last one
type sequenceSubmitter struct {
	mu       sync.Mutex
	outcomes []bool
	calls    int
}

func (s *sequenceSubmitter) Submit(_ context.Context, _ SubmitRequest) (SubmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := min(s.calls, len(s.outcomes)-1)
	s.calls++
	return SubmitOutcome{Success: s.outcomes[idx], Response: "ok"}, nil
}

// flakyStatRepo fails Increment for the listed call numbers (1-based)
type flakyStatRepo struct {
	repository.DailyStatRepository
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (r *flakyStatRepo) Increment(ctx context.Context, actorID int64, statDate string, success bool) error {
	r.mu.Lock()
	r.calls++
	fail := r.failOn[r.calls]
	r.mu.Unlock()
	if fail {
		return gorm.ErrInvalidDB
	}
	return r.DailyStatRepository.Increment(ctx, actorID, statDate, success)
}
