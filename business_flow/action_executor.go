package businessflow

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/repository"
	"github.com/anshu-9837/Banning/utils"
	"gorm.io/gorm"
)

// SubmitRequest is what a submitter sees of a report
type SubmitRequest struct {
	Target     string
	ReportType string
	Category   string
	ReportText string
}

// SubmitOutcome is the result reported by a submitter
type SubmitOutcome struct {
	Success  bool
	Response string
}

// ReportSubmitter delivers a report to wherever reports go
type ReportSubmitter interface {
	Submit(ctx context.Context, request SubmitRequest) (SubmitOutcome, error)
}

var simulatedResponses = []string{
	"✅ Report submitted successfully.",
	"⚠️ Report received. Thank you.",
	"📋 Your report has been recorded.",
	"🔍 Report under review.",
	"📨 Report sent to moderation team.",
}

// SimulatedSubmitter succeeds with a fixed probability and never touches the network
type SimulatedSubmitter struct {
	mu          sync.Mutex
	probability float64
	float64Fn   func() float64
	intNFn      func(int) int
}

// NewSimulatedSubmitter creates a submitter that succeeds with the given probability
func NewSimulatedSubmitter(probability float64) *SimulatedSubmitter {
	return &SimulatedSubmitter{
		probability: probability,
		float64Fn:   rand.Float64,
		intNFn:      rand.IntN,
	}
}

// NewSeededSimulatedSubmitter draws from a deterministic PCG source
func NewSeededSimulatedSubmitter(probability float64, seed uint64) *SimulatedSubmitter {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &SimulatedSubmitter{
		probability: probability,
		float64Fn:   r.Float64,
		intNFn:      r.IntN,
	}
}

func (s *SimulatedSubmitter) Submit(ctx context.Context, request SubmitRequest) (SubmitOutcome, error) {
	if err := ctx.Err(); err != nil {
		return SubmitOutcome{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return SubmitOutcome{
		Success:  s.float64Fn() < s.probability,
		Response: simulatedResponses[s.intNFn(len(simulatedResponses))],
	}, nil
}

// ActionRequest describes one report to execute
type ActionRequest struct {
	ActorID    int64
	ActorName  string
	Target     string
	ReportType string
	Category   string
	ReportText string
	BatchID    *string
}

// ActionResult is the stored report and its outcome
type ActionResult struct {
	Report   *models.Report
	Success  bool
	Response string
}

// ActionExecutor executes one report and persists its record with the daily counters
type ActionExecutor interface {
	Execute(ctx context.Context, request ActionRequest) (*ActionResult, error)
}

// ActionExecutorImpl implements ActionExecutor
type ActionExecutorImpl struct {
	submitter  ReportSubmitter
	reportRepo repository.ReportRepository
	statRepo   repository.DailyStatRepository
	db         *gorm.DB
}

// NewActionExecutor creates a new action executor
func NewActionExecutor(
	submitter ReportSubmitter,
	reportRepo repository.ReportRepository,
	statRepo repository.DailyStatRepository,
	db *gorm.DB,
) ActionExecutor {
	return &ActionExecutorImpl{
		submitter:  submitter,
		reportRepo: reportRepo,
		statRepo:   statRepo,
		db:         db,
	}
}

// Execute submits the report and stores it. A failed outcome is not an error;
// only persistence failures are returned, wrapped as ErrStorageFault.
// When ctx carries a transaction the writes join it.
func (e *ActionExecutorImpl) Execute(ctx context.Context, request ActionRequest) (*ActionResult, error) {
	outcome, err := e.submitter.Submit(ctx, SubmitRequest{
		Target:     request.Target,
		ReportType: request.ReportType,
		Category:   request.Category,
		ReportText: request.ReportText,
	})
	if err != nil {
		outcome = SubmitOutcome{Success: false, Response: err.Error()}
	}

	now := utils.UTCNow()
	report, err := e.buildReport(request, outcome, now)
	if err != nil {
		return nil, err
	}

	err = repository.WithTransaction(ctx, e.db, func(txCtx context.Context) error {
		if err := e.reportRepo.Save(txCtx, report); err != nil {
			return err
		}
		return e.statRepo.Increment(txCtx, request.ActorID, utils.StatDate(now), outcome.Success)
	})
	if err != nil {
		return nil, storageFault("execute report", err)
	}

	return &ActionResult{
		Report:   report,
		Success:  outcome.Success,
		Response: outcome.Response,
	}, nil
}

func (e *ActionExecutorImpl) buildReport(request ActionRequest, outcome SubmitOutcome, now time.Time) (*models.Report, error) {
	reportID, err := newReportID(now, request.ActorID)
	if err != nil {
		return nil, err
	}

	status := models.ReportStatusFailed
	if outcome.Success {
		status = models.ReportStatusSuccess
	}

	return &models.Report{
		ReportID:          reportID,
		ActorID:           request.ActorID,
		ActorName:         request.ActorName,
		Target:            request.Target,
		ReportType:        request.ReportType,
		Category:          request.Category,
		ReportText:        request.ReportText,
		Status:            status,
		IsBatch:           request.BatchID != nil,
		BatchID:           request.BatchID,
		SimulatedResponse: outcome.Response,
		CreatedAt:         now,
	}, nil
}
