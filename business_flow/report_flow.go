package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/repository"
	"github.com/anshu-9837/Banning/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxTargetLength     = 512
	maxReportTextLength = 2000
	maxExportRows       = 10000
)

// ReportFlow handles single reports, history and statistics of an operator
type ReportFlow interface {
	SubmitSingleReport(ctx context.Context, actorID int64, request *dto.SubmitReportRequest) (*dto.ReportDTO, error)
	RecentReports(ctx context.Context, actorID int64, limit int) (*dto.ReportHistoryResponse, error)
	Stats(ctx context.Context, actorID int64) (*dto.StatsResponse, error)
	ExportReports(ctx context.Context, actorID int64) (string, []byte, error)
}

// ReportSettings bounds what operators may submit
type ReportSettings struct {
	MaxReportsPerDay int // 0 disables the limit
	MaxBatchCount    int
	MaxDelaySeconds  int
	HistoryLimit     int
}

func DefaultReportSettings() ReportSettings {
	return ReportSettings{
		MaxReportsPerDay: utils.MaxReportsPerDay,
		MaxBatchCount:    utils.MaxBatchCount,
		MaxDelaySeconds:  utils.MaxBatchDelay,
		HistoryLimit:     utils.HistoryLimit,
	}
}

// ReportFlowImpl implements the report business flow
type ReportFlowImpl struct {
	auth       AuthFlow
	executor   ActionExecutor
	reportRepo repository.ReportRepository
	statRepo   repository.DailyStatRepository
	batchRepo  repository.BatchRepository
	settings   ReportSettings
	logger     *zap.Logger
	db         *gorm.DB
}

// NewReportFlow creates a new report flow instance
func NewReportFlow(
	auth AuthFlow,
	executor ActionExecutor,
	reportRepo repository.ReportRepository,
	statRepo repository.DailyStatRepository,
	batchRepo repository.BatchRepository,
	settings ReportSettings,
	logger *zap.Logger,
	db *gorm.DB,
) ReportFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportFlowImpl{
		auth:       auth,
		executor:   executor,
		reportRepo: reportRepo,
		statRepo:   statRepo,
		batchRepo:  batchRepo,
		settings:   settings,
		logger:     logger,
		db:         db,
	}
}

// SubmitSingleReport executes one report for a logged-in operator
func (rf *ReportFlowImpl) SubmitSingleReport(ctx context.Context, actorID int64, request *dto.SubmitReportRequest) (*dto.ReportDTO, error) {
	session, err := rf.auth.CurrentSession(ctx, actorID)
	if err != nil {
		return nil, err
	}

	action, err := normalizeAction(request.Target, request.ReportType, request.Category, request.ReportText)
	if err != nil {
		return nil, NewBusinessError("REPORT_VALIDATION_FAILED", "Report validation failed", err)
	}
	action.ActorID = actorID
	action.ActorName = session.ActorName

	var (
		result   *ActionResult
		quotaErr error
	)
	err = repository.WithTransaction(ctx, rf.db, func(txCtx context.Context) error {
		if quotaErr = ensureDailyQuota(txCtx, rf.statRepo, rf.batchRepo, actorID, 1, rf.settings.MaxReportsPerDay); quotaErr != nil {
			return quotaErr
		}
		var execErr error
		result, execErr = rf.executor.Execute(txCtx, action)
		return execErr
	})
	if quotaErr != nil {
		return nil, quotaErr
	}
	if err != nil {
		rf.logger.Error("Failed to store report", zap.Int64("actor_id", actorID), zap.Error(err))
		return nil, NewBusinessError("REPORT_FAILED", "Failed to store report", err)
	}

	out := ToReportDTO(*result.Report)
	return &out, nil
}

// RecentReports lists the actor's latest reports, newest first
func (rf *ReportFlowImpl) RecentReports(ctx context.Context, actorID int64, limit int) (*dto.ReportHistoryResponse, error) {
	if _, err := rf.auth.CurrentSession(ctx, actorID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = rf.settings.HistoryLimit
	}

	reports, err := rf.reportRepo.RecentByActor(ctx, actorID, limit)
	if err != nil {
		return nil, NewBusinessError("FETCH_REPORTS_FAILED", "Failed to fetch reports", storageFault("recent reports", err))
	}

	resp := &dto.ReportHistoryResponse{Reports: make([]dto.ReportDTO, 0, len(reports))}
	for _, r := range reports {
		resp.Reports = append(resp.Reports, ToReportDTO(*r))
	}
	return resp, nil
}

// Stats sums the actor's daily counters
func (rf *ReportFlowImpl) Stats(ctx context.Context, actorID int64) (*dto.StatsResponse, error) {
	if _, err := rf.auth.CurrentSession(ctx, actorID); err != nil {
		return nil, err
	}

	totals, err := rf.statRepo.Totals(ctx, actorID)
	if err != nil {
		return nil, NewBusinessError("FETCH_STATS_FAILED", "Failed to fetch statistics", storageFault("stat totals", err))
	}

	date := utils.TodayStatDate()
	today, err := rf.statRepo.ByActorAndDate(ctx, actorID, date)
	if err != nil {
		return nil, NewBusinessError("FETCH_STATS_FAILED", "Failed to fetch statistics", storageFault("today stat", err))
	}

	resp := &dto.StatsResponse{
		Today:        dto.DailyStatDTO{Date: date},
		TotalReports: totals.TotalReports,
		Successful:   totals.Successful,
		Failed:       totals.Failed,
		SuccessRate:  utils.RoundTo(utils.Percent(int(totals.Successful), int(totals.TotalReports)), 2),
		ActiveDays:   totals.Days,
		DailyLimit:   rf.settings.MaxReportsPerDay,
	}
	if today != nil {
		resp.Today.TotalReports = today.TotalReports
		resp.Today.Successful = today.Successful
		resp.Today.Failed = today.Failed
	}
	if rf.settings.MaxReportsPerDay > 0 {
		pending, err := rf.batchRepo.PendingItems(ctx, actorID)
		if err != nil {
			return nil, NewBusinessError("FETCH_STATS_FAILED", "Failed to fetch statistics", storageFault("pending batch items", err))
		}
		remaining := max(rf.settings.MaxReportsPerDay-resp.Today.TotalReports-pending, 0)
		resp.RemainingToday = &remaining
	}

	return resp, nil
}

// ExportReports renders the actor's reports as an xlsx workbook
func (rf *ReportFlowImpl) ExportReports(ctx context.Context, actorID int64) (string, []byte, error) {
	if _, err := rf.auth.CurrentSession(ctx, actorID); err != nil {
		return "", nil, err
	}

	reports, err := rf.reportRepo.ByFilter(ctx, models.ReportFilter{ActorID: &actorID}, "created_at DESC, id DESC", maxExportRows, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_REPORTS_FAILED", "Failed to fetch reports", storageFault("export reports", err))
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Reports"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"report_id", "target", "report_type", "category", "status", "is_batch", "batch_id", "response", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, r := range reports {
		batchID := ""
		if r.BatchID != nil {
			batchID = *r.BatchID
		}
		record := []any{
			r.ReportID,
			r.Target,
			r.ReportType,
			r.Category,
			r.Status,
			r.IsBatch,
			batchID,
			r.SimulatedResponse,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("reports_%d_%s.xlsx", actorID, utils.IDTimestamp(utils.UTCNow()))
	return filename, buf.Bytes(), nil
}

// DetectReportType guesses whether a target names an account, a channel or a group
func DetectReportType(target string) string {
	target = strings.TrimSpace(target)
	lower := strings.ToLower(target)

	switch {
	case strings.HasPrefix(target, "@"):
		return models.ReportTypeAccount
	case strings.Contains(lower, "t.me/"):
		switch {
		case strings.Contains(lower, "/c/"), strings.Contains(lower, "/channel"):
			return models.ReportTypeChannel
		case strings.Contains(lower, "/joinchat/"), strings.Contains(lower, "/+"):
			return models.ReportTypeGroup
		case strings.Contains(lower, "channel"):
			return models.ReportTypeChannel
		default:
			return models.ReportTypeGroup
		}
	case isDigits(target):
		return models.ReportTypeAccount
	default:
		return models.ReportTypeAccount
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// normalizeAction validates report fields, detecting the type when none is given
func normalizeAction(target, reportType, category, text string) (ActionRequest, error) {
	target = strings.TrimSpace(target)
	if target == "" || len(target) > maxTargetLength {
		return ActionRequest{}, ErrInvalidTarget
	}
	if len(text) > maxReportTextLength {
		return ActionRequest{}, ErrInvalidReportText
	}

	if reportType == "" {
		reportType = DetectReportType(target)
	}
	if !models.IsValidReportType(reportType) {
		return ActionRequest{}, ErrInvalidReportType
	}
	if !models.IsValidReportCategory(category) {
		return ActionRequest{}, ErrInvalidCategory
	}

	return ActionRequest{
		Target:     target,
		ReportType: reportType,
		Category:   category,
		ReportText: text,
	}, nil
}

// ensureDailyQuota rejects work that would push today's total past limit. Items
// still queued in running batches count as used. It must run in the transaction
// that stores the new work: the locked day row keeps concurrent checks of one
// actor from passing together.
func ensureDailyQuota(ctx context.Context, statRepo repository.DailyStatRepository, batchRepo repository.BatchRepository, actorID int64, adding, limit int) error {
	if limit <= 0 {
		return nil
	}

	today, err := statRepo.LockDay(ctx, actorID, utils.TodayStatDate())
	if err != nil {
		return NewBusinessError("FETCH_STATS_FAILED", "Failed to check daily limit", storageFault("today stat", err))
	}
	pending, err := batchRepo.PendingItems(ctx, actorID)
	if err != nil {
		return NewBusinessError("FETCH_STATS_FAILED", "Failed to check daily limit", storageFault("pending batch items", err))
	}
	used := pending
	if today != nil {
		used += today.TotalReports
	}
	if used+adding > limit {
		return NewBusinessErrorf("DAILY_LIMIT_REACHED", "Daily report limit of %d reached (%d used)", ErrDailyLimitReached, limit, used)
	}
	return nil
}
