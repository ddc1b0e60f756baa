// Package businessflow contains the business logic for the report bot.
package businessflow

import (
	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds caller information recorded in the login log
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func (cm *ClientMetadata) ipAddress() *string {
	if cm == nil || cm.IPAddress == "" {
		return nil
	}
	ip := cm.IPAddress
	return &ip
}

func ToSessionInfo(s models.Session) dto.SessionInfo {
	return dto.SessionInfo{
		ActorID:      s.ActorID,
		ActorName:    s.ActorName,
		DisplayName:  s.DisplayName,
		Tier:         s.Tier,
		Language:     s.Language,
		MaskedPhone:  MaskPhone(s.Phone),
		LoginAt:      s.LoginAt,
		LastActiveAt: s.LastActiveAt,
	}
}

func ToReportDTO(r models.Report) dto.ReportDTO {
	return dto.ReportDTO{
		ReportID:          r.ReportID,
		Target:            r.Target,
		ReportType:        r.ReportType,
		Category:          r.Category,
		Status:            r.Status,
		IsBatch:           r.IsBatch,
		BatchID:           r.BatchID,
		SimulatedResponse: r.SimulatedResponse,
		CreatedAt:         r.CreatedAt,
	}
}

func ToBatchDTO(b models.Batch) dto.BatchDTO {
	return dto.BatchDTO{
		BatchID:           b.BatchID,
		Target:            b.Target,
		ReportType:        b.ReportType,
		Category:          b.Category,
		TotalCount:        b.TotalCount,
		CompletedCount:    b.CompletedCount,
		SuccessfulCount:   b.SuccessfulCount,
		FailedCount:       b.FailedCount,
		StorageFaultCount: b.StorageFaultCount,
		DelaySeconds:      b.DelaySeconds,
		Status:            b.Status,
		StartedAt:         b.StartedAt,
		EndedAt:           b.EndedAt,
	}
}

func ToOperatorDTO(o models.Operator) dto.OperatorDTO {
	return dto.OperatorDTO{
		Phone:       o.Phone,
		DisplayName: o.DisplayName,
		Tier:        o.Tier,
		Status:      o.Status,
		UpdatedAt:   o.UpdatedAt,
	}
}
