package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	"github.com/smallbiznis/bookline/internal/intent"
	"github.com/smallbiznis/bookline/internal/observability/logger"
	"github.com/smallbiznis/bookline/internal/providers/sms"
)

type leadRequest struct {
	EventID  string `json:"event_id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Service  string `json:"service"`
	Notes    string `json:"notes"`
}

func (r leadRequest) toLead() bookingdomain.Lead {
	return bookingdomain.Lead{
		EventID:  strings.TrimSpace(r.EventID),
		TenantID: strings.TrimSpace(r.TenantID),
		Name:     strings.TrimSpace(r.Name),
		Phone:    strings.TrimSpace(r.Phone),
		Address:  strings.TrimSpace(r.Address),
		Service:  strings.TrimSpace(r.Service),
		Notes:    r.Notes,
	}
}

type slotPayload struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type jobBookedResponse struct {
	JobID        string      `json:"job_id"`
	TenantID     string      `json:"tenant_id"`
	CustomerName string      `json:"customer_name"`
	Phone        string      `json:"phone"`
	Service      string      `json:"service"`
	Slot         slotPayload `json:"slot"`
	Status       string      `json:"status"`
	SourceEvent  string      `json:"source_event"`
}

// HandleLead books the earliest free slot for a booking-intent lead. Cancel
// and reschedule intents are handed off to a human; a full calendar is a
// dispatch case, not an error.
func (s *Server) HandleLead(c *gin.Context) {
	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	lead := req.toLead()
	log := logger.FromContext(ctx)
	log.Info("lead received",
		zap.String("tenant_id", lead.TenantID),
		zap.String("event_id", lead.EventID),
	)

	leadIntent := s.intents.Classify(lead)
	if leadIntent != intent.IntentBook {
		c.JSON(http.StatusOK, gin.H{"status": "HANDOFF", "reason": string(leadIntent)})
		return
	}

	window, err := s.allocator.ClaimNext(ctx, lead.TenantID, lead.Service)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if window == nil {
		s.bookingMetrics.DispatchNeeded()
		c.JSON(http.StatusOK, gin.H{"status": "NEEDS_DISPATCH"})
		return
	}

	job, err := s.bookingSvc.Book(ctx, lead, *window, bookingdomain.OpBookJob)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sendConfirmation(c, job)

	c.JSON(http.StatusOK, jobBookedResponse{
		JobID:        job.ID.String(),
		TenantID:     job.TenantID,
		CustomerName: job.CustomerName,
		Phone:        job.Phone,
		Service:      job.Service,
		Slot:         slotPayload{Start: job.SlotStart, End: job.SlotEnd},
		Status:       job.Status,
		SourceEvent:  job.SourceEventID,
	})
}

// sendConfirmation is best effort: a failed confirmation message never undoes
// a booked job.
func (s *Server) sendConfirmation(c *gin.Context, job *bookingdomain.Job) {
	ctx := c.Request.Context()
	if _, err := s.smsSender.Send(ctx, job.Phone, sms.ComposeConfirmation(job)); err != nil {
		logger.FromContext(ctx).Warn("confirmation send failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}
