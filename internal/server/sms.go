package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/bookline/internal/nlu"
	"github.com/smallbiznis/bookline/internal/observability/logger"
)

type smsCallbackRequest struct {
	MessageID string `json:"message_id"`
	FromPhone string `json:"from_phone"`
	Body      string `json:"body"`
}

// SMSCallback processes delivery-correlated customer replies. Anything that
// cannot be matched to a proposal, or comes from the wrong phone, is ignored
// rather than erred so the gateway never retries junk.
func (s *Server) SMSCallback(c *gin.Context) {
	var req smsCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	prop, err := s.proposalSvc.GetByMessageID(ctx, strings.TrimSpace(req.MessageID))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if prop == nil || prop.Phone != strings.TrimSpace(req.FromPhone) {
		c.JSON(http.StatusOK, gin.H{"status": "IGNORED"})
		return
	}

	switch s.replies.ClassifyReply(ctx, req.Body) {
	case nlu.ReplyYes:
		job, err := s.proposalSvc.Confirm(ctx, prop)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if job == nil {
			c.JSON(http.StatusOK, gin.H{"status": "NEEDS_DISPATCH"})
			return
		}
		s.sendConfirmation(c, job)
		c.JSON(http.StatusOK, gin.H{
			"status":     "BOOKED",
			"job_id":     job.ID.String(),
			"tenant_id":  job.TenantID,
			"slot_start": job.SlotStart,
			"slot_end":   job.SlotEnd,
		})
	case nlu.ReplyNo:
		logger.FromContext(ctx).Info("proposal declined over sms",
			zap.String("proposal_id", prop.ID.String()),
		)
		c.JSON(http.StatusOK, gin.H{"status": "HANDOFF", "reason": "reschedule"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "IGNORED"})
	}
}
