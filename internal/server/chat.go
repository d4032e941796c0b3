package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	"github.com/smallbiznis/bookline/internal/nlu"
	"github.com/smallbiznis/bookline/internal/observability/logger"
	proposaldomain "github.com/smallbiznis/bookline/internal/proposal/domain"
	"github.com/smallbiznis/bookline/internal/providers/sms"
)

const (
	eventChatInbound    = "evt_chat_inbound"
	eventChatReschedule = "evt_chat_resched"
)

type chatRequest struct {
	FromPhone string `json:"from_phone"`
	Text      string `json:"text"`
}

// ChatInbound turns a free-text message into a slot proposal. The tenant is
// resolved by phone binding first, then from the text itself; the service
// always comes from the text.
func (s *Server) ChatInbound(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	phone := strings.TrimSpace(req.FromPhone)
	log := logger.FromContext(ctx)

	tenantID, err := s.tenantSvc.ResolveByPhone(ctx, phone)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	log.Info("tenant resolved", zap.String("phone", phone), zap.String("tenant_id", tenantID))

	entities := s.replies.ExtractEntities(ctx, req.Text)
	if tenantID == "" {
		tenantID = entities.TenantID
		log.Info("tenant from text", zap.String("tenant_id", tenantID))
	}
	service := entities.Service

	if tenantID == "" || service == "" {
		c.JSON(http.StatusOK, gin.H{
			"status":  "HANDOFF",
			"message": "Could not determine tenant or service.",
		})
		return
	}

	window, err := s.allocator.Preview(ctx, tenantID, service)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if window == nil {
		s.bookingMetrics.DispatchNeeded()
		c.JSON(http.StatusOK, gin.H{
			"status":    "NEEDS_DISPATCH",
			"tenant_id": tenantID,
			"service":   service,
		})
		return
	}

	lead := bookingdomain.Lead{
		EventID:  eventChatInbound,
		TenantID: tenantID,
		Name:     phone,
		Phone:    phone,
		Service:  service,
	}

	prop, text, err := s.propose(c, lead, *window)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "PROPOSED",
		"tenant_id":   tenantID,
		"service":     service,
		"proposal_id": prop.ID.String(),
		"message":     text,
	})
}

// ChatReply routes a customer's answer to their latest proposal: yes
// confirms, no re-proposes the next later slot, anything else asks them to
// clarify.
func (s *Server) ChatReply(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	prop, err := s.proposalSvc.LatestByPhone(ctx, strings.TrimSpace(req.FromPhone))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if prop == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "HANDOFF",
			"message": "No active proposal found.",
		})
		return
	}

	switch s.replies.ClassifyReply(ctx, req.Text) {
	case nlu.ReplyYes:
		s.confirmChatProposal(c, prop)
	case nlu.ReplyNo:
		s.rescheduleChatProposal(c, prop)
	default:
		c.JSON(http.StatusOK, gin.H{
			"status":      "CLARIFY",
			"proposal_id": prop.ID.String(),
			"message":     "Please reply YES to confirm or say RESCHEDULE.",
		})
	}
}

func (s *Server) confirmChatProposal(c *gin.Context, prop *proposaldomain.Proposal) {
	job, err := s.proposalSvc.Confirm(c.Request.Context(), prop)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if job == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":      "NEEDS_DISPATCH",
			"proposal_id": prop.ID.String(),
		})
		return
	}

	s.sendConfirmation(c, job)
	c.JSON(http.StatusOK, gin.H{
		"status":      "BOOKED",
		"job_id":      job.ID.String(),
		"proposal_id": prop.ID.String(),
		"message":     sms.ComposeConfirmation(job),
	})
}

// rescheduleChatProposal offers the next window strictly after the declined
// one. The declined proposal stays PROPOSED; only the newest proposal per
// phone is ever acted on.
func (s *Server) rescheduleChatProposal(c *gin.Context, prop *proposaldomain.Proposal) {
	ctx := c.Request.Context()
	window, err := s.allocator.Next(ctx, prop.TenantID, prop.Service, prop.SlotStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if window == nil {
		s.bookingMetrics.DispatchNeeded()
		c.JSON(http.StatusOK, gin.H{
			"status":      "NEEDS_DISPATCH",
			"proposal_id": prop.ID.String(),
		})
		return
	}

	lead := bookingdomain.Lead{
		EventID:  eventChatReschedule,
		TenantID: prop.TenantID,
		Name:     prop.CustomerName,
		Phone:    prop.Phone,
		Address:  prop.Address,
		Service:  prop.Service,
	}

	next, text, err := s.propose(c, lead, *window)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "PROPOSED",
		"proposal_id": next.ID.String(),
		"message":     text,
	})
}

func (s *Server) propose(c *gin.Context, lead bookingdomain.Lead, window capacitydomain.Window) (*proposaldomain.Proposal, string, error) {
	ctx := c.Request.Context()
	text := sms.ComposeProposal(lead, window)
	messageID, err := s.smsSender.Send(ctx, lead.Phone, text)
	if err != nil {
		return nil, "", err
	}

	prop, err := s.proposalSvc.Create(ctx, proposaldomain.CreateProposalRequest{
		Lead:        lead,
		Window:      window,
		MessageText: text,
		MessageID:   messageID,
	})
	if err != nil {
		return nil, "", err
	}
	return prop, text, nil
}
