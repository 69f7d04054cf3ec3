package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/model"
)

const sponsorReceivedMessage = "Inquiry sent. We will contact you shortly."

// SponsorService handles corporate sponsorship inquiries
type SponsorService struct {
	feedback *FeedbackService
	notifier Notifier
	logger   *zap.Logger
}

// NewSponsorService creates a new sponsor service
func NewSponsorService(feedback *FeedbackService, notifier Notifier, logger *zap.Logger) *SponsorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SponsorService{
		feedback: feedback,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "sponsor")),
	}
}

// Submit drafts an acknowledgement and queues the auto-reply. A failed
// auto-reply does not fail the inquiry.
func (s *SponsorService) Submit(ctx context.Context, req *model.SponsorInquiryRequest) (*model.SponsorInquiryResponse, error) {
	id := uuid.New().String()
	log := s.logger.With(zap.String("inquiryId", id), zap.String("company", req.CompanyName))
	log.Info("processing sponsorship inquiry")

	ack := s.feedback.SponsorAcknowledgement(ctx, req)

	if err := s.notifier.Notify(ctx, req.Email, req.ContactName, model.NotificationSponsor); err != nil {
		log.Warn("auto-reply not sent", zap.Error(err))
	}

	return &model.SponsorInquiryResponse{
		ID:              id,
		Acknowledgement: ack,
		Message:         sponsorReceivedMessage,
	}, nil
}
