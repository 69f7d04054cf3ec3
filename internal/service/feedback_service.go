package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/model"
)

const (
	CastingFeedbackFallback = "Transmission interrupted. AI Analysis offline."
	SponsorReplyFallback    = "Thank you for contacting AI Impact Media. We have received your inquiry."

	castingFeedbackEmpty = "Feedback generation complete."
	sponsorReplyEmpty    = "Thank you for your submission."

	feedbackTimeout = 20 * time.Second
)

// ChatCompleter is the LLM collaborator used for generated text
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, system, user string) (string, error)
	IsConfigured() bool
}

// FeedbackService produces AI text for applicants and sponsors. It never
// fails: any collaborator fault degrades to a fixed placeholder.
type FeedbackService struct {
	llm    ChatCompleter
	logger *zap.Logger
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(llm ChatCompleter, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{llm: llm, logger: logger.With(zap.String("component", "feedback"))}
}

// CastingFeedback returns a short assessment of an applicant's bio
func (s *FeedbackService) CastingFeedback(ctx context.Context, name, bio string) string {
	system := "You are an elite Hollywood Casting Director for a futuristic sci-fi franchise."
	user := fmt.Sprintf(`The applicant's name is %s.
Their bio/experience is: "%s".

Provide a brief, encouraging, yet professional assessment (max 3 sentences) on how they might fit into a futuristic/cyberpunk setting.
Use a futuristic, slightly dramatic tone.`, name, bio)

	return s.complete(ctx, system, user, castingFeedbackEmpty, CastingFeedbackFallback)
}

// SponsorAcknowledgement drafts a formal reply to a sponsor inquiry
func (s *FeedbackService) SponsorAcknowledgement(ctx context.Context, req *model.SponsorInquiryRequest) string {
	system := "You write formal business correspondence for AI Impact Media."
	user := fmt.Sprintf(`Draft a formal, professional, and polite acknowledgement email response for a potential corporate sponsor named "%s".
They wrote: "%s".
The tone must be formal business communication.
Keep it under 50 words. Mention "AI Impact Media".`, req.CompanyName, req.Message)

	return s.complete(ctx, system, user, sponsorReplyEmpty, SponsorReplyFallback)
}

func (s *FeedbackService) complete(ctx context.Context, system, user, empty, fallback string) string {
	if s.llm == nil || !s.llm.IsConfigured() {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, feedbackTimeout)
	defer cancel()

	out, err := s.llm.ChatCompletion(ctx, system, user)
	if err != nil {
		s.logger.Warn("AI feedback unavailable", zap.Error(err))
		return fallback
	}
	if out = strings.TrimSpace(out); out == "" {
		return empty
	}
	return out
}
