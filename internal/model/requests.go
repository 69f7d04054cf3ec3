package model

// ProfileUpdateRequest replaces the profile fields of a draft. Fields are
// optional here; emptiness is only enforced when leaving the profile step.
type ProfileUpdateRequest struct {
	Name         string   `json:"name" validate:"max=200"`
	Email        string   `json:"email" validate:"omitempty,max=320"`
	Platform     Platform `json:"platform" validate:"omitempty,oneof=Instagram Twitter TikTok YouTube"`
	SocialHandle string   `json:"socialHandle" validate:"max=100"`
	Bio          string   `json:"bio" validate:"max=5000"`
}

// ConsentRequest toggles the release and waiver acceptance
type ConsentRequest struct {
	Accepted bool `json:"accepted"`
}

// Point is one sampled pen position on the signature canvas
type Point struct {
	X float64 `json:"x" validate:"gte=0"`
	Y float64 `json:"y" validate:"gte=0"`
}

// SignatureRequest carries the freehand strokes drawn on the canvas
type SignatureRequest struct {
	Width   int       `json:"width" validate:"required,min=1,max=4096"`
	Height  int       `json:"height" validate:"required,min=1,max=4096"`
	Strokes [][]Point `json:"strokes" validate:"required,min=1,dive,min=1"`
}

// StatusUpdateRequest is sent by the admin review screen
type StatusUpdateRequest struct {
	Status SubmissionStatus `json:"status" validate:"required,oneof=Pending Approved Rejected"`
}

// SubmissionListResponse lists every stored record with per-platform totals
type SubmissionListResponse struct {
	Total      int                `json:"total"`
	ByPlatform map[Platform]int   `json:"byPlatform"`
	Items      []SubmissionRecord `json:"items"`
}

// SponsorInquiryRequest is the corporate sponsorship contact form
type SponsorInquiryRequest struct {
	CompanyName string `json:"companyName" validate:"required,max=200"`
	ContactName string `json:"contactName" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Message     string `json:"message" validate:"required,max=5000"`
}

// SponsorInquiryResponse echoes the acknowledgement sent to the sponsor
type SponsorInquiryResponse struct {
	ID              string `json:"id"`
	Acknowledgement string `json:"acknowledgement"`
	Message         string `json:"message"`
}

// NotificationPayload is queued for the notification worker
type NotificationPayload struct {
	ID             string           `json:"id"`
	RecipientEmail string           `json:"recipientEmail"`
	RecipientName  string           `json:"recipientName"`
	Kind           NotificationKind `json:"kind"`
	Body           string           `json:"body,omitempty"`
}
