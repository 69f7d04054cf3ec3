package model

// Social platforms an applicant can list a handle for
type Platform string

const (
	PlatformInstagram Platform = "Instagram"
	PlatformTwitter   Platform = "Twitter"
	PlatformTikTok    Platform = "TikTok"
	PlatformYouTube   Platform = "YouTube"
)

var ValidPlatforms = []Platform{
	PlatformInstagram, PlatformTwitter, PlatformTikTok, PlatformYouTube,
}

// DefaultPlatform is preselected on every new draft
const DefaultPlatform = PlatformInstagram

// IsValid reports whether p is one of ValidPlatforms
func (p Platform) IsValid() bool {
	for _, v := range ValidPlatforms {
		if p == v {
			return true
		}
	}
	return false
}

// Submission review status
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "Pending"
	SubmissionStatusApproved SubmissionStatus = "Approved"
	SubmissionStatusRejected SubmissionStatus = "Rejected"
)

var ValidSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusRejected,
}

// Notification kinds
type NotificationKind string

const (
	NotificationCasting NotificationKind = "casting"
	NotificationSponsor NotificationKind = "sponsor"
)

// Wizard steps
type Step string

const (
	StepProfile    Step = "profile"
	StepMedia      Step = "media"
	StepSubmitting Step = "submitting"
	StepComplete   Step = "complete"
)

// Recording session states
type RecordingState string

const (
	RecordingIdle    RecordingState = "idle"
	RecordingActive  RecordingState = "recording"
	RecordingStopped RecordingState = "stopped"
)
