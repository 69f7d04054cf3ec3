package model

import (
	"strings"
	"time"
)

// MaxPhotos caps the number of photos kept on a draft
const MaxPhotos = 10

// Profile holds the identity fields collected on the first step
type Profile struct {
	Name         string   `json:"name" validate:"required"`
	Email        string   `json:"email" validate:"required"`
	Platform     Platform `json:"platform"`
	SocialHandle string   `json:"socialHandle" validate:"required"`
	Bio          string   `json:"bio" validate:"required"`
}

// Artifact is a finalized binary media object ready for staging
type Artifact struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// IsImage reports whether the artifact carries a raster image media type.
// SVG is refused since it can carry script.
func (a Artifact) IsImage() bool {
	ct := strings.ToLower(a.ContentType)
	return strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "image/svg")
}

// IsAudio reports whether the artifact carries an audio media type
func (a Artifact) IsAudio() bool {
	return strings.HasPrefix(strings.ToLower(a.ContentType), "audio/")
}

// AudioSource tells where the single audio artifact came from
type AudioSource string

const (
	AudioNone     AudioSource = ""
	AudioUploaded AudioSource = "uploaded"
	AudioRecorded AudioSource = "recorded"
)

// Audio is either empty, an uploaded file, or a recorded blob. There is
// exactly one artifact slot, so upload and recording cannot coexist.
type Audio struct {
	source   AudioSource
	artifact *Artifact
}

// UploadedAudio wraps a user supplied audio file
func UploadedAudio(a Artifact) Audio {
	return Audio{source: AudioUploaded, artifact: &a}
}

// RecordedAudio wraps a blob finalized from a live recording
func RecordedAudio(a Artifact) Audio {
	return Audio{source: AudioRecorded, artifact: &a}
}

// Source returns AudioNone when no audio is held
func (a Audio) Source() AudioSource {
	return a.source
}

// Artifact returns the held artifact, if any
func (a Audio) Artifact() (Artifact, bool) {
	if a.artifact == nil {
		return Artifact{}, false
	}
	return *a.artifact, true
}

// IsEmpty reports whether no audio is held
func (a Audio) IsEmpty() bool {
	return a.source == AudioNone
}

// ApplicantDraft is the in-progress, not yet submitted applicant record
type ApplicantDraft struct {
	Profile
	Photos    []Artifact
	Audio     Audio
	Consent   bool
	Signature string
}

// NewDraft returns an empty draft with the default platform selected
func NewDraft() ApplicantDraft {
	return ApplicantDraft{Profile: Profile{Platform: DefaultPlatform}}
}

// Clone returns a copy that shares no slices with d
func (d ApplicantDraft) Clone() ApplicantDraft {
	out := d
	out.Photos = append([]Artifact(nil), d.Photos...)
	return out
}

// MissingForSubmit lists the fields that still block submission, in the
// order an applicant should fix them.
func (d ApplicantDraft) MissingForSubmit() []string {
	var missing []string
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(d.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(d.SocialHandle) == "" {
		missing = append(missing, "socialHandle")
	}
	if strings.TrimSpace(d.Bio) == "" {
		missing = append(missing, "bio")
	}
	if !d.Consent {
		missing = append(missing, "consent")
	}
	if d.Signature == "" {
		missing = append(missing, "signature")
	}
	return missing
}

// SubmissionRecord is the persisted result of a successful submission
type SubmissionRecord struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Platform     Platform         `json:"platform"`
	SocialHandle string           `json:"socialHandle"`
	Bio          string           `json:"bio"`
	Files        []string         `json:"files"`
	Signature    string           `json:"signature"`
	Timestamp    int64            `json:"timestamp"`
	CreatedAt    time.Time        `json:"createdAt"`
	Status       SubmissionStatus `json:"status"`
}
