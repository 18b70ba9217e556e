package domain

import (
	"errors"
	"time"
)

// MaxAttachments caps the multimedia collected per report.
const MaxAttachments = 5

// ErrAttachmentLimit is returned when a draft already holds MaxAttachments.
var ErrAttachmentLimit = errors.New("attachment limit reached")

// AttachmentKind identifies the type of media sent by the reporter.
type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentVideo    AttachmentKind = "video"
	AttachmentDocument AttachmentKind = "document"
	AttachmentAudio    AttachmentKind = "audio"
)

// Supported reports whether the kind may be stored with a report.
func (k AttachmentKind) Supported() bool {
	switch k {
	case AttachmentPhoto, AttachmentVideo, AttachmentDocument, AttachmentAudio:
		return true
	}
	return false
}

// Attachment is a transport-side reference to an uploaded file.
type Attachment struct {
	Kind AttachmentKind `json:"type"`
	Ref  string         `json:"file_id"`
}

// ReportDraft is the in-progress report owned by one conversation.
// Text fields are unset when empty; the yes/no answers are nil until asked
// or auto-filled.
type ReportDraft struct {
	Identity       Identity
	Severity       Severity
	Category       Category
	EventType      string
	Description    string
	Resources      string
	Actions        string
	MediaType      string
	SpecificMedium string
	Content        string
	Audience       string
	Violence       *bool
	LifeThreat     *bool
	Verified       *bool
	Observations   string
	Attachments    []Attachment
	ReportCode     string
	ReportNumber   string
}

// Reset clears every field.
func (d *ReportDraft) Reset() {
	*d = ReportDraft{}
}

// ResetKeepingIdentity clears every field except the verified identity.
func (d *ReportDraft) ResetKeepingIdentity() {
	id := d.Identity
	*d = ReportDraft{Identity: id}
}

// ClearAnswers drops every branch-dependent answer, including the report
// code, whose initials name the branch. Identity, severity and category are
// kept.
func (d *ReportDraft) ClearAnswers() {
	*d = ReportDraft{
		Identity: d.Identity,
		Severity: d.Severity,
		Category: d.Category,
	}
}

// AddAttachment appends a to the draft, refusing past MaxAttachments.
func (d *ReportDraft) AddAttachment(a Attachment) error {
	if len(d.Attachments) >= MaxAttachments {
		return ErrAttachmentLimit
	}
	d.Attachments = append(d.Attachments, a)
	return nil
}

// RemainingAttachments returns how many more files can be attached.
func (d *ReportDraft) RemainingAttachments() int {
	return MaxAttachments - len(d.Attachments)
}

// Clone returns a deep copy that shares no memory with d.
func (d *ReportDraft) Clone() ReportDraft {
	c := *d
	c.Violence = cloneBool(d.Violence)
	c.LifeThreat = cloneBool(d.LifeThreat)
	c.Verified = cloneBool(d.Verified)
	if d.Attachments != nil {
		c.Attachments = append([]Attachment(nil), d.Attachments...)
	}
	return c
}

// Bool returns a pointer to b for the tri-state draft fields.
func Bool(b bool) *bool {
	return &b
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Report is a confirmed draft handed to persistence.
type Report struct {
	SubmissionID string
	Draft        ReportDraft
	SubmittedAt  time.Time
}

// EventTypeForStorage returns the event type column value. Communicational
// reports that never asked for an event type fall back to the media label.
func (r *Report) EventTypeForStorage() string {
	if r.Draft.EventType != "" {
		return r.Draft.EventType
	}
	if r.Draft.Category == CategoryComunicacional {
		if label, ok := MediaTypes[r.Draft.MediaType]; ok {
			return label
		}
		return r.Draft.MediaType
	}
	return ""
}
