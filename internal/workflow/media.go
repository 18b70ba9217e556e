package workflow

import (
	"errors"
	"fmt"

	"github.com/fonpesca/alertbot/internal/domain"
)

// collectAttachment stores one uploaded file. Unsupported kinds and uploads
// past the cap are refused without changing the list. While multimedia is
// being edited uploads are staged apart from the draft.
func (e *Engine) collectAttachment(t *turn) error {
	a := t.ev.Attachment
	if !a.Kind.Supported() || a.Ref == "" {
		return e.sendButtons(t, msgUnsupportedMedia, continueKeyboard())
	}

	d := &t.s.Draft
	if t.s.stagedMedia != nil {
		d = t.s.stagedMedia
	}
	if err := d.AddAttachment(a); err != nil {
		if errors.Is(err, domain.ErrAttachmentLimit) {
			return e.sendButtons(t, fmt.Sprintf(msgMediaLimit, domain.MaxAttachments), continueKeyboard())
		}
		return err
	}

	e.logger.Debug("Attachment received",
		"conversation_id", t.s.ID,
		"kind", string(a.Kind),
		"count", len(d.Attachments))

	if left := d.RemainingAttachments(); left > 0 {
		return e.sendButtons(t, fmt.Sprintf(msgMediaReceived, left), continueKeyboard())
	}
	return e.sendButtons(t, fmt.Sprintf(msgMediaFull, domain.MaxAttachments), continueKeyboard())
}

// rejectMedia answers plain text sent while attachments are expected.
func (e *Engine) rejectMedia(t *turn) error {
	return e.sendButtons(t, msgUnsupportedMedia, continueKeyboard())
}

// continueMedia closes the multimedia step, committing staged uploads. An
// edit with no new upload keeps the previous list.
func (e *Engine) continueMedia(t *turn) error {
	staged := t.s.stagedMedia
	return e.answer(t, FieldMultimedia, func(d *domain.ReportDraft) {
		if staged != nil && len(staged.Attachments) > 0 {
			d.Attachments = staged.Attachments
		}
	})
}
