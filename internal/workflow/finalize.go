package workflow

import (
	"fmt"
	"time"

	"github.com/fonpesca/alertbot/internal/domain"
)

const (
	reportCodeLayout   = "0601021504"   // YYMMDDHHMM
	reportNumberLayout = "020120061504" // DDMMYYYYHHMM
	reportNumberPrefix = "VO-"
)

// ReportCode builds the code shown in the summary: severity initial,
// category initial, a dash and the minute-resolution timestamp.
func ReportCode(sev domain.Severity, cat domain.Category, at time.Time) string {
	return sev.Initial() + cat.Initial() + "-" + at.Format(reportCodeLayout)
}

// ReportNumber builds the number assigned when a report is sent.
func ReportNumber(at time.Time) string {
	return reportNumberPrefix + at.Format(reportNumberLayout)
}

// enterSummary shows the branch summary, assigning the report code the
// first time the summary is reached.
func (e *Engine) enterSummary(t *turn) error {
	d := &t.s.Draft
	if _, err := Questions(d.Severity, d.Category); err != nil {
		return err
	}
	if d.ReportCode == "" {
		d.ReportCode = ReportCode(d.Severity, d.Category, e.now())
	}
	t.s.State = StateSummary
	return e.prompt(t, StateSummary)
}

// confirm freezes the draft and hands it to persistence. The report number
// is only kept once the save succeeded.
func (e *Engine) confirm(t *turn) error {
	if t.s.State != StateSummary {
		return &InvalidTransitionError{State: t.s.State, Event: t.ev.Summary()}
	}

	now := e.now()
	frozen := t.s.Draft.Clone()
	frozen.ReportNumber = ReportNumber(now)
	report := &domain.Report{
		SubmissionID: e.newID(),
		Draft:        frozen,
		SubmittedAt:  now,
	}

	if err := e.reports.SaveReport(t.ctx, report); err != nil {
		return &PersistenceError{Op: opSaveReport, Err: err}
	}

	t.s.Draft.ReportNumber = frozen.ReportNumber
	t.s.History = nil
	t.s.clearEdit()
	t.s.State = StateAnother

	e.logger.Info("Report submitted",
		"conversation_id", t.s.ID,
		"submission_id", report.SubmissionID,
		"report_code", frozen.ReportCode,
		"report_number", frozen.ReportNumber,
		"severity", string(frozen.Severity),
		"category", string(frozen.Category))

	if err := e.send(t, fmt.Sprintf(msgSubmitted, escape(frozen.ReportCode), escape(frozen.ReportNumber))); err != nil {
		return err
	}
	return e.prompt(t, StateAnother)
}

// fileAnother starts a new report for the same reporter.
func (e *Engine) fileAnother(t *turn) error {
	t.s.restart()
	return e.enter(t, StateSeverity)
}

// endConversation closes the conversation after a submitted report.
func (e *Engine) endConversation(t *turn) error {
	e.terminate(t)
	return e.send(t, msgGoodbye)
}
