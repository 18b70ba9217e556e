package workflow

// restart abandons the current draft and asks the severity again. Before
// the cédula is verified it asks for the cédula instead.
func (e *Engine) restart(t *turn) error {
	if t.s.Draft.Identity.IsZero() {
		return e.retryCedula(t)
	}
	t.s.restart()
	return e.enter(t, StateSeverity)
}

// cancel discards everything and ends the conversation.
func (e *Engine) cancel(t *turn) error {
	e.terminate(t)
	e.logger.Info("Report cancelled", "conversation_id", t.s.ID)
	return e.send(t, msgCancelled)
}

// finish jumps to the summary once every branch question has an answer.
func (e *Engine) finish(t *turn) error {
	switch t.s.State {
	case StateCedula, StateSeverity, StateCategory, StateAnother:
		return &InvalidTransitionError{State: t.s.State, Event: t.ev.Summary()}
	case StateSummary:
		return e.enterSummary(t)
	}
	if t.s.editing() {
		t.s.clearEdit()
		return e.enterSummary(t)
	}
	done, err := Complete(&t.s.Draft)
	if err != nil {
		return err
	}
	if !done {
		return &InputValidationError{State: t.s.State, Reason: msgIncomplete}
	}
	return e.advance(t, StateSummary)
}

// stepBack returns to the previous question actually asked on this branch.
// While editing it backs out to the modification menu instead.
func (e *Engine) stepBack(t *turn) error {
	switch {
	case t.s.editing():
		t.s.clearEdit()
		return e.enter(t, StateModifyMenu)
	case t.s.State == StateModifyMenu:
		return e.enterSummary(t)
	case t.s.State == StateModifyConfirm:
		return e.enter(t, StateModifyMenu)
	case t.s.State == StateAnother || t.s.State == StateCedula:
		return &InvalidTransitionError{State: t.s.State, Event: t.ev.Summary()}
	}

	prev, ok := t.s.pop()
	if !ok {
		return &InputValidationError{State: t.s.State, Reason: msgNoPrevious}
	}
	return e.enter(t, prev)
}
