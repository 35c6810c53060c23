// Package dashboard keeps the client-side cache of submissions and the
// single-row edit state. The cache only changes through replaceAll,
// patchOne and removeOne, each applied after the server confirmed it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"textsubmission/app/apperr"
	"textsubmission/app/models"
)

const (
	LoadFailedMessage   = "Failed to load submissions."
	UpdateFailedMessage = "Failed to update submission."
	DeleteFailedMessage = "Failed to delete submission."
)

var (
	// ErrNotEditing is returned by SaveEdit when id is not the row being edited.
	ErrNotEditing = errors.New("submission is not being edited")
	// ErrUnknownRow is returned by Delete when id is not in the list.
	ErrUnknownRow = errors.New("submission is not in the list")
)

// API is the subset of the server API the dashboard calls.
type API interface {
	List(ctx context.Context) ([]models.Submission, error)
	Update(ctx context.Context, id int, text string) (models.Submission, error)
	Delete(ctx context.Context, id int) error
}

// Confirmer asks the user a yes/no question.
type Confirmer func(prompt string) bool

// Subscriber delivers created submissions.
type Subscriber interface {
	Subscribe() (<-chan models.Submission, func())
}

// DeletePrompt is the confirmation question for deleting text.
func DeletePrompt(text string) string {
	return fmt.Sprintf("Are you sure you want to delete \"%s\"?", text)
}

// Snapshot is a copy of the dashboard state for rendering.
type Snapshot struct {
	Submissions  []models.Submission
	IsLoading    bool
	ErrorMessage string
	Editing      bool
	EditingID    int
	EditText     string
	// Alert is the message of the last failed edit or delete.
	Alert string
}

type Dashboard struct {
	api    API
	rule   models.TextRule
	logger *slog.Logger

	mu          sync.Mutex
	submissions []models.Submission
	isLoading   bool
	errorMsg    string
	editing     bool
	editingID   int
	editText    string
	alert       string
}

// New returns an empty dashboard validating edits against rule.
func New(api API, rule models.TextRule, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		api:         api,
		rule:        rule,
		logger:      logger.With("component", "dashboard"),
		submissions: []models.Submission{},
	}
}

// Snapshot returns a copy of the current state.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Submissions:  append([]models.Submission(nil), d.submissions...),
		IsLoading:    d.isLoading,
		ErrorMessage: d.errorMsg,
		Editing:      d.editing,
		EditingID:    d.editingID,
		EditText:     d.editText,
		Alert:        d.alert,
	}
}

// Load replaces the list with the server's. On failure the previous list
// is kept and ErrorMessage is set.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	d.isLoading = true
	d.errorMsg = ""
	d.mu.Unlock()

	submissions, err := d.api.List(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.isLoading = false
	if err != nil {
		d.errorMsg = LoadFailedMessage
		d.logger.Error("failed to load submissions", "error", err)
		return err
	}
	d.replaceAll(submissions)
	return nil
}

// StartEdit enters edit mode for row, discarding any other pending edit.
func (d *Dashboard) StartEdit(row models.Submission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.editing = true
	d.editingID = row.ID
	d.editText = row.Text
	d.alert = ""
}

// CancelEdit leaves edit mode.
func (d *Dashboard) CancelEdit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exitEdit()
}

// SetEditText binds the text being edited.
func (d *Dashboard) SetEditText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.editText = text
}

// SaveEdit sends the trimmed edit text for id. Invalid text is rejected
// without a request. On success the row is replaced in place and edit mode
// ends; on failure edit mode and the typed text are kept.
func (d *Dashboard) SaveEdit(ctx context.Context, id int) error {
	d.mu.Lock()
	if !d.editing || d.editingID != id {
		d.mu.Unlock()
		return ErrNotEditing
	}
	text := strings.TrimSpace(d.editText)
	if !d.rule.Valid(text) {
		msg := d.rule.Message()
		d.alert = msg
		d.mu.Unlock()
		return apperr.Validation(msg)
	}
	d.alert = ""
	d.mu.Unlock()

	updated, err := d.api.Update(ctx, id, text)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.alert = UpdateFailedMessage
		d.logger.Error("failed to update submission", "id", id, "error", err)
		return apperr.Wrap(apperr.KindOf(err), UpdateFailedMessage, err)
	}
	d.patchOne(updated)
	if d.editing && d.editingID == id {
		d.exitEdit()
	}
	return nil
}

// Delete removes row id after confirm agrees to the prompt naming its
// text. It reports whether the row was deleted.
func (d *Dashboard) Delete(ctx context.Context, id int, confirm Confirmer) (bool, error) {
	d.mu.Lock()
	row, ok := d.find(id)
	d.mu.Unlock()
	if !ok {
		return false, ErrUnknownRow
	}
	if !confirm(DeletePrompt(row.Text)) {
		return false, nil
	}

	err := d.api.Delete(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.alert = DeleteFailedMessage
		d.logger.Error("failed to delete submission", "id", id, "error", err)
		return false, apperr.Wrap(apperr.KindOf(err), DeleteFailedMessage, err)
	}
	d.alert = ""
	d.removeOne(id)
	if d.editing && d.editingID == id {
		d.exitEdit()
	}
	return true, nil
}

// Watch reloads the list every time a submission is created, until ctx is
// done or the subscription closes. onReload, if set, is called after each
// reload with its result.
func (d *Dashboard) Watch(ctx context.Context, bus Subscriber, onReload func(error)) {
	created, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case submission, ok := <-created:
			if !ok {
				return
			}
			d.logger.Debug("reloading after create", "id", submission.ID)
			err := d.Load(ctx)
			if onReload != nil {
				onReload(err)
			}
		}
	}
}

func (d *Dashboard) replaceAll(submissions []models.Submission) {
	d.submissions = append(make([]models.Submission, 0, len(submissions)), submissions...)
}

func (d *Dashboard) patchOne(updated models.Submission) {
	for i := range d.submissions {
		if d.submissions[i].ID == updated.ID {
			d.submissions[i] = updated
			return
		}
	}
}

func (d *Dashboard) removeOne(id int) {
	for i := range d.submissions {
		if d.submissions[i].ID == id {
			d.submissions = append(d.submissions[:i:i], d.submissions[i+1:]...)
			return
		}
	}
}

func (d *Dashboard) find(id int) (models.Submission, bool) {
	for _, s := range d.submissions {
		if s.ID == id {
			return s, true
		}
	}
	return models.Submission{}, false
}

func (d *Dashboard) exitEdit() {
	d.editing = false
	d.editingID = 0
	d.editText = ""
}
