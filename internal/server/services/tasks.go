package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/dbx"
	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/blob"
	"github.com/dmitrijs2005/gophtasks/internal/server/config"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophtasks/internal/server/validation"
	"github.com/dmitrijs2005/gophtasks/internal/timex"
)

// Upload is an attachment file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TaskInput carries unvalidated task fields and an optional new attachment.
type TaskInput struct {
	Title       string
	Description string
	DueDate     string
	Status      string
	Priority    string
	Attachment  *Upload
}

// Attachment is a stored file ready to be sent to a client.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// TaskService runs the task lifecycle over two independent resources: the
// record store and the blob store. There is no transaction spanning both, so
// every mutation follows one protocol:
//
//   - a new object is stored before any record references it;
//   - an old object is deleted only after no record references it;
//   - when the record write fails, the object stored for it is deleted
//     best-effort and the error is returned.
//
// Failures to delete objects nothing references anymore are logged and
// suppressed. At worst they leave an orphan blob, never a dangling reference.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blob.Store
	validator   *validation.Validator
	logger      logging.Logger
	now         func() time.Time
}

// Option customizes a TaskService.
type Option func(*TaskService)

// WithClock replaces the wall clock. "Today" is the calendar date of the
// returned time in its own location.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// NewTaskService wires the service. The default clock reports the current
// time in cfg's time zone, falling back to UTC when it cannot be loaded.
func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, store blob.Store, cfg *config.Config, logger logging.Logger, opts ...Option) *TaskService {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.UTC
	}
	s := &TaskService{
		db:          db,
		repomanager: m,
		store:       store,
		validator:   validation.New(cfg.MaxAttachmentSize),
		logger:      logger.With("module", "tasks"),
		now:         func() time.Time { return time.Now().In(loc) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock reading, used for derived fields.
func (s *TaskService) Now() time.Time {
	return s.now()
}

// MaxAttachmentSize is the upload limit in bytes.
func (s *TaskService) MaxAttachmentSize() int64 {
	return s.validator.MaxAttachmentSize()
}

type checkedInput struct {
	task        validation.Task
	contentType string
}

// check runs every field rule and reports all failures together.
func (s *TaskService) check(in TaskInput, dueDateNotPast bool) (*checkedInput, error) {
	errs := common.NewValidationError()
	out := &checkedInput{}
	out.task = s.validator.CheckTask(validation.TaskFields{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Status:      in.Status,
		Priority:    in.Priority,
	}, validation.Rules{DueDateNotPast: dueDateNotPast, Today: timex.DateOf(s.now())}, errs)
	if in.Attachment != nil {
		out.contentType = s.validator.CheckAttachment(in.Attachment.Data, errs)
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// putAttachment stores u under a fresh key and returns the key once the
// store confirms the object exists.
func (s *TaskService) putAttachment(ctx context.Context, u *Upload, contentType string) (string, error) {
	key := blob.NewStorageKey(s.now(), u.Filename)
	if err := s.store.Put(ctx, key, u.Data, contentType); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	ok, err := s.store.Exists(ctx, key)
	if err == nil && !ok {
		err = fmt.Errorf("object %s: %w", key, blob.ErrNotFound)
	}
	if err != nil {
		s.discard(ctx, key, "not visible after put")
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return key, nil
}

// discard deletes an object no record references. Errors are logged only.
func (s *TaskService) discard(ctx context.Context, key, reason string) {
	if key == "" {
		return
	}
	err := s.store.Delete(ctx, key)
	if err == nil || errors.Is(err, blob.ErrNotFound) {
		return
	}
	s.logger.Warn(ctx, "failed to delete attachment", "key", key, "reason", reason, "error", err)
}

func persistenceErr(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("%w: %w", common.ErrPersistence, err)
}

// Create validates in, stores its attachment, then inserts the record.
func (s *TaskService) Create(ctx context.Context, in TaskInput) (*models.Task, error) {
	c, err := s.check(in, true)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       c.task.Title,
		Description: c.task.Description,
		DueDate:     c.task.DueDate,
		Status:      c.task.Status,
		Priority:    c.task.Priority,
	}

	if in.Attachment != nil {
		key, err := s.putAttachment(ctx, in.Attachment, c.contentType)
		if err != nil {
			return nil, err
		}
		task.AttachmentPath = key
	}

	if err := s.repomanager.Tasks(s.db).Create(ctx, task); err != nil {
		s.discard(ctx, task.AttachmentPath, "create failed")
		return nil, persistenceErr(err)
	}

	s.logger.Info(ctx, "task created", "id", task.ID, "attachment", task.HasAttachment())
	return task, nil
}

// Update validates in and overwrites the task. A new attachment replaces the
// old one, which is reclaimed only after the record points at the new key.
// Without a new attachment the current one is kept.
func (s *TaskService) Update(ctx context.Context, id string, in TaskInput) (*models.Task, error) {
	c, err := s.check(in, false)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Tasks(s.db)
	task, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, persistenceErr(err)
	}

	oldKey := task.AttachmentPath
	newKey := ""
	if in.Attachment != nil {
		newKey, err = s.putAttachment(ctx, in.Attachment, c.contentType)
		if err != nil {
			return nil, err
		}
		task.AttachmentPath = newKey
	}

	task.Title = c.task.Title
	task.Description = c.task.Description
	task.DueDate = c.task.DueDate
	task.Status = c.task.Status
	task.Priority = c.task.Priority

	if err := repo.Update(ctx, task); err != nil {
		s.discard(ctx, newKey, "update failed")
		return nil, persistenceErr(err)
	}

	if newKey != "" && oldKey != "" && oldKey != newKey {
		s.discard(ctx, oldKey, "replaced")
	}

	s.logger.Info(ctx, "task updated", "id", task.ID, "attachment_replaced", newKey != "")
	return task, nil
}

// Delete removes the record and then reclaims its attachment. The record goes
// first: if the object delete then fails, the result is an orphan blob rather
// than a task pointing at a file that is gone. A missing object counts as
// already reclaimed.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	task, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Task, error) {
		repo := s.repomanager.Tasks(tx)
		task, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return nil, err
		}
		return task, nil
	})
	if err != nil {
		return persistenceErr(err)
	}

	s.discard(ctx, task.AttachmentPath, "deleted")
	s.logger.Info(ctx, "task deleted", "id", id)
	return nil
}

// ToggleStatus flips ongoing and completed. Nothing else changes.
func (s *TaskService) ToggleStatus(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.repomanager.Tasks(s.db).ToggleStatus(ctx, id)
	if err != nil {
		return nil, persistenceErr(err)
	}
	s.logger.Debug(ctx, "task status toggled", "id", id, "status", task.Status)
	return task, nil
}

// Get returns a single task.
func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return task, nil
}

// DownloadAttachment returns the attachment bytes with the display name.
// A task without an attachment, or whose object is gone, yields
// common.ErrorNotFound.
func (s *TaskService) DownloadAttachment(ctx context.Context, id string) (*Attachment, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.HasAttachment() {
		return nil, common.ErrorNotFound
	}

	data, err := s.store.Get(ctx, task.AttachmentPath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.logger.Warn(ctx, "attachment object missing", "id", id, "key", task.AttachmentPath)
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}

	return &Attachment{
		Name:        *models.AttachmentDisplayName(task.AttachmentPath),
		ContentType: validation.PDFContentType,
		Data:        data,
	}, nil
}
