// Package validation checks raw task input before any side effect happens and
// reports every failing field at once.
package validation

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/timex"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxTitleLength is counted in characters, not bytes.
	MaxTitleLength = 255

	PDFContentType = "application/pdf"
)

type todayKey struct{}

// TaskFields is the raw, untrusted task form.
type TaskFields struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"omitempty,date"`
	Status      string `json:"status" validate:"required,oneof=ongoing completed"`
	Priority    string `json:"priority" validate:"required,oneof=low medium high"`
}

// Task is the typed result of a successful check.
type Task struct {
	Title       string
	Description string
	DueDate     *timex.Date
	Status      models.Status
	Priority    models.Priority
}

// Rules selects the operation-specific constraints.
type Rules struct {
	// DueDateNotPast rejects due dates before Today. Creation applies it,
	// updates do not.
	DueDateNotPast bool
	Today          timex.Date
}

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate          *validator.Validate
	maxAttachmentSize int64
}

// New builds a Validator limiting attachments to maxAttachmentSize bytes.
func New(maxAttachmentSize int64) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := timex.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidationCtx("today_or_later", func(ctx context.Context, fl validator.FieldLevel) bool {
		today, ok := ctx.Value(todayKey{}).(timex.Date)
		if !ok {
			return false
		}
		d, err := timex.ParseDate(fl.Field().String())
		return err == nil && !d.Before(today)
	})
	return &Validator{validate: v, maxAttachmentSize: maxAttachmentSize}
}

// MaxAttachmentSize returns the configured limit in bytes.
func (v *Validator) MaxAttachmentSize() int64 { return v.maxAttachmentSize }

// CheckTask validates f under r, adding failures to errs. Surrounding
// whitespace is trimmed first. The returned Task is only meaningful when errs
// stays empty.
func (v *Validator) CheckTask(f TaskFields, r Rules, errs *common.ValidationError) Task {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.DueDate = strings.TrimSpace(f.DueDate)
	f.Status = strings.TrimSpace(f.Status)
	f.Priority = strings.TrimSpace(f.Priority)

	v.addErrors(v.validate.Struct(f), errs)

	if r.DueDateNotPast && f.DueDate != "" {
		ctx := context.WithValue(context.Background(), todayKey{}, r.Today)
		err := v.validate.VarCtx(ctx, f.DueDate, "date,today_or_later")
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 && ve[0].Tag() == "today_or_later" {
			errs.Add("due_date", message("due_date", "today_or_later", ""))
		}
	}

	out := Task{Title: f.Title, Description: f.Description}
	if d, err := timex.ParseDate(f.DueDate); err == nil {
		out.DueDate = &d
	}
	out.Status, _ = models.ParseStatus(f.Status)
	out.Priority, _ = models.ParsePriority(f.Priority)
	return out
}

// CheckAttachment validates an uploaded file. The content must sniff as PDF;
// the declared type is ignored. It returns the detected content type.
func (v *Validator) CheckAttachment(data []byte, errs *common.ValidationError) string {
	if len(data) == 0 {
		errs.Add("attachment", "The attachment failed to upload.")
		return ""
	}
	if v.maxAttachmentSize > 0 && int64(len(data)) > v.maxAttachmentSize {
		errs.Add("attachment", fmt.Sprintf("The attachment field must not be greater than %s.",
			humanize.IBytes(uint64(v.maxAttachmentSize))))
		return ""
	}
	mt := mimetype.Detect(data)
	if !mt.Is(PDFContentType) {
		errs.Add("attachment", "The attachment field must be a file of type: pdf.")
		return ""
	}
	return PDFContentType
}

func (v *Validator) addErrors(err error, errs *common.ValidationError) {
	if err == nil {
		return
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.Add("_", err.Error())
		return
	}
	for _, fe := range ve {
		errs.Add(fe.Field(), message(fe.Field(), fe.Tag(), fe.Param()))
	}
}

func message(field, tag, param string) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, param)
	case "date":
		return fmt.Sprintf("The %s field must be a valid date.", label)
	case "today_or_later":
		return fmt.Sprintf("The %s field must be a date after or equal to today.", label)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}
