package builder

import (
	"fmt"
	"strings"

	"salesloom/models"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError is one field-level problem. Expected invalid input is always
// reported this way, never as a Go error or panic.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// AttachmentContentTypes is the allow-list for EMAIL step attachments.
var AttachmentContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"text/csv":        true,
	"text/plain":      true,
}

var conditionFields = map[string]bool{"opened": true, "clicked": true, "replied": true}
var conditionOperators = map[string]bool{"is": true, "is_not": true}

// fieldPath maps validator struct field names to JSON paths.
var fieldPath = map[string]string{
	"ID":         "id",
	"StepType":   "step_type",
	"StepOrder":  "step_order",
	"DelayHours": "delay_hours",
}

// ValidateStep runs the cheap field-level checks performed on every edit.
// It is lenient about EMAIL completeness: draft edits may have an empty
// subject or body, which only blocks activation (see ValidateSequence).
func ValidateStep(step models.Step) []ValidationError {
	errs := tagErrors(step)

	switch step.StepType {
	case models.StepTypeEmail:
		if step.ReplyTo != "" {
			if err := checkmail.ValidateFormat(step.ReplyTo); err != nil {
				errs = append(errs, ValidationError{Path: "reply_to", Message: "must be a valid email address"})
			}
		}
		for i, att := range step.Attachments {
			if att.SizeBytes < 0 {
				errs = append(errs, ValidationError{
					Path:    fmt.Sprintf("attachments[%d].size_bytes", i),
					Message: "must not be negative",
				})
			}
			if !AttachmentContentTypes[att.ContentType] {
				errs = append(errs, ValidationError{
					Path:    fmt.Sprintf("attachments[%d].content_type", i),
					Message: "content type is not allowed",
				})
			}
		}
	case models.StepTypeWait:
		// delay range is covered by the gte/lte tags
	case models.StepTypeCondition:
		if step.Condition == nil {
			errs = append(errs, ValidationError{Path: "condition", Message: "condition is required"})
			break
		}
		if !conditionFields[step.Condition.Field] {
			errs = append(errs, ValidationError{Path: "condition.field", Message: "must be one of opened, clicked, replied"})
		}
		if !conditionOperators[step.Condition.Operator] {
			errs = append(errs, ValidationError{Path: "condition.operator", Message: "must be one of is, is_not"})
		}
		if step.Condition.Value == "" {
			errs = append(errs, ValidationError{Path: "condition.value", Message: "value is required"})
		}
	}

	return errs
}

// ValidateSequence runs the whole-sequence checks a sequence must pass before
// it is valid to activate: per-step completeness, a total and gapless step
// order, and resolvable cross-step references. A CONDITION step pointing at a
// step id that does not exist is an error here, never silently dropped.
func ValidateSequence(seq models.Sequence) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(seq.Name) == "" {
		errs = append(errs, ValidationError{Path: "name", Message: "name is required"})
	}

	ids := make(map[string]bool, len(seq.Steps))
	for i, step := range seq.Steps {
		prefix := fmt.Sprintf("steps[%d].", i)
		for _, e := range ValidateStep(step) {
			errs = append(errs, ValidationError{Path: prefix + e.Path, Message: e.Message})
		}

		if ids[step.ID] {
			errs = append(errs, ValidationError{Path: prefix + "id", Message: "duplicate step id"})
		}
		ids[step.ID] = true

		if step.StepOrder != i {
			errs = append(errs, ValidationError{
				Path:    prefix + "step_order",
				Message: fmt.Sprintf("expected %d, got %d", i, step.StepOrder),
			})
		}

		// Activation-strict EMAIL completeness
		if step.StepType == models.StepTypeEmail {
			if strings.TrimSpace(step.Subject) == "" {
				errs = append(errs, ValidationError{Path: prefix + "subject", Message: "subject is required"})
			}
			if strings.TrimSpace(step.Body) == "" {
				errs = append(errs, ValidationError{Path: prefix + "body", Message: "body is required"})
			}
		}
	}

	// Cross-step references need the full id set, so they run after the id pass
	for i, step := range seq.Steps {
		if step.StepType != models.StepTypeCondition || step.Condition == nil {
			continue
		}
		next := step.Condition.NextStepID
		if next == "" {
			continue
		}
		if next == step.ID {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("steps[%d].condition.next_step_id", i),
				Message: "step cannot branch to itself",
			})
		} else if !ids[next] {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("steps[%d].condition.next_step_id", i),
				Message: "references a step that does not exist in this sequence",
			})
		}
	}

	return errs
}

// tagErrors runs the struct tags and formats failures the way the API reports
// every other validation problem.
func tagErrors(step models.Step) []ValidationError {
	err := validate.Struct(step)
	if err == nil {
		return nil
	}

	var errs []ValidationError
	for _, fe := range err.(validator.ValidationErrors) {
		path, ok := fieldPath[fe.Field()]
		if !ok {
			path = strings.ToLower(fe.Field())
		}

		var msg string
		switch fe.Tag() {
		case "required":
			msg = path + " is required"
		case "oneof":
			msg = "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
		case "gte":
			msg = "must be at least " + fe.Param()
		case "lte":
			msg = "must be at most " + fe.Param()
		default:
			msg = path + " is invalid"
		}
		errs = append(errs, ValidationError{Path: path, Message: msg})
	}
	return errs
}
