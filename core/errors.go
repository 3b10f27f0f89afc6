package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	MappingErrorConfiguration    = "MAPPING_CONFIGURATION_ERROR"
	MappingErrorUnknownTransform = "MAPPING_UNKNOWN_TRANSFORM"
	MappingErrorRequiredField    = "MAPPING_REQUIRED_FIELD"
	MappingErrorBadInput         = "MAPPING_BAD_INPUT"
	MappingErrorInternal         = "MAPPING_INTERNAL_ERROR"
)

var (
	ErrRulesNotFound     = errors.New("core: mapping rules not found")
	ErrRuleStoreRequired = errors.New("core: rule store is required")
)

// ruleLocation identifies where in a rule set a failure happened. Zero
// fields are left out of messages and metadata.
type ruleLocation struct {
	entity    EntityType
	version   int
	direction Direction
	rule      *MappingRule
}

func (l ruleLocation) describe() string {
	parts := []string{fmt.Sprintf("entity=%s", l.entity)}
	if l.version > 0 {
		parts = append(parts, fmt.Sprintf("version=%d", l.version))
	}
	if l.direction != "" {
		parts = append(parts, fmt.Sprintf("direction=%s", l.direction))
	}
	if l.rule != nil {
		parts = append(parts, fmt.Sprintf("rule=%s", l.rule.Pair()))
	}
	return strings.Join(parts, " ")
}

func (l ruleLocation) metadata() map[string]any {
	out := map[string]any{"entity": string(l.entity)}
	if l.version > 0 {
		out["version"] = l.version
	}
	if l.direction != "" {
		out["direction"] = string(l.direction)
	}
	if l.rule != nil {
		out["source_path"] = l.rule.SourcePath
		out["target_path"] = l.rule.TargetPath
		if l.rule.ID != "" {
			out["rule_id"] = l.rule.ID
		}
	}
	return out
}

func configurationError(reason string, location ruleLocation, cause error) error {
	message := fmt.Sprintf("core: mapping configuration error: %s (%s)", reason, location.describe())
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryOperation, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryOperation)
	}
	err = err.
		WithCode(http.StatusInternalServerError).
		WithTextCode(MappingErrorConfiguration).
		WithSeverity(goerrors.SeverityError)
	err.WithMetadata(location.metadata())
	return err
}

func unknownTransformError(transform string, location ruleLocation) error {
	meta := location.metadata()
	meta["transform"] = transform
	err := goerrors.New(
		fmt.Sprintf("core: unknown transform %q (%s)", transform, location.describe()),
		goerrors.CategoryOperation,
	).
		WithCode(http.StatusInternalServerError).
		WithTextCode(MappingErrorUnknownTransform).
		WithSeverity(goerrors.SeverityCritical)
	err.WithMetadata(meta)
	return err
}

func requiredFieldError(location ruleLocation) error {
	err := goerrors.New(
		fmt.Sprintf("core: required field resolved to an empty value (%s)", location.describe()),
		goerrors.CategoryValidation,
	).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(MappingErrorRequiredField).
		WithSeverity(goerrors.SeverityError)
	err.WithMetadata(location.metadata())
	return err
}

func badInputError(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()).
		WithCode(http.StatusBadRequest).
		WithTextCode(MappingErrorBadInput)
}

// withRecordIndex tags a batch failure with the position of the record.
func withRecordIndex(err error, index int) error {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return fmt.Errorf("core: map record %d: %w", index, err)
	}
	return rich.WithMetadata(map[string]any{"record_index": index})
}

// IsConfigurationError reports a missing rule set, missing version or an
// unreachable rule store.
func IsConfigurationError(err error) bool {
	return hasTextCode(err, MappingErrorConfiguration)
}

func IsUnknownTransformError(err error) bool {
	return hasTextCode(err, MappingErrorUnknownTransform)
}

func IsRequiredFieldError(err error) bool {
	return hasTextCode(err, MappingErrorRequiredField)
}

func hasTextCode(err error, code string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

func mappingErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureMappingErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrInvalidEntityType),
		errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrInvalidRule):
		return newMappingError(err.Error(), goerrors.CategoryBadInput, MappingErrorBadInput)
	case errors.Is(err, ErrRulesNotFound), errors.Is(err, ErrRuleStoreRequired):
		return newMappingError(err.Error(), goerrors.CategoryOperation, MappingErrorConfiguration)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newMappingError(err.Error(), goerrors.CategoryBadInput, MappingErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureMappingErrorEnvelope(mapped)
}

func newMappingError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureMappingErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureMappingErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = mappingHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultMappingTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultMappingTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return MappingErrorBadInput
	case goerrors.CategoryValidation:
		return MappingErrorRequiredField
	case goerrors.CategoryOperation:
		return MappingErrorConfiguration
	default:
		return MappingErrorInternal
	}
}

func mappingHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
