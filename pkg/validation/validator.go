package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxNameLength bounds node names in every request
const MaxNameLength = 255

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// NodeRequest is the body of a create-node call
type NodeRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ConnectRequest is the body of a connect-nodes call
type ConnectRequest struct {
	FromNode string `json:"FromNode" validate:"required,max=255"`
	ToNode   string `json:"ToNode" validate:"required,max=255"`
}

// PathRequest is shared by the synchronous and asynchronous find-path calls
type PathRequest struct {
	FromNode string `json:"FromNode" validate:"required,max=255"`
	ToNode   string `json:"ToNode" validate:"required,max=255"`
}

// JobResultRequest identifies a submitted job
type JobResultRequest struct {
	TaskID string `json:"task_id" validate:"required"`
}

// FieldErrors maps a wire field name to its messages
type FieldErrors map[string][]string

// Error lists fields in a stable order
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(fe[f], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a message for field
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// AsFieldErrors extracts FieldErrors from an error chain
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ValidateNodeRequest validates a create-node body
func ValidateNodeRequest(req *NodeRequest) error {
	if req == nil {
		return errors.New("node request cannot be nil")
	}
	return validateStruct(req)
}

// ValidateConnectRequest validates a connect-nodes body
func ValidateConnectRequest(req *ConnectRequest) error {
	if req == nil {
		return errors.New("connect request cannot be nil")
	}
	return validateStruct(req)
}

// ValidatePathRequest validates find-path input for both the sync and async endpoints
func ValidatePathRequest(req *PathRequest) error {
	if req == nil {
		return errors.New("path request cannot be nil")
	}
	return validateStruct(req)
}

// ValidateJobResultRequest validates a job result lookup
func ValidateJobResultRequest(req *JobResultRequest) error {
	if req == nil {
		return errors.New("job result request cannot be nil")
	}
	return validateStruct(req)
}

func validateStruct(req any) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into per-field messages
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fe := make(FieldErrors)
	for _, e := range validationErrs {
		field := e.Field()

		switch e.Tag() {
		case "required":
			fe.Add(field, "This field is required.")
		case "max":
			fe.Add(field, fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param()))
		case "min":
			fe.Add(field, fmt.Sprintf("Ensure this field has at least %s characters.", e.Param()))
		default:
			fe.Add(field, fmt.Sprintf("Failed %s validation.", e.Tag()))
		}
	}
	return fe
}
