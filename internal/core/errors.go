package core

// ValidationError is a structured rule failure. The Code discriminates
// the failure class so import reports and HTTP responses can surface it
// without parsing message text.
type ValidationError struct {
	Code   string
	Field  string
	Detail string
}

// Sentinel values for errors.Is checks. Field and Detail are filled in
// by fieldError at the failure site.
var (
	ErrInvalidKind       = &ValidationError{Code: "invalid_kind"}
	ErrInvalidAmount     = &ValidationError{Code: "invalid_amount"}
	ErrInvalidDate       = &ValidationError{Code: "invalid_date"}
	ErrInvalidFlag       = &ValidationError{Code: "invalid_flag"}
	ErrInvalidName       = &ValidationError{Code: "invalid_name"}
	ErrCategoryNotFound  = &ValidationError{Code: "category_not_found"}
	ErrCategoryMismatch  = &ValidationError{Code: "category_mismatch"}
	ErrCardNotFound      = &ValidationError{Code: "card_not_found"}
	ErrDuplicateCategory = &ValidationError{Code: "duplicate_category"}
)

func (e *ValidationError) Error() string {
	msg := e.Code
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is matches any ValidationError with the same code, so wrapped and
// field-annotated values compare equal to the sentinels.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

func fieldError(sentinel *ValidationError, field, detail string) *ValidationError {
	return &ValidationError{Code: sentinel.Code, Field: field, Detail: detail}
}
