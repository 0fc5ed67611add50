package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeNotFound               Code = "NOT_FOUND"
	CodeStorageUnavailable     Code = "STORAGE_UNAVAILABLE"
	CodeBlobNotFound           Code = "BLOB_NOT_FOUND"
	CodeTranscriptionBadAudio  Code = "TRANSCRIPTION_BAD_REQUEST"
	CodeTranscriptionAuth      Code = "TRANSCRIPTION_AUTH"
	CodeTranscriptionTransient Code = "TRANSCRIPTION_TRANSIENT"
	CodePersistenceConstraint  Code = "PERSISTENCE_CONSTRAINT"
	CodePersistenceTransient   Code = "PERSISTENCE_TRANSIENT"
	CodeInternal               Code = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	FatalForBatch  bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeStorageUnavailable: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "blob storage unavailable",
		DetailsAllowed: true,
	},
	CodeBlobNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "blob not found",
		DetailsAllowed: true,
	},
	CodeTranscriptionBadAudio: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "audio rejected by transcription service",
		DetailsAllowed: true,
	},
	CodeTranscriptionAuth: {
		HTTPStatus:     http.StatusUnauthorized,
		Retryable:      false,
		FatalForBatch:  true,
		PublicMessage:  "transcription credentials rejected",
		DetailsAllowed: false,
	},
	CodeTranscriptionTransient: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "transcription service unavailable",
		DetailsAllowed: true,
	},
	CodePersistenceConstraint: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "record rejected by database constraints",
		DetailsAllowed: true,
	},
	CodePersistenceTransient: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "database unavailable",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      false,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// IsRetryable reports whether the error carries a code whose transient nature
// makes another attempt worthwhile.
func IsRetryable(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).Retryable
}

// IsFatalForBatch reports whether the error should abort the remaining files
// of a batch instead of failing each one with the same root cause.
func IsFatalForBatch(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).FatalForBatch
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
