package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType classifies errors raised by the search index.
type ErrorType string

const (
	ErrorTypeEmptyContent ErrorType = "empty_content"
	ErrorTypeNotIndexed   ErrorType = "not_indexed"
	ErrorTypeInvalid      ErrorType = "invalid_request"
	ErrorTypeDerivedWrite ErrorType = "derived_write"
	ErrorTypeStore        ErrorType = "store"
	ErrorTypeSearch       ErrorType = "search"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeInternal     ErrorType = "internal"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrEmptyContent   = stderrors.New("page has no extractable content")
	ErrPageNotIndexed = stderrors.New("page is not indexed")
	ErrInvalidRequest = stderrors.New("invalid page request")
)

// EmptyContentError is raised by the pipeline when a page carries no searchable text.
// Re-indexing the same page fails the same way until its content changes.
type EmptyContentError struct {
	Type      ErrorType
	PageID    string
	URL       string
	Timestamp time.Time
}

func NewEmptyContentError(pageID, url string) *EmptyContentError {
	return &EmptyContentError{
		Type:      ErrorTypeEmptyContent,
		PageID:    pageID,
		URL:       url,
		Timestamp: time.Now(),
	}
}

func (e *EmptyContentError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s: %s (%s)", ErrEmptyContent, e.PageID, e.URL)
	}
	return fmt.Sprintf("%s: %s", ErrEmptyContent, e.PageID)
}

// Is lets errors.Is(err, ErrEmptyContent) match.
func (e *EmptyContentError) Is(target error) bool {
	return target == ErrEmptyContent
}

// PageNotIndexedError is raised when a delete or update targets an unknown page id.
type PageNotIndexedError struct {
	Type      ErrorType
	PageID    string
	Operation string
	Timestamp time.Time
}

func NewPageNotIndexedError(op, pageID string) *PageNotIndexedError {
	return &PageNotIndexedError{
		Type:      ErrorTypeNotIndexed,
		PageID:    pageID,
		Operation: op,
		Timestamp: time.Now(),
	}
}

func (e *PageNotIndexedError) Error() string {
	return fmt.Sprintf("%s failed: %s: %s", e.Operation, ErrPageNotIndexed, e.PageID)
}

func (e *PageNotIndexedError) Is(target error) bool {
	return target == ErrPageNotIndexed
}

// InvalidRequestError rejects a request field before anything is written.
type InvalidRequestError struct {
	Type      ErrorType
	PageID    string
	Field     string
	Reason    string
	Timestamp time.Time
}

func NewInvalidRequestError(pageID, field, reason string) *InvalidRequestError {
	return &InvalidRequestError{
		Type:      ErrorTypeInvalid,
		PageID:    pageID,
		Field:     field,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (e *InvalidRequestError) Error() string {
	if e.PageID != "" {
		return fmt.Sprintf("%s: %s %s (page %s)", ErrInvalidRequest, e.Field, e.Reason, e.PageID)
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidRequest, e.Field, e.Reason)
}

func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// DerivedIndexWriteError names the derived-index key whose update failed. The
// surrounding transaction is rolled back, so the page is left untouched.
type DerivedIndexWriteError struct {
	Type       ErrorType
	Key        string
	PageID     string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewDerivedIndexWriteError(op, pageID, key string, err error) *DerivedIndexWriteError {
	return &DerivedIndexWriteError{
		Type:       ErrorTypeDerivedWrite,
		Key:        key,
		PageID:     pageID,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *DerivedIndexWriteError) Error() string {
	return fmt.Sprintf("%s %s failed on key %s for page %s: %v", e.Type, e.Operation, e.Key, e.PageID, e.Underlying)
}

func (e *DerivedIndexWriteError) Unwrap() error {
	return e.Underlying
}

// StoreError wraps failures of the underlying key-value store.
type StoreError struct {
	Type       ErrorType
	Operation  string
	Path       string
	Underlying error
	Timestamp  time.Time
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{
		Type:       ErrorTypeStore,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithPath records the database file involved.
func (e *StoreError) WithPath(path string) *StoreError {
	e.Path = path
	return e
}

func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("store %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
	}
	return fmt.Sprintf("store %s failed: %v", e.Operation, e.Underlying)
}

func (e *StoreError) Unwrap() error {
	return e.Underlying
}

// SearchError represents a failed query.
type SearchError struct {
	Type       ErrorType
	Query      []string
	Underlying error
	Timestamp  time.Time
}

func NewSearchError(query []string, err error) *SearchError {
	return &SearchError{
		Type:       ErrorTypeSearch,
		Query:      query,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed for query %q: %v", e.Query, e.Underlying)
}

func (e *SearchError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error {
	return e.Underlying
}
