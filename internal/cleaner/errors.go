package cleaner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// ErrorReason categorizes why a deletion failed
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorNotEmpty
	ErrorInvalidPath
	ErrorProtectedPath
	ErrorUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileInUse:
		return "File is in use"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorNotEmpty:
		return "Directory not empty"
	case ErrorInvalidPath:
		return "Invalid path"
	case ErrorProtectedPath:
		return "Protected path"
	case ErrorUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// DeletionError represents a detailed deletion error
type DeletionError struct {
	Path      string
	Reason    ErrorReason
	Original  error
	Retryable bool // A later user-initiated clean may succeed
}

// Error implements the error interface
func (e *DeletionError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", e.Path, e.Reason, e.Original)
}

// Unwrap returns the underlying error
func (e *DeletionError) Unwrap() error {
	return e.Original
}

// UserMessage returns a user-friendly error message
func (e *DeletionError) UserMessage() string {
	switch e.Reason {
	case ErrorPermissionDenied:
		return fmt.Sprintf("⚠️  Permission denied: %s", e.Path)
	case ErrorFileInUse:
		return fmt.Sprintf("⚠️  File is being used: %s (close the application and clean again)", e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("ℹ️  Already deleted: %s", e.Path)
	case ErrorNotEmpty:
		return fmt.Sprintf("⚠️  Could not empty folder: %s", e.Path)
	case ErrorInvalidPath:
		return fmt.Sprintf("❌ Invalid or unsafe path: %s", e.Path)
	case ErrorProtectedPath:
		return fmt.Sprintf("❌ Refusing to delete protected path: %s", e.Path)
	default:
		return fmt.Sprintf("❌ Error deleting %s: %v", e.Path, e.Original)
	}
}

// CategorizeError analyzes an error and returns a categorized DeletionError
func CategorizeError(path string, err error) *DeletionError {
	if err == nil {
		return nil
	}

	delErr := &DeletionError{
		Path:     path,
		Original: err,
		Reason:   ErrorUnknown,
	}

	// Check if file not found
	if os.IsNotExist(err) {
		delErr.Reason = ErrorFileNotFound
		return delErr
	}

	// Check if permission error
	if os.IsPermission(err) {
		delErr.Reason = ErrorPermissionDenied
		return delErr
	}

	// Check syscall errors
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM, syscall.EROFS:
			delErr.Reason = ErrorPermissionDenied
		case syscall.EBUSY, syscall.ETXTBSY:
			delErr.Reason = ErrorFileInUse
			delErr.Retryable = true
		case syscall.ENOENT:
			delErr.Reason = ErrorFileNotFound
		case syscall.ENOTEMPTY, syscall.EEXIST:
			delErr.Reason = ErrorNotEmpty
			delErr.Retryable = true
		default:
			delErr.Reason = ErrorUnknown
		}
		return delErr
	}

	return delErr
}

// GroupErrors groups deletion errors by reason
func GroupErrors(errors []*DeletionError) map[ErrorReason][]*DeletionError {
	grouped := make(map[ErrorReason][]*DeletionError)
	for _, err := range errors {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// FormatErrorSummary creates a user-friendly summary of errors
func FormatErrorSummary(errors []*DeletionError) string {
	if len(errors) == 0 {
		return ""
	}

	grouped := GroupErrors(errors)
	var b strings.Builder
	b.WriteString("\n⚠️  Issues encountered:\n")

	if perms, ok := grouped[ErrorPermissionDenied]; ok {
		fmt.Fprintf(&b, "   ├─ Permission denied: %d items\n", len(perms))
		b.WriteString("   │  └─ Tip: Check folder ownership or grant storage access\n")
	}

	if busy, ok := grouped[ErrorFileInUse]; ok {
		fmt.Fprintf(&b, "   ├─ In use: %d items\n", len(busy))
		b.WriteString("   │  └─ Tip: Close applications and clean again\n")
	}

	if notEmpty, ok := grouped[ErrorNotEmpty]; ok {
		fmt.Fprintf(&b, "   ├─ Folders changed while cleaning: %d\n", len(notEmpty))
	}

	if notFound, ok := grouped[ErrorFileNotFound]; ok {
		fmt.Fprintf(&b, "   ├─ Already deleted: %d items\n", len(notFound))
	}

	refused := len(grouped[ErrorInvalidPath]) + len(grouped[ErrorProtectedPath])
	if refused > 0 {
		fmt.Fprintf(&b, "   ├─ Refused as unsafe: %d paths\n", refused)
	}

	if unknown, ok := grouped[ErrorUnknown]; ok {
		fmt.Fprintf(&b, "   └─ Other errors: %d items\n", len(unknown))
	}

	return b.String()
}
