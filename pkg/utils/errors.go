package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrNavigation       = errors.New("page navigation failed")             // Page failed to load
	ErrTimeout          = errors.New("timed out waiting for page content") // Expected content never appeared
	ErrHandler          = errors.New("request handler failed")             // User callback returned an error or panicked
	ErrExtraction       = errors.New("page extraction failed")             // Links/title/content could not be read
	ErrEngineLaunch     = errors.New("failed to launch render engine")
	ErrEngineClosed     = errors.New("render engine already released")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrInvalidPattern   = errors.New("invalid match pattern")
	ErrParsing          = errors.New("parsing error")    // Wraps specific parsing error (HTML, URL, JSON)
	ErrFilesystem       = errors.New("filesystem error") // Wraps os errors
	ErrDatabase         = errors.New("database error")   // Wraps badger errors
	ErrResponseBodyRead = errors.New("failed to read response body")
	ErrConfigValidation = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Handler first: a handler may itself wrap a navigation or timeout error,
	// but the failure belongs to the callback.
	switch {
	case errors.Is(err, ErrHandler):
		if errors.Is(err, ErrTimeout) {
			return "Handler_Timeout"
		}
		return "Handler"
	case errors.Is(err, ErrNavigation):
		if isNetworkTimeout(err) {
			return "Navigation_Timeout"
		}
		return "Navigation"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrExtraction):
		return "Content_Extraction"
	case errors.Is(err, ErrEngineLaunch):
		return "Engine_Launch"
	case errors.Is(err, ErrEngineClosed):
		return "Engine_Closed"
	case errors.Is(err, ErrInvalidURL):
		return "Policy_InvalidURL"
	case errors.Is(err, ErrInvalidPattern):
		return "Config_Pattern"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "JSON") {
			return "Content_ParsingJSON"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	if isNetworkTimeout(err) {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate") {
		return "Network_TLS"
	}

	return "Unknown"
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
