package adminkit

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// Severity grades how loudly a failure should be surfaced.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Category is the fixed error taxonomy every failure is mapped onto.
type Category string

const (
	CategoryNetwork          Category = "network"
	CategoryTimeout          Category = "timeout"
	CategoryAuthentication   Category = "authentication"
	CategoryPermission       Category = "permission"
	CategoryValidation       Category = "validation"
	CategoryServer           Category = "server"
	CategoryRateLimited      Category = "rate_limited"
	CategoryNotFound         Category = "not_found"
	CategoryConflict         Category = "conflict"
	CategoryConcurrentUpdate Category = "concurrent_update"
	CategoryUnknown          Category = "unknown"
)

// Action is an optional side effect the caller should trigger after showing
// the classification to the user.
type Action string

const (
	ActionNone          Action = ""
	ActionRedirectLogin Action = "redirect_login"
	ActionRefreshPage   Action = "refresh_page"
	ActionShowConflict  Action = "show_conflict"
)

// Classification is the normalized description of a failure.
type Classification struct {
	Code        string   `json:"code"`
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Retryable   bool     `json:"retryable"`
	UserMessage string   `json:"user_message"`
	Action      Action   `json:"action,omitempty"`
}

// taxonomy is the fixed table: code -> classification. Severity and
// retryability never vary per call site.
var taxonomy = map[string]Classification{
	"NETWORK_ERROR": {
		Code: "NETWORK_ERROR", Category: CategoryNetwork, Severity: SeverityMedium,
		Retryable: true, UserMessage: "Connection problem. Check your network and try again.",
	},
	"TIMEOUT_ERROR": {
		Code: "TIMEOUT_ERROR", Category: CategoryTimeout, Severity: SeverityMedium,
		Retryable: true, UserMessage: "The request took too long. Please try again.",
	},
	"AUTHENTICATION_FAILED": {
		Code: "AUTHENTICATION_FAILED", Category: CategoryAuthentication, Severity: SeverityHigh,
		Retryable: false, UserMessage: "Your session is no longer valid. Please sign in again.",
		Action: ActionRedirectLogin,
	},
	TextCodeInvalidCreds: {
		Code: TextCodeInvalidCreds, Category: CategoryAuthentication, Severity: SeverityHigh,
		Retryable: false, UserMessage: "Invalid email or password.",
	},
	TextCodeSessionNotFound: {
		Code: TextCodeSessionNotFound, Category: CategoryAuthentication, Severity: SeverityHigh,
		Retryable: false, UserMessage: "You are signed out. Please sign in again.",
		Action: ActionRedirectLogin,
	},
	TextCodeTokenExpired: {
		Code: TextCodeTokenExpired, Category: CategoryAuthentication, Severity: SeverityHigh,
		Retryable: false, UserMessage: "Your session expired. Please sign in again.",
		Action: ActionRedirectLogin,
	},
	TextCodeTokenMalformed: {
		Code: TextCodeTokenMalformed, Category: CategoryAuthentication, Severity: SeverityHigh,
		Retryable: false, UserMessage: "Your session is no longer valid. Please sign in again.",
		Action: ActionRedirectLogin,
	},
	TextCodeRefreshFailed: {
		Code: TextCodeRefreshFailed, Category: CategoryAuthentication, Severity: SeverityHigh,
		Retryable: false, UserMessage: "Your session could not be renewed. Please sign in again.",
		Action: ActionRedirectLogin,
	},
	TextCodeAccessDenied: {
		Code: TextCodeAccessDenied, Category: CategoryPermission, Severity: SeverityHigh,
		Retryable: false, UserMessage: "You do not have permission to access this page.",
	},
	TextCodeRateLimited: {
		Code: TextCodeRateLimited, Category: CategoryRateLimited, Severity: SeverityMedium,
		Retryable: true, UserMessage: "Too many attempts. Please wait a few minutes and try again.",
	},
	"VALIDATION_ERROR": {
		Code: "VALIDATION_ERROR", Category: CategoryValidation, Severity: SeverityLow,
		Retryable: false, UserMessage: "Some fields are invalid. Please review and try again.",
	},
	"SERVER_ERROR": {
		Code: "SERVER_ERROR", Category: CategoryServer, Severity: SeverityHigh,
		Retryable: true, UserMessage: "Something went wrong on our side. Please try again shortly.",
	},
	TextCodeItemNotFound: {
		Code: TextCodeItemNotFound, Category: CategoryNotFound, Severity: SeverityLow,
		Retryable: false, UserMessage: "The requested item could not be found.",
	},
	"NOT_FOUND": {
		Code: "NOT_FOUND", Category: CategoryNotFound, Severity: SeverityLow,
		Retryable: false, UserMessage: "The requested resource could not be found.",
	},
	TextCodeItemExists: {
		Code: TextCodeItemExists, Category: CategoryConflict, Severity: SeverityMedium,
		Retryable: false, UserMessage: "This item already exists.",
		Action: ActionShowConflict,
	},
	"CONFLICT_ERROR": {
		Code: "CONFLICT_ERROR", Category: CategoryConflict, Severity: SeverityMedium,
		Retryable: false, UserMessage: "Your change conflicts with a newer version.",
		Action: ActionShowConflict,
	},
	"CONCURRENT_UPDATE": {
		Code: "CONCURRENT_UPDATE", Category: CategoryConcurrentUpdate, Severity: SeverityMedium,
		Retryable: false, UserMessage: "Someone else changed this while you were editing.",
		Action: ActionShowConflict,
	},
	"UNKNOWN_ERROR": {
		Code: "UNKNOWN_ERROR", Category: CategoryUnknown, Severity: SeverityMedium,
		Retryable: true, UserMessage: "An unexpected error occurred. Please try again.",
		Action: ActionRefreshPage,
	},
}

// contextMessages overrides the generic user message for a resolved code when
// the caller tags the operation. Classification fields are never affected.
var contextMessages = map[string]map[string]string{
	"auth.login": {
		TextCodeInvalidCreds: "We could not sign you in. Double-check your email and password.",
		TextCodeRateLimited:  "Too many sign-in attempts. Please wait 15 minutes before trying again.",
		"NETWORK_ERROR":      "We could not reach the sign-in service. Check your connection.",
	},
	"session.refresh": {
		"NETWORK_ERROR": "We lost the connection while renewing your session.",
	},
	"carousel.save": {
		"NETWORK_ERROR":  "The image was saved locally but could not be synced yet.",
		"SERVER_ERROR":   "The image was saved locally; syncing will be retried later.",
		"CONFLICT_ERROR": "This image was changed elsewhere. Refresh the carousel before editing.",
	},
	"carousel.publish": {
		"NETWORK_ERROR": "The homepage could not be notified. It will pick up changes on its next poll.",
	},
}

type classifyOptions struct {
	operation string
}

// ClassifyOption customizes a Classify call.
type ClassifyOption func(*classifyOptions)

// WithOperation tags the classification with the operation being performed so
// a context-specific user message can be selected.
func WithOperation(op string) ClassifyOption {
	return func(o *classifyOptions) {
		o.operation = op
	}
}

// Classify maps err onto the fixed taxonomy. Precedence, first match wins:
// explicit code, HTTP status, message keywords, unknown.
func Classify(err error, opts ...ClassifyOption) Classification {
	options := &classifyOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	c := resolve(err)

	if options.operation != "" {
		if msgs, ok := contextMessages[options.operation]; ok {
			if msg, ok := msgs[c.Code]; ok {
				c.UserMessage = msg
			}
		}
	}

	return c
}

func resolve(err error) Classification {
	if err == nil {
		return taxonomy["UNKNOWN_ERROR"]
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if c, ok := taxonomy[richErr.TextCode]; ok {
			return c
		}
		if c, ok := classifyStatus(richErr.Code); ok {
			return c
		}
	}

	if c, ok := classifyStatus(statusFromError(err)); ok {
		return c
	}

	if c, ok := classifyMessage(err.Error()); ok {
		return c
	}

	return taxonomy["UNKNOWN_ERROR"]
}

func statusFromError(err error) int {
	var fiberErr *fiber.Error
	if goerrors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var coder interface{ StatusCode() int }
	if goerrors.As(err, &coder) {
		return coder.StatusCode()
	}

	return 0
}

func classifyStatus(status int) (Classification, bool) {
	switch {
	case status == 0:
		return Classification{}, false
	case status == fiber.StatusUnauthorized:
		return taxonomy["AUTHENTICATION_FAILED"], true
	case status == fiber.StatusForbidden:
		return taxonomy[TextCodeAccessDenied], true
	case status == fiber.StatusNotFound:
		return taxonomy["NOT_FOUND"], true
	case status == fiber.StatusConflict:
		return taxonomy["CONFLICT_ERROR"], true
	case status == fiber.StatusTooManyRequests:
		return taxonomy[TextCodeRateLimited], true
	case status >= 500:
		return taxonomy["SERVER_ERROR"], true
	case status >= 400:
		return taxonomy["VALIDATION_ERROR"], true
	default:
		return Classification{}, false
	}
}

func classifyMessage(msg string) (Classification, bool) {
	m := strings.ToLower(msg)

	switch {
	case containsAny(m, "timeout", "timed out", "deadline exceeded"):
		return taxonomy["TIMEOUT_ERROR"], true
	case containsAny(m, "network", "connection", "no such host", "dial tcp", "fetch"):
		return taxonomy["NETWORK_ERROR"], true
	case containsAny(m, "conflict", "already exists", "duplicate"):
		return taxonomy["CONFLICT_ERROR"], true
	case containsAny(m, "validation", "invalid", "required"):
		return taxonomy["VALIDATION_ERROR"], true
	default:
		return Classification{}, false
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
