package log

import "famfin/internal/core"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorKind     = "error_kind"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldCallerID      = "caller_id"
	FieldSnapshotID    = "snapshot_id"
	FieldCalculatedFor = "calculated_for"
	FieldCardID        = "card_id"
	FieldCycleID       = "cycle_id"
	FieldGoalID        = "goal_id"
	FieldBudgetID      = "budget_id"
	FieldAmountCents   = "amount_cents"
	FieldJob           = "job"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAgency    = "agency"
	ComponentWorker    = "worker"
	ComponentScheduler = "scheduler"
	ComponentAuth      = "auth"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpCalculate  = "calculate"
	OpTransition = "transition"
	OpExport     = "export"
	OpRemind     = "remind"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text and, for domain errors, its kind.
func (f LogFields) WithError(err error) LogFields {
	if err == nil {
		return f
	}
	f[FieldError] = err.Error()
	if kind := core.KindOf(err); kind != "" {
		f[FieldErrorKind] = string(kind)
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID int64) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithSnapshot adds the identifying fields of an agency snapshot.
func (f LogFields) WithSnapshot(snapshotID, userID int64, calculatedFor string) LogFields {
	f[FieldSnapshotID] = snapshotID
	f[FieldUserID] = userID
	f[FieldCalculatedFor] = calculatedFor
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to key-value pairs for slog.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
