package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldTransactionID = "transaction_id"
	FieldCategoryID    = "category_id"
	FieldAccountID     = "account_id"
	FieldName          = "name"
	FieldAttempt       = "attempt"
	FieldMaxAttempts   = "max_attempts"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)

// Ledger operation names, shared between log records and metric labels
const (
	OpUpsert  = "upsert"
	OpTrash   = "trash"
	OpRestore = "restore"
	OpDelete  = "delete"
)
