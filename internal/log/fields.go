package log

// Standard field names used across all log records.
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldClientIP    = "client_ip"
	FieldPeriodID    = "period_id"
	FieldPeriodName  = "period_name"
	FieldAccountID   = "account_id"
	FieldAmountCents = "amount_cents"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldDate        = "date"
	FieldGranularity = "granularity"
	FieldCount       = "count"
	FieldQueue       = "queue"
	FieldExchange    = "exchange"
)

// Component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentPeriod  = "period"
	ComponentBalance = "balance"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
)

// Operation names
const (
	OpResolvePeriod   = "resolve_period"
	OpCreatePeriod    = "create_period"
	OpUpsertBalances  = "upsert_balances"
	OpBulkUpsert      = "bulk_upsert"
	OpCheckup         = "checkup"
	OpPublishEvent    = "publish_event"
	OpConsumeEvent    = "consume_event"
	OpExportHistory   = "export_history"
	OpMigrate         = "migrate"
	OpHTTPRequest     = "http_request"
	OpShutdown        = "shutdown"
)
