package enums

// OutboxDLQErrorReason classifies why an outbox row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQErrorReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQErrorReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQErrorReasonDecodeFailed OutboxDLQErrorReason = "decode_failed"
)
