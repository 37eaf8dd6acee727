// Package logger builds *slog.Logger instances for the cart services and
// keeps attribute names consistent across them.
//
// New takes functional options for format, level and destination, plus
// ContextExtractor callbacks that copy request-scoped values from
// context.Context onto every record. WithEnvironment picks text/debug for
// development and JSON/info for staging and production.
//
// WithRequestID puts a request id on a context. RequestIDExtractor logs it as
// request_id, and RequestIDFromContext plugs into audit.WithRequestIDExtractor
// so audit records carry the same id.
//
// The attribute helpers in attr.go (ItemID, Transition, Version, Attempt,
// Policy and friends) are what the lifecycle controller and the sweeper log
// with. Error and Errors return an empty attribute for nil errors, so
//
//	log.WarnContext(ctx, "audit record failed", logger.ItemID(id), logger.Error(err))
//
// needs no nil check.
package logger
