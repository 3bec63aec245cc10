package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized structured logging key for bridge session identifiers.
	FieldSessionID = "session_id"
	// FieldAsset is the standardized structured logging key for asset names.
	FieldAsset = "asset"
	// FieldAssetPath is the standardized structured logging key for asset folder paths.
	FieldAssetPath = "asset_path"
	// FieldRequestID is the standardized structured logging key for import request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance on failures.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	assetContextKey contextKey = iota
	requestIDContextKey
)

// WithAsset returns a context tagged with the asset name for downstream logging.
func WithAsset(ctx context.Context, asset string) context.Context {
	return context.WithValue(ctx, assetContextKey, asset)
}

// AssetFromContext extracts the asset name previously stored with WithAsset.
func AssetFromContext(ctx context.Context) (string, bool) {
	asset, ok := ctx.Value(assetContextKey).(string)
	return asset, ok && asset != ""
}

// WithRequestID returns a context tagged with an import request correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext extracts the request id previously stored with WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if asset, ok := AssetFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAsset, asset))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
