// Package logx is a thin structured-logging layer over zerolog.
//
// It exposes a small Logger value type with variadic Field helpers and a
// Service that owns the configured sinks (console, file) and supports
// runtime reconfiguration via Apply(). Loggers handed out by the Service
// stay live across Apply() calls; a zero Logger is a safe no-op.
package logx
