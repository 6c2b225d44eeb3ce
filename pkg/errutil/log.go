// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package errutil inspects the coded errors used across the module:
// code extraction for wire mapping, slog attribute assembly, and the
// assertion helpers the package tests share.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops error code carried by err, or "" when err is
// nil or carries none. Wrapping preserves the code, so transport-level
// wrapping does not mask the domain code underneath.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code()
	}
	return ""
}

// Attrs flattens err into slog attributes: the error text, the code
// when one is present, and any context attached with With. Returns nil
// for a nil error.
func Attrs(err error) []any {
	if err == nil {
		return nil
	}
	attrs := []any{slog.String("error", err.Error())}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return attrs
	}
	if code := oopsErr.Code(); code != "" {
		attrs = append(attrs, slog.String("code", code))
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, slog.Any("context", ctx))
	}
	return attrs
}

// LogError reports err through logger at error level with the
// attributes Attrs extracts.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, Attrs(err)...)
}
