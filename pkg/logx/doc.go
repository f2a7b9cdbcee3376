// Package logx configures notifyclient's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - A zero-value Logger that silently drops everything, so library code can
//     log unconditionally
package logx
