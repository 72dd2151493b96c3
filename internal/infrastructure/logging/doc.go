// Package logging provides structured logging built on zap.
//
// Production output is JSON to stdout; development output is colored
// console with stack traces enabled. Components receive a *Logger by
// constructor injection and attach their own fields.
package logging
