// Package testutil contains helpers used across tests: a scripted model with
// a fluent step builder, an event recorder and canned tool back-ends. They are
// not intended for production usage.
package testutil
