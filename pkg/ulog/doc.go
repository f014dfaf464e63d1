// Package ulog decodes flight log files into an in-memory, column-oriented
// model.
//
// # Parsing
//
// A parse runs in two phases over a single forward pass of the input:
//
//  1. Definitions: info, format and parameter messages. The phase ends at
//     the first subscription or log line, which is left for the next phase.
//  2. Data: subscriptions, data records, parameter changes, log lines and
//     dropouts, until the end of input.
//
// Data records are routed by msg id to the active subscription and copied
// into that subscription's buffer. Every record occupies exactly the stride
// of its flattened layout. Once the input is exhausted each subscription
// that received data is materialized into a Topic: one dense typed Column
// per flattened field.
//
// # Errors and Warnings
//
// Only a bad magic (*FormatError) or a short header (*TruncatedError) stop a
// parse. Everything else is recorded as a Warning on the returned Log and
// decoding continues:
//
//	CompatibilityWarning         header version is not 0
//	MissingSubscriptionWarning   data for an unknown msg id, once per id
//	UnknownFormatWarning         subscription to a type that cannot be flattened
//	MalformedMessageWarning      payload that does not decode, message skipped
//
// An input that ends in the middle of a message yields everything decoded
// so far with Log.Truncated set.
//
// # Concurrency
//
// A Parser may be shared. Each call to Parse owns its own state, and a
// returned Log is read-only.
package ulog
