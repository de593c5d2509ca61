// Package ir defines the data model shared by every other package:
// attribute values, record identities, records, the operation union, their
// wire codecs and the typed errors.
//
// ir imports nothing internal. Key constraints:
//   - no float types; numbers are int64
//   - absent map entries mean "untouched", IRNull and empty relationships mean "cleared"
//   - canonical JSON (RFC 8785) is the only encoding used for hashes and the journal
package ir
