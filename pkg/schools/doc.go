// Package schools defines the school record, the error taxonomy shared by
// every layer of the service, and the Storage contract implemented by the
// filesystem and relational backends.
//
// Backends classify failures with ErrIO (document file problems) and
// ErrConnection (database problems); both are matched with errors.Is:
//
//	if errors.Is(err, schools.ErrIO) || errors.Is(err, schools.ErrConnection) {
//		// log internally, surface a generic message
//	}
package schools
