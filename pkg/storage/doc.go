// Package storage provides the filesystem persistence backend for school
// records and the configuration shared by every backend.
//
// # Backends
//
// FileSystemStorage keeps all records in one JSON array document:
//
//	store, err := storage.NewFileSystemStorage("data/schools.json")
//
// The relational backend lives in the relational subpackage and is selected
// by the backend package when every connection parameter in Config is set.
//
// # Concurrency
//
// FileSystemStorage serializes CreateSchool with a process-wide lock held
// across the read-modify-write cycle, so ids are unique and gap-free under
// concurrent submissions. ListSchools takes the shared lock and reads the
// last fully written document; writes go to a temp file that is renamed over
// the document.
//
// # Errors
//
// Every failure reading, parsing or writing the document wraps schools.ErrIO.
// A document that does not parse is reported, never treated as empty.
package storage
