// Package sobject provides the in-memory representation of a remote CRM record.
//
// A Record carries a type name (for example "Contact"), an opaque identity
// assigned by the server, and an open-ended set of fields. The schema is not
// known in advance: fields appear either because a query projected them or
// because the caller assigned them.
//
// # Dirty Tracking
//
// Records keep two views of their fields:
//
//   - Fields: every field name the record knows about, in the order first seen
//   - Dirty: the subset assigned locally through Set and not yet persisted
//
// Only dirty fields are sent when a record is saved, so a fetched record that
// was never edited produces an empty payload and an update never overwrites
// server values the caller did not touch.
//
//	contact := sobject.New("Contact")
//	_ = contact.Set("LastName", "Schwartz")
//	_ = contact.Set("FirstName", "Andy")
//	contact.Changes() // map[FirstName:Andy LastName:Schwartz]
//
// # Reserved Fields
//
// The identity field ("Id") and the type envelope ("attributes") cannot be
// assigned through Set. The identity is written once, by the persistence
// layer, through AssignID.
//
// # Relationships
//
// Field values are scalars (string, json.Number, bool, nil), compound values
// (map[string]any), a nested *Record for a to-one relationship, or []*Record
// for a to-many relationship. Nested records are independent: each carries its
// own type and identity and can be saved or deleted on its own.
//
// # Concurrency
//
// Records are not safe for concurrent mutation. Treat a Record as owned by a
// single goroutine at a time.
package sobject
