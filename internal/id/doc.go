// Package id generates and checks record identities in the backend's format.
//
// An identity is 15 case-sensitive base-62 characters:
//
//	PPPIIRNNNNNNNNN
//
// where PPP is the object's key prefix, II the instance, R a reserved
// character and N a sequence number. The 18-character form appends a
// three-character checksum that encodes the case of the first 15, so it
// survives case-insensitive systems. The backend returns 18-character
// identities and accepts either form.
//
// Short produces random hex strings for query cursors and other
// non-record handles.
package id
