// Package cli provides the command-line interface for sfrecord.
//
// Commands:
//   - query: Run a query and print the matching records
//   - get: Retrieve one record by type and identity
//   - create: Create a record from field assignments
//   - update: Send changed fields of an existing record
//   - delete: Delete a record by type and identity
//   - login: Obtain an access token (web flow or JWT bearer)
//   - mock: Run a local mock of the REST API, seeded from files
//   - config: Display effective configuration and where each value came from
//   - version: Show sfrecord version
//
// Field assignments use Field=text for strings and Field:=json for any JSON
// value, so numbers, booleans and null can be written.
//
// Usage:
//
//	sfrecord login --client-id $CLIENT_ID
//	sfrecord query "SELECT Id, Name FROM Account ORDER BY Name"
//	sfrecord query --jsonpath '$[*].Name' "SELECT Name FROM Account"
//	sfrecord get Account 001000000000001AAA --fields Name,Industry
//	sfrecord create Account Name=Acme NumberOfEmployees:=250
//	sfrecord update Account 001000000000001AAA Industry=Energy
//	sfrecord delete Account 001000000000001AAA
//	sfrecord mock --port 8080 --seed 'testdata/**/*.yaml'
package cli
