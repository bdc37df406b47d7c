// Package forcemock is an in-memory implementation of the REST API used for
// tests and local development.
//
// It serves:
//
//	GET    /services/data/vNN.N/query/?q=...           query (paged by BatchSize)
//	GET    /services/data/vNN.N/query/{locator}        next page
//	POST   /services/data/vNN.N/sobjects/{type}        create
//	GET    /services/data/vNN.N/sobjects/{type}/{id}   retrieve
//	PATCH  /services/data/vNN.N/sobjects/{type}/{id}   update
//	POST   /services/data/vNN.N/sobjects/{type}/{id}?_HttpMethod=PATCH
//	DELETE /services/data/vNN.N/sobjects/{type}/{id}   delete
//	GET    /services/oauth2/authorize                  auto-approving consent
//	POST   /services/oauth2/token                      code, refresh and JWT bearer grants
//
// Data endpoints require an access token issued by the token endpoint or by
// IssueToken. Errors use the API's error array shape and codes.
//
// Queries support the subset described in internal/soql, including lookups
// through configured Lookup relationships (Account.Name) and subqueries over
// configured ChildRelationships.
//
// Basic usage:
//
//	srv, err := forcemock.NewServer(forcemock.Config{})
//	if err != nil {
//		return err
//	}
//	ts := httptest.NewServer(srv.Handler())
//	token, _ := srv.IssueToken("user@example.com")
package forcemock
