// Package session supplies the ambient credentials used by the REST client:
// a bearer token, the instance URL and the API version.
//
// Sessions are consumed through the Source interface, which is read on every
// request. Use a Store when the token may be rotated at runtime:
//
//	store := session.NewStore()
//	store.Set(session.Session{
//	    AccessToken: token,
//	    InstanceURL: "https://na1.salesforce.com",
//	    APIVersion:  "59.0",
//	})
//	client := force.New(store)
//
// # Obtaining Tokens
//
// OAuthConfig implements the OAuth 2.0 flows supported by the backend:
//   - Web server (authorization code) via AuthCodeURL and Exchange
//   - Refresh token via Refresh
//   - JWT bearer via JWTBearer, signing an RS256 assertion
//
// The flows run on golang.org/x/oauth2. NewRefreshingSource turns a token with
// a refresh token into a Source that renews the access token once it ages out.
//
// CallbackHandler wires the web server flow into an http.Handler with /login
// and /callback routes and stores the resulting session.
package session
