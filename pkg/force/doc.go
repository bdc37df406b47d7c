// Package force runs queries and persists records against the REST API.
//
// A Client turns query results into sobject.Record graphs and writes records
// back with only their dirty fields:
//
//	client := force.New(session.Env(session.EnvPrefix))
//
//	contacts, err := client.Find(ctx, "SELECT Id, LastName FROM Contact")
//	if err != nil {
//		return err
//	}
//	c := contacts[0]
//	_ = c.Set("Title", "VP")
//	err = client.Save(ctx, c) // sends {"Title":"VP"} only
//
// Records without an identity are created on Save; records with one are
// updated. Nested relationship sub-queries are expanded into child records,
// each of which can be saved or deleted on its own.
//
// The session is read from the Source on every call, so a rotated token is
// picked up without building a new Client. The client never retries.
package force
