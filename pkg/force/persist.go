package force

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/getmockd/sfrecord/pkg/session"
	"github.com/getmockd/sfrecord/pkg/sobject"
)

// createResult is the body returned by a successful create.
type createResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// Save persists the record's dirty fields. A record without an identity is
// created and receives the identity the service assigns; a record with one is
// updated with only the fields changed since it was fetched or last saved.
//
// On failure the dirty set is left as it was, so the same Save can be retried.
func (c *Client) Save(ctx context.Context, rec *sobject.Record) error {
	if rec.Type() == "" {
		return ErrMissingType
	}

	sess, err := c.session(ctx)
	if err != nil {
		return err
	}

	payload := rec.Changes()

	if rec.IsNew() {
		return c.create(ctx, sess, rec, payload)
	}
	return c.update(ctx, sess, rec, payload)
}

func (c *Client) create(ctx context.Context, sess session.Session, rec *sobject.Record, payload map[string]any) error {
	resp, err := c.do(ctx, sess, http.MethodPost, sess.BaseURL()+"/sobjects/"+url.PathEscape(rec.Type()), payload)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	if !resp.ok() {
		return newRemoteAPIError(resp.status, resp.body)
	}

	var result createResult
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return fmt.Errorf("%w: create response: %v", ErrMalformedResponse, err)
	}
	if result.ID == "" {
		return fmt.Errorf("%w: create response has no id", ErrMalformedResponse)
	}
	if err := rec.AssignID(result.ID); err != nil {
		return err
	}

	rec.ClearDirty()
	c.logger.Debug("record created", "type", rec.Type(), "id", result.ID, "fields", len(payload))
	return nil
}

func (c *Client) update(ctx context.Context, sess session.Session, rec *sobject.Record, payload map[string]any) error {
	target := itemURL(sess.BaseURL(), rec.Type(), rec.ID())
	method := http.MethodPatch
	if !c.nativePatch {
		method = http.MethodPost
		target += "?_HttpMethod=PATCH"
	}

	resp, err := c.do(ctx, sess, method, target, payload)
	if err != nil {
		return fmt.Errorf("update request failed: %w", err)
	}
	if !resp.ok() {
		return newRemoteAPIError(resp.status, resp.body)
	}

	rec.ClearDirty()
	c.logger.Debug("record updated", "type", rec.Type(), "id", rec.ID(), "fields", len(payload))
	return nil
}

// Delete removes the remote object the record refers to. The local record is
// left untouched, including its identity.
func (c *Client) Delete(ctx context.Context, rec *sobject.Record) error {
	if rec.IsNew() {
		return ErrMissingIdentity
	}
	if rec.Type() == "" {
		return ErrMissingType
	}

	sess, err := c.session(ctx)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, sess, http.MethodDelete, itemURL(sess.BaseURL(), rec.Type(), rec.ID()), nil)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	if !resp.ok() {
		return newRemoteAPIError(resp.status, resp.body)
	}

	c.logger.Debug("record deleted", "type", rec.Type(), "id", rec.ID())
	return nil
}

// Retrieve fetches a single record by type and identity. When fields is empty
// the service decides which fields to return.
func (c *Client) Retrieve(ctx context.Context, typeName, id string, fields ...string) (*sobject.Record, error) {
	if typeName == "" {
		return nil, ErrMissingType
	}
	if id == "" {
		return nil, ErrMissingIdentity
	}

	sess, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	target := itemURL(sess.BaseURL(), typeName, id)
	if len(fields) > 0 {
		target += "?fields=" + url.QueryEscape(strings.Join(fields, ","))
	}

	resp, err := c.do(ctx, sess, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve request failed: %w", err)
	}
	if !resp.ok() {
		return nil, newRemoteAPIError(resp.status, resp.body)
	}
	return ParseRecord(resp.body)
}

func itemURL(base, typeName, id string) string {
	return base + "/sobjects/" + url.PathEscape(typeName) + "/" + url.PathEscape(id)
}
