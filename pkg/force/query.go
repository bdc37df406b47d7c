package force

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/getmockd/sfrecord/pkg/sobject"
)

// Find runs a query and returns the matching records in the order the service
// returned them. The query string is sent verbatim. When the service pages the
// result, the remaining pages are fetched before returning.
func (c *Client) Find(ctx context.Context, query string) ([]*sobject.Record, error) {
	sess, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	next := sess.BaseURL() + "/query/?q=" + url.QueryEscape(query)
	records := make([]*sobject.Record, 0)

	for next != "" {
		resp, err := c.do(ctx, sess, http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("query request failed: %w", err)
		}
		if !resp.ok() {
			return nil, newRemoteAPIError(resp.status, resp.body)
		}

		page, nextURL, err := parseQueryPage(resp.body)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)

		next = ""
		if nextURL != "" {
			next = strings.TrimRight(sess.InstanceURL, "/") + nextURL
		}
	}

	c.logger.Debug("query executed", "records", len(records))
	return records, nil
}

// FindOne runs a query and returns its first record, or ErrNoRecords.
func (c *Client) FindOne(ctx context.Context, query string) (*sobject.Record, error) {
	records, err := c.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records[0], nil
}

// parseQueryPage parses one page of a query result. It returns the page's
// records and the relative URL of the next page, if the result is not done.
func parseQueryPage(body []byte) ([]*sobject.Record, string, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, "", err
	}

	raw, ok := obj.get(recordsKey)
	if !ok {
		return nil, "", fmt.Errorf("%w: query response has no %q", ErrMalformedResponse, recordsKey)
	}
	rows, ok := raw.([]any)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q is not an array", ErrMalformedResponse, recordsKey)
	}

	records := make([]*sobject.Record, 0, len(rows))
	for i, item := range rows {
		row, ok := item.(*object)
		if !ok {
			return nil, "", fmt.Errorf("%w: row %d is not an object", ErrMalformedResponse, i)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, "", fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, rec)
	}

	var next string
	if done, ok := obj.values["done"].(bool); ok && !done {
		next, _ = obj.values["nextRecordsUrl"].(string)
	}
	return records, next, nil
}
