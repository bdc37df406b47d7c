package force

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind_Request(t *testing.T) {
	const query = "SELECT Id, Name FROM Account WHERE Name = 'A&B Co' LIMIT 5"

	var gotReq *http.Request
	_, c := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		_, _ = io.WriteString(w, `{"totalSize":1,"done":true,"records":[{"attributes":{"type":"Account"},"Id":"001000000000001AAA","Name":"A&B Co"}]}`)
	})

	records, err := c.Find(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t, "/services/data/v59.0/query/", gotReq.URL.Path)
	assert.Equal(t, query, gotReq.URL.Query().Get("q"))
	assert.Equal(t, "OAuth "+testToken, gotReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, gotReq.Header.Get("User-Agent"))
	assert.Empty(t, gotReq.Header.Get("Content-Type"))

	assert.Equal(t, "Account", records[0].Type())
	assert.Equal(t, "A&B Co", records[0].Str("Name"))
	assert.Empty(t, records[0].Dirty())
}

func TestFind_Empty(t *testing.T) {
	_, c := mockServer(t, rawHandler(t, http.StatusOK, `{"totalSize":0,"done":true,"records":[]}`))

	records, err := c.Find(context.Background(), "SELECT Id FROM Contact WHERE LastName = 'Nobody'")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFind_ErrorSurfacing(t *testing.T) {
	_, c := mockServer(t, rawHandler(t, http.StatusBadRequest,
		`[{"message":"\nSELECT Foo FROM Account\n       ^\nERROR at Row:1:Column:8\nNo such column 'Foo' on entity 'Account'","errorCode":"INVALID_FIELD"}]`))

	records, err := c.Find(context.Background(), "SELECT Foo FROM Account")
	assert.Nil(t, records)

	var apiErr *RemoteAPIError
	require.True(t, errors.As(err, &apiErr), "error = %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INVALID_FIELD", apiErr.ErrorCode)
	assert.Contains(t, apiErr.Message, "No such column 'Foo'")
}

func TestFind_Pagination(t *testing.T) {
	var paths []string
	_, c := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/services/data/v59.0/query/":
			_, _ = io.WriteString(w, `{"totalSize":3,"done":false,"nextRecordsUrl":"/services/data/v59.0/query/01gC-2","records":[
				{"attributes":{"type":"Contact"},"Id":"003000000000001AAA"},
				{"attributes":{"type":"Contact"},"Id":"003000000000002AAA"}]}`)
		case "/services/data/v59.0/query/01gC-2":
			_, _ = io.WriteString(w, `{"totalSize":3,"done":true,"records":[
				{"attributes":{"type":"Contact"},"Id":"003000000000003AAA"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	records, err := c.Find(context.Background(), "SELECT Id FROM Contact")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "003000000000003AAA", records[2].ID())
	assert.Equal(t, []string{"/services/data/v59.0/query/", "/services/data/v59.0/query/01gC-2"}, paths)
}

func TestFind_PaginationError(t *testing.T) {
	_, c := mockServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/services/data/v59.0/query/" {
			_, _ = io.WriteString(w, `{"done":false,"nextRecordsUrl":"/services/data/v59.0/query/gone","records":[{"attributes":{"type":"Contact"}}]}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `[{"message":"invalid query locator","errorCode":"INVALID_QUERY_LOCATOR"}]`)
	})

	records, err := c.Find(context.Background(), "SELECT Id FROM Contact")
	assert.Nil(t, records)

	var apiErr *RemoteAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_QUERY_LOCATOR", apiErr.ErrorCode)
}

func TestFind_MalformedBody(t *testing.T) {
	_, c := mockServer(t, rawHandler(t, http.StatusOK, `{"records":{}}`))

	_, err := c.Find(context.Background(), "SELECT Id FROM Contact")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFindOne(t *testing.T) {
	_, c := mockServer(t, rawHandler(t, http.StatusOK, `{"totalSize":0,"done":true,"records":[]}`))
	_, err := c.FindOne(context.Background(), "SELECT Id FROM Contact")
	assert.ErrorIs(t, err, ErrNoRecords)

	_, c = mockServer(t, rawHandler(t, http.StatusOK, `{"done":true,"records":[
		{"attributes":{"type":"Contact"},"Id":"003000000000001AAA"},
		{"attributes":{"type":"Contact"},"Id":"003000000000002AAA"}]}`))
	rec, err := c.FindOne(context.Background(), "SELECT Id FROM Contact")
	require.NoError(t, err)
	assert.Equal(t, "003000000000001AAA", rec.ID())
}
