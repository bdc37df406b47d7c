package forcemock

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededConfig() Config {
	return Config{
		Records: []SeedRecord{
			{Type: "Account", Ref: "acme", Fields: map[string]any{"Name": "Acme", "NumberOfEmployees": 250, "Industry": "Manufacturing"}},
			{Type: "Account", Ref: "globex", Fields: map[string]any{"Name": "Globex", "NumberOfEmployees": 1200}},
			{Type: "Account", Fields: map[string]any{"Name": "Initech"}},
			{Type: "Contact", Fields: map[string]any{"FirstName": "Jane", "LastName": "Doe", "AccountId": "@acme"}},
			{Type: "Contact", Fields: map[string]any{"FirstName": "John", "LastName": "Roe", "AccountId": "@globex"}},
			{Type: "Contact", Fields: map[string]any{"LastName": "Solo"}},
			{Type: "BOM__c", Ref: "bom", Fields: map[string]any{"Name": "Main board", "Revision__c": "B"}},
			{Type: "BOM__c", Fields: map[string]any{"Name": "Empty"}},
			{Type: "Line_Item__c", Fields: map[string]any{"BOM__c": "@bom", "Part_Number__c": "R-100", "Quantity__c": 4}},
			{Type: "Line_Item__c", Fields: map[string]any{"BOM__c": "@bom", "Part_Number__c": "C-220", "Quantity__c": 2}},
		},
	}
}

type testPage struct {
	TotalSize      int               `json:"totalSize"`
	Done           bool              `json:"done"`
	NextRecordsURL string            `json:"nextRecordsUrl"`
	Records        []json.RawMessage `json:"records"`
}

func decodePage(t *testing.T, data []byte) testPage {
	t.Helper()
	var page testPage
	require.NoError(t, json.Unmarshal(data, &page), string(data))
	return page
}

func TestQuery_ProjectionOrder(t *testing.T) {
	env := newTestEnv(t, seededConfig())

	status, data := env.query(t, "SELECT LastName, FirstName, Account.Name, Id FROM Contact WHERE LastName = 'doe'")
	require.Equal(t, http.StatusOK, status, string(data))

	page := decodePage(t, data)
	require.Equal(t, 1, page.TotalSize)
	assert.True(t, page.Done)
	require.Len(t, page.Records, 1)

	row := string(page.Records[0])
	assert.True(t, strings.HasPrefix(row, `{"attributes":{"type":"Contact","url":"/services/data/v59.0/sobjects/Contact/003`), row)

	lastName := strings.Index(row, `"LastName"`)
	firstName := strings.Index(row, `"FirstName"`)
	account := strings.Index(row, `"Account":{"attributes":{"type":"Account"`)
	identity := strings.Index(row, `"Id":"003`)
	require.True(t, lastName > 0 && firstName > 0 && account > 0 && identity > 0, row)
	assert.Less(t, lastName, firstName)
	assert.Less(t, firstName, account)
	assert.Less(t, account, identity)
	assert.Contains(t, row, `"Name":"Acme"`)
}

func TestQuery_UnresolvedLookup(t *testing.T) {
	env := newTestEnv(t, seededConfig())

	status, data := env.query(t, "SELECT LastName, Account.Name FROM Contact WHERE Account.Name = null")
	require.Equal(t, http.StatusOK, status, string(data))

	page := decodePage(t, data)
	require.Len(t, page.Records, 1)
	assert.Contains(t, string(page.Records[0]), `"LastName":"Solo","Account":null`)
}

func TestQuery_LookupFilter(t *testing.T) {
	env := newTestEnv(t, seededConfig())

	status, data := env.query(t, "SELECT LastName FROM Contact WHERE Account.NumberOfEmployees > 1000")
	require.Equal(t, http.StatusOK, status, string(data))

	page := decodePage(t, data)
	require.Len(t, page.Records, 1)
	assert.Contains(t, string(page.Records[0]), `"LastName":"Roe"`)
}

func TestQuery_Subquery(t *testing.T) {
	env := newTestEnv(t, seededConfig())

	status, data := env.query(t, "SELECT Name, (SELECT Part_Number__c, Quantity__c FROM Line_Items__r ORDER BY Part_Number__c) FROM BOM__c ORDER BY Name DESC")
	require.Equal(t, http.StatusOK, status, string(data))

	var page struct {
		Records []struct {
			Name      string `json:"Name"`
			LineItems *struct {
				TotalSize int  `json:"totalSize"`
				Done      bool `json:"done"`
				Records   []struct {
					PartNumber string  `json:"Part_Number__c"`
					Quantity   float64 `json:"Quantity__c"`
				} `json:"records"`
			} `json:"Line_Items__r"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &page))
	require.Len(t, page.Records, 2)

	main := page.Records[0]
	assert.Equal(t, "Main board", main.Name)
	require.NotNil(t, main.LineItems)
	assert.Equal(t, 2, main.LineItems.TotalSize)
	assert.True(t, main.LineItems.Done)
	require.Len(t, main.LineItems.Records, 2)
	assert.Equal(t, "C-220", main.LineItems.Records[0].PartNumber)
	assert.Equal(t, float64(2), main.LineItems.Records[0].Quantity)
	assert.Equal(t, "R-100", main.LineItems.Records[1].PartNumber)

	empty := page.Records[1]
	assert.Equal(t, "Empty", empty.Name)
	assert.Nil(t, empty.LineItems)
	assert.Contains(t, string(data), `"Line_Items__r":null`)
}

func TestQuery_OrderLimitOffset(t *testing.T) {
	env := newTestEnv(t, seededConfig())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"desc nulls last", "SELECT Name FROM Account ORDER BY NumberOfEmployees DESC", []string{"Globex", "Acme", "Initech"}},
		{"asc nulls first", "SELECT Name FROM Account ORDER BY NumberOfEmployees", []string{"Initech", "Acme", "Globex"}},
		{"limit", "SELECT Name FROM Account ORDER BY Name LIMIT 2", []string{"Acme", "Globex"}},
		{"offset", "SELECT Name FROM Account ORDER BY Name LIMIT 1 OFFSET 1", []string{"Globex"}},
		{"like", "SELECT Name FROM Account WHERE Name LIKE '%ex%'", []string{"Globex"}},
		{"in", "SELECT Name FROM Account WHERE Name IN ('acme', 'Initech') ORDER BY Name", []string{"Acme", "Initech"}},
		{"no match", "SELECT Name FROM Account WHERE Industry = 'Retail'", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := env.query(t, tt.query)
			require.Equal(t, http.StatusOK, status, string(data))

			var page struct {
				Records []struct {
					Name string `json:"Name"`
				} `json:"records"`
			}
			require.NoError(t, json.Unmarshal(data, &page))
			got := make([]string, 0, len(page.Records))
			for _, r := range page.Records {
				got = append(got, r.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuery_Errors(t *testing.T) {
	env := newTestEnv(t, seededConfig())

	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{"empty", " ", 400, CodeMalformedQuery},
		{"syntax", "SELECT FROM Account", 400, CodeMalformedQuery},
		{"unknown type", "SELECT Id FROM Widget__c", 400, CodeInvalidType},
		{"unknown field", "SELECT Shoe_Size__c FROM Contact", 400, CodeInvalidField},
		{"unknown field in where", "SELECT Id FROM Contact WHERE Shoe_Size__c = 1", 400, CodeInvalidField},
		{"unknown lookup", "SELECT Owner.Name FROM Contact", 400, CodeInvalidField},
		{"unknown lookup field", "SELECT Account.Shoe_Size__c FROM Contact", 400, CodeInvalidField},
		{"unknown relationship", "SELECT Id, (SELECT Id FROM Cases) FROM Account", 400, CodeInvalidType},
		{"unknown subquery field", "SELECT Id, (SELECT Shoe_Size__c FROM Contacts) FROM Account", 400, CodeInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := env.query(t, tt.query)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errorItem(t, data).ErrorCode)
		})
	}
}

func TestQuery_Paging(t *testing.T) {
	cfg := Config{BatchSize: 2}
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		cfg.Records = append(cfg.Records, SeedRecord{Type: "Account", Fields: map[string]any{"Name": name}})
	}
	env := newTestEnv(t, cfg)

	status, data := env.query(t, "SELECT Name FROM Account ORDER BY Name")
	require.Equal(t, http.StatusOK, status, string(data))

	var sizes []int
	var last string
	for {
		page := decodePage(t, data)
		assert.Equal(t, 5, page.TotalSize)
		sizes = append(sizes, len(page.Records))
		if page.Done {
			assert.Empty(t, page.NextRecordsURL)
			break
		}
		require.True(t, strings.HasPrefix(page.NextRecordsURL, "/services/data/v59.0/query/01g"), page.NextRecordsURL)
		last = page.NextRecordsURL
		status, data = env.do(t, http.MethodGet, page.NextRecordsURL, "")
		require.Equal(t, http.StatusOK, status, string(data))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)

	// a finished cursor is released
	status, data = env.do(t, http.MethodGet, last, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeInvalidQueryLocator, errorItem(t, data).ErrorCode)
}

func TestQueryMore_InvalidLocator(t *testing.T) {
	env := newTestEnv(t, Config{})

	status, data := env.do(t, http.MethodGet, base+"/query/nolocator", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeInvalidQueryLocator, errorItem(t, data).ErrorCode)

	status, data = env.do(t, http.MethodGet, base+"/query/01gdeadbeef-2", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeInvalidQueryLocator, errorItem(t, data).ErrorCode)
}

func TestQuery_DeletedRowsExcluded(t *testing.T) {
	env := newTestEnv(t, seededConfig())

	status, data := env.query(t, "SELECT Id FROM Contact WHERE LastName = 'Solo'")
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Records []struct {
			ID string `json:"Id"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &page))
	require.Len(t, page.Records, 1)

	status, _ = env.do(t, http.MethodDelete, base+"/sobjects/Contact/"+page.Records[0].ID, "")
	require.Equal(t, http.StatusNoContent, status)

	status, data = env.query(t, "SELECT Id FROM Contact WHERE LastName = 'Solo'")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, decodePage(t, data).TotalSize)
}
