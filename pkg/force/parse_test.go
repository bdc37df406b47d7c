package force

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/sfrecord/pkg/sobject"
)

const bomRow = `{
	"attributes": {"type": "BOM__c", "url": "/services/data/v59.0/sobjects/BOM__c/a01000000000001AAA"},
	"Id": "a01000000000001AAA",
	"Name": "Rev A",
	"Quantity__c": 12.50,
	"Line_Items__r": {
		"totalSize": 2,
		"done": true,
		"records": [
			{"attributes": {"type": "Line_Item__c"}, "Id": "a02000000000001AAA", "Part__c": "P-100"},
			{"attributes": {"type": "Line_Item__c"}, "Id": "a02000000000002AAA", "Part__c": "P-200", "Qty__c": 3}
		]
	}
}`

func TestParseRecord_ExactNumbers(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"attributes":{"type":"Opportunity"},"Id":"006000000000001AAA","Amount":1.10,"External__c":123456789012345678,"Rate__c":1e-7}`))
	require.NoError(t, err)

	amount, _ := rec.Get("Amount")
	assert.Equal(t, json.Number("1.10"), amount)
	ext, _ := rec.Get("External__c")
	assert.Equal(t, json.Number("123456789012345678"), ext)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Amount":1.10`)
	assert.Contains(t, string(data), `"External__c":123456789012345678`)
	assert.Contains(t, string(data), `"Rate__c":1e-7`)
}

func TestParseRecord_Recursive(t *testing.T) {
	rec, err := ParseRecord([]byte(bomRow))
	require.NoError(t, err)

	assert.Equal(t, "BOM__c", rec.Type())
	assert.Equal(t, "a01000000000001AAA", rec.ID())
	assert.Equal(t, []string{"Id", "Name", "Quantity__c", "Line_Items__r"}, rec.Fields())
	assert.Empty(t, rec.Dirty())

	qty, ok := rec.Get("Quantity__c")
	require.True(t, ok)
	assert.Equal(t, json.Number("12.50"), qty)

	children := rec.Children("Line_Items__r")
	require.Len(t, children, 2)

	assert.Equal(t, "Line_Item__c", children[0].Type())
	assert.Equal(t, "a02000000000001AAA", children[0].ID())
	assert.Equal(t, "P-100", children[0].Str("Part__c"))
	assert.Equal(t, []string{"Id", "Part__c"}, children[0].Fields())

	assert.Equal(t, "a02000000000002AAA", children[1].ID())
	assert.Equal(t, "P-200", children[1].Str("Part__c"))
	assert.Equal(t, "3", children[1].Str("Qty__c"))
	assert.Empty(t, children[1].Dirty())
}

func TestParseRecord_ToOneAndCompound(t *testing.T) {
	row := `{
		"attributes": {"type": "Contact"},
		"Id": "003000000000001AAA",
		"Account": {"attributes": {"type": "Account"}, "Name": "Acme"},
		"MailingAddress": {"city": "Oslo", "country": "NO"},
		"Email": null
	}`

	rec, err := ParseRecord([]byte(row))
	require.NoError(t, err)

	account := rec.Child("Account")
	require.NotNil(t, account)
	assert.Equal(t, "Account", account.Type())
	assert.True(t, account.IsNew())
	assert.Equal(t, "Acme", account.Str("Name"))

	addr, ok := rec.Get("MailingAddress")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"city": "Oslo", "country": "NO"}, addr)

	email, ok := rec.Get("Email")
	assert.True(t, ok)
	assert.Nil(t, email)
}

func TestParseRecord_NullRelationship(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"attributes":{"type":"BOM__c"},"Line_Items__r":null}`))
	require.NoError(t, err)

	assert.True(t, rec.Has("Line_Items__r"))
	assert.Nil(t, rec.Children("Line_Items__r"))
}

func TestParseRecord_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"attributes":`},
		{"array", `[1,2]`},
		{"no envelope", `{"Id":"001"}`},
		{"envelope not object", `{"attributes":"Account"}`},
		{"envelope without type", `{"attributes":{"url":"/x"}}`},
		{"child without envelope", `{"attributes":{"type":"A"},"Kids":{"records":[{"Id":"1"}]}}`},
		{"records not array", `{"attributes":{"type":"A"},"Kids":{"records":5}}`},
		{"trailing data", `{"attributes":{"type":"A"}} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord([]byte(tt.body))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("ParseRecord() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestParseRecord_ChildrenIndependent(t *testing.T) {
	rec, err := ParseRecord([]byte(bomRow))
	require.NoError(t, err)

	child := rec.Children("Line_Items__r")[0]
	require.NoError(t, child.Set("Part__c", "P-101"))

	assert.Equal(t, []string{"Part__c"}, child.Dirty())
	assert.Empty(t, rec.Dirty())
	assert.Empty(t, rec.Children("Line_Items__r")[1].Dirty())
}

func TestParseQueryPage(t *testing.T) {
	body := `{"totalSize":3,"done":false,"nextRecordsUrl":"/services/data/v59.0/query/01g-2000","records":[
		{"attributes":{"type":"Contact"},"Id":"003000000000001AAA"},
		{"attributes":{"type":"Contact"},"Id":"003000000000002AAA"}
	]}`

	records, next, err := parseQueryPage([]byte(body))
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "/services/data/v59.0/query/01g-2000", next)

	records, next, err = parseQueryPage([]byte(`{"totalSize":0,"done":true,"records":[]}`))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, next)

	_, _, err = parseQueryPage([]byte(`{"done":true}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseRecord_MarshalRoundTrip(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"attributes":{"type":"Contact"},"Id":"003000000000001AAA","LastName":"Doe","Age":41}`))
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"attributes":{"type":"Contact"},"Id":"003000000000001AAA","LastName":"Doe","Age":41}`, string(data))

	again, err := ParseRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec.Fields(), again.Fields())
	assert.IsType(t, &sobject.Record{}, again)
}
