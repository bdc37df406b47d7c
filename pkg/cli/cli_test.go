package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/getmockd/sfrecord/pkg/cliconfig"
	"github.com/getmockd/sfrecord/pkg/force"
	"github.com/getmockd/sfrecord/pkg/session"
	"github.com/getmockd/sfrecord/pkg/sobject"
)

// withJSON sets jsonOutput for the duration of the test.
func withJSON(t *testing.T, on bool) {
	t.Helper()
	old := jsonOutput
	jsonOutput = on
	t.Cleanup(func() { jsonOutput = old })
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "api error with code",
			err:  fmt.Errorf("delete x: %w", &force.RemoteAPIError{StatusCode: 400, ErrorCode: "INVALID_FIELD", Message: "No such column 'Nope' on entity 'Account'."}),
			want: []string{"Error (400 INVALID_FIELD): No such column 'Nope'", "Hint: Check the spelling"},
		},
		{
			name: "api error without code",
			err:  &force.RemoteAPIError{StatusCode: 503, Message: "Service Unavailable"},
			want: []string{"Error (503): Service Unavailable"},
		},
		{
			name: "no session",
			err:  session.ErrNoSession,
			want: []string{"Error: no session", "Hint: Set " + cliconfig.EnvAccessToken},
		},
		{
			name: "reserved field",
			err:  &sobject.ReservedFieldError{Field: "Id"},
			want: []string{`Error: field "Id" cannot be modified`, `Hint: "Id" is managed by the server`},
		},
		{
			name: "no records",
			err:  force.ErrNoRecords,
			want: []string{"Error: query returned no records", "Hint: Check the WHERE clause"},
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: []string{"Error: boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatError(tt.err)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("FormatError() = %q, want it to contain %q", got, w)
				}
			}
		})
	}
}

func TestFormatError_NoHint(t *testing.T) {
	got := FormatError(&force.RemoteAPIError{StatusCode: 500, ErrorCode: "UNKNOWN_EXCEPTION", Message: "oops"})
	if strings.Contains(got, "Hint:") {
		t.Errorf("FormatError() = %q, want no hint", got)
	}
}

func TestAssign(t *testing.T) {
	rec := sobject.New("Account")
	if err := assign(rec, []string{"Name=Acme", "NumberOfEmployees:=250", "Phone:=null", "Name=Acme Corp"}); err != nil {
		t.Fatalf("assign() error = %v", err)
	}

	if got := strings.Join(rec.Dirty(), ","); got != "Name,NumberOfEmployees,Phone" {
		t.Errorf("Dirty() = %q", got)
	}
	if got := rec.Str("Name"); got != "Acme Corp" {
		t.Errorf("Name = %q, want last assignment to win", got)
	}
	if v, _ := rec.Get("NumberOfEmployees"); v != json.Number("250") {
		t.Errorf("NumberOfEmployees = %#v, want json.Number", v)
	}
	if v, ok := rec.Get("Phone"); !ok || v != nil {
		t.Errorf("Phone = %#v, %v, want explicit null", v, ok)
	}
}

func TestAssign_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"reserved", []string{"Id=001000000000001AAA"}},
		{"reserved case-insensitive", []string{"attributes:={}"}},
		{"no operator", []string{"Name"}},
		{"bad json", []string{"Amount:=12,5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sobject.New("Account")
			if err := assign(rec, tt.args); err == nil {
				t.Fatal("assign() error = nil, want error")
			}
			if len(rec.Dirty()) != 0 {
				t.Errorf("Dirty() = %v, want nothing set", rec.Dirty())
			}
		})
	}
}

func parsedRecords(t *testing.T) []*sobject.Record {
	t.Helper()
	rows := []string{
		`{"attributes":{"type":"Account"},"Id":"001000000000001AAA","Name":"Acme","NumberOfEmployees":250,
		  "Contacts":{"totalSize":2,"done":true,"records":[
		    {"attributes":{"type":"Contact"},"LastName":"Doe"},
		    {"attributes":{"type":"Contact"},"LastName":"Roe"}]}}`,
		`{"attributes":{"type":"Account"},"Id":"001000000000002AAA","Name":"Globex","Industry":"Energy","Contacts":null}`,
	}
	out := make([]*sobject.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := force.ParseRecord([]byte(row))
		if err != nil {
			t.Fatalf("ParseRecord() error = %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func TestPrintRecords(t *testing.T) {
	withJSON(t, false)

	var buf bytes.Buffer
	if err := printRecords(&buf, parsedRecords(t)); err != nil {
		t.Fatalf("printRecords() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}

	header := strings.Fields(lines[0])
	wantHeader := []string{"ID", "NAME", "NUMBEROFEMPLOYEES", "CONTACTS", "INDUSTRY"}
	if strings.Join(header, " ") != strings.Join(wantHeader, " ") {
		t.Errorf("header = %v, want %v", header, wantHeader)
	}
	if !strings.Contains(lines[1], "[2 records]") {
		t.Errorf("row 1 = %q, want child summary", lines[1])
	}
	if f := strings.Fields(lines[2]); f[2] != "-" || f[3] != "-" || f[4] != "Energy" {
		t.Errorf("row 2 = %q, want placeholders for missing values", lines[2])
	}
	if lines[4] != "2 record(s)" {
		t.Errorf("footer = %q", lines[4])
	}
}

func TestPrintRecords_Empty(t *testing.T) {
	withJSON(t, false)

	var buf bytes.Buffer
	if err := printRecords(&buf, nil); err != nil {
		t.Fatalf("printRecords() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "No records found" {
		t.Errorf("output = %q", got)
	}
}

func TestPrintRecords_JSON(t *testing.T) {
	withJSON(t, true)

	var buf bytes.Buffer
	if err := printRecords(&buf, parsedRecords(t)); err != nil {
		t.Fatalf("printRecords() error = %v", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["Name"] != "Acme" {
		t.Errorf("rows[0].Name = %v", rows[0]["Name"])
	}
	contacts, ok := rows[0]["Contacts"].([]any)
	if !ok || len(contacts) != 2 {
		t.Errorf("rows[0].Contacts = %#v, want two records", rows[0]["Contacts"])
	}
}

func TestPrintRecord_Lookup(t *testing.T) {
	withJSON(t, false)

	rec, err := force.ParseRecord([]byte(`{"attributes":{"type":"Contact"},"LastName":"Doe",
		"Account":{"attributes":{"type":"Account"},"Name":"Acme"},
		"MailingAddress":{"city":"Oslo"}}`))
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}

	var buf bytes.Buffer
	if err := printRecord(&buf, rec); err != nil {
		t.Fatalf("printRecord() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Type:", "Contact", "Account:", "Acme", `{"city":"Oslo"}`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEffectiveConfig_HidesSecrets(t *testing.T) {
	c := cliconfig.NewDefault()
	cliconfig.MergeConfig(c, &cliconfig.CLIConfig{
		AccessToken:  "00Dxx!secret",
		ClientSecret: "s3cr3t",
		InstanceURL:  "https://acme.my.example.com",
	}, cliconfig.SourceEnv)

	entries := effectiveConfig(c)
	byKey := make(map[string]configEntry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
		if strings.Contains(e.Value, "secret") || strings.Contains(e.Value, "s3cr3t") {
			t.Errorf("%s leaks a secret: %q", e.Key, e.Value)
		}
	}

	if e := byKey["accessToken"]; e.Value != "(set)" || e.Source != cliconfig.SourceEnv {
		t.Errorf("accessToken = %+v", e)
	}
	if e := byKey["clientId"]; e.Value != "(none)" {
		t.Errorf("clientId = %+v", e)
	}
	if e := byKey["apiVersion"]; e.Value != cliconfig.DefaultAPIVersion || e.Source != cliconfig.SourceDefault {
		t.Errorf("apiVersion = %+v", e)
	}
}
