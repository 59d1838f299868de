package xero

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/alexjbarnes/xero-mcp/internal/errors"
)

func TestEnsureAccountCodes(t *testing.T) {
	items := []LineItem{
		{"Description": "Labour", "Quantity": 2.0, "UnitAmount": 100.0},
		{"Description": "Parts", "AccountCode": "310"},
		{"Description": "Stock", "AccountID": "acct-uuid"},
	}

	processed := ensureAccountCodes(items)

	assert.Equal(t, DefaultSalesAccountCode, processed[0]["AccountCode"])
	assert.Equal(t, "310", processed[1]["AccountCode"])
	_, hasCode := processed[2]["AccountCode"]
	assert.False(t, hasCode, "an explicit AccountID must suppress the default code")

	// Inputs are not mutated.
	_, mutated := items[0]["AccountCode"]
	assert.False(t, mutated)
}

func TestDateClause(t *testing.T) {
	assert.Equal(t, "Date>=DateTime(2026,01,15)", dateClause("Date", ">=", "2026-01-15"))
	assert.Equal(t, "Date<=DateTime(2026,12,31)", dateClause("Date", "<=", "2026-12-31"))
}

func TestQuoteFilterWhereClauses(t *testing.T) {
	filter := QuoteFilter{
		Status:      "ACCEPTED",
		ContactID:   "c-1",
		ContactName: "Acme",
		DateFrom:    "2026-01-01",
		DateTo:      "2026-03-31",
	}

	clauses := filter.whereClauses()
	assert.Equal(t, []string{
		`Status=="ACCEPTED"`,
		`Contact.ContactID==Guid("c-1")`,
		`Contact.Name.Contains("Acme")`,
		"Date>=DateTime(2026,01,01)",
		"Date<=DateTime(2026,03,31)",
	}, clauses)

	assert.Empty(t, QuoteFilter{}.whereClauses())
}

// recordingServer captures the last request and plays back queued
// responses.
type recordingServer struct {
	t         *testing.T
	responses []string

	lastMethod string
	lastPath   string
	lastQuery  url.Values
	lastBody   map[string]any
}

func newRecordingClient(t *testing.T, responses ...string) (*Client, *recordingServer) {
	t.Helper()

	rec := &recordingServer{t: t, responses: responses}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.lastMethod = r.Method
		rec.lastPath = r.URL.Path
		rec.lastQuery = r.URL.Query()
		rec.lastBody = nil

		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.lastBody)
		}

		body := "{}"
		if len(rec.responses) > 0 {
			body = rec.responses[0]
			rec.responses = rec.responses[1:]
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{
		Tokens:            staticTokens{tokens: validTokens()},
		HTTPClient:        srv.Client(),
		AccountingBaseURL: srv.URL + "/api.xro/2.0",
		PayrollBaseURL:    srv.URL + "/payroll.xro/1.0",
		MinInterval:       -1,
	})

	return c, rec
}

func TestListContactsQuery(t *testing.T) {
	c, rec := newRecordingClient(t, `{"Contacts":[{"Name":"Acme"}]}`)

	contacts, err := c.ListContacts(t.Context(), ContactFilter{Search: "acme", Page: 2})
	require.NoError(t, err)
	require.Len(t, contacts, 1)

	assert.Equal(t, "/api.xro/2.0/Contacts", rec.lastPath)
	assert.Equal(t, "2", rec.lastQuery.Get("page"))
	assert.Equal(t, "acme", rec.lastQuery.Get("searchTerm"))
	assert.Equal(t, `ContactStatus!="ARCHIVED"`, rec.lastQuery.Get("where"))
}

func TestListContactsIncludeArchived(t *testing.T) {
	c, rec := newRecordingClient(t, `{"Contacts":[]}`)

	_, err := c.ListContacts(t.Context(), ContactFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Empty(t, rec.lastQuery.Get("where"))
	assert.Equal(t, "1", rec.lastQuery.Get("page"))
}

func TestGetContactNotFound(t *testing.T) {
	c, _ := newRecordingClient(t, `{"Contacts":[]}`)

	_, err := c.GetContact(t.Context(), "missing-id")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
	assert.Contains(t, apiErr.Message, "missing-id")
}

func TestFindContactByName(t *testing.T) {
	t.Run("prefers exact match", func(t *testing.T) {
		c, _ := newRecordingClient(t, `{"Contacts":[
			{"Name":"Acme Holdings"},
			{"Name":"acme"},
			{"Name":"Acme Pty Ltd"}
		]}`)

		contact, err := c.FindContactByName(t.Context(), "Acme")
		require.NoError(t, err)
		require.NotNil(t, contact)
		assert.Equal(t, "acme", contact["Name"])
	})

	t.Run("falls back to first partial match", func(t *testing.T) {
		c, _ := newRecordingClient(t, `{"Contacts":[
			{"Name":"Acme Holdings"},
			{"Name":"Acme Pty Ltd"}
		]}`)

		contact, err := c.FindContactByName(t.Context(), "Acme")
		require.NoError(t, err)
		require.NotNil(t, contact)
		assert.Equal(t, "Acme Holdings", contact["Name"])
	})

	t.Run("nil when nothing matches", func(t *testing.T) {
		c, _ := newRecordingClient(t, `{"Contacts":[]}`)

		contact, err := c.FindContactByName(t.Context(), "Acme")
		require.NoError(t, err)
		assert.Nil(t, contact)
	})
}

func TestCreateQuoteDefaults(t *testing.T) {
	c, rec := newRecordingClient(t, `{"Quotes":[{"QuoteID":"q-1","Status":"DRAFT"}]}`)

	quote, err := c.CreateQuote(t.Context(), QuoteDraft{
		ContactID: "c-1",
		LineItems: []LineItem{{"Description": "Work", "Quantity": 1.0, "UnitAmount": 500.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, "q-1", quote["QuoteID"])

	quotes := rec.lastBody["Quotes"].([]any)
	sent := quotes[0].(map[string]any)

	assert.Equal(t, "DRAFT", sent["Status"])
	assert.Equal(t, "AUD", sent["CurrencyCode"])
	assert.NotEmpty(t, sent["Date"])

	lines := sent["LineItems"].([]any)
	line := lines[0].(map[string]any)
	assert.Equal(t, DefaultSalesAccountCode, line["AccountCode"])
}

func TestUpdateQuotePreservesContactAndDate(t *testing.T) {
	existing := `{"Quotes":[{
		"QuoteID":"q-1",
		"Status":"DRAFT",
		"DateString":"2026-02-10T00:00:00",
		"Contact":{"ContactID":"c-9","Name":"Acme"}
	}]}`
	updated := `{"Quotes":[{"QuoteID":"q-1","Status":"SENT"}]}`

	c, rec := newRecordingClient(t, existing, updated)

	quote, err := c.UpdateQuote(t.Context(), "q-1", QuoteUpdate{Status: "SENT"})
	require.NoError(t, err)
	assert.Equal(t, "SENT", quote["Status"])

	sent := rec.lastBody["Quotes"].([]any)[0].(map[string]any)
	assert.Equal(t, "SENT", sent["Status"])
	assert.Equal(t, "2026-02-10", sent["Date"])
	assert.Equal(t, "c-9", sent["Contact"].(map[string]any)["ContactID"])

	// Fields not named in the update are not sent at all.
	_, hasRef := sent["Reference"]
	assert.False(t, hasRef)
}

func TestConvertQuoteRequiresAccepted(t *testing.T) {
	c, _ := newRecordingClient(t, `{"Quotes":[{"QuoteID":"q-1","Status":"DRAFT"}]}`)

	_, err := c.ConvertQuoteToInvoice(t.Context(), "q-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "ACCEPTED")
}

func TestListInvoicesWhere(t *testing.T) {
	c, rec := newRecordingClient(t, `{"Invoices":[]}`)

	_, err := c.ListInvoices(t.Context(), InvoiceFilter{
		Status:   "AUTHORISED",
		DateFrom: "2026-01-01",
	})
	require.NoError(t, err)

	assert.Equal(t,
		`Type=="ACCREC" AND Status=="AUTHORISED" AND Date>=DateTime(2026,01,01)`,
		rec.lastQuery.Get("where"))
}

func TestDeleteDraftInvoice(t *testing.T) {
	t.Run("deletes drafts", func(t *testing.T) {
		existing := `{"Invoices":[{"InvoiceID":"i-1","InvoiceNumber":"INV-100","Status":"DRAFT"}]}`

		c, rec := newRecordingClient(t, existing, `{}`)

		result, err := c.DeleteDraftInvoice(t.Context(), "i-1")
		require.NoError(t, err)
		assert.Equal(t, true, result["success"])

		sent := rec.lastBody["Invoices"].([]any)[0].(map[string]any)
		assert.Equal(t, "DELETED", sent["Status"])
	})

	t.Run("refuses non-drafts", func(t *testing.T) {
		existing := `{"Invoices":[{"InvoiceID":"i-1","Status":"AUTHORISED"}]}`

		c, _ := newRecordingClient(t, existing)

		_, err := c.DeleteDraftInvoice(t.Context(), "i-1")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Message, "void")
	})
}

func TestListPayRunsQuery(t *testing.T) {
	c, rec := newRecordingClient(t, `{"PayRuns":[{"PayRunID":"p-1"}]}`)

	payRuns, err := c.ListPayRuns(t.Context(), PayRunFilter{Status: "POSTED"})
	require.NoError(t, err)
	require.Len(t, payRuns, 1)

	assert.Equal(t, "/payroll.xro/1.0/PayRuns", rec.lastPath)
	assert.Equal(t, `PayRunStatus=="POSTED"`, rec.lastQuery.Get("where"))
}
