package xero

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	xerrors "github.com/alexjbarnes/xero-mcp/internal/errors"
)

// DefaultSalesAccountCode is applied to line items that specify neither
// an account code nor an account ID.
const DefaultSalesAccountCode = "201"

// LineItem is a Xero line item in the API's own field naming
// (Description, Quantity, UnitAmount, AccountCode, TaxType, ...).
// Passed through verbatim apart from the account-code default.
type LineItem map[string]any

// ensureAccountCodes returns a copy of the line items with the default
// sales account code filled in where absent.
func ensureAccountCodes(items []LineItem) []LineItem {
	processed := make([]LineItem, 0, len(items))

	for _, item := range items {
		clone := make(LineItem, len(item)+1)
		for k, v := range item {
			clone[k] = v
		}

		if _, ok := clone["AccountCode"]; !ok {
			if _, ok := clone["AccountID"]; !ok {
				clone["AccountCode"] = DefaultSalesAccountCode
			}
		}

		processed = append(processed, clone)
	}

	return processed
}

// collection extracts the named array from a response envelope.
func collection(resp map[string]any, key string) []any {
	items, _ := resp[key].([]any)
	return items
}

// first returns the first entry of the named array, or a NotFound
// APIError describing the missing entity.
func first(resp map[string]any, key, entity, id string) (map[string]any, error) {
	items := collection(resp, key)
	if len(items) == 0 {
		return nil, &APIError{
			StatusCode: 404,
			Message:    fmt.Sprintf("%s not found: %s", entity, id),
			Err:        xerrors.ErrNotFound,
		}
	}

	item, _ := items[0].(map[string]any)

	return item, nil
}

// dateClause renders a YYYY-MM-DD date as a Xero where-clause DateTime.
func dateClause(field, op, date string) string {
	return fmt.Sprintf("%s%sDateTime(%s)", field, op, strings.ReplaceAll(date, "-", ","))
}

// pageQuery builds the base query values with a page number.
func pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}

	return url.Values{"page": {strconv.Itoa(page)}}
}

// today formats the current date the way the Xero API expects.
func today() string {
	return time.Now().Format("2006-01-02")
}

// --- Contacts ---

// ContactFilter narrows a contact listing.
type ContactFilter struct {
	Search          string
	Page            int
	IncludeArchived bool
}

// ListContacts lists contacts, 100 per page.
func (c *Client) ListContacts(ctx context.Context, filter ContactFilter) ([]any, error) {
	query := pageQuery(filter.Page)

	if filter.Search != "" {
		query.Set("searchTerm", filter.Search)
	}

	if !filter.IncludeArchived {
		query.Set("where", `ContactStatus!="ARCHIVED"`)
	}

	resp, err := c.Request(ctx, "GET", "Contacts", nil, query)
	if err != nil {
		return nil, err
	}

	return collection(resp, "Contacts"), nil
}

// GetContact fetches a contact by ID or contact number.
func (c *Client) GetContact(ctx context.Context, contactID string) (map[string]any, error) {
	resp, err := c.Request(ctx, "GET", "Contacts/"+contactID, nil, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "Contacts", "contact", contactID)
}

// FindContactByName returns the exact name match when one exists, else
// the first partial match, else nil.
func (c *Client) FindContactByName(ctx context.Context, name string) (map[string]any, error) {
	contacts, err := c.ListContacts(ctx, ContactFilter{Search: name})
	if err != nil {
		return nil, err
	}

	if len(contacts) == 0 {
		return nil, nil
	}

	for _, entry := range contacts {
		contact, _ := entry.(map[string]any)

		if n, _ := contact["Name"].(string); strings.EqualFold(n, name) {
			return contact, nil
		}
	}

	contact, _ := contacts[0].(map[string]any)

	return contact, nil
}

// ContactDraft holds the fields for a new contact.
type ContactDraft struct {
	Name          string
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	AccountNumber string
}

// CreateContact creates a contact and returns it.
func (c *Client) CreateContact(ctx context.Context, draft ContactDraft) (map[string]any, error) {
	contact := map[string]any{"Name": draft.Name}

	if draft.Email != "" {
		contact["EmailAddress"] = draft.Email
	}

	if draft.FirstName != "" {
		contact["FirstName"] = draft.FirstName
	}

	if draft.LastName != "" {
		contact["LastName"] = draft.LastName
	}

	if draft.Phone != "" {
		contact["Phones"] = []map[string]any{{"PhoneType": "DEFAULT", "PhoneNumber": draft.Phone}}
	}

	if draft.AccountNumber != "" {
		contact["AccountNumber"] = draft.AccountNumber
	}

	resp, err := c.Request(ctx, "POST", "Contacts", map[string]any{"Contacts": []map[string]any{contact}}, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "Contacts", "contact", draft.Name)
}

// --- Quotes ---

// QuoteFilter narrows a quote listing.
type QuoteFilter struct {
	Status      string
	ContactID   string
	ContactName string
	Page        int
	DateFrom    string
	DateTo      string
	Where       string
}

func (f QuoteFilter) whereClauses() []string {
	var clauses []string

	if f.Status != "" {
		clauses = append(clauses, fmt.Sprintf("Status==%q", f.Status))
	}

	if f.ContactID != "" {
		clauses = append(clauses, fmt.Sprintf("Contact.ContactID==Guid(%q)", f.ContactID))
	}

	if f.ContactName != "" {
		clauses = append(clauses, fmt.Sprintf("Contact.Name.Contains(%q)", f.ContactName))
	}

	if f.DateFrom != "" {
		clauses = append(clauses, dateClause("Date", ">=", f.DateFrom))
	}

	if f.DateTo != "" {
		clauses = append(clauses, dateClause("Date", "<=", f.DateTo))
	}

	if f.Where != "" {
		clauses = append(clauses, f.Where)
	}

	return clauses
}

// ListQuotes lists quotes matching the filter.
func (c *Client) ListQuotes(ctx context.Context, filter QuoteFilter) ([]any, error) {
	query := pageQuery(filter.Page)

	if clauses := filter.whereClauses(); len(clauses) > 0 {
		query.Set("where", strings.Join(clauses, " AND "))
	}

	resp, err := c.Request(ctx, "GET", "Quotes", nil, query)
	if err != nil {
		return nil, err
	}

	return collection(resp, "Quotes"), nil
}

// GetQuote fetches a quote by ID.
func (c *Client) GetQuote(ctx context.Context, quoteID string) (map[string]any, error) {
	resp, err := c.Request(ctx, "GET", "Quotes/"+quoteID, nil, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "Quotes", "quote", quoteID)
}

// QuoteDraft holds the fields for a new quote.
type QuoteDraft struct {
	ContactID    string
	LineItems    []LineItem
	Date         string
	ExpiryDate   string
	QuoteNumber  string
	Reference    string
	Terms        string
	Title        string
	Summary      string
	CurrencyCode string
}

// CreateQuote creates a draft quote and returns it.
func (c *Client) CreateQuote(ctx context.Context, draft QuoteDraft) (map[string]any, error) {
	currency := draft.CurrencyCode
	if currency == "" {
		currency = "AUD"
	}

	date := draft.Date
	if date == "" {
		date = today()
	}

	quote := map[string]any{
		"Contact":      map[string]any{"ContactID": draft.ContactID},
		"LineItems":    ensureAccountCodes(draft.LineItems),
		"CurrencyCode": currency,
		"Status":       "DRAFT",
		"Date":         date,
	}

	setIfNotEmpty(quote, "ExpiryDate", draft.ExpiryDate)
	setIfNotEmpty(quote, "QuoteNumber", draft.QuoteNumber)
	setIfNotEmpty(quote, "Reference", draft.Reference)
	setIfNotEmpty(quote, "Terms", draft.Terms)
	setIfNotEmpty(quote, "Title", draft.Title)
	setIfNotEmpty(quote, "Summary", draft.Summary)

	resp, err := c.Request(ctx, "POST", "Quotes", map[string]any{"Quotes": []map[string]any{quote}}, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "Quotes", "quote", draft.ContactID)
}

// QuoteUpdate holds the mutable fields of a quote. Contact and date are
// preserved from the existing quote automatically.
type QuoteUpdate struct {
	Status     string
	LineItems  []LineItem
	ExpiryDate string
	Reference  *string
	Terms      *string
	Title      *string
	Summary    *string
}

// UpdateQuote merges the update into the existing quote, preserving the
// required Contact and Date fields.
func (c *Client) UpdateQuote(ctx context.Context, quoteID string, update QuoteUpdate) (map[string]any, error) {
	existing, err := c.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	quote := map[string]any{
		"QuoteID": quoteID,
		"Contact": map[string]any{"ContactID": contactIDOf(existing)},
		"Date":    dateOf(existing),
	}

	setIfNotEmpty(quote, "Status", update.Status)
	setIfNotEmpty(quote, "ExpiryDate", update.ExpiryDate)

	if update.LineItems != nil {
		quote["LineItems"] = ensureAccountCodes(update.LineItems)
	}

	setIfNotNil(quote, "Reference", update.Reference)
	setIfNotNil(quote, "Terms", update.Terms)
	setIfNotNil(quote, "Title", update.Title)
	setIfNotNil(quote, "Summary", update.Summary)

	resp, err := c.Request(ctx, "POST", "Quotes", map[string]any{"Quotes": []map[string]any{quote}}, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "Quotes", "quote", quoteID)
}

// SendQuote marks a quote as SENT. Xero emails it to the contact.
func (c *Client) SendQuote(ctx context.Context, quoteID string) (map[string]any, error) {
	return c.UpdateQuote(ctx, quoteID, QuoteUpdate{Status: "SENT"})
}

// ConvertQuoteToInvoice creates an invoice from an ACCEPTED quote and
// marks the quote INVOICED.
func (c *Client) ConvertQuoteToInvoice(ctx context.Context, quoteID string) (map[string]any, error) {
	quote, err := c.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if status, _ := quote["Status"].(string); status != "ACCEPTED" {
		return nil, &APIError{
			StatusCode: 400,
			Message:    fmt.Sprintf("quote must be ACCEPTED to convert to invoice, current status: %s", status),
		}
	}

	quoteNumber, _ := quote["QuoteNumber"].(string)
	if quoteNumber == "" {
		quoteNumber = quoteID
	}

	currency, _ := quote["CurrencyCode"].(string)

	invoice, err := c.CreateInvoice(ctx, InvoiceDraft{
		ContactID:    contactIDOf(quote),
		LineItems:    lineItemsOf(quote),
		Reference:    "Quote " + quoteNumber,
		CurrencyCode: currency,
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.UpdateQuote(ctx, quoteID, QuoteUpdate{Status: "INVOICED"}); err != nil {
		return nil, err
	}

	return invoice, nil
}

// --- Invoices ---

// InvoiceFilter narrows an invoice listing.
type InvoiceFilter struct {
	Status      string
	ContactID   string
	ContactName string
	Type        string // ACCREC (sales) or ACCPAY (purchases)
	Page        int
	DateFrom    string
	DateTo      string
	Where       string
}

// ListInvoices lists invoices matching the filter. Type defaults to
// ACCREC.
func (c *Client) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]any, error) {
	invoiceType := filter.Type
	if invoiceType == "" {
		invoiceType = "ACCREC"
	}

	clauses := []string{fmt.Sprintf("Type==%q", invoiceType)}
	clauses = append(clauses, QuoteFilter{
		Status:      filter.Status,
		ContactID:   filter.ContactID,
		ContactName: filter.ContactName,
		DateFrom:    filter.DateFrom,
		DateTo:      filter.DateTo,
		Where:       filter.Where,
	}.whereClauses()...)

	query := pageQuery(filter.Page)
	query.Set("where", strings.Join(clauses, " AND "))

	resp, err := c.Request(ctx, "GET", "Invoices", nil, query)
	if err != nil {
		return nil, err
	}

	return collection(resp, "Invoices"), nil
}

// GetInvoice fetches an invoice by ID or invoice number.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (map[string]any, error) {
	resp, err := c.Request(ctx, "GET", "Invoices/"+invoiceID, nil, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "Invoices", "invoice", invoiceID)
}

// InvoiceDraft holds the fields for a new invoice.
type InvoiceDraft struct {
	ContactID     string
	LineItems     []LineItem
	Type          string
	Date          string
	DueDate       string
	InvoiceNumber string
	Reference     string
	CurrencyCode  string
	Status        string
}

// CreateInvoice creates an invoice and returns it.
func (c *Client) CreateInvoice(ctx context.Context, draft InvoiceDraft) (map[string]any, error) {
	invoiceType := draft.Type
	if invoiceType == "" {
		invoiceType = "ACCREC"
	}

	currency := draft.CurrencyCode
	if currency == "" {
		currency = "AUD"
	}

	status := draft.Status
	if status == "" {
		status = "DRAFT"
	}

	date := draft.Date
	if date == "" {
		date = today()
	}

	invoice := map[string]any{
		"Type":         invoiceType,
		"Contact":      map[string]any{"ContactID": draft.ContactID},
		"LineItems":    ensureAccountCodes(draft.LineItems),
		"CurrencyCode": currency,
		"Status":       status,
		"Date":         date,
	}

	setIfNotEmpty(invoice, "DueDate", draft.DueDate)
	setIfNotEmpty(invoice, "InvoiceNumber", draft.InvoiceNumber)
	setIfNotEmpty(invoice, "Reference", draft.Reference)

	resp, err := c.Request(ctx, "POST", "Invoices", map[string]any{"Invoices": []map[string]any{invoice}}, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "Invoices", "invoice", draft.ContactID)
}

// InvoiceUpdate holds the mutable fields of an invoice.
type InvoiceUpdate struct {
	Status    string
	LineItems []LineItem
	DueDate   string
	Reference *string
}

// UpdateInvoice merges the update into the existing invoice, preserving
// the required Type, Contact, and Date fields.
func (c *Client) UpdateInvoice(ctx context.Context, invoiceID string, update InvoiceUpdate) (map[string]any, error) {
	existing, err := c.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	invoice := map[string]any{
		"InvoiceID": invoiceID,
		"Type":      existing["Type"],
		"Contact":   map[string]any{"ContactID": contactIDOf(existing)},
		"Date":      dateOf(existing),
	}

	setIfNotEmpty(invoice, "Status", update.Status)
	setIfNotEmpty(invoice, "DueDate", update.DueDate)

	if update.LineItems != nil {
		invoice["LineItems"] = ensureAccountCodes(update.LineItems)
	}

	setIfNotNil(invoice, "Reference", update.Reference)

	resp, err := c.Request(ctx, "POST", "Invoices", map[string]any{"Invoices": []map[string]any{invoice}}, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "Invoices", "invoice", invoiceID)
}

// VoidInvoice voids an AUTHORISED or SUBMITTED invoice.
func (c *Client) VoidInvoice(ctx context.Context, invoiceID string) (map[string]any, error) {
	return c.UpdateInvoice(ctx, invoiceID, InvoiceUpdate{Status: "VOIDED"})
}

// DeleteDraftInvoice deletes a DRAFT invoice. Non-draft invoices must
// be voided instead.
func (c *Client) DeleteDraftInvoice(ctx context.Context, invoiceID string) (map[string]any, error) {
	invoice, err := c.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if status, _ := invoice["Status"].(string); status != "DRAFT" {
		return nil, &APIError{
			StatusCode: 400,
			Message:    fmt.Sprintf("only DRAFT invoices can be deleted, status is %s; void the invoice instead", status),
		}
	}

	payload := map[string]any{"Invoices": []map[string]any{{
		"InvoiceID": invoiceID,
		"Status":    "DELETED",
	}}}

	if _, err := c.Request(ctx, "POST", "Invoices", payload, nil); err != nil {
		return nil, err
	}

	number, _ := invoice["InvoiceNumber"].(string)

	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Invoice %s deleted", number),
	}, nil
}

// EmailInvoice asks Xero to email an AUTHORISED invoice to the contact.
func (c *Client) EmailInvoice(ctx context.Context, invoiceID string) (map[string]any, error) {
	return c.Request(ctx, "POST", "Invoices/"+invoiceID+"/Email", nil, nil)
}

// --- Purchase orders ---

// PurchaseOrderFilter narrows a purchase-order listing.
type PurchaseOrderFilter struct {
	Status      string
	ContactID   string
	ContactName string
	Page        int
	DateFrom    string
	DateTo      string
	Where       string
}

// ListPurchaseOrders lists purchase orders matching the filter.
func (c *Client) ListPurchaseOrders(ctx context.Context, filter PurchaseOrderFilter) ([]any, error) {
	query := pageQuery(filter.Page)

	clauses := QuoteFilter{
		Status:      filter.Status,
		ContactID:   filter.ContactID,
		ContactName: filter.ContactName,
		DateFrom:    filter.DateFrom,
		DateTo:      filter.DateTo,
		Where:       filter.Where,
	}.whereClauses()
	if len(clauses) > 0 {
		query.Set("where", strings.Join(clauses, " AND "))
	}

	resp, err := c.Request(ctx, "GET", "PurchaseOrders", nil, query)
	if err != nil {
		return nil, err
	}

	return collection(resp, "PurchaseOrders"), nil
}

// GetPurchaseOrder fetches a purchase order by ID or number.
func (c *Client) GetPurchaseOrder(ctx context.Context, purchaseOrderID string) (map[string]any, error) {
	resp, err := c.Request(ctx, "GET", "PurchaseOrders/"+purchaseOrderID, nil, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "PurchaseOrders", "purchase order", purchaseOrderID)
}

// PurchaseOrderDraft holds the fields for a new purchase order.
type PurchaseOrderDraft struct {
	ContactID            string
	LineItems            []LineItem
	Date                 string
	DeliveryDate         string
	PurchaseOrderNumber  string
	Reference            string
	DeliveryAddress      string
	AttentionTo          string
	Telephone            string
	DeliveryInstructions string
	CurrencyCode         string
	Status               string
}

// CreatePurchaseOrder creates a purchase order and returns it. Line
// items pass through without an account-code default; purchases use
// expense accounts the caller must name.
func (c *Client) CreatePurchaseOrder(ctx context.Context, draft PurchaseOrderDraft) (map[string]any, error) {
	currency := draft.CurrencyCode
	if currency == "" {
		currency = "AUD"
	}

	status := draft.Status
	if status == "" {
		status = "DRAFT"
	}

	date := draft.Date
	if date == "" {
		date = today()
	}

	po := map[string]any{
		"Contact":      map[string]any{"ContactID": draft.ContactID},
		"LineItems":    draft.LineItems,
		"CurrencyCode": currency,
		"Status":       status,
		"Date":         date,
	}

	setIfNotEmpty(po, "DeliveryDate", draft.DeliveryDate)
	setIfNotEmpty(po, "PurchaseOrderNumber", draft.PurchaseOrderNumber)
	setIfNotEmpty(po, "Reference", draft.Reference)
	setIfNotEmpty(po, "DeliveryAddress", draft.DeliveryAddress)
	setIfNotEmpty(po, "AttentionTo", draft.AttentionTo)
	setIfNotEmpty(po, "Telephone", draft.Telephone)
	setIfNotEmpty(po, "DeliveryInstructions", draft.DeliveryInstructions)

	resp, err := c.Request(ctx, "POST", "PurchaseOrders", map[string]any{"PurchaseOrders": []map[string]any{po}}, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "PurchaseOrders", "purchase order", draft.ContactID)
}

// PurchaseOrderUpdate holds the mutable fields of a purchase order.
type PurchaseOrderUpdate struct {
	Status          string
	LineItems       []LineItem
	DeliveryDate    string
	Reference       *string
	DeliveryAddress *string
	AttentionTo     *string
}

// UpdatePurchaseOrder merges the update into the existing purchase
// order, preserving the required Contact and Date fields.
func (c *Client) UpdatePurchaseOrder(ctx context.Context, purchaseOrderID string, update PurchaseOrderUpdate) (map[string]any, error) {
	existing, err := c.GetPurchaseOrder(ctx, purchaseOrderID)
	if err != nil {
		return nil, err
	}

	po := map[string]any{
		"PurchaseOrderID": purchaseOrderID,
		"Contact":         map[string]any{"ContactID": contactIDOf(existing)},
		"Date":            dateOf(existing),
	}

	setIfNotEmpty(po, "Status", update.Status)
	setIfNotEmpty(po, "DeliveryDate", update.DeliveryDate)

	if update.LineItems != nil {
		po["LineItems"] = update.LineItems
	}

	setIfNotNil(po, "Reference", update.Reference)
	setIfNotNil(po, "DeliveryAddress", update.DeliveryAddress)
	setIfNotNil(po, "AttentionTo", update.AttentionTo)

	resp, err := c.Request(ctx, "POST", "PurchaseOrders", map[string]any{"PurchaseOrders": []map[string]any{po}}, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "PurchaseOrders", "purchase order", purchaseOrderID)
}

// --- shared field helpers ---

func setIfNotEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func setIfNotNil(m map[string]any, key string, value *string) {
	if value != nil {
		m[key] = *value
	}
}

// contactIDOf digs the contact ID out of an existing entity.
func contactIDOf(entity map[string]any) string {
	contact, _ := entity["Contact"].(map[string]any)
	id, _ := contact["ContactID"].(string)

	return id
}

// dateOf returns the entity's date in YYYY-MM-DD form, falling back to
// today when the API omitted DateString.
func dateOf(entity map[string]any) string {
	if ds, _ := entity["DateString"].(string); len(ds) >= 10 {
		return ds[:10]
	}

	return today()
}

// lineItemsOf extracts line items from an existing entity.
func lineItemsOf(entity map[string]any) []LineItem {
	raw, _ := entity["LineItems"].([]any)

	items := make([]LineItem, 0, len(raw))

	for _, entry := range raw {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, LineItem(item))
		}
	}

	return items
}
