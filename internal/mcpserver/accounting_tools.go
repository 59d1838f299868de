package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexjbarnes/xero-mcp/internal/xero"
)

// ListResult is the envelope for listing tools.
type ListResult struct {
	Count int   `json:"count"`
	Items []any `json:"items"`
}

// EntityResult is a single Xero entity, passed through as the API
// returned it.
type EntityResult = map[string]any

// LineItemInput is one line of a quote, invoice, or purchase order.
type LineItemInput struct {
	Description  string  `json:"description" jsonschema:"required,line description"`
	Quantity     float64 `json:"quantity,omitempty" jsonschema:"quantity, defaults to 1"`
	UnitAmount   float64 `json:"unit_amount,omitempty" jsonschema:"unit price excluding tax"`
	AccountCode  string  `json:"account_code,omitempty" jsonschema:"account code, defaults to the sales account for sales documents"`
	TaxType      string  `json:"tax_type,omitempty" jsonschema:"tax type code, e.g. OUTPUT"`
	ItemCode     string  `json:"item_code,omitempty" jsonschema:"inventory item code"`
	DiscountRate float64 `json:"discount_rate,omitempty" jsonschema:"percentage discount"`
}

func lineItems(inputs []LineItemInput) []xero.LineItem {
	items := make([]xero.LineItem, 0, len(inputs))

	for _, in := range inputs {
		quantity := in.Quantity
		if quantity == 0 {
			quantity = 1
		}

		item := xero.LineItem{
			"Description": in.Description,
			"Quantity":    quantity,
			"UnitAmount":  in.UnitAmount,
		}

		if in.AccountCode != "" {
			item["AccountCode"] = in.AccountCode
		}

		if in.TaxType != "" {
			item["TaxType"] = in.TaxType
		}

		if in.ItemCode != "" {
			item["ItemCode"] = in.ItemCode
		}

		if in.DiscountRate != 0 {
			item["DiscountRate"] = in.DiscountRate
		}

		items = append(items, item)
	}

	return items
}

func listResult(items []any) *ListResult {
	return &ListResult{Count: len(items), Items: items}
}

// --- Contacts ---

func registerContactTools(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_contacts",
		Description: "List Xero contacts, 100 per page, optionally filtered by a search term. Archived contacts are hidden unless requested.",
	}, s.listContactsHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_get_contact",
		Description: "Get one Xero contact by contact ID or contact number.",
	}, s.getContactHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_find_contact",
		Description: "Find a contact by name. Prefers an exact match, falls back to the first partial match.",
	}, s.findContactHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_create_contact",
		Description: "Create a new Xero contact.",
	}, s.createContactHandler())
}

// ListContactsInput holds parameters for xero_list_contacts.
type ListContactsInput struct {
	Search          string `json:"search,omitempty" jsonschema:"search term matched against name, email, and contact number"`
	Page            int    `json:"page,omitempty" jsonschema:"page number, defaults to 1"`
	IncludeArchived bool   `json:"include_archived,omitempty" jsonschema:"include archived contacts"`
	Profile         string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// GetContactInput holds parameters for xero_get_contact.
type GetContactInput struct {
	ContactID string `json:"contact_id" jsonschema:"required,contact ID or contact number"`
	Profile   string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// FindContactInput holds parameters for xero_find_contact.
type FindContactInput struct {
	Name    string `json:"name" jsonschema:"required,contact name to search for"`
	Profile string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// CreateContactInput holds parameters for xero_create_contact.
type CreateContactInput struct {
	Name          string `json:"name" jsonschema:"required,contact name"`
	Email         string `json:"email,omitempty" jsonschema:"email address"`
	FirstName     string `json:"first_name,omitempty" jsonschema:"primary person first name"`
	LastName      string `json:"last_name,omitempty" jsonschema:"primary person last name"`
	Phone         string `json:"phone,omitempty" jsonschema:"default phone number"`
	AccountNumber string `json:"account_number,omitempty" jsonschema:"account number"`
	Profile       string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

func (s *Server) listContactsHandler() mcp.ToolHandlerFor[ListContactsInput, *ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListContactsInput) (*mcp.CallToolResult, *ListResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		contacts, err := client.ListContacts(ctx, xero.ContactFilter{
			Search:          input.Search,
			Page:            input.Page,
			IncludeArchived: input.IncludeArchived,
		})
		if err != nil {
			return nil, nil, err
		}

		result := listResult(contacts)

		return textResult(result), result, nil
	}
}

func (s *Server) getContactHandler() mcp.ToolHandlerFor[GetContactInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetContactInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		contact, err := client.GetContact(ctx, input.ContactID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(contact), contact, nil
	}
}

func (s *Server) findContactHandler() mcp.ToolHandlerFor[FindContactInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input FindContactInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		contact, err := client.FindContactByName(ctx, input.Name)
		if err != nil {
			return nil, nil, err
		}

		if contact == nil {
			result := EntityResult{"found": false, "message": "No contact matching " + input.Name}
			return textResult(result), result, nil
		}

		return textResult(contact), contact, nil
	}
}

func (s *Server) createContactHandler() mcp.ToolHandlerFor[CreateContactInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateContactInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		contact, err := client.CreateContact(ctx, xero.ContactDraft{
			Name:          input.Name,
			Email:         input.Email,
			FirstName:     input.FirstName,
			LastName:      input.LastName,
			Phone:         input.Phone,
			AccountNumber: input.AccountNumber,
		})
		if err != nil {
			return nil, nil, err
		}

		return textResult(contact), contact, nil
	}
}

// --- Quotes ---

func registerQuoteTools(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_quotes",
		Description: "List Xero quotes, filtered by status, contact, or date range.",
	}, s.listQuotesHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_get_quote",
		Description: "Get one Xero quote by quote ID, including line items.",
	}, s.getQuoteHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_create_quote",
		Description: "Create a draft quote. Line items default to the standard sales account when no account is named.",
	}, s.createQuoteHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_update_quote",
		Description: "Update a quote's status, line items, or details. Contact and date are preserved automatically.",
	}, s.updateQuoteHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_send_quote",
		Description: "Mark a quote as SENT so Xero emails it to the contact.",
	}, s.sendQuoteHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_convert_quote_to_invoice",
		Description: "Create a draft invoice from an ACCEPTED quote and mark the quote INVOICED.",
	}, s.convertQuoteHandler())
}

// ListQuotesInput holds parameters for xero_list_quotes.
type ListQuotesInput struct {
	Status      string `json:"status,omitempty" jsonschema:"quote status: DRAFT, SENT, ACCEPTED, DECLINED, INVOICED, DELETED"`
	ContactID   string `json:"contact_id,omitempty" jsonschema:"filter by contact ID"`
	ContactName string `json:"contact_name,omitempty" jsonschema:"filter by partial contact name"`
	DateFrom    string `json:"date_from,omitempty" jsonschema:"start date YYYY-MM-DD"`
	DateTo      string `json:"date_to,omitempty" jsonschema:"end date YYYY-MM-DD"`
	Page        int    `json:"page,omitempty" jsonschema:"page number, defaults to 1"`
	Profile     string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// QuoteIDInput identifies one quote.
type QuoteIDInput struct {
	QuoteID string `json:"quote_id" jsonschema:"required,quote ID"`
	Profile string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// CreateQuoteInput holds parameters for xero_create_quote.
type CreateQuoteInput struct {
	ContactID    string          `json:"contact_id" jsonschema:"required,contact ID the quote is for"`
	LineItems    []LineItemInput `json:"line_items" jsonschema:"required,quote line items"`
	Date         string          `json:"date,omitempty" jsonschema:"quote date YYYY-MM-DD, defaults to today"`
	ExpiryDate   string          `json:"expiry_date,omitempty" jsonschema:"expiry date YYYY-MM-DD"`
	QuoteNumber  string          `json:"quote_number,omitempty" jsonschema:"explicit quote number"`
	Reference    string          `json:"reference,omitempty" jsonschema:"reference text"`
	Terms        string          `json:"terms,omitempty" jsonschema:"terms text"`
	Title        string          `json:"title,omitempty" jsonschema:"quote title"`
	Summary      string          `json:"summary,omitempty" jsonschema:"quote summary"`
	CurrencyCode string          `json:"currency_code,omitempty" jsonschema:"ISO currency code, defaults to AUD"`
	Profile      string          `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// UpdateQuoteInput holds parameters for xero_update_quote.
type UpdateQuoteInput struct {
	QuoteID    string          `json:"quote_id" jsonschema:"required,quote ID"`
	Status     string          `json:"status,omitempty" jsonschema:"new status"`
	LineItems  []LineItemInput `json:"line_items,omitempty" jsonschema:"replacement line items"`
	ExpiryDate string          `json:"expiry_date,omitempty" jsonschema:"expiry date YYYY-MM-DD"`
	Reference  *string         `json:"reference,omitempty" jsonschema:"reference text"`
	Terms      *string         `json:"terms,omitempty" jsonschema:"terms text"`
	Title      *string         `json:"title,omitempty" jsonschema:"quote title"`
	Summary    *string         `json:"summary,omitempty" jsonschema:"quote summary"`
	Profile    string          `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

func (s *Server) listQuotesHandler() mcp.ToolHandlerFor[ListQuotesInput, *ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListQuotesInput) (*mcp.CallToolResult, *ListResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		quotes, err := client.ListQuotes(ctx, xero.QuoteFilter{
			Status:      input.Status,
			ContactID:   input.ContactID,
			ContactName: input.ContactName,
			DateFrom:    input.DateFrom,
			DateTo:      input.DateTo,
			Page:        input.Page,
		})
		if err != nil {
			return nil, nil, err
		}

		result := listResult(quotes)

		return textResult(result), result, nil
	}
}

func (s *Server) getQuoteHandler() mcp.ToolHandlerFor[QuoteIDInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input QuoteIDInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		quote, err := client.GetQuote(ctx, input.QuoteID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(quote), quote, nil
	}
}

func (s *Server) createQuoteHandler() mcp.ToolHandlerFor[CreateQuoteInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateQuoteInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		quote, err := client.CreateQuote(ctx, xero.QuoteDraft{
			ContactID:    input.ContactID,
			LineItems:    lineItems(input.LineItems),
			Date:         input.Date,
			ExpiryDate:   input.ExpiryDate,
			QuoteNumber:  input.QuoteNumber,
			Reference:    input.Reference,
			Terms:        input.Terms,
			Title:        input.Title,
			Summary:      input.Summary,
			CurrencyCode: input.CurrencyCode,
		})
		if err != nil {
			return nil, nil, err
		}

		return textResult(quote), quote, nil
	}
}

func (s *Server) updateQuoteHandler() mcp.ToolHandlerFor[UpdateQuoteInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateQuoteInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		update := xero.QuoteUpdate{
			Status:     input.Status,
			ExpiryDate: input.ExpiryDate,
			Reference:  input.Reference,
			Terms:      input.Terms,
			Title:      input.Title,
			Summary:    input.Summary,
		}

		if input.LineItems != nil {
			update.LineItems = lineItems(input.LineItems)
		}

		quote, err := client.UpdateQuote(ctx, input.QuoteID, update)
		if err != nil {
			return nil, nil, err
		}

		return textResult(quote), quote, nil
	}
}

func (s *Server) sendQuoteHandler() mcp.ToolHandlerFor[QuoteIDInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input QuoteIDInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		quote, err := client.SendQuote(ctx, input.QuoteID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(quote), quote, nil
	}
}

func (s *Server) convertQuoteHandler() mcp.ToolHandlerFor[QuoteIDInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input QuoteIDInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		invoice, err := client.ConvertQuoteToInvoice(ctx, input.QuoteID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(invoice), invoice, nil
	}
}

// --- Invoices ---

func registerInvoiceTools(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_invoices",
		Description: "List Xero invoices, filtered by status, contact, type, or date range. Defaults to sales invoices (ACCREC).",
	}, s.listInvoicesHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_get_invoice",
		Description: "Get one Xero invoice by invoice ID or invoice number, including line items.",
	}, s.getInvoiceHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_create_invoice",
		Description: "Create an invoice. Line items default to the standard sales account when no account is named.",
	}, s.createInvoiceHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_update_invoice",
		Description: "Update an invoice's status, line items, due date, or reference. Type, contact, and date are preserved.",
	}, s.updateInvoiceHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_void_invoice",
		Description: "Void an AUTHORISED or SUBMITTED invoice.",
	}, s.voidInvoiceHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_delete_draft_invoice",
		Description: "Delete a DRAFT invoice. Authorised invoices must be voided instead.",
	}, s.deleteDraftInvoiceHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_email_invoice",
		Description: "Ask Xero to email an AUTHORISED invoice to the contact's email address.",
	}, s.emailInvoiceHandler())
}

// ListInvoicesInput holds parameters for xero_list_invoices.
type ListInvoicesInput struct {
	Status      string `json:"status,omitempty" jsonschema:"invoice status: DRAFT, SUBMITTED, AUTHORISED, PAID, VOIDED"`
	ContactID   string `json:"contact_id,omitempty" jsonschema:"filter by contact ID"`
	ContactName string `json:"contact_name,omitempty" jsonschema:"filter by partial contact name"`
	Type        string `json:"type,omitempty" jsonschema:"ACCREC for sales or ACCPAY for bills, defaults to ACCREC"`
	DateFrom    string `json:"date_from,omitempty" jsonschema:"start date YYYY-MM-DD"`
	DateTo      string `json:"date_to,omitempty" jsonschema:"end date YYYY-MM-DD"`
	Page        int    `json:"page,omitempty" jsonschema:"page number, defaults to 1"`
	Profile     string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// InvoiceIDInput identifies one invoice.
type InvoiceIDInput struct {
	InvoiceID string `json:"invoice_id" jsonschema:"required,invoice ID or invoice number"`
	Profile   string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// CreateInvoiceInput holds parameters for xero_create_invoice.
type CreateInvoiceInput struct {
	ContactID     string          `json:"contact_id" jsonschema:"required,contact ID the invoice is for"`
	LineItems     []LineItemInput `json:"line_items" jsonschema:"required,invoice line items"`
	Type          string          `json:"type,omitempty" jsonschema:"ACCREC or ACCPAY, defaults to ACCREC"`
	Date          string          `json:"date,omitempty" jsonschema:"invoice date YYYY-MM-DD, defaults to today"`
	DueDate       string          `json:"due_date,omitempty" jsonschema:"due date YYYY-MM-DD"`
	InvoiceNumber string          `json:"invoice_number,omitempty" jsonschema:"explicit invoice number"`
	Reference     string          `json:"reference,omitempty" jsonschema:"reference text"`
	CurrencyCode  string          `json:"currency_code,omitempty" jsonschema:"ISO currency code, defaults to AUD"`
	Status        string          `json:"status,omitempty" jsonschema:"initial status, defaults to DRAFT"`
	Profile       string          `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// UpdateInvoiceInput holds parameters for xero_update_invoice.
type UpdateInvoiceInput struct {
	InvoiceID string          `json:"invoice_id" jsonschema:"required,invoice ID"`
	Status    string          `json:"status,omitempty" jsonschema:"new status"`
	LineItems []LineItemInput `json:"line_items,omitempty" jsonschema:"replacement line items"`
	DueDate   string          `json:"due_date,omitempty" jsonschema:"due date YYYY-MM-DD"`
	Reference *string         `json:"reference,omitempty" jsonschema:"reference text"`
	Profile   string          `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

func (s *Server) listInvoicesHandler() mcp.ToolHandlerFor[ListInvoicesInput, *ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListInvoicesInput) (*mcp.CallToolResult, *ListResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		invoices, err := client.ListInvoices(ctx, xero.InvoiceFilter{
			Status:      input.Status,
			ContactID:   input.ContactID,
			ContactName: input.ContactName,
			Type:        input.Type,
			DateFrom:    input.DateFrom,
			DateTo:      input.DateTo,
			Page:        input.Page,
		})
		if err != nil {
			return nil, nil, err
		}

		result := listResult(invoices)

		return textResult(result), result, nil
	}
}

func (s *Server) getInvoiceHandler() mcp.ToolHandlerFor[InvoiceIDInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InvoiceIDInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		invoice, err := client.GetInvoice(ctx, input.InvoiceID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(invoice), invoice, nil
	}
}

func (s *Server) createInvoiceHandler() mcp.ToolHandlerFor[CreateInvoiceInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateInvoiceInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		invoice, err := client.CreateInvoice(ctx, xero.InvoiceDraft{
			ContactID:     input.ContactID,
			LineItems:     lineItems(input.LineItems),
			Type:          input.Type,
			Date:          input.Date,
			DueDate:       input.DueDate,
			InvoiceNumber: input.InvoiceNumber,
			Reference:     input.Reference,
			CurrencyCode:  input.CurrencyCode,
			Status:        input.Status,
		})
		if err != nil {
			return nil, nil, err
		}

		return textResult(invoice), invoice, nil
	}
}

func (s *Server) updateInvoiceHandler() mcp.ToolHandlerFor[UpdateInvoiceInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateInvoiceInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		update := xero.InvoiceUpdate{
			Status:    input.Status,
			DueDate:   input.DueDate,
			Reference: input.Reference,
		}

		if input.LineItems != nil {
			update.LineItems = lineItems(input.LineItems)
		}

		invoice, err := client.UpdateInvoice(ctx, input.InvoiceID, update)
		if err != nil {
			return nil, nil, err
		}

		return textResult(invoice), invoice, nil
	}
}

func (s *Server) voidInvoiceHandler() mcp.ToolHandlerFor[InvoiceIDInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InvoiceIDInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		invoice, err := client.VoidInvoice(ctx, input.InvoiceID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(invoice), invoice, nil
	}
}

func (s *Server) deleteDraftInvoiceHandler() mcp.ToolHandlerFor[InvoiceIDInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InvoiceIDInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		result, err := client.DeleteDraftInvoice(ctx, input.InvoiceID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(result), result, nil
	}
}

func (s *Server) emailInvoiceHandler() mcp.ToolHandlerFor[InvoiceIDInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InvoiceIDInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		if _, err := client.EmailInvoice(ctx, input.InvoiceID); err != nil {
			return nil, nil, err
		}

		result := EntityResult{"success": true, "message": "Invoice emailed to contact"}

		return textResult(result), result, nil
	}
}

// --- Purchase orders ---

func registerPurchaseOrderTools(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_purchase_orders",
		Description: "List Xero purchase orders, filtered by status, contact, or date range.",
	}, s.listPurchaseOrdersHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_get_purchase_order",
		Description: "Get one Xero purchase order by ID or purchase order number.",
	}, s.getPurchaseOrderHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_create_purchase_order",
		Description: "Create a purchase order. Line items need an explicit expense account code.",
	}, s.createPurchaseOrderHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_update_purchase_order",
		Description: "Update a purchase order's status, line items, or delivery details. Contact and date are preserved.",
	}, s.updatePurchaseOrderHandler())
}

// ListPurchaseOrdersInput holds parameters for xero_list_purchase_orders.
type ListPurchaseOrdersInput struct {
	Status      string `json:"status,omitempty" jsonschema:"purchase order status: DRAFT, SUBMITTED, AUTHORISED, BILLED, DELETED"`
	ContactID   string `json:"contact_id,omitempty" jsonschema:"filter by contact ID"`
	ContactName string `json:"contact_name,omitempty" jsonschema:"filter by partial contact name"`
	DateFrom    string `json:"date_from,omitempty" jsonschema:"start date YYYY-MM-DD"`
	DateTo      string `json:"date_to,omitempty" jsonschema:"end date YYYY-MM-DD"`
	Page        int    `json:"page,omitempty" jsonschema:"page number, defaults to 1"`
	Profile     string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// PurchaseOrderIDInput identifies one purchase order.
type PurchaseOrderIDInput struct {
	PurchaseOrderID string `json:"purchase_order_id" jsonschema:"required,purchase order ID or number"`
	Profile         string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// CreatePurchaseOrderInput holds parameters for xero_create_purchase_order.
type CreatePurchaseOrderInput struct {
	ContactID            string          `json:"contact_id" jsonschema:"required,supplier contact ID"`
	LineItems            []LineItemInput `json:"line_items" jsonschema:"required,purchase order line items"`
	Date                 string          `json:"date,omitempty" jsonschema:"order date YYYY-MM-DD, defaults to today"`
	DeliveryDate         string          `json:"delivery_date,omitempty" jsonschema:"expected delivery date YYYY-MM-DD"`
	PurchaseOrderNumber  string          `json:"purchase_order_number,omitempty" jsonschema:"explicit purchase order number"`
	Reference            string          `json:"reference,omitempty" jsonschema:"reference text"`
	DeliveryAddress      string          `json:"delivery_address,omitempty" jsonschema:"delivery address"`
	AttentionTo          string          `json:"attention_to,omitempty" jsonschema:"delivery attention-to name"`
	Telephone            string          `json:"telephone,omitempty" jsonschema:"delivery contact phone"`
	DeliveryInstructions string          `json:"delivery_instructions,omitempty" jsonschema:"delivery instructions"`
	CurrencyCode         string          `json:"currency_code,omitempty" jsonschema:"ISO currency code, defaults to AUD"`
	Status               string          `json:"status,omitempty" jsonschema:"initial status, defaults to DRAFT"`
	Profile              string          `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// UpdatePurchaseOrderInput holds parameters for xero_update_purchase_order.
type UpdatePurchaseOrderInput struct {
	PurchaseOrderID string          `json:"purchase_order_id" jsonschema:"required,purchase order ID"`
	Status          string          `json:"status,omitempty" jsonschema:"new status"`
	LineItems       []LineItemInput `json:"line_items,omitempty" jsonschema:"replacement line items"`
	DeliveryDate    string          `json:"delivery_date,omitempty" jsonschema:"expected delivery date YYYY-MM-DD"`
	Reference       *string         `json:"reference,omitempty" jsonschema:"reference text"`
	DeliveryAddress *string         `json:"delivery_address,omitempty" jsonschema:"delivery address"`
	AttentionTo     *string         `json:"attention_to,omitempty" jsonschema:"delivery attention-to name"`
	Profile         string          `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

func (s *Server) listPurchaseOrdersHandler() mcp.ToolHandlerFor[ListPurchaseOrdersInput, *ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListPurchaseOrdersInput) (*mcp.CallToolResult, *ListResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		orders, err := client.ListPurchaseOrders(ctx, xero.PurchaseOrderFilter{
			Status:      input.Status,
			ContactID:   input.ContactID,
			ContactName: input.ContactName,
			DateFrom:    input.DateFrom,
			DateTo:      input.DateTo,
			Page:        input.Page,
		})
		if err != nil {
			return nil, nil, err
		}

		result := listResult(orders)

		return textResult(result), result, nil
	}
}

func (s *Server) getPurchaseOrderHandler() mcp.ToolHandlerFor[PurchaseOrderIDInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PurchaseOrderIDInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		order, err := client.GetPurchaseOrder(ctx, input.PurchaseOrderID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(order), order, nil
	}
}

func (s *Server) createPurchaseOrderHandler() mcp.ToolHandlerFor[CreatePurchaseOrderInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreatePurchaseOrderInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		order, err := client.CreatePurchaseOrder(ctx, xero.PurchaseOrderDraft{
			ContactID:            input.ContactID,
			LineItems:            lineItems(input.LineItems),
			Date:                 input.Date,
			DeliveryDate:         input.DeliveryDate,
			PurchaseOrderNumber:  input.PurchaseOrderNumber,
			Reference:            input.Reference,
			DeliveryAddress:      input.DeliveryAddress,
			AttentionTo:          input.AttentionTo,
			Telephone:            input.Telephone,
			DeliveryInstructions: input.DeliveryInstructions,
			CurrencyCode:         input.CurrencyCode,
			Status:               input.Status,
		})
		if err != nil {
			return nil, nil, err
		}

		return textResult(order), order, nil
	}
}

func (s *Server) updatePurchaseOrderHandler() mcp.ToolHandlerFor[UpdatePurchaseOrderInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdatePurchaseOrderInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		update := xero.PurchaseOrderUpdate{
			Status:          input.Status,
			DeliveryDate:    input.DeliveryDate,
			Reference:       input.Reference,
			DeliveryAddress: input.DeliveryAddress,
			AttentionTo:     input.AttentionTo,
		}

		if input.LineItems != nil {
			update.LineItems = lineItems(input.LineItems)
		}

		order, err := client.UpdatePurchaseOrder(ctx, input.PurchaseOrderID, update)
		if err != nil {
			return nil, nil, err
		}

		return textResult(order), order, nil
	}
}
