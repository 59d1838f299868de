package xero

import (
	"context"
	"fmt"
)

// Payroll AU wrappers. These go through PayrollRequest, which targets
// the payroll base path with the same token, tenant header, throttling,
// and retry discipline as the accounting calls.

// PayRunFilter narrows a pay-run listing.
type PayRunFilter struct {
	Status string // DRAFT or POSTED
	Page   int
}

// ListPayRuns lists pay runs, 100 per page.
func (c *Client) ListPayRuns(ctx context.Context, filter PayRunFilter) ([]any, error) {
	query := pageQuery(filter.Page)

	if filter.Status != "" {
		query.Set("where", fmt.Sprintf("PayRunStatus==%q", filter.Status))
	}

	resp, err := c.PayrollRequest(ctx, "GET", "PayRuns", nil, query)
	if err != nil {
		return nil, err
	}

	return collection(resp, "PayRuns"), nil
}

// GetPayRun fetches a pay run by ID, including its payslips.
func (c *Client) GetPayRun(ctx context.Context, payRunID string) (map[string]any, error) {
	resp, err := c.PayrollRequest(ctx, "GET", "PayRuns/"+payRunID, nil, nil)
	if err != nil {
		return nil, err
	}

	return first(resp, "PayRuns", "pay run", payRunID)
}

// EmployeeFilter narrows a payroll-employee listing.
type EmployeeFilter struct {
	Status string // ACTIVE or TERMINATED
	Page   int
}

// ListPayrollEmployees lists payroll employees, 100 per page.
func (c *Client) ListPayrollEmployees(ctx context.Context, filter EmployeeFilter) ([]any, error) {
	query := pageQuery(filter.Page)

	if filter.Status != "" {
		query.Set("where", fmt.Sprintf("Status==%q", filter.Status))
	}

	resp, err := c.PayrollRequest(ctx, "GET", "Employees", nil, query)
	if err != nil {
		return nil, err
	}

	return collection(resp, "Employees"), nil
}
