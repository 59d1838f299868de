package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexjbarnes/xero-mcp/internal/xero"
)

func registerPayrollTools(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_payruns",
		Description: "List Xero Payroll AU pay runs, optionally filtered by status (DRAFT or POSTED).",
	}, s.listPayRunsHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_get_payrun",
		Description: "Get one pay run by ID, including its payslips.",
	}, s.getPayRunHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_payroll_employees",
		Description: "List Payroll AU employees, optionally filtered by status (ACTIVE or TERMINATED).",
	}, s.listPayrollEmployeesHandler())
}

// ListPayRunsInput holds parameters for xero_list_payruns.
type ListPayRunsInput struct {
	Status  string `json:"status,omitempty" jsonschema:"pay run status: DRAFT or POSTED"`
	Page    int    `json:"page,omitempty" jsonschema:"page number, defaults to 1"`
	Profile string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// GetPayRunInput holds parameters for xero_get_payrun.
type GetPayRunInput struct {
	PayRunID string `json:"payrun_id" jsonschema:"required,pay run ID"`
	Profile  string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// ListEmployeesInput holds parameters for xero_list_payroll_employees.
type ListEmployeesInput struct {
	Status  string `json:"status,omitempty" jsonschema:"employee status: ACTIVE or TERMINATED"`
	Page    int    `json:"page,omitempty" jsonschema:"page number, defaults to 1"`
	Profile string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

func (s *Server) listPayRunsHandler() mcp.ToolHandlerFor[ListPayRunsInput, *ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListPayRunsInput) (*mcp.CallToolResult, *ListResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		payRuns, err := client.ListPayRuns(ctx, xero.PayRunFilter{
			Status: input.Status,
			Page:   input.Page,
		})
		if err != nil {
			return nil, nil, err
		}

		result := listResult(payRuns)

		return textResult(result), result, nil
	}
}

func (s *Server) getPayRunHandler() mcp.ToolHandlerFor[GetPayRunInput, EntityResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetPayRunInput) (*mcp.CallToolResult, EntityResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		payRun, err := client.GetPayRun(ctx, input.PayRunID)
		if err != nil {
			return nil, nil, err
		}

		return textResult(payRun), payRun, nil
	}
}

func (s *Server) listPayrollEmployeesHandler() mcp.ToolHandlerFor[ListEmployeesInput, *ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListEmployeesInput) (*mcp.CallToolResult, *ListResult, error) {
		client, err := s.client(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		employees, err := client.ListPayrollEmployees(ctx, xero.EmployeeFilter{
			Status: input.Status,
			Page:   input.Page,
		})
		if err != nil {
			return nil, nil, err
		}

		result := listResult(employees)

		return textResult(result), result, nil
	}
}
