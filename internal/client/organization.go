package client

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

// OrganizationClient talks to the office/employee service.
type OrganizationClient struct {
	baseClient
}

// NewOrganizationClient returns the production organization client.
func NewOrganizationClient(baseURL string, timeout time.Duration) *OrganizationClient {
	return &OrganizationClient{baseClient: newBaseClient(baseURL, timeout)}
}

// OfficeExists reports whether the office identifier is known.
func (c *OrganizationClient) OfficeExists(ctx context.Context, officeID string) (bool, error) {
	err := c.get(ctx, "/offices/"+url.PathEscape(officeID), nil)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EmployeeExists reports whether the employee identifier is known.
func (c *OrganizationClient) EmployeeExists(ctx context.Context, employeeID string) (bool, error) {
	err := c.get(ctx, "/employees/"+url.PathEscape(employeeID), nil)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RegisterTellerReference records with the office that it now owns a teller.
func (c *OrganizationClient) RegisterTellerReference(ctx context.Context, officeID string) error {
	return c.post(ctx, "/offices/"+url.PathEscape(officeID)+"/references", map[string]string{"type": "teller"}, nil)
}
