package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	mdomain "maintenance-manager/console/internal/maintenance/domain"
	userdomain "maintenance-manager/console/internal/user/domain"
)

// LoginRequest is the credential pair for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates an account. CompanyID must refer to an existing company.
type RegisterRequest struct {
	Email     string          `json:"email" validate:"required"`
	Password  string          `json:"password" validate:"required,min=6"`
	FirstName string          `json:"firstName" validate:"required"`
	LastName  string          `json:"lastName" validate:"required"`
	Phone     string          `json:"phone,omitempty"`
	Role      userdomain.Role `json:"role" validate:"required"`
	CompanyID int64           `json:"companyId" validate:"gt=0"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string           `json:"token"`
	User  *userdomain.User `json:"user"`
}

// API groups the typed services of the maintenance API.
type API struct {
	Auth       *AuthService
	Companies  *CompanyService
	Properties *PropertyService
	WorkOrders *WorkOrderService
	Users      *UserService
	Invoices   *InvoiceService
	Payments   *PaymentService
}

// NewAPI returns all services over c.
func NewAPI(c *Client) *API {
	return &API{
		Auth:       &AuthService{c: c},
		Companies:  &CompanyService{c: c},
		Properties: &PropertyService{c: c},
		WorkOrders: &WorkOrderService{c: c},
		Users:      &UserService{c: c},
		Invoices:   &InvoiceService{c: c},
		Payments:   &PaymentService{c: c},
	}
}

// AuthService covers /auth.
type AuthService struct{ c *Client }

// Login exchanges credentials for a token and user.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := s.c.do(ctx, "auth.login", http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its token and user.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := s.c.do(ctx, "auth.register", http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user the context token belongs to.
func (s *AuthService) Me(ctx context.Context) (*userdomain.User, error) {
	var out userdomain.User
	if err := s.c.do(ctx, "auth.me", http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Identity returns the user token belongs to.
func (s *AuthService) Identity(ctx context.Context, token string) (*userdomain.User, error) {
	return s.Me(WithToken(ctx, token))
}

// CompanyService covers /companies.
type CompanyService struct{ c *Client }

func (s *CompanyService) List(ctx context.Context) ([]mdomain.Company, error) {
	var out []mdomain.Company
	err := s.c.do(ctx, "companies.list", http.MethodGet, "/companies", nil, nil, &out)
	return out, err
}

func (s *CompanyService) Get(ctx context.Context, id int64) (*mdomain.Company, error) {
	var out mdomain.Company
	if err := s.c.do(ctx, "companies.get", http.MethodGet, fmt.Sprintf("/companies/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CompanyService) Create(ctx context.Context, req mdomain.CompanyRequest) (*mdomain.Company, error) {
	var out mdomain.Company
	if err := s.c.do(ctx, "companies.create", http.MethodPost, "/companies", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CompanyService) Update(ctx context.Context, id int64, req mdomain.CompanyRequest) (*mdomain.Company, error) {
	var out mdomain.Company
	if err := s.c.do(ctx, "companies.update", http.MethodPut, fmt.Sprintf("/companies/%d", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PropertyService covers /properties.
type PropertyService struct{ c *Client }

func (s *PropertyService) List(ctx context.Context) ([]mdomain.Property, error) {
	var out []mdomain.Property
	err := s.c.do(ctx, "properties.list", http.MethodGet, "/properties", nil, nil, &out)
	return out, err
}

// Get returns a property with its units.
func (s *PropertyService) Get(ctx context.Context, id int64) (*mdomain.Property, error) {
	var out mdomain.Property
	if err := s.c.do(ctx, "properties.get", http.MethodGet, fmt.Sprintf("/properties/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PropertyService) Create(ctx context.Context, req mdomain.PropertyRequest) (*mdomain.Property, error) {
	var out mdomain.Property
	if err := s.c.do(ctx, "properties.create", http.MethodPost, "/properties", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PropertyService) Update(ctx context.Context, id int64, req mdomain.PropertyRequest) (*mdomain.Property, error) {
	var out mdomain.Property
	if err := s.c.do(ctx, "properties.update", http.MethodPut, fmt.Sprintf("/properties/%d", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PropertyService) AddUnit(ctx context.Context, propertyID int64, req mdomain.UnitRequest) (*mdomain.Unit, error) {
	var out mdomain.Unit
	if err := s.c.do(ctx, "properties.add_unit", http.MethodPost, fmt.Sprintf("/properties/%d/units", propertyID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkOrderService covers /work-orders. The API scopes lists to what the caller may see.
type WorkOrderService struct{ c *Client }

func (s *WorkOrderService) List(ctx context.Context) ([]mdomain.WorkOrder, error) {
	var out []mdomain.WorkOrder
	err := s.c.do(ctx, "work_orders.list", http.MethodGet, "/work-orders", nil, nil, &out)
	return out, err
}

func (s *WorkOrderService) Get(ctx context.Context, id int64) (*mdomain.WorkOrder, error) {
	var out mdomain.WorkOrder
	if err := s.c.do(ctx, "work_orders.get", http.MethodGet, fmt.Sprintf("/work-orders/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *WorkOrderService) Create(ctx context.Context, req mdomain.WorkOrderRequest) (*mdomain.WorkOrder, error) {
	var out mdomain.WorkOrder
	if err := s.c.do(ctx, "work_orders.create", http.MethodPost, "/work-orders", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update patches status and/or assignee.
func (s *WorkOrderService) Update(ctx context.Context, id int64, req mdomain.WorkOrderUpdateRequest) (*mdomain.WorkOrder, error) {
	var out mdomain.WorkOrder
	if err := s.c.do(ctx, "work_orders.update", http.MethodPatch, fmt.Sprintf("/work-orders/%d", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserService covers /users.
type UserService struct{ c *Client }

// ListByRole returns the company's users with role.
func (s *UserService) ListByRole(ctx context.Context, role userdomain.Role) ([]userdomain.User, error) {
	var out []userdomain.User
	err := s.c.do(ctx, "users.list_by_role", http.MethodGet, "/users", url.Values{"role": {string(role)}}, nil, &out)
	return out, err
}

// InvoiceService covers /invoices.
type InvoiceService struct{ c *Client }

func (s *InvoiceService) List(ctx context.Context) ([]mdomain.Invoice, error) {
	var out []mdomain.Invoice
	err := s.c.do(ctx, "invoices.list", http.MethodGet, "/invoices", nil, nil, &out)
	return out, err
}

func (s *InvoiceService) Get(ctx context.Context, id int64) (*mdomain.Invoice, error) {
	var out mdomain.Invoice
	if err := s.c.do(ctx, "invoices.get", http.MethodGet, fmt.Sprintf("/invoices/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *InvoiceService) Create(ctx context.Context, req mdomain.InvoiceRequest) (*mdomain.Invoice, error) {
	var out mdomain.Invoice
	if err := s.c.do(ctx, "invoices.create", http.MethodPost, "/invoices", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *InvoiceService) Update(ctx context.Context, id int64, req mdomain.InvoiceUpdateRequest) (*mdomain.Invoice, error) {
	var out mdomain.Invoice
	if err := s.c.do(ctx, "invoices.update", http.MethodPatch, fmt.Sprintf("/invoices/%d", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *InvoiceService) Delete(ctx context.Context, id int64) error {
	return s.c.do(ctx, "invoices.delete", http.MethodDelete, fmt.Sprintf("/invoices/%d", id), nil, nil, nil)
}

// PaymentService covers /payments.
type PaymentService struct{ c *Client }

// CreateCheckout starts a hosted checkout for an invoice and returns where to send the browser.
func (s *PaymentService) CreateCheckout(ctx context.Context, invoiceID int64) (*mdomain.Checkout, error) {
	var out mdomain.Checkout
	if err := s.c.do(ctx, "payments.checkout", http.MethodPost, fmt.Sprintf("/payments/checkout/%d", invoiceID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
