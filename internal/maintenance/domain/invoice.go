package domain

import (
	"fmt"
	"math"
	"sort"
)

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// InvoiceStatuses lists every invoice status.
var InvoiceStatuses = []InvoiceStatus{InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled}

// Label returns the display name of the status.
func (s InvoiceStatus) Label() string { return titleCase(string(s)) }

// Payable reports whether an invoice in this status can be sent to checkout.
func (s InvoiceStatus) Payable() bool {
	return s == InvoiceSent || s == InvoiceOverdue
}

// InvoiceLineItem is a persisted invoice line. Amounts are in cents.
type InvoiceLineItem struct {
	ID          int64  `json:"id"`
	InvoiceID   int64  `json:"invoiceId"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Total       int64  `json:"total"`
}

// Invoice bills a completed work order. Amounts are in cents; TaxRate is a percentage.
type Invoice struct {
	ID             int64             `json:"id"`
	InvoiceNumber  string            `json:"invoiceNumber"`
	WorkOrderID    int64             `json:"workOrderId"`
	WorkOrderTitle string            `json:"workOrderTitle"`
	PropertyID     int64             `json:"propertyId"`
	PropertyName   string            `json:"propertyName"`
	UnitNumber     string            `json:"unitNumber"`
	CompanyID      int64             `json:"companyId"`
	CompanyName    string            `json:"companyName"`
	CreatedByID    int64             `json:"createdById"`
	CreatedByName  string            `json:"createdByName"`
	Status         InvoiceStatus     `json:"status"`
	Subtotal       int64             `json:"subtotal"`
	TaxRate        float64           `json:"taxRate"`
	TaxAmount      int64             `json:"taxAmount"`
	Total          int64             `json:"total"`
	Notes          *string           `json:"notes"`
	DueDate        string            `json:"dueDate"`
	PaidAt         *Timestamp        `json:"paidAt"`
	LineItems      []InvoiceLineItem `json:"lineItems"`
	CreatedAt      Timestamp         `json:"createdAt"`
	UpdatedAt      Timestamp         `json:"updatedAt"`
}

// LineItemRequest is a line of an invoice being created. Amounts are in cents.
type LineItemRequest struct {
	Description string `json:"description" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	UnitPrice   int64  `json:"unitPrice" validate:"gt=0"`
}

// Total returns quantity times unit price.
func (l LineItemRequest) Total() int64 { return l.Quantity * l.UnitPrice }

// InvoiceRequest creates an invoice. TaxRate zero and empty Notes are omitted.
type InvoiceRequest struct {
	WorkOrderID int64             `json:"workOrderId" validate:"gt=0"`
	LineItems   []LineItemRequest `json:"lineItems" validate:"required,min=1,dive"`
	DueDate     string            `json:"dueDate" validate:"required"`
	TaxRate     float64           `json:"taxRate,omitempty" validate:"gte=0,lte=100"`
	Notes       string            `json:"notes,omitempty"`
}

// InvoiceUpdateRequest changes an invoice; nil fields are left unchanged.
type InvoiceUpdateRequest struct {
	Status    *InvoiceStatus    `json:"status,omitempty"`
	Notes     *string           `json:"notes,omitempty"`
	DueDate   *string           `json:"dueDate,omitempty"`
	TaxRate   *float64          `json:"taxRate,omitempty"`
	LineItems []LineItemRequest `json:"lineItems,omitempty"`
}

// Checkout is the payment session created for an invoice.
type Checkout struct {
	CheckoutURL string `json:"checkoutUrl"`
}

// Totals is the derived amount breakdown of an invoice, in cents.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// ComputeTotals derives subtotal, tax and total for items at taxRate percent.
// Tax is rounded half up to whole cents.
func ComputeTotals(items []LineItemRequest, taxRate float64) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Total()
	}
	tax := int64(math.Floor(float64(subtotal)*(taxRate/100) + 0.5))
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal + tax}
}

// InvoiceFilter narrows an invoice list. Zero values match everything.
type InvoiceFilter struct {
	Status InvoiceStatus
	Oldest bool
}

// FilterInvoices returns the invoices matching f, sorted by creation time (newest first unless f.Oldest).
func FilterInvoices(list []Invoice, f InvoiceFilter) []Invoice {
	out := make([]Invoice, 0, len(list))
	for _, inv := range list {
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, inv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Oldest {
			return out[i].CreatedAt.Before(out[j].CreatedAt.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return out
}

// InvoiceSummary totals outstanding (sent or overdue) and paid invoices, in cents.
type InvoiceSummary struct {
	Outstanding int64
	Paid        int64
}

// SummarizeInvoices computes the billing summary of list.
func SummarizeInvoices(list []Invoice) InvoiceSummary {
	var s InvoiceSummary
	for _, inv := range list {
		switch inv.Status {
		case InvoiceSent, InvoiceOverdue:
			s.Outstanding += inv.Total
		case InvoicePaid:
			s.Paid += inv.Total
		}
	}
	return s
}

// FormatCents renders an amount in cents as US dollars, e.g. 123456 -> "$1,234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	dollars := cents / 100
	rem := cents % 100
	s := fmt.Sprintf("%d", dollars)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return fmt.Sprintf("%s$%s.%02d", sign, s, rem)
}
