package handler

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"maintenance-manager/console/internal/console/form"
	"maintenance-manager/console/internal/gateway"
	mdomain "maintenance-manager/console/internal/maintenance/domain"
)

const (
	invoiceDueDays   = 30
	blankInvoiceRows = 2
)

type invoicesPage struct {
	Summary  mdomain.InvoiceSummary
	Statuses []mdomain.InvoiceStatus
	Filter   mdomain.InvoiceFilter
	Invoices []mdomain.Invoice
}

func (h *Handler) invoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := mdomain.InvoiceFilter{Status: mdomain.InvoiceStatus(q.Get("status")), Oldest: q.Get("sort") == "oldest"}
	list, err := h.api.Invoices.List(apiContext(r))
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to load invoices"))
	}
	h.render(w, r, http.StatusOK, "invoices", "Billing", invoicesPage{
		Summary:  mdomain.SummarizeInvoices(list),
		Statuses: mdomain.InvoiceStatuses,
		Filter:   filter,
		Invoices: mdomain.FilterInvoices(list, filter),
	})
}

type invoiceForm struct {
	WorkOrderID int64
	TaxRate     float64
	DueDate     string
	Notes       string
}

type newInvoicePage struct {
	WorkOrders []mdomain.WorkOrder
	Lines      []mdomain.LineItemRequest
	Form       invoiceForm
	Totals     mdomain.Totals
}

var invoiceMessages = form.Messages{
	Fields: map[string]string{
		"WorkOrderID": "Please select a work order",
		"LineItems":   "All line items must have a description, quantity, and price",
		"DueDate":     "Due date is required",
		"TaxRate":     "Tax rate must be between 0 and 100",
	},
	Default: "Please fill in all required fields",
}

func (h *Handler) newInvoice(w http.ResponseWriter, r *http.Request) {
	f := invoiceForm{
		WorkOrderID: form.Int64(r.URL.Query().Get("workOrderId")),
		DueDate:     h.nowF().AddDate(0, 0, invoiceDueDays).Format("2006-01-02"),
	}
	h.renderNewInvoice(w, r, http.StatusOK, f, nil, h.fetchCompletedWorkOrders(r))
}

// fetchCompletedWorkOrders loads the work orders that can be invoiced and remembers them for re-rendering the form.
func (h *Handler) fetchCompletedWorkOrders(r *http.Request) []mdomain.WorkOrder {
	list, err := h.api.WorkOrders.List(apiContext(r))
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to load work orders"))
		return nil
	}
	completed := mdomain.FilterWorkOrders(list, mdomain.WorkOrderFilter{Status: mdomain.StatusCompleted})
	cf := h.forms.get(clientID(r), h.nowF())
	cf.mu.Lock()
	cf.completed = completed
	cf.mu.Unlock()
	return completed
}

// cachedCompletedWorkOrders returns the work orders last offered to the client. It never calls the API.
func (h *Handler) cachedCompletedWorkOrders(r *http.Request) []mdomain.WorkOrder {
	cf := h.forms.get(clientID(r), h.nowF())
	cf.mu.Lock()
	defer cf.mu.Unlock()
	return cf.completed
}

func (h *Handler) renderNewInvoice(w http.ResponseWriter, r *http.Request, status int, f invoiceForm, lines []mdomain.LineItemRequest, completed []mdomain.WorkOrder) {
	rows := append(slices.Clone(lines), make([]mdomain.LineItemRequest, blankInvoiceRows)...)
	h.render(w, r, status, "invoice_new", "New Invoice", newInvoicePage{
		WorkOrders: completed,
		Lines:      rows,
		Form:       f,
		Totals:     mdomain.ComputeTotals(lines, f.TaxRate),
	})
}

// parseLineItems zips the repeated description, quantity and unitPrice fields into line items.
// Rows left completely blank are dropped; partly filled rows are kept so validation rejects them.
func parseLineItems(values url.Values) []mdomain.LineItemRequest {
	desc, qty, price := values["description"], values["quantity"], values["unitPrice"]
	n := max(len(desc), len(qty), len(price))
	at := func(vs []string, i int) string {
		if i < len(vs) {
			return strings.TrimSpace(vs[i])
		}
		return ""
	}
	var out []mdomain.LineItemRequest
	for i := 0; i < n; i++ {
		d, q, p := at(desc, i), at(qty, i), at(price, i)
		if d == "" && q == "" && p == "" {
			continue
		}
		out = append(out, mdomain.LineItemRequest{Description: d, Quantity: form.Int64(q), UnitPrice: form.Int64(p)})
	}
	return out
}

func parseInvoiceForm(values url.Values) (invoiceForm, []mdomain.LineItemRequest) {
	f := invoiceForm{
		WorkOrderID: form.Int64(values.Get("workOrderId")),
		TaxRate:     form.Float(values.Get("taxRate")),
		DueDate:     form.Trim(values, "dueDate"),
		Notes:       form.Trim(values, "notes"),
	}
	return f, parseLineItems(values)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f, lines := parseInvoiceForm(r.PostForm)
	req := mdomain.InvoiceRequest{
		WorkOrderID: f.WorkOrderID,
		LineItems:   lines,
		DueDate:     f.DueDate,
		TaxRate:     f.TaxRate,
		Notes:       f.Notes,
	}
	if msg := form.Check(req, invoiceMessages); msg != "" {
		toasts(r).Error(msg)
		h.renderNewInvoice(w, r, http.StatusUnprocessableEntity, f, lines, h.cachedCompletedWorkOrders(r))
		return
	}
	h.guard(w, r, "invoice-create", func() {
		if _, err := h.api.Invoices.Create(apiContext(r), req); err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to create invoice"))
			h.renderNewInvoice(w, r, http.StatusUnprocessableEntity, f, lines, h.cachedCompletedWorkOrders(r))
			return
		}
		toasts(r).Success("Invoice created!")
		seeOther(w, r, "/invoices")
	})
}

type formattedTotals struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

type previewResponse struct {
	mdomain.Totals
	Formatted formattedTotals `json:"formatted"`
}

// previewInvoice returns the totals of the form as currently filled in. Nothing is sent to the API.
func (h *Handler) previewInvoice(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f, lines := parseInvoiceForm(r.PostForm)
	t := mdomain.ComputeTotals(lines, f.TaxRate)
	writeJSON(w, http.StatusOK, previewResponse{
		Totals: t,
		Formatted: formattedTotals{
			Subtotal: mdomain.FormatCents(t.Subtotal),
			Tax:      mdomain.FormatCents(t.Tax),
			Total:    mdomain.FormatCents(t.Total),
		},
	})
}

type invoicePage struct {
	Invoice  *mdomain.Invoice
	Statuses []mdomain.InvoiceStatus
	CanPay   bool
}

func invoicePath(id int64) string { return "/invoices/" + strconv.FormatInt(id, 10) }

func (h *Handler) invoice(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	switch r.URL.Query().Get("payment") {
	case "success":
		toasts(r).Success("Payment successful! Invoice will be marked as paid shortly.")
		seeOther(w, r, invoicePath(id))
		return
	case "cancelled":
		toasts(r).Info("Payment was cancelled.")
		seeOther(w, r, invoicePath(id))
		return
	}
	inv, err := h.loadInvoice(r, id)
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to load invoice"))
		seeOther(w, r, "/invoices")
		return
	}
	h.render(w, r, http.StatusOK, "invoice", "Invoice "+inv.InvoiceNumber, invoicePage{
		Invoice:  inv,
		Statuses: mdomain.InvoiceStatuses,
		CanPay:   inv.Status.Payable(),
	})
}

func (h *Handler) loadInvoice(r *http.Request, id int64) (*mdomain.Invoice, error) {
	if id == 0 {
		return nil, &gateway.APIError{Status: http.StatusNotFound}
	}
	return h.api.Invoices.Get(apiContext(r), id)
}

func (h *Handler) updateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	current, err := h.loadInvoice(r, id)
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Update failed"))
		seeOther(w, r, "/invoices")
		return
	}
	_ = r.ParseForm()
	status := mdomain.InvoiceStatus(r.PostForm.Get("status"))
	if !slices.Contains(mdomain.InvoiceStatuses, status) {
		toasts(r).Error("Update failed")
		seeOther(w, r, invoicePath(id))
		return
	}
	if status == current.Status {
		toasts(r).Info("No changes to save")
		seeOther(w, r, invoicePath(id))
		return
	}
	h.guard(w, r, "invoice-update:"+strconv.FormatInt(id, 10), func() {
		if _, err := h.api.Invoices.Update(apiContext(r), id, mdomain.InvoiceUpdateRequest{Status: &status}); err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Update failed"))
		} else {
			toasts(r).Success("Invoice updated!")
		}
		seeOther(w, r, invoicePath(id))
	})
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		toasts(r).Error("Failed to delete invoice")
		seeOther(w, r, "/invoices")
		return
	}
	h.guard(w, r, "invoice-delete:"+strconv.FormatInt(id, 10), func() {
		if err := h.api.Invoices.Delete(apiContext(r), id); err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to delete invoice"))
			seeOther(w, r, invoicePath(id))
			return
		}
		toasts(r).Success("Invoice deleted!")
		seeOther(w, r, "/invoices")
	})
}

// payInvoice starts a hosted checkout and sends the browser to it. Only sent or overdue invoices can be paid.
func (h *Handler) payInvoice(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	inv, err := h.loadInvoice(r, id)
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to start payment"))
		seeOther(w, r, "/invoices")
		return
	}
	if !inv.Status.Payable() {
		toasts(r).Error("Failed to start payment")
		seeOther(w, r, invoicePath(id))
		return
	}
	h.guard(w, r, "invoice-pay:"+strconv.FormatInt(id, 10), func() {
		co, err := h.api.Payments.CreateCheckout(apiContext(r), id)
		if err != nil || !checkoutURLAllowed(co.CheckoutURL) {
			toasts(r).Error(gateway.MessageOr(err, "Failed to start payment"))
			seeOther(w, r, invoicePath(id))
			return
		}
		seeOther(w, r, co.CheckoutURL)
	})
}

func checkoutURLAllowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "https" || u.Scheme == "http"
}
