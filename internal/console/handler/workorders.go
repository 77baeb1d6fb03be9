package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"maintenance-manager/console/internal/console/form"
	"maintenance-manager/console/internal/console/latest"
	"maintenance-manager/console/internal/gateway"
	mdomain "maintenance-manager/console/internal/maintenance/domain"
	userdomain "maintenance-manager/console/internal/user/domain"
)

// clientForm is the create-form state of one client: the option lists it was last shown and the property
// whose units were fetched last. Forms rejected by validation re-render from it without calling the API.
type clientForm struct {
	units latest.Tracker[int64]

	mu         sync.Mutex
	properties []mdomain.Property
	unitsFor   int64
	loaded     []mdomain.Unit
	completed  []mdomain.WorkOrder
	lastUsed   time.Time
}

type clientForms struct {
	mu       sync.Mutex
	byClient map[string]*clientForm
}

func (f *clientForms) get(client string, now time.Time) *clientForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	cf, ok := f.byClient[client]
	if !ok {
		cf = &clientForm{}
		f.byClient[client] = cf
	}
	cf.mu.Lock()
	cf.lastUsed = now
	cf.mu.Unlock()
	return cf
}

func (f *clientForms) sweep(cutoff time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	dropped := 0
	for id, cf := range f.byClient {
		cf.mu.Lock()
		idle := cf.lastUsed.Before(cutoff)
		cf.mu.Unlock()
		if idle {
			delete(f.byClient, id)
			dropped++
		}
	}
	return dropped
}

// Sweep drops per-client form state unused for longer than idle. It returns how many clients were dropped.
func (h *Handler) Sweep(idle time.Duration) int {
	return h.forms.sweep(h.nowF().Add(-idle))
}

// loadUnits fetches the units of propertyID for the client's form. It reports false when a fetch for another
// selection began meanwhile, in which case the result must not be shown.
func (h *Handler) loadUnits(ctx context.Context, client string, propertyID int64) ([]mdomain.Unit, bool, error) {
	cf := h.forms.get(client, h.nowF())
	ticket := cf.units.Begin(propertyID)
	p, err := h.api.Properties.Get(ctx, propertyID)
	if err != nil {
		return nil, ticket.Current(), err
	}
	var units []mdomain.Unit
	current := ticket.Commit(func() {
		cf.mu.Lock()
		cf.unitsFor = propertyID
		cf.loaded = p.Units
		cf.mu.Unlock()
		units = p.Units
	})
	return units, current, nil
}

type workOrdersPage struct {
	CanCreate  bool
	Statuses   []mdomain.WorkOrderStatus
	Priorities []mdomain.Priority
	Categories []mdomain.WorkOrderCategory
	Properties []propertyOption
	Filter     mdomain.WorkOrderFilter
	WorkOrders []mdomain.WorkOrder
}

type propertyOption struct {
	ID   int64
	Name string
}

func workOrderFilter(r *http.Request) mdomain.WorkOrderFilter {
	q := r.URL.Query()
	return mdomain.WorkOrderFilter{
		PropertyID: form.Int64(q.Get("propertyId")),
		Status:     mdomain.WorkOrderStatus(q.Get("status")),
		Priority:   mdomain.Priority(q.Get("priority")),
		Category:   mdomain.WorkOrderCategory(q.Get("category")),
		Oldest:     q.Get("sort") == "oldest",
	}
}

// propertyOptions lists the distinct properties of list by name.
func propertyOptions(list []mdomain.WorkOrder) []propertyOption {
	seen := make(map[int64]bool)
	var out []propertyOption
	for _, wo := range list {
		if seen[wo.PropertyID] {
			continue
		}
		seen[wo.PropertyID] = true
		out = append(out, propertyOption{ID: wo.PropertyID, Name: wo.PropertyName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (h *Handler) workOrders(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	filter := workOrderFilter(r)
	list, err := h.api.WorkOrders.List(apiContext(r))
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to load work orders"))
	}
	h.render(w, r, http.StatusOK, "workorders", "Work Orders", workOrdersPage{
		CanCreate:  user != nil && user.Role != userdomain.RoleTech,
		Statuses:   mdomain.WorkOrderStatuses,
		Priorities: mdomain.Priorities,
		Categories: mdomain.Categories,
		Properties: propertyOptions(list),
		Filter:     filter,
		WorkOrders: mdomain.FilterWorkOrders(list, filter),
	})
}

type newWorkOrderPage struct {
	Properties []mdomain.Property
	Units      []mdomain.Unit
	Categories []mdomain.WorkOrderCategory
	Priorities []mdomain.Priority
	Form       mdomain.WorkOrderRequest
}

func (h *Handler) newWorkOrder(w http.ResponseWriter, r *http.Request) {
	req := mdomain.WorkOrderRequest{
		PropertyID: form.Int64(r.URL.Query().Get("propertyId")),
		Category:   mdomain.CategoryGeneral,
		Priority:   mdomain.PriorityMedium,
	}
	props, units := h.fetchWorkOrderOptions(r, req.PropertyID)
	h.renderNewWorkOrder(w, r, http.StatusOK, req, props, units)
}

// fetchWorkOrderOptions loads the properties, and the units of propertyID when set, and remembers them
// for re-rendering the form.
func (h *Handler) fetchWorkOrderOptions(r *http.Request, propertyID int64) ([]mdomain.Property, []mdomain.Unit) {
	ctx := apiContext(r)
	cf := h.forms.get(clientID(r), h.nowF())
	props, err := h.api.Properties.List(ctx)
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to load properties"))
	} else {
		cf.mu.Lock()
		cf.properties = props
		cf.mu.Unlock()
	}
	var units []mdomain.Unit
	if propertyID != 0 {
		var current bool
		units, current, err = h.loadUnits(ctx, clientID(r), propertyID)
		if err != nil && current {
			toasts(r).Error(gateway.MessageOr(err, "Failed to load units"))
		}
	}
	return props, units
}

// cachedWorkOrderOptions returns the options last shown to the client, with units only when they belong
// to propertyID. It never calls the API.
func (h *Handler) cachedWorkOrderOptions(r *http.Request, propertyID int64) ([]mdomain.Property, []mdomain.Unit) {
	cf := h.forms.get(clientID(r), h.nowF())
	cf.mu.Lock()
	defer cf.mu.Unlock()
	var units []mdomain.Unit
	if propertyID != 0 && cf.unitsFor == propertyID {
		units = cf.loaded
	}
	return cf.properties, units
}

func (h *Handler) renderNewWorkOrder(w http.ResponseWriter, r *http.Request, status int, req mdomain.WorkOrderRequest, props []mdomain.Property, units []mdomain.Unit) {
	h.render(w, r, status, "workorder_new", "New Work Order", newWorkOrderPage{
		Properties: props,
		Units:      units,
		Categories: mdomain.Categories,
		Priorities: mdomain.Priorities,
		Form:       req,
	})
}

type unitsResponse struct {
	PropertyID int64          `json:"propertyId"`
	Units      []mdomain.Unit `json:"units"`
	Stale      bool           `json:"stale"`
}

// units serves the unit list of a property for the new-work-order form. A response whose property
// was deselected before it arrived is marked stale and carries no units.
func (h *Handler) units(w http.ResponseWriter, r *http.Request) {
	propertyID := form.Int64(r.URL.Query().Get("propertyId"))
	resp := unitsResponse{PropertyID: propertyID, Units: []mdomain.Unit{}}
	if propertyID > 0 {
		units, current, err := h.loadUnits(apiContext(r), clientID(r), propertyID)
		switch {
		case !current:
			resp.Stale = true
		case err != nil:
			toasts(r).Error(gateway.MessageOr(err, "Failed to load units"))
			writeJSON(w, http.StatusBadGateway, resp)
			return
		case units != nil:
			resp.Units = units
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

var workOrderMessages = form.Messages{Default: "Property, unit, and title are required"}

func (h *Handler) createWorkOrder(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	req := mdomain.WorkOrderRequest{
		PropertyID:  form.Int64(r.PostForm.Get("propertyId")),
		UnitID:      form.Int64(r.PostForm.Get("unitId")),
		Title:       form.Trim(r.PostForm, "title"),
		Description: form.Trim(r.PostForm, "description"),
		Category:    mdomain.WorkOrderCategory(r.PostForm.Get("category")),
		Priority:    mdomain.Priority(r.PostForm.Get("priority")),
	}
	if req.Category == "" {
		req.Category = mdomain.CategoryGeneral
	}
	if req.Priority == "" {
		req.Priority = mdomain.PriorityMedium
	}
	if msg := form.Check(req, workOrderMessages); msg != "" {
		toasts(r).Error(msg)
		props, units := h.cachedWorkOrderOptions(r, req.PropertyID)
		h.renderNewWorkOrder(w, r, http.StatusUnprocessableEntity, req, props, units)
		return
	}
	h.guard(w, r, "work-order-create", func() {
		if _, err := h.api.WorkOrders.Create(apiContext(r), req); err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to create work order"))
			props, units := h.cachedWorkOrderOptions(r, req.PropertyID)
			h.renderNewWorkOrder(w, r, http.StatusUnprocessableEntity, req, props, units)
			return
		}
		toasts(r).Success("Work order created!")
		seeOther(w, r, "/work-orders")
	})
}

type workOrderPage struct {
	WorkOrder  *mdomain.WorkOrder
	Statuses   []mdomain.WorkOrderStatus
	CanAssign  bool
	Techs      []userdomain.User
	CanInvoice bool
}

func (h *Handler) workOrder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	ctx := apiContext(r)
	wo, err := h.loadWorkOrder(ctx, id)
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to load work order"))
		seeOther(w, r, "/work-orders")
		return
	}
	user := currentUser(r)
	manager := user != nil && user.Role != userdomain.RoleTech
	data := workOrderPage{
		WorkOrder:  wo,
		Statuses:   mdomain.WorkOrderStatuses,
		CanAssign:  manager,
		CanInvoice: manager && wo.Status == mdomain.StatusCompleted,
	}
	if manager {
		techs, err := h.api.Users.ListByRole(ctx, userdomain.RoleTech)
		if err != nil {
			log.Printf("handler: list technicians: %v", err)
		}
		data.Techs = techs
	}
	h.render(w, r, http.StatusOK, "workorder", wo.Title, data)
}

func (h *Handler) loadWorkOrder(ctx context.Context, id int64) (*mdomain.WorkOrder, error) {
	if id == 0 {
		return nil, &gateway.APIError{Status: http.StatusNotFound}
	}
	return h.api.WorkOrders.Get(ctx, id)
}

// updateWorkOrder sends only the fields that differ from the current work order.
// Technicians may change status but never the assignee.
func (h *Handler) updateWorkOrder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	detail := "/work-orders/" + strconv.FormatInt(id, 10)
	ctx := apiContext(r)
	current, err := h.loadWorkOrder(ctx, id)
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Update failed"))
		seeOther(w, r, "/work-orders")
		return
	}
	_ = r.ParseForm()

	var req mdomain.WorkOrderUpdateRequest
	if s := mdomain.WorkOrderStatus(r.PostForm.Get("status")); s != "" && s != current.Status {
		req.Status = &s
	}
	user := currentUser(r)
	if user != nil && user.Role != userdomain.RoleTech {
		if tech := form.Int64(r.PostForm.Get("assignedToId")); tech > 0 && (current.AssignedToID == nil || *current.AssignedToID != tech) {
			req.AssignedToID = &tech
		}
	}
	if req.Empty() {
		toasts(r).Info("No changes to save")
		seeOther(w, r, detail)
		return
	}
	h.guard(w, r, "work-order-update:"+strconv.FormatInt(id, 10), func() {
		if _, err := h.api.WorkOrders.Update(ctx, id, req); err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Update failed"))
		} else {
			toasts(r).Success("Work order updated!")
		}
		seeOther(w, r, detail)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
