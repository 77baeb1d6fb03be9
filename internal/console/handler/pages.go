package handler

import (
	"net/http"
	"strconv"
	"sync"

	"maintenance-manager/console/internal/console/form"
	"maintenance-manager/console/internal/gateway"
	mdomain "maintenance-manager/console/internal/maintenance/domain"
	"maintenance-manager/console/internal/session"
	userdomain "maintenance-manager/console/internal/user/domain"
)

const recentWorkOrders = 5

type statusCount struct {
	Status mdomain.WorkOrderStatus
	Count  int
}

type dashboardPage struct {
	ShowProperties  bool
	PropertiesLabel string
	PropertyCount   int
	WorkOrdersLabel string
	WorkOrderCount  int
	StatusCounts    []statusCount
	Recent          []mdomain.WorkOrder
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := apiContext(r)
	isTech := user != nil && user.Role == userdomain.RoleTech

	var (
		wg         sync.WaitGroup
		workOrders []mdomain.WorkOrder
		properties []mdomain.Property
		woErr      error
		propErr    error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		workOrders, woErr = h.api.WorkOrders.List(ctx)
	}()
	if !isTech {
		wg.Add(1)
		go func() {
			defer wg.Done()
			properties, propErr = h.api.Properties.List(ctx)
		}()
	}
	wg.Wait()
	if woErr != nil {
		toasts(r).Error(gateway.MessageOr(woErr, "Failed to load work orders"))
	}
	if propErr != nil {
		toasts(r).Error(gateway.MessageOr(propErr, "Failed to load properties"))
	}

	counts := mdomain.CountByStatus(workOrders)
	data := dashboardPage{
		ShowProperties:  !isTech,
		PropertiesLabel: "My Properties",
		PropertyCount:   len(properties),
		WorkOrdersLabel: "Total Work Orders",
		WorkOrderCount:  len(workOrders),
	}
	if user != nil && user.Role == userdomain.RoleAdmin {
		data.PropertiesLabel = "Total Properties"
	}
	if isTech {
		data.WorkOrdersLabel = "Assigned Work Orders"
	}
	for _, s := range mdomain.WorkOrderStatuses {
		data.StatusCounts = append(data.StatusCounts, statusCount{Status: s, Count: counts[s]})
	}
	recent := mdomain.FilterWorkOrders(workOrders, mdomain.WorkOrderFilter{})
	if len(recent) > recentWorkOrders {
		recent = recent[:recentWorkOrders]
	}
	data.Recent = recent
	h.render(w, r, http.StatusOK, "dashboard", "Dashboard", data)
}

type propertiesPage struct {
	Properties []mdomain.Property
}

// properties lists properties with their units. The list endpoint omits units, so each property's detail is fetched.
func (h *Handler) properties(w http.ResponseWriter, r *http.Request) {
	ctx := apiContext(r)
	list, err := h.api.Properties.List(ctx)
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to load properties"))
		h.render(w, r, http.StatusOK, "properties", "Properties", propertiesPage{})
		return
	}

	detailed := make([]mdomain.Property, len(list))
	errs := make([]error, len(list))
	var wg sync.WaitGroup
	for i, p := range list {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			d, err := h.api.Properties.Get(ctx, id)
			if err != nil {
				errs[i] = err
				return
			}
			detailed[i] = *d
		}(i, p.ID)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to load properties"))
			h.render(w, r, http.StatusOK, "properties", "Properties", propertiesPage{})
			return
		}
	}
	h.render(w, r, http.StatusOK, "properties", "Properties", propertiesPage{Properties: detailed})
}

func (h *Handler) createProperty(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	req := mdomain.PropertyRequest{
		Name:    form.Trim(r.PostForm, "name"),
		Address: form.Trim(r.PostForm, "address"),
		City:    form.Trim(r.PostForm, "city"),
		State:   form.Trim(r.PostForm, "state"),
		Zip:     form.Trim(r.PostForm, "zip"),
	}
	if msg := form.Check(req, form.Messages{Default: "All fields are required"}); msg != "" {
		toasts(r).Error(msg)
		seeOther(w, r, "/properties")
		return
	}
	h.guard(w, r, "property-create", func() {
		if _, err := h.api.Properties.Create(apiContext(r), req); err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to create property"))
		} else {
			toasts(r).Success("Property created!")
		}
		seeOther(w, r, "/properties")
	})
}

func (h *Handler) addUnit(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == 0 {
		toasts(r).Error("Failed to add unit")
		seeOther(w, r, "/properties")
		return
	}
	_ = r.ParseForm()
	req := mdomain.UnitRequest{UnitNumber: form.Trim(r.PostForm, "unitNumber")}
	if msg := form.Check(req, form.Messages{Default: "Unit number is required"}); msg != "" {
		toasts(r).Error(msg)
		seeOther(w, r, "/properties")
		return
	}
	h.guard(w, r, "unit-create:"+strconv.FormatInt(id, 10), func() {
		if _, err := h.api.Properties.AddUnit(apiContext(r), id, req); err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to add unit"))
		} else {
			toasts(r).Success("Unit added!")
		}
		seeOther(w, r, "/properties")
	})
}

type settingsPage struct {
	Form mdomain.CompanyRequest
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var f mdomain.CompanyRequest
	if user != nil {
		c, err := h.api.Companies.Get(apiContext(r), user.CompanyID)
		if err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to load company"))
		} else {
			f = mdomain.CompanyRequest{
				Name:    c.Name,
				Phone:   mdomain.Deref(c.Phone),
				Address: mdomain.Deref(c.Address),
				City:    mdomain.Deref(c.City),
				State:   mdomain.Deref(c.State),
				Zip:     mdomain.Deref(c.Zip),
			}
		}
	}
	h.render(w, r, http.StatusOK, "settings", "Settings", settingsPage{Form: f})
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	_ = r.ParseForm()
	req := mdomain.CompanyRequest{
		Name:    form.Trim(r.PostForm, "name"),
		Phone:   form.Trim(r.PostForm, "phone"),
		Address: form.Trim(r.PostForm, "address"),
		City:    form.Trim(r.PostForm, "city"),
		State:   form.Trim(r.PostForm, "state"),
		Zip:     form.Trim(r.PostForm, "zip"),
	}
	if msg := form.Check(req, form.Messages{Default: "Company name is required"}); msg != "" || user == nil {
		if msg == "" {
			msg = "Company name is required"
		}
		toasts(r).Error(msg)
		h.render(w, r, http.StatusUnprocessableEntity, "settings", "Settings", settingsPage{Form: req})
		return
	}
	h.guard(w, r, "settings", func() {
		if _, err := h.api.Companies.Update(apiContext(r), user.CompanyID, req); err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to save settings"))
			h.render(w, r, http.StatusUnprocessableEntity, "settings", "Settings", settingsPage{Form: req})
			return
		}
		toasts(r).Success("Company settings saved!")
		// The company name is part of the user record.
		if store, ok := session.FromContext(r.Context()); ok {
			store.RefreshUser(r.Context())
		}
		seeOther(w, r, "/settings")
	})
}
