package handler

import (
	"net/http"
	"strconv"

	"maintenance-manager/console/internal/audit"
	"maintenance-manager/console/internal/console/form"
	"maintenance-manager/console/internal/gateway"
	mdomain "maintenance-manager/console/internal/maintenance/domain"
	"maintenance-manager/console/internal/server/middleware"
	"maintenance-manager/console/internal/session"
	userdomain "maintenance-manager/console/internal/user/domain"
)

type loginPage struct {
	Email string
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", "Sign In", loginPage{})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "no client session", http.StatusInternalServerError)
		return
	}
	_ = r.ParseForm()
	req := gateway.LoginRequest{Email: form.Trim(r.PostForm, "email"), Password: r.PostForm.Get("password")}
	data := loginPage{Email: req.Email}

	if msg := form.Check(req, form.Messages{Default: "Please fill in all fields"}); msg != "" {
		h.observeLogin("invalid")
		toasts(r).Error(msg)
		h.render(w, r, http.StatusUnprocessableEntity, "login", "Sign In", data)
		return
	}
	if h.limiter != nil {
		ip, _ := middleware.GetClientIP(r.Context())
		if !h.limiter.Allow(ip) {
			h.observeLogin("rate_limited")
			toasts(r).Error("Too many login attempts")
			h.render(w, r, http.StatusTooManyRequests, "login", "Sign In", data)
			return
		}
	}

	h.guard(w, r, "login", func() {
		res, err := h.api.Auth.Login(r.Context(), req)
		if err == nil && (res == nil || res.User == nil || res.Token == "") {
			err = &gateway.APIError{Status: http.StatusBadGateway}
		}
		if err != nil {
			h.observeLogin("failure")
			if h.audit != nil {
				h.audit.LogEvent(r.Context(), audit.SentinelCompanyID, "", "login_failure", "session", req.Email)
			}
			toasts(r).Error(gateway.MessageOr(err, "Login failed"))
			h.render(w, r, http.StatusUnprocessableEntity, "login", "Sign In", data)
			return
		}
		if err := store.Login(r.Context(), res.Token, res.User); err != nil {
			h.observeLogin("failure")
			toasts(r).Error("Login failed")
			h.render(w, r, http.StatusInternalServerError, "login", "Sign In", data)
			return
		}
		h.observeLogin("success")
		h.logEvent(r.Context(), res.User, "login", "session", "")
		toasts(r).Success("Welcome back!")
		seeOther(w, r, "/dashboard")
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if store, ok := session.FromContext(r.Context()); ok {
		user := store.State().User
		store.Logout(r.Context())
		if user != nil {
			h.logEvent(r.Context(), user, "logout", "session", "")
		}
	}
	seeOther(w, r, "/login")
}

type registerForm struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      userdomain.Role
	CompanyID int64
}

type registerPage struct {
	Form      registerForm
	Roles     []userdomain.Role
	Companies []mdomain.Company
}

var registerMessages = form.Messages{
	Fields:  map[string]string{"Password.min": "Password must be at least 6 characters"},
	Default: "Please fill in all required fields",
}

func (h *Handler) registerForm(w http.ResponseWriter, r *http.Request) {
	f := registerForm{Role: userdomain.RoleAdmin, CompanyID: form.Int64(r.URL.Query().Get("companyId"))}
	h.renderRegister(w, r, http.StatusOK, f)
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, status int, f registerForm) {
	companies, err := h.api.Companies.List(r.Context())
	if err != nil {
		toasts(r).Error(gateway.MessageOr(err, "Failed to load companies"))
	}
	if f.CompanyID == 0 && len(companies) > 0 {
		f.CompanyID = companies[0].ID
	}
	h.render(w, r, status, "register", "Create Account", registerPage{Form: f, Roles: userdomain.Roles, Companies: companies})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "no client session", http.StatusInternalServerError)
		return
	}
	_ = r.ParseForm()
	role, _ := userdomain.ParseRole(r.PostForm.Get("role"))
	req := gateway.RegisterRequest{
		FirstName: form.Trim(r.PostForm, "firstName"),
		LastName:  form.Trim(r.PostForm, "lastName"),
		Email:     form.Trim(r.PostForm, "email"),
		Password:  r.PostForm.Get("password"),
		Phone:     form.Trim(r.PostForm, "phone"),
		Role:      role,
		CompanyID: form.Int64(r.PostForm.Get("companyId")),
	}
	f := registerForm{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email, Phone: req.Phone, Role: role, CompanyID: req.CompanyID}

	if msg := form.Check(req, registerMessages); msg != "" {
		toasts(r).Error(msg)
		h.renderRegister(w, r, http.StatusUnprocessableEntity, f)
		return
	}

	h.guard(w, r, "register", func() {
		res, err := h.api.Auth.Register(r.Context(), req)
		if err == nil && (res == nil || res.User == nil || res.Token == "") {
			err = &gateway.APIError{Status: http.StatusBadGateway}
		}
		if err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Registration failed"))
			h.renderRegister(w, r, http.StatusUnprocessableEntity, f)
			return
		}
		if err := store.Login(r.Context(), res.Token, res.User); err != nil {
			toasts(r).Error("Registration failed")
			h.renderRegister(w, r, http.StatusInternalServerError, f)
			return
		}
		h.logEvent(r.Context(), res.User, "register", "account", "")
		toasts(r).Success("Account created!")
		seeOther(w, r, "/dashboard")
	})
}

func (h *Handler) registerCompany(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	req := mdomain.CompanyRequest{Name: form.Trim(r.PostForm, "name")}
	if msg := form.Check(req, form.Messages{Default: "Company name is required"}); msg != "" {
		toasts(r).Error(msg)
		seeOther(w, r, "/register")
		return
	}
	h.guard(w, r, "register-company", func() {
		co, err := h.api.Companies.Create(r.Context(), req)
		if err != nil {
			toasts(r).Error(gateway.MessageOr(err, "Failed to create company"))
			seeOther(w, r, "/register")
			return
		}
		toasts(r).Success("Company created!")
		seeOther(w, r, "/register?companyId="+strconv.FormatInt(co.ID, 10))
	})
}
