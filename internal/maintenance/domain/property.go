package domain

// Unit is a rentable unit of a property.
type Unit struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"propertyId"`
	UnitNumber string    `json:"unitNumber"`
	CreatedAt  Timestamp `json:"createdAt"`
}

// Property is a managed property. The list endpoint omits Units; the detail endpoint includes them.
type Property struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	ManagerID int64     `json:"managerId"`
	CompanyID int64     `json:"companyId"`
	Units     []Unit    `json:"units"`
	CreatedAt Timestamp `json:"createdAt"`
}

// PropertyRequest creates or updates a property; every field is required.
type PropertyRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
}

// UnitRequest adds a unit to a property.
type UnitRequest struct {
	UnitNumber string `json:"unitNumber" validate:"required"`
}
