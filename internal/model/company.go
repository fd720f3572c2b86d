package model

import "time"

// Company is a vaccination center that users book appointments with.
// Bookings is never stored; it is filled by a reverse lookup on
// bookings.company_id when companies are listed.
type Company struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name" validate:"required,max=50"`
	Address     string    `json:"address" validate:"required"`
	District    string    `json:"district" validate:"required"`
	Province    string    `json:"province" validate:"required"`
	PostalCode  string    `json:"postalcode" validate:"required,max=5"`
	Website     string    `json:"website" validate:"required"`
	Description string    `json:"description" validate:"required,max=200"`
	Tel         string    `json:"tel,omitempty"`
	Region      string    `json:"region" validate:"required"`
	CreatedAt   time.Time `json:"createdAt"`
	Bookings    []Booking `json:"bookings,omitempty" validate:"-"`
}

// CompanyPatch is a partial company update. Nil fields are left unchanged;
// present fields obey the same limits as on create.
type CompanyPatch struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=50"`
	Address     *string `json:"address" validate:"omitnil,min=1"`
	District    *string `json:"district" validate:"omitnil,min=1"`
	Province    *string `json:"province" validate:"omitnil,min=1"`
	PostalCode  *string `json:"postalcode" validate:"omitnil,min=1,max=5"`
	Website     *string `json:"website" validate:"omitnil,min=1"`
	Description *string `json:"description" validate:"omitnil,min=1,max=200"`
	Tel         *string `json:"tel"`
	Region      *string `json:"region" validate:"omitnil,min=1"`
}

// Apply copies the present fields of p onto c.
func (p CompanyPatch) Apply(c *Company) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Name, p.Name)
	set(&c.Address, p.Address)
	set(&c.District, p.District)
	set(&c.Province, p.Province)
	set(&c.PostalCode, p.PostalCode)
	set(&c.Website, p.Website)
	set(&c.Description, p.Description)
	set(&c.Tel, p.Tel)
	set(&c.Region, p.Region)
}

// Project renders the company with only the selected JSON fields. The id
// and the expanded bookings are always included.
func (c Company) Project(selected func(name string) bool) map[string]any {
	all := map[string]any{
		"name":        c.Name,
		"address":     c.Address,
		"district":    c.District,
		"province":    c.Province,
		"postalcode":  c.PostalCode,
		"website":     c.Website,
		"description": c.Description,
		"tel":         c.Tel,
		"region":      c.Region,
		"createdAt":   c.CreatedAt,
	}
	out := map[string]any{"id": c.ID}
	for k, v := range all {
		if selected(k) {
			out[k] = v
		}
	}
	bookings := c.Bookings
	if bookings == nil {
		bookings = []Booking{}
	}
	out["bookings"] = bookings
	return out
}

// CompanySummary is the subset of company fields embedded in booking views.
type CompanySummary struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Province    string `json:"province,omitempty"`
	Description string `json:"description,omitempty"`
	Tel         string `json:"tel,omitempty"`
}
