package models

// PageSize is fixed for every paginated list.
const PageSize = 10

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

// NormalizePagination fills the defaults used when the server omits or
// zeroes pagination fields: page 1 of 1 with no items.
func NormalizePagination(p *Pagination) Pagination {
	out := Pagination{CurrentPage: 1, TotalPages: 1}
	if p == nil {
		return out
	}
	if p.CurrentPage > 0 {
		out.CurrentPage = p.CurrentPage
	}
	if p.TotalPages > 0 {
		out.TotalPages = p.TotalPages
	}
	if p.TotalItems > 0 {
		out.TotalItems = p.TotalItems
	}
	return out
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpPayload covers the three registration shapes. School and company
// registrations nest the admin user; students register flat.
type SignUpPayload struct {
	UserType UserType      `json:"userType"`
	School   *Organization `json:"school,omitempty"`
	Company  *Organization `json:"company,omitempty"`
	User     *SignUpUser   `json:"user,omitempty"`
	Name     string        `json:"name,omitempty"`
	Email    string        `json:"email,omitempty"`
	Password string        `json:"password,omitempty"`
	SchoolID ID            `json:"schoolId,omitempty"`
	Premium  bool          `json:"premium,omitempty"`
}

type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
