package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// UserType is the coarse role category used for routing decisions.
type UserType string

const (
	UserTypeSchool  UserType = "school"
	UserTypeCompany UserType = "company"
	UserTypeStudent UserType = "student"
	UserTypeUnknown UserType = ""
)

// Valid reports whether t is one of the three routable categories.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeSchool, UserTypeCompany, UserTypeStudent:
		return true
	}
	return false
}

// Raw role strings as reported by the remote API.
const (
	RoleSchoolAdmin  = "school_admin"
	RoleCompanyAdmin = "company_admin"
	RoleUser         = "user"
	RoleAdmin        = "admin"
)

// ID is a remote identifier. The API is not consistent about sending ids as
// numbers or strings, so both decode into the same value.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int returns the numeric form of id, or 0 when it is not numeric.
func (id ID) Int() int64 {
	n, _ := strconv.ParseInt(string(id), 10, 64)
	return n
}

type Organization struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type AccountUser struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserProfile is the user/organization payload returned by sign-in and by the
// current-user endpoint.
type UserProfile struct {
	User    *AccountUser  `json:"user"`
	School  *Organization `json:"school,omitempty"`
	Company *Organization `json:"company,omitempty"`
}

// ManagedUser is a row of the users list shown to admins.
type ManagedUser struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
