package model

import "fmt"

// Role is the local UI mode a user picked. It is informational only and
// never an access-control boundary.
type Role int

const (
	RoleUnselected Role = iota
	RolePatient
	RoleCaretaker
)

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "patient"
	case RoleCaretaker:
		return "caretaker"
	default:
		return ""
	}
}

// Selected reports whether a concrete role has been chosen.
func (r Role) Selected() bool {
	return r == RolePatient || r == RoleCaretaker
}

// ParseRole parses "patient", "caretaker" or "" (unselected).
func ParseRole(s string) (Role, error) {
	switch s {
	case "patient":
		return RolePatient, nil
	case "caretaker":
		return RoleCaretaker, nil
	case "":
		return RoleUnselected, nil
	}
	return RoleUnselected, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
