package user

// Role discriminates the two portals.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// User is a logged-in identity. There is no user table: students identify
// themselves by Dapodik name + class, gated by the shared access PIN.
type User struct {
	Name    string `json:"name"`
	ClassID string `json:"className,omitempty"`
	Role    Role   `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
