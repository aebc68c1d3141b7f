package model

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// User is an operator account. Authentication lives outside this service; the
// table exists so review notifications have recipients.
type User struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Role  string `json:"role" db:"role"`
	Ctime int64  `json:"ctime" db:"ctime"`
}
