package model

// Role names stored in the users table.  "admin" may force-write any slot,
// "free" may book the privileged pre-dawn group, "user" may not.
const (
	RoleAdmin = "admin"
	RoleFree  = "free"
	RoleUser  = "user"
)

// User mirrors the 'users' table.  PasswordHash holds a bcrypt hash; the
// plaintext is never stored.  AllowedHours is the user's quota: the ceiling
// on how many slots the user may hold at once.
type User struct {
	Username     string // users.username (primary key)
	PasswordHash string // users.password
	AllowedHours int    // users.allowed_hours
	Role         string // users.role
}
