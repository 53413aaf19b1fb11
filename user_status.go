package credentials

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDisabled  UserStatus = "disabled"
	UserStatusArchived  UserStatus = "archived"
)

// EnsureStatus fills in the status for records created before it was tracked.
func (u *User) EnsureStatus() {
	if u == nil || u.Status != "" {
		return
	}
	if u.ActivatedAt != nil {
		u.Status = UserStatusActive
		return
	}
	u.Status = UserStatusPending
}

// IsPending reports whether the account still awaits activation.
func (u *User) IsPending() bool {
	return u != nil && u.Status == UserStatusPending
}

// IsSuspended reports whether the account is suspended.
func (u *User) IsSuspended() bool {
	return u != nil && u.Status == UserStatusSuspended
}
