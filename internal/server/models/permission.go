package models

// Role is the coarse per-session role assigned by the session layer.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleCoOwner     Role = "co_owner"
	RoleTrusted     Role = "trusted"
	RoleParticipant Role = "participant"
	RoleObserver    Role = "observer"
)

// Capabilities is the fixed capability tuple derived from a role.
type Capabilities struct {
	CanUpload   bool
	CanDownload bool
	CanShare    bool
	CanModerate bool
}
