package session

import "github.com/eduadmin/authcore/permission"

// Session is the record one store slot holds for an authenticated
// principal. Mask is a snapshot of the role's permission catalog entry at
// login time; it never tracks later catalog changes.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	SlotID      string
	UserID      string
	Role        string
	DisplayName string

	Mask permission.Mask64

	// Token is the per-session opaque token handed to the client for
	// state-changing form verification.
	Token string

	LoginAt      int64
	LastActivity int64
}
