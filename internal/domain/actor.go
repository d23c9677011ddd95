package domain

import "github.com/google/uuid"

type ActorKind string

const (
	ActorUser     ActorKind = "user"
	ActorHospital ActorKind = "hospital"
	ActorAdmin    ActorKind = "admin"
	ActorSystem   ActorKind = "system"
)

func (k ActorKind) IsValid() bool {
	switch k {
	case ActorUser, ActorHospital, ActorAdmin:
		return true
	}
	return false
}

// Actor is the already-authenticated caller. It is passed explicitly into
// every core operation; nothing in the core reads identity from elsewhere.
type Actor struct {
	Kind     ActorKind `json:"kind"`
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username,omitempty"`
	Name     string    `json:"name,omitempty"`
}

func (a Actor) IsHospital() bool { return a.Kind == ActorHospital }
func (a Actor) IsAdmin() bool    { return a.Kind == ActorAdmin }
func (a Actor) IsUser() bool     { return a.Kind == ActorUser }

// OwnsHospital reports whether the actor acts for hospitalID.
func (a Actor) OwnsHospital(hospitalID uuid.UUID) bool {
	return a.Kind == ActorHospital && a.ID == hospitalID
}

// CanManageHospital is true for the owning hospital and for admins.
func (a Actor) CanManageHospital(hospitalID uuid.UUID) bool {
	return a.IsAdmin() || a.OwnsHospital(hospitalID)
}

func HospitalActor(id uuid.UUID, username string) Actor {
	return Actor{Kind: ActorHospital, ID: id, Username: username}
}

func UserActor(id uuid.UUID, email string) Actor {
	return Actor{Kind: ActorUser, ID: id, Email: email}
}

// SystemActor attributes background work such as the expiry sweep.
var SystemActor = Actor{Kind: ActorSystem}

func AdminActor(id uuid.UUID, email string) Actor {
	return Actor{Kind: ActorAdmin, ID: id, Email: email}
}
