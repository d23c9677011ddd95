package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"full_name" db:"full_name"`
	BloodType    *BloodType `json:"blood_type,omitempty" db:"blood_type"`
	Phone        *string    `json:"phone,omitempty" db:"phone"`
	Address      *string    `json:"address,omitempty" db:"address"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"-" db:"deleted_at"`
}

type Hospital struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Location     string    `json:"location" db:"location"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Admin struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type CreateUserInput struct {
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=8"`
	FullName  string     `json:"full_name" validate:"required,min=2"`
	BloodType *BloodType `json:"blood_type,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Address   *string    `json:"address,omitempty"`
}

type UpdateUserInput struct {
	FullName  *string    `json:"full_name,omitempty" validate:"omitempty,min=2"`
	BloodType *BloodType `json:"blood_type,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Address   *string    `json:"address,omitempty"`
}

type LoginInput struct {
	// Identifier is an email for users and admins, a username for hospitals.
	Identifier string    `json:"identifier" validate:"required"`
	Password   string    `json:"password" validate:"required"`
	Kind       ActorKind `json:"kind"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type CreateHospitalInput struct {
	Username string  `json:"username" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Location string  `json:"location"`
	Phone    *string `json:"phone,omitempty"`
}

// Profile is the authenticated caller's own record. Exactly one of the
// pointers is set, matching Kind.
type Profile struct {
	Kind     ActorKind `json:"kind"`
	User     *User     `json:"user,omitempty"`
	Hospital *Hospital `json:"hospital,omitempty"`
	Admin    *Admin    `json:"admin,omitempty"`
}
