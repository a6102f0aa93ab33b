package model

import (
	"strings"
	"time"

	gutils "github.com/Laisky/go-utils/v6"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UsersCollection is the collection holding registered users.
const UsersCollection = "users"

// User is a registered account, immutable after registration.
type User struct {
	// ID unique identifier for the user
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// Email login account, unique across all users
	Email string `bson:"email" json:"email"`
	// PasswordHash bcrypt hash of the password
	PasswordHash string    `bson:"password" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// NewUser create a new user with a fresh id
func NewUser(email, passwordHash string) *User {
	return &User{
		ID:           primitive.NewObjectID(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    gutils.Clock.GetUTCNow(),
	}
}

// NormalizeEmail trims and lower-cases an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
