package model

import "time"

// Role is the closed set of caller roles recognised by the platform.
// Authorization decisions compare against these values only; any other
// string carried in a token is rejected by the role middleware.
type Role string

const (
    RoleUser   Role = "USER"   // regular attendee, may RSVP and pay
    RoleArtist Role = "ARTIST" // publishes shows and views attendee lists
    RoleAdmin  Role = "ADMIN"  // full access, may cancel any RSVP
)

// ParseRole normalises a raw role string to a Role.  Unknown values
// return false so callers can fall back to a default or reject.
func ParseRole(s string) (Role, bool) {
    switch Role(s) {
    case RoleUser, RoleArtist, RoleAdmin:
        return Role(s), true
    }
    return "", false
}

// User represents an application user record as stored in the `users`
// table.  Artists and admins are users with an elevated role; there is
// no separate artist table, artist profile fields live here.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name (for artists, the act name).
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – USER, ARTIST or ADMIN.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Name         string    // users.name
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         Role      // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
