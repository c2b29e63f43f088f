package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Roles        []string  `json:"roles"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SessionRecord struct {
	ID         string
	UserID     int64
	Username   string
	Roles      []string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}
