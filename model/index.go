package model

import "time"

type DTO struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"deletedAt,omitempty"`
}

// Actor is the single identity shape every handler works with, built from
// the JWT at the HTTP boundary. Upstream tokens carry the user id under
// different claim names; middleware normalizes them here.
type Actor struct {
	UserID   uint   `json:"userId"`
	Email    string `json:"email"`
	Role     string `json:"role"` // user, organizer, validator, admin
	IsSystem bool   `json:"isSystem"`
}

const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleValidator = "validator"
	RoleAdmin     = "admin"
)

type Pagination struct {
	Limit *int `query:"limit" json:"limit"`
	Page  *int `query:"page" json:"page"`
}

// ClientMeta is echoed into transaction metadata for dispute trails.
type ClientMeta struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}
