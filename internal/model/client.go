package model

import (
	"time"
)

// ClientType distinguishes natural persons from legal entities.
type ClientType string

const (
	ClientTypeIndividual ClientType = "individual"
	ClientTypeBusiness   ClientType = "business"
)

// Client represents the natural person or legal entity behind an account.
type Client struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	FullName       string     `json:"full_name" gorm:"size:255;not null"`
	BirthDate      time.Time  `json:"birth_date" gorm:"type:date;not null"`
	PassportNumber string     `json:"passport_number" gorm:"uniqueIndex;size:64;not null"`
	Address        string     `json:"address,omitempty" gorm:"size:255"`
	Phone          string     `json:"phone,omitempty" gorm:"size:32"`
	ClientType     ClientType `json:"client_type" gorm:"type:varchar(20);not null;default:'individual'"`
	IsMinor        bool       `json:"is_minor" gorm:"default:false"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
