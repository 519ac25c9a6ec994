package database

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Department   string
	Position     string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type PendingUser struct {
	ID              uuid.UUID
	Name            string
	Email           string
	PasswordHash    string
	Role            string
	Status          string
	RequestedAt     time.Time
	ReviewedAt      *time.Time
	ReviewedBy      *uuid.UUID
	RejectionReason string
}

type PasswordReset struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

type LedgerEntry struct {
	ID                uuid.UUID
	EntryDate         string
	SortDate          *time.Time
	ReceivableVp      float64
	PayableVp         float64
	ReceivableTgn     float64
	PayableTgn        float64
	TotalReceivable   float64
	TotalPayable      float64
	DailyBalance      float64
	CumulativeBalance float64
	UploadedBy        uuid.UUID
	SourceFileName    string
	UploadedAt        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
