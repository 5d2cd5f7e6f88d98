package domain

import "time"

// Lead is a contact record. Leads are immutable once created except through
// bulk import, which replaces the record wholesale.
type Lead struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Company   string    `json:"company" db:"company"`
	Category  string    `json:"category" db:"category"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Audience is a named group of leads targeted by campaigns.
type Audience struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AudienceLead is the many-to-many join between audiences and leads.
// Deleting an audience cascades to its join rows.
type AudienceLead struct {
	AudienceID string    `json:"audience_id" db:"audience_id"`
	LeadID     string    `json:"lead_id" db:"lead_id"`
	AddedAt    time.Time `json:"added_at" db:"added_at"`
	AddedBy    string    `json:"added_by" db:"added_by"`
}
