// Package core holds the hydrated fight view handed to broadcast
// collaborators. It has no storage dependencies.
package core

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle is inferred from a fight's started/ended timestamps.
type Lifecycle string

const (
	LifecycleUnstarted Lifecycle = "unstarted"
	LifecycleStarted   Lifecycle = "started"
	LifecycleEnded     Lifecycle = "ended"
)

// Fight is a fully hydrated combat encounter
type Fight struct {
	ID          uuid.UUID            `json:"id"`
	CampaignID  uuid.UUID            `json:"campaignId"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Sequence    int                  `json:"sequence"`
	StartedAt   *time.Time           `json:"startedAt"`
	EndedAt     *time.Time           `json:"endedAt"`
	Active      bool                 `json:"active"`
	Lifecycle   Lifecycle            `json:"lifecycle"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Shots       []Shot               `json:"shots"`
	Chases      []ChaseRelationship  `json:"chases"`
	Locations   []Location           `json:"locations"`
	Connections []LocationConnection `json:"connections"`
}

// Template is the character or vehicle a shot instantiates
type Template struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Shot is one participant-instance with its associations resolved
type Shot struct {
	ID                 uuid.UUID  `json:"id"`
	Shot               *int       `json:"shot"`
	Impairments        int        `json:"impairments"`
	Count              int        `json:"count"`
	Acted              bool       `json:"acted"`
	WasRammedOrDamaged bool       `json:"wasRammedOrDamaged"`
	Character          *Template  `json:"character,omitempty"`
	Vehicle            *Template  `json:"vehicle,omitempty"`
	DriverID           *uuid.UUID `json:"driverId"`
	DrivingID          *uuid.UUID `json:"drivingId"`
	LocationID         *uuid.UUID `json:"locationId"`
	Effects            []Effect   `json:"effects"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Effect is a live (non-expired) status effect
type Effect struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	ActionValue string    `json:"actionValue"`
	Change      string    `json:"change"`
	EndSequence *int      `json:"endSequence"`
	EndShot     *int      `json:"endShot"`
}

// ChaseRelationship is an active pursuer/evader edge
type ChaseRelationship struct {
	ID        uuid.UUID `json:"id"`
	PursuerID uuid.UUID `json:"pursuerId"`
	EvaderID  uuid.UUID `json:"evaderId"`
	Position  string    `json:"position"`
	Active    bool      `json:"active"`
}

// Location is a named place within the fight
type Location struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	PositionX    *float64   `json:"positionX"`
	PositionY    *float64   `json:"positionY"`
	Width        *float64   `json:"width"`
	Height       *float64   `json:"height"`
	CopiedFromID *uuid.UUID `json:"copiedFromId"`
}

// LocationConnection is an edge between two locations
type LocationConnection struct {
	ID             uuid.UUID `json:"id"`
	FromLocationID uuid.UUID `json:"fromLocationId"`
	ToLocationID   uuid.UUID `json:"toLocationId"`
	Bidirectional  bool      `json:"bidirectional"`
	Label          *string   `json:"label"`
}
