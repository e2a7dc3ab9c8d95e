package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Campaign{},
	&Character{},
	&Vehicle{},
	&Site{},
	&Fight{},
	&Location{},
	&LocationConnection{},
	&Shot{},
	&ChaseRelationship{},
	&CharacterEffect{},
	&FightEvent{},
}

// newID fills an unset primary key. SQLite has no gen_random_uuid, so ids
// are always generated application-side.
func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

////////////////////////
// TEMPLATE MODELS
////////////////////////

// Campaign owns every other record
type Campaign struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (*Campaign) TableName() string {
	return "campaigns"
}

func (c *Campaign) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

// Character is a template that shots place into fights
type Character struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CampaignID uuid.UUID `json:"campaignId" gorm:"type:uuid;not null;index"`
	Campaign   *Campaign `json:"-" gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE;"`
	Name       string    `json:"name" gorm:"size:255;not null"`
	Active     bool      `json:"active" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (*Character) TableName() string {
	return "characters"
}

func (c *Character) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

// Vehicle is a template that shots place into fights
type Vehicle struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CampaignID uuid.UUID `json:"campaignId" gorm:"type:uuid;not null;index"`
	Campaign   *Campaign `json:"-" gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE;"`
	Name       string    `json:"name" gorm:"size:255;not null"`
	Active     bool      `json:"active" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

func (v *Vehicle) BeforeCreate(*gorm.DB) error {
	newID(&v.ID)
	return nil
}

// Site is a reusable place whose locations can be copied into fights
type Site struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CampaignID uuid.UUID `json:"campaignId" gorm:"type:uuid;not null;index"`
	Campaign   *Campaign `json:"-" gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE;"`
	Name       string    `json:"name" gorm:"size:255;not null"`
	Active     bool      `json:"active" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (*Site) TableName() string {
	return "sites"
}

func (s *Site) BeforeCreate(*gorm.DB) error {
	newID(&s.ID)
	return nil
}

////////////////////////
// ENCOUNTER MODELS
////////////////////////

// Fight is one combat encounter. It is never hard-deleted; Active is the
// soft-delete flag.
type Fight struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	CampaignID  uuid.UUID  `json:"campaignId" gorm:"type:uuid;not null;index"`
	Campaign    *Campaign  `json:"-" gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE;"`
	Name        string     `json:"name" gorm:"size:255;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Sequence    int        `json:"sequence" gorm:"not null;default:0"`
	StartedAt   *time.Time `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt"`
	Active      bool       `json:"active" gorm:"not null;index"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (*Fight) TableName() string {
	return "fights"
}

func (f *Fight) BeforeCreate(*gorm.DB) error {
	newID(&f.ID)
	return nil
}

// Shot is one participant-instance inside a fight. The same character or
// vehicle may appear in many shots.
//
// DriverID and DrivingID are inverse pointers: a character shot's DrivingID
// names the vehicle shot it drives, that vehicle shot's DriverID names it back.
type Shot struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	FightID            uuid.UUID  `json:"fightId" gorm:"type:uuid;not null;index"`
	Fight              *Fight     `json:"-" gorm:"foreignKey:FightID;constraint:OnDelete:CASCADE;"`
	CharacterID        *uuid.UUID `json:"characterId" gorm:"type:uuid;index"`
	Character          *Character `json:"-" gorm:"foreignKey:CharacterID;constraint:OnDelete:CASCADE;"`
	VehicleID          *uuid.UUID `json:"vehicleId" gorm:"type:uuid;index"`
	Vehicle            *Vehicle   `json:"-" gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE;"`
	Shot               *int       `json:"shot"` // nil until initiative is rolled
	Impairments        int        `json:"impairments" gorm:"not null;default:0;check:chk_shots_impairments,impairments >= 0"`
	Count              int        `json:"count" gorm:"not null;default:0"`
	Acted              bool       `json:"acted" gorm:"not null"`
	DriverID           *uuid.UUID `json:"driverId" gorm:"type:uuid;index"`
	Driver             *Shot      `json:"-" gorm:"foreignKey:DriverID;constraint:OnDelete:SET NULL;"`
	DrivingID          *uuid.UUID `json:"drivingId" gorm:"type:uuid;index"`
	Driving            *Shot      `json:"-" gorm:"foreignKey:DrivingID;constraint:OnDelete:SET NULL;"`
	LocationID         *uuid.UUID `json:"locationId" gorm:"type:uuid;index"`
	Location           *Location  `json:"-" gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL;"`
	WasRammedOrDamaged bool       `json:"wasRammedOrDamaged" gorm:"not null"`
	CreatedAt          time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (*Shot) TableName() string {
	return "shots"
}

func (s *Shot) BeforeCreate(*gorm.DB) error {
	newID(&s.ID)
	return nil
}

// TemplateID returns the character or vehicle id the shot instantiates.
func (s *Shot) TemplateID() *uuid.UUID {
	if s.CharacterID != nil {
		return s.CharacterID
	}
	return s.VehicleID
}

// Chase positions
const (
	PositionNear = "near"
	PositionFar  = "far"
)

// ChaseRelationship is a directed pursuer/evader edge between two shots.
// At most one active row may exist per (pursuer, evader, fight); the partial
// unique index enforcing that is created by database.Setup.
type ChaseRelationship struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FightID   uuid.UUID `json:"fightId" gorm:"type:uuid;not null;index"`
	Fight     *Fight    `json:"-" gorm:"foreignKey:FightID;constraint:OnDelete:CASCADE;"`
	PursuerID uuid.UUID `json:"pursuerId" gorm:"type:uuid;not null;index;check:chk_chase_not_self,pursuer_id <> evader_id"`
	Pursuer   *Shot     `json:"-" gorm:"foreignKey:PursuerID;constraint:OnDelete:CASCADE;"`
	EvaderID  uuid.UUID `json:"evaderId" gorm:"type:uuid;not null;index"`
	Evader    *Shot     `json:"-" gorm:"foreignKey:EvaderID;constraint:OnDelete:CASCADE;"`
	Position  string    `json:"position" gorm:"size:8;not null;default:far;check:chk_chase_position,position IN ('near','far')"`
	Active    bool      `json:"active" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (*ChaseRelationship) TableName() string {
	return "chase_relationships"
}

func (c *ChaseRelationship) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

// CharacterEffect is a timed modifier. It expires at (EndSequence, EndShot)
// in initiative clock coordinates; a nil EndSequence never expires.
type CharacterEffect struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ShotID      *uuid.UUID `json:"shotId" gorm:"type:uuid;index"`
	Shot        *Shot      `json:"-" gorm:"foreignKey:ShotID;constraint:OnDelete:CASCADE;"`
	CharacterID *uuid.UUID `json:"characterId" gorm:"type:uuid;index"`
	Character   *Character `json:"-" gorm:"foreignKey:CharacterID;constraint:OnDelete:CASCADE;"`
	VehicleID   *uuid.UUID `json:"vehicleId" gorm:"type:uuid;index"`
	Vehicle     *Vehicle   `json:"-" gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE;"`
	Name        string     `json:"name" gorm:"size:255"`
	Description string     `json:"description" gorm:"type:text"`
	Severity    string     `json:"severity" gorm:"size:16"`
	ActionValue string     `json:"actionValue" gorm:"size:64"`
	Change      string     `json:"change" gorm:"size:32"`
	EndSequence *int       `json:"endSequence"`
	EndShot     *int       `json:"endShot"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (*CharacterEffect) TableName() string {
	return "character_effects"
}

func (e *CharacterEffect) BeforeCreate(*gorm.DB) error {
	newID(&e.ID)
	return nil
}

// Location is a named place scoped to exactly one of a fight or a site.
// Names are unique per scope, case-insensitively (see database.Setup).
type Location struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	FightID      *uuid.UUID `json:"fightId" gorm:"type:uuid;index;check:chk_locations_scope,(fight_id IS NULL) <> (site_id IS NULL)"`
	Fight        *Fight     `json:"-" gorm:"foreignKey:FightID;constraint:OnDelete:CASCADE;"`
	SiteID       *uuid.UUID `json:"siteId" gorm:"type:uuid;index"`
	Site         *Site      `json:"-" gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE;"`
	Name         string     `json:"name" gorm:"size:255;not null"`
	Description  string     `json:"description" gorm:"type:text"`
	PositionX    *float64   `json:"positionX"`
	PositionY    *float64   `json:"positionY"`
	Width        *float64   `json:"width"`
	Height       *float64   `json:"height"`
	CopiedFromID *uuid.UUID `json:"copiedFromId" gorm:"type:uuid;index"`
	CopiedFrom   *Location  `json:"-" gorm:"foreignKey:CopiedFromID;constraint:OnDelete:SET NULL;"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (*Location) TableName() string {
	return "locations"
}

func (l *Location) BeforeCreate(*gorm.DB) error {
	newID(&l.ID)
	return nil
}

// LocationConnection is an edge between two locations. Parallel edges are
// allowed.
type LocationConnection struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FromLocationID uuid.UUID `json:"fromLocationId" gorm:"type:uuid;not null;index"`
	FromLocation   *Location `json:"-" gorm:"foreignKey:FromLocationID;constraint:OnDelete:CASCADE;"`
	ToLocationID   uuid.UUID `json:"toLocationId" gorm:"type:uuid;not null;index"`
	ToLocation     *Location `json:"-" gorm:"foreignKey:ToLocationID;constraint:OnDelete:CASCADE;"`
	Bidirectional  bool      `json:"bidirectional" gorm:"not null"`
	Label          *string   `json:"label" gorm:"size:255"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (*LocationConnection) TableName() string {
	return "location_connections"
}

func (c *LocationConnection) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

// FightEvent is one entry of a fight's history
type FightEvent struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	FightID     uuid.UUID      `json:"fightId" gorm:"type:uuid;not null;index"`
	Fight       *Fight         `json:"-" gorm:"foreignKey:FightID;constraint:OnDelete:CASCADE;"`
	EventType   string         `json:"eventType" gorm:"size:64;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Details     datatypes.JSON `json:"details"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"index"`
}

func (*FightEvent) TableName() string {
	return "fight_events"
}

func (e *FightEvent) BeforeCreate(*gorm.DB) error {
	newID(&e.ID)
	return nil
}
