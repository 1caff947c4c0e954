package domain

import "strings"

// FeedRow is one raw row of the feed snapshot, keyed by CSV header.
type FeedRow map[string]string

// Feed column names as they appear in the SODA export.
const (
	ColSourceID        = ":id"
	ColSourceCreatedAt = ":created_at"
	ColSourceUpdatedAt = ":updated_at"
	ColSourceVersion   = ":version"
	ColCategory        = "crimetype"
	ColOccurredAt      = "datetime"
	ColCaseNumber      = "casenumber"
	ColDescription     = "description"
	ColBeat            = "policebeat"
	ColAddress         = "address"
	ColCity            = "city"
	ColState           = "state"
	ColLocation        = "location_1"
)

// IdentityColumns are the feed columns that make up an incident's identity.
// A snapshot missing any of them is malformed.
var IdentityColumns = []string{
	ColCategory,
	ColOccurredAt,
	ColCaseNumber,
	ColDescription,
	ColBeat,
	ColAddress,
	ColCity,
	ColState,
	ColLocation,
}

// Incident is one stored incident record. Nil pointers are absent values.
type Incident struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	SourceID        *string `gorm:"column:soda_id" json:"soda_id,omitempty"`
	SourceCreatedAt *string `gorm:"column:soda_created_at" json:"soda_created_at,omitempty"`
	SourceUpdatedAt *string `gorm:"column:soda_updated_at" json:"soda_updated_at,omitempty"`
	SourceVersion   *string `gorm:"column:soda_version" json:"soda_version,omitempty"`
	Category        *string `gorm:"column:crimetype" json:"crimetype,omitempty"`
	OccurredAt      *string `gorm:"column:datetime;index" json:"datetime,omitempty"`
	CaseNumber      *string `gorm:"column:casenumber" json:"casenumber,omitempty"`
	Description     *string `gorm:"column:description" json:"description,omitempty"`
	Beat            *string `gorm:"column:policebeat" json:"policebeat,omitempty"`
	Address         *string `gorm:"column:address" json:"address,omitempty"`
	City            *string `gorm:"column:city" json:"city,omitempty"`
	State           *string `gorm:"column:state" json:"state,omitempty"`
	Location        *string `gorm:"column:location_1" json:"location_1,omitempty"`
	AccessedAt      string  `gorm:"column:accessed_at;not null;index" json:"accessed_at"`
	// ModifiedAt is reserved for mutation tracking and is never set on insert.
	ModifiedAt *string `gorm:"column:updated_at" json:"updated_at,omitempty"`
}

// TableName pins the gorm table name.
func (Incident) TableName() string { return "incidents" }

// FromFeedRow maps a feed row onto the stored schema, stamping it with accessedAt.
func FromFeedRow(row FeedRow, accessedAt string) Incident {
	return Incident{
		SourceID:        optional(row[ColSourceID]),
		SourceCreatedAt: optional(row[ColSourceCreatedAt]),
		SourceUpdatedAt: optional(row[ColSourceUpdatedAt]),
		SourceVersion:   optional(row[ColSourceVersion]),
		Category:        optional(row[ColCategory]),
		OccurredAt:      optional(row[ColOccurredAt]),
		CaseNumber:      optional(row[ColCaseNumber]),
		Description:     optional(row[ColDescription]),
		Beat:            optional(row[ColBeat]),
		Address:         optional(row[ColAddress]),
		City:            optional(row[ColCity]),
		State:           optional(row[ColState]),
		Location:        optional(row[ColLocation]),
		AccessedAt:      accessedAt,
	}
}

// optional returns nil for blank cells so "" and missing compare equal.
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Text returns the value or "" when absent.
func Text(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// field is a comparable optional string.
type field struct {
	value   string
	present bool
}

func fieldOf(p *string) field {
	if p == nil || strings.TrimSpace(*p) == "" {
		return field{}
	}
	return field{value: *p, present: true}
}

// IdentityKey identifies a real-world incident independent of when it was observed.
type IdentityKey struct {
	category    field
	occurredAt  field
	caseNumber  field
	description field
	beat        field
	address     field
	city        field
	state       field
	location    field
}

// Key returns the incident's identity key.
func (i Incident) Key() IdentityKey {
	return IdentityKey{
		category:    fieldOf(i.Category),
		occurredAt:  fieldOf(i.OccurredAt),
		caseNumber:  fieldOf(i.CaseNumber),
		description: fieldOf(i.Description),
		beat:        fieldOf(i.Beat),
		address:     fieldOf(i.Address),
		city:        fieldOf(i.City),
		state:       fieldOf(i.State),
		location:    fieldOf(i.Location),
	}
}

// Batch is the set of incidents sharing the newest accessed_at in the store.
// An empty AccessedAt means the store holds no incidents.
type Batch struct {
	AccessedAt string
	Incidents  []Incident
}

// Empty reports whether the store had no incidents at all.
func (b Batch) Empty() bool { return b.AccessedAt == "" }
