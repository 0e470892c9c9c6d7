package models

import "time"

// CompetitionLevel is the prestige tier of a competition, A being the highest.
type CompetitionLevel string

const (
	LevelA CompetitionLevel = "A"
	LevelB CompetitionLevel = "B"
	LevelC CompetitionLevel = "C"
	LevelD CompetitionLevel = "D"
	LevelE CompetitionLevel = "E"
)

// CompetitionLevels lists tiers from highest to lowest.
var CompetitionLevels = []CompetitionLevel{LevelA, LevelB, LevelC, LevelD, LevelE}

// Valid reports whether l is a known tier.
func (l CompetitionLevel) Valid() bool {
	for _, lv := range CompetitionLevels {
		if lv == l {
			return true
		}
	}
	return false
}

// Rank returns 0 for A through 4 for E, or -1 when unknown.
func (l CompetitionLevel) Rank() int {
	for i, lv := range CompetitionLevels {
		if lv == l {
			return i
		}
	}
	return -1
}

// CompetitionRegion is the geographic scope of a competition.
type CompetitionRegion string

const (
	RegionNational   CompetitionRegion = "NATIONAL"
	RegionProvincial CompetitionRegion = "PROVINCIAL"
	RegionSchool     CompetitionRegion = "SCHOOL"
)

// Competition is an event teachers apply to.
type Competition struct {
	ID               string            `db:"id" json:"id"`
	Name             string            `db:"name" json:"name"`
	Track            string            `db:"track" json:"track"`
	Region           CompetitionRegion `db:"region" json:"region"`
	Level            CompetitionLevel  `db:"level" json:"level"`
	Year             int               `db:"year" json:"year"`
	LeadDepartmentID *string           `db:"lead_department_id" json:"leadDepartmentId,omitempty"`
	ValidUntil       *time.Time        `db:"valid_until" json:"validUntil,omitempty"`
	CreatedBy        string            `db:"created_by" json:"createdBy"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// Expired reports whether the validity window elapsed before now. A nil window never expires.
func (c *Competition) Expired(now time.Time) bool {
	return c.ValidUntil != nil && now.After(*c.ValidUntil)
}

// CompetitionFilter narrows competition listings.
type CompetitionFilter struct {
	Level    *CompetitionLevel
	Region   *CompetitionRegion
	Year     *int
	Search   string
	Page     int
	PageSize int
}
