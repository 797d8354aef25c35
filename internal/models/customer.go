package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/opendesk/mailroom/internal/utils"
)

// Name length limits. Longer names are truncated on write, never rejected.
const (
	CustomerFirstNameMax = 20
	CustomerLastNameMax  = 30
)

// Customer is a directory entry keyed by one or more email addresses.
// The ingestion engine creates and updates customers but never deletes them.
type Customer struct {
	ID        string         `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	FirstName string         `gorm:"column:first_name;type:varchar(20)" json:"firstName"`
	LastName  string         `gorm:"column:last_name;type:varchar(30)" json:"lastName"`
	Emails    pq.StringArray `gorm:"column:emails;type:text[];index:,type:gin" json:"emails"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.GenerateNanoIDWithPrefix("cust", 16)
	}
	c.CreatedAt = utils.Now()
	return nil
}

// SetName applies the bounded first/last name fields
func (c *Customer) SetName(firstName, lastName string) {
	c.FirstName = utils.Truncate(firstName, CustomerFirstNameMax)
	c.LastName = utils.Truncate(lastName, CustomerLastNameMax)
}
