package models

import "time"

// User is an internal help-desk agent. The engine only reads this table to
// classify thread authors; user management lives in the surrounding app.
type User struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Email     string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName string `gorm:"column:first_name;type:varchar(50)" json:"firstName"`
	LastName  string `gorm:"column:last_name;type:varchar(50)" json:"lastName"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
