package models

type Customer struct {
	Base
	Name     string `gorm:"not null" json:"name"`
	LastName string `json:"last_name"`
	Email    string `gorm:"index" json:"email"`
	Phone    string `gorm:"index" json:"phone"`
	Notes    string `gorm:"type:text" json:"notes,omitempty"`

	// Relationships
	Tickets []Ticket `gorm:"foreignKey:CustomerID" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}
