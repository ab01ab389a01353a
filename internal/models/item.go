package models

// Item is a titled record owned by exactly one user.
type Item struct {
	BaseModel

	Title       string `gorm:"index;not null" json:"title"`
	Description string `json:"description"`
	OwnerID     string `gorm:"size:36;not null;index" json:"owner_id"`
	Owner       *User  `gorm:"foreignKey:OwnerID" json:"-"`
}
