package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile stores default delivery details for a signed-in customer.
// Username is the subject of the access token issued by the identity service.
type UserProfile struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Username              string    `gorm:"column:username;not null;uniqueIndex"`
	DefaultPhoneNumber    *string   `gorm:"column:default_phone_number"`
	DefaultStreetAddress1 *string   `gorm:"column:default_street_address1"`
	DefaultStreetAddress2 *string   `gorm:"column:default_street_address2"`
	DefaultTownOrCity     *string   `gorm:"column:default_town_or_city"`
	DefaultCounty         *string   `gorm:"column:default_county"`
	DefaultPostcode       *string   `gorm:"column:default_postcode"`
	DefaultCountry        *string   `gorm:"column:default_country"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
