package profiles

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/little-explorers/storefront/pkg/db/models"
)

// Repository exposes profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUsername retrieves the profile for the token subject.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetOrCreate returns the profile for username, creating an empty one on
// first use.
func (r *Repository) GetOrCreate(ctx context.Context, username string) (*models.UserProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	profile := models.UserProfile{Username: username}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(&profile).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUsername(ctx, username)
}

// DeliveryDefaults are the fields copied from an order when a customer asks
// to save their details.
type DeliveryDefaults struct {
	PhoneNumber    *string
	Country        *string
	Postcode       *string
	TownOrCity     *string
	StreetAddress1 *string
	StreetAddress2 *string
	County         *string
}

// FromOrder copies the delivery fields of order.
func FromOrder(order *models.Order) DeliveryDefaults {
	return DeliveryDefaults{
		PhoneNumber:    strPtr(order.PhoneNumber),
		Country:        strPtr(order.Country),
		Postcode:       order.Postcode,
		TownOrCity:     strPtr(order.TownOrCity),
		StreetAddress1: strPtr(order.StreetAddress1),
		StreetAddress2: order.StreetAddress2,
		County:         order.County,
	}
}

// UpdateDefaults overwrites every default delivery field of the profile.
func (r *Repository) UpdateDefaults(ctx context.Context, profile *models.UserProfile, d DeliveryDefaults) error {
	profile.DefaultPhoneNumber = d.PhoneNumber
	profile.DefaultCountry = d.Country
	profile.DefaultPostcode = d.Postcode
	profile.DefaultTownOrCity = d.TownOrCity
	profile.DefaultStreetAddress1 = d.StreetAddress1
	profile.DefaultStreetAddress2 = d.StreetAddress2
	profile.DefaultCounty = d.County
	return r.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]any{
			"default_phone_number":    d.PhoneNumber,
			"default_country":         d.Country,
			"default_postcode":        d.Postcode,
			"default_town_or_city":    d.TownOrCity,
			"default_street_address1": d.StreetAddress1,
			"default_street_address2": d.StreetAddress2,
			"default_county":          d.County,
		}).Error
}

func strPtr(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
