package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Meters []SubscriptionMeter `gorm:"foreignKey:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionMeter links a subscription to a parking meter whose alerts it receives.
type SubscriptionMeter struct {
	Endpoint string `gorm:"primaryKey"`
	MeterID  string `gorm:"primaryKey;size:128;index"`
}
