package models

import "gorm.io/gorm"

// Account holds the Bitstamp API credentials the bot trades with.
// The process operates exactly one account.
type Account struct {
	gorm.Model
	Username  string `gorm:"uniqueIndex"`
	APIKey    string
	APISecret string
}
