package config

import (
	"fmt"
	"os"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

var API_ENV = os.Getenv("API_ENV")

// OrderNumberPrefix is the prefix of the human-readable order number ("DT/1001").
const OrderNumberPrefix = "DT"

// OrderNumberSeed is the first number handed out when no orders exist yet.
const OrderNumberSeed = 1001

// DefaultChannelDomain identifies the sales channel used when a request
// does not resolve to a configured one.
const DefaultChannelDomain = "dubaitennistickets.com"

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"
