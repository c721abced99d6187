package chatdb

import (
	"database/sql"
	"strings"
)

// Service is the channel a handle or message travels over.
type Service string

const (
	ServiceIMessage Service = "iMessage"
	ServiceRCS      Service = "RCS"
	ServiceSMS      Service = "SMS"
	ServiceUnknown  Service = "Unknown"
)

// ParseService maps a service column value onto the known set. Anything else,
// including an empty value, is ServiceUnknown.
func ParseService(s string) Service {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "imessage":
		return ServiceIMessage
	case "rcs":
		return ServiceRCS
	case "sms":
		return ServiceSMS
	default:
		return ServiceUnknown
	}
}

// Rank orders services by fidelity: iMessage, then RCS, then SMS, then anything else.
func (s Service) Rank() int {
	switch s {
	case ServiceIMessage:
		return 0
	case ServiceRCS:
		return 1
	case ServiceSMS:
		return 2
	default:
		return 3
	}
}

func (s Service) String() string {
	return string(s)
}

// Handle is a row of the handle table: one address on one service.
type Handle struct {
	RowID        int64   `json:"rowid"`
	Address      string  `json:"address"`
	Service      Service `json:"service"`
	MessageCount int64   `json:"message_count"`
}

// Message is a row of the message table.
type Message struct {
	RowID          int64
	Text           sql.NullString
	AttributedBody []byte
	HandleID       sql.NullInt64 // 0 or NULL when sent from this device
	Date           int64         // nanoseconds since 2001-01-01 UTC
	IsFromMe       bool
	Service        Service
}
