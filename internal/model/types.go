package model

import (
	"time"

	"github.com/google/uuid"
)

// Locker is a physical storage unit housed at a locker point
type Locker struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	LockerPointID *uuid.UUID   `db:"locker_point_id" json:"locker_point_id,omitempty"`
	Name          string       `db:"name" json:"name"`
	Status        LockerStatus `db:"status" json:"status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// Item is a deposited good tracked through its stay in a locker.
// Items are never deleted; terminal rows are the audit record.
type Item struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	LockerID      uuid.UUID  `db:"locker_id" json:"locker_id"`
	Name          string     `db:"name" json:"name"`
	Description   *string    `db:"description" json:"description,omitempty"`
	SenderEmail   string     `db:"sender_email" json:"sender_email"`
	SenderPhone   *string    `db:"sender_phone" json:"sender_phone,omitempty"`
	ReceiverPhone *string    `db:"receiver_phone" json:"receiver_phone,omitempty"`
	ReceiverEmail *string    `db:"receiver_email" json:"receiver_email,omitempty"`
	Status        ItemStatus `db:"status" json:"status"`
	OTPHash       *string    `db:"otp_hash" json:"-"`
	OTPExpiresAt  *time.Time `db:"otp_expires_at" json:"otp_expires_at,omitempty"`
	OTPAttempts   int        `db:"otp_attempts" json:"otp_attempts"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	CollectedAt   *time.Time `db:"collected_at" json:"collected_at,omitempty"`
}

// IsActive reports whether the item still occupies its locker
func (i Item) IsActive() bool {
	return i.Status == ItemStored
}

// MatchesReceiver reports whether contact is exactly the registered receiver phone or email.
func (i Item) MatchesReceiver(contact string) bool {
	if contact == "" {
		return false
	}
	if i.ReceiverPhone != nil && *i.ReceiverPhone == contact {
		return true
	}
	return i.ReceiverEmail != nil && *i.ReceiverEmail == contact
}

// SenderContact returns the preferred sender contact (email, falling back to phone)
func (i Item) SenderContact() string {
	if i.SenderEmail != "" {
		return i.SenderEmail
	}
	if i.SenderPhone != nil {
		return *i.SenderPhone
	}
	return ""
}

// ReceiverContact returns the preferred receiver contact (phone, falling back to email)
func (i Item) ReceiverContact() string {
	if i.ReceiverPhone != nil && *i.ReceiverPhone != "" {
		return *i.ReceiverPhone
	}
	if i.ReceiverEmail != nil {
		return *i.ReceiverEmail
	}
	return ""
}

// ClearOTP makes the OTP fields inert
func (i *Item) ClearOTP() {
	i.OTPHash = nil
	i.OTPExpiresAt = nil
	i.OTPAttempts = 0
}

// Transaction is the billing record for one item's stay
type Transaction struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	InvoiceNo   string            `db:"invoice_no" json:"invoice_no"`
	ItemID      uuid.UUID         `db:"item_id" json:"item_id"`
	LockerID    uuid.UUID         `db:"locker_id" json:"locker_id"`
	RatePerHour Money             `db:"rate_per_hour" json:"rate_per_hour"`
	Status      TransactionStatus `db:"status" json:"status"`
	StartedAt   time.Time         `db:"started_at" json:"started_at"`
	EndedAt     *time.Time        `db:"ended_at" json:"ended_at,omitempty"`
	TotalAmount *Money            `db:"total_amount" json:"total_amount,omitempty"`
}

// IsOpen reports whether billing is still accruing
func (t Transaction) IsOpen() bool {
	return t.EndedAt == nil
}

// ItemRecord joins an item with its billing record for history views
type ItemRecord struct {
	Item        Item         `json:"item"`
	Transaction *Transaction `json:"transaction,omitempty"`
}
