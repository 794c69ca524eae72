package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lockerhub/server/internal/model"
)

// Kind identifies a notification template
type Kind string

const (
	KindOtp               Kind = "otp"
	KindDepositSender     Kind = "deposit_sender"
	KindDepositReceiver   Kind = "deposit_receiver"
	KindCollectedSender   Kind = "collected_sender"
	KindCollectedReceiver Kind = "collected_receiver"
)

// Channel is the delivery medium implied by a contact
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ChannelFor picks email for addresses containing '@' and SMS otherwise
func ChannelFor(contact string) Channel {
	if strings.Contains(contact, "@") {
		return ChannelEmail
	}
	return ChannelSMS
}

// Message is one rendered notification addressed to a single contact.
// It is the payload written to the notification topic.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Channel   Channel   `json:"channel"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	LockerID  uuid.UUID `json:"locker_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newMessage(kind Kind, recipient, subject, body string, lockerID uuid.UUID) Message {
	return Message{
		ID:        uuid.New(),
		Kind:      kind,
		Channel:   ChannelFor(recipient),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		LockerID:  lockerID,
		CreatedAt: time.Now().UTC(),
	}
}

// OtpMessage carries a plaintext code; it must never be persisted.
func OtpMessage(contact, code string, lockerID uuid.UUID) Message {
	return newMessage(KindOtp, contact, "Locker OTP",
		fmt.Sprintf("Your locker OTP is %s. It expires in a few minutes; do not share it.", code),
		lockerID)
}

func DepositMessages(sender, receiver string, lockerID uuid.UUID, rate model.Money) []Message {
	var out []Message
	if sender != "" {
		out = append(out, newMessage(KindDepositSender, sender, "Item stored successfully",
			fmt.Sprintf("Your item has been securely stored in locker %s. Billing: %s per hour.", lockerID, rate),
			lockerID))
	}
	if receiver != "" {
		out = append(out, newMessage(KindDepositReceiver, receiver, "Locker access notification",
			fmt.Sprintf("An item has been locked for you in locker %s. Request an OTP to collect it. Billing: %s per hour.", lockerID, rate),
			lockerID))
	}
	return out
}

func CollectedMessages(sender, receiver string, lockerID uuid.UUID, amount model.Money) []Message {
	var out []Message
	if sender != "" {
		out = append(out, newMessage(KindCollectedSender, sender, "Item collected",
			fmt.Sprintf("Your item from locker %s has been collected. Total amount charged: %s. Transaction completed.", lockerID, amount),
			lockerID))
	}
	if receiver != "" {
		out = append(out, newMessage(KindCollectedReceiver, receiver, "Item collected",
			fmt.Sprintf("The item from locker %s has been collected.", lockerID),
			lockerID))
	}
	return out
}
