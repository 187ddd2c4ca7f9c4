// Package domain defines the persisted business entities of the shop
// voice-command system: customers, products, invoices, ledger entries,
// reminders, and the transient OTP challenge used to gate data deletion.
//
// These types are the shop-domain analogue of the teacher's pkg/types
// cross-cutting type package: plain data structs shared between the
// data services, business engine, and response generator so those
// packages do not import one another just to pass records around.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopvoice/shopvoice/internal/money"
)

// Customer is a shop customer with a running ledger balance. Positive
// Balance means the customer owes the shop.
type Customer struct {
	ID        uuid.UUID
	Name      string
	Nickname  string
	Landmark  string
	Phone     string
	Email     string
	GSTIN     string
	Balance   money.Amount
	CreatedAt time.Time
}

// Unit is the measurement unit a product is sold in.
type Unit string

const (
	UnitKg     Unit = "kg"
	UnitPiece  Unit = "piece"
	UnitPacket Unit = "packet"
	UnitLitre  Unit = "litre"
)

// Product is a sellable item. New products referenced by name from an
// invoice but not found are auto-created at price zero with IsNew set.
type Product struct {
	ID    uuid.UUID
	Name  string
	Unit  Unit
	Price money.Amount
	Stock int
	IsNew bool
}

// InvoiceStatus is the lifecycle state of an Invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceConfirmed InvoiceStatus = "CONFIRMED"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// LineItem is one priced row of an Invoice, with the unit price snapshotted
// at creation time so later product price changes do not alter history.
type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice money.Amount
	LineTotal money.Amount
}

// Invoice is a bill raised against a customer.
type Invoice struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Total      money.Amount
	Status     InvoiceStatus
	GST        bool
	Items      []LineItem
	CreatedAt  time.Time
}

// LedgerEntryType classifies a LedgerEntry.
type LedgerEntryType string

const (
	LedgerOpeningBalance LedgerEntryType = "OPENING_BALANCE"
	LedgerDebit          LedgerEntryType = "DEBIT"
	LedgerCredit         LedgerEntryType = "CREDIT"
)

// PaymentMode is required on CREDIT ledger entries.
type PaymentMode string

const (
	PaymentCash  PaymentMode = "cash"
	PaymentUPI   PaymentMode = "upi"
	PaymentCard  PaymentMode = "card"
	PaymentOther PaymentMode = "other"
)

// LedgerEntry is one append-only ledger row for a customer. The sum of
// (DEBIT + OPENING_BALANCE) - CREDIT over a customer's entries must equal
// that customer's current Balance after every committed transaction.
type LedgerEntry struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	Type        LedgerEntryType
	Amount      money.Amount
	PaymentMode PaymentMode
	Description string
	CreatedAt   time.Time
}

// ReminderStatus is the lifecycle state of a Reminder.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderFailed    ReminderStatus = "failed"
	ReminderCancelled ReminderStatus = "cancelled"
)

// ReminderChannel is a delivery channel for a Reminder.
type ReminderChannel string

const (
	ChannelWhatsApp ReminderChannel = "whatsapp"
	ChannelEmail    ReminderChannel = "email"
)

// Reminder is a scheduled payment-due nudge for a customer.
type Reminder struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	Amount        money.Amount
	ScheduledTime time.Time
	Channels      []ReminderChannel
	Message       string
	Status        ReminderStatus
	RetryCount    int
	LastAttempt   time.Time
	SentAt        time.Time
}

// JobID is the deterministic delayed-job identifier for a reminder,
// matching the "reminder-{id}" convention so enqueue is naturally
// idempotent per reminder.
func (r Reminder) JobID() string {
	return "reminder-" + r.ID.String()
}

// OTPChallenge is the transient one-time code gating DELETE_CUSTOMER_DATA.
// It is stored in the key-value cache, not Postgres, since it is
// intentionally short-lived and never needs to survive a restart.
type OTPChallenge struct {
	CustomerID uuid.UUID
	Code       string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Attempts   int
}

// Expired reports whether the challenge is past its TTL as of now.
func (o OTPChallenge) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
