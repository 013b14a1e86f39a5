package core

import (
	"fmt"
	"strings"
	"time"
)

// InboundMail holds the fields posted by the relay for a single message
type InboundMail struct {
	Sender       string
	From         string
	Recipient    string
	To           string
	Subject      string
	BodyPlain    string
	BodyHTML     string
	StrippedText string
	StrippedHTML string
	Timestamp    string
	Token        string
	Signature    string
	MessageID    string
}

// Body returns the first non-blank body variant, preferring plain text
func (m *InboundMail) Body() string {
	for _, candidate := range []string{m.BodyPlain, m.StrippedText, m.BodyHTML, m.StrippedHTML} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// CustomerName is the split customer name found in a notification
type CustomerName struct {
	LastName      string  `json:"lastName"`
	FirstName     string  `json:"firstName"`
	LastNameKana  *string `json:"lastNameKana"`
	FirstNameKana *string `json:"firstNameKana"`
}

// FullName joins last and first name with a space
func (n *CustomerName) FullName() string {
	return strings.TrimSpace(n.LastName + " " + n.FirstName)
}

// Record field names reported in ReservationMailRecord.Missing
const (
	FieldReservationID = "reservation_id"
	FieldName          = "name"
	FieldStartTime     = "start_time"
	FieldDuration      = "duration"
	FieldMenu          = "menu"
	FieldStaff         = "staff"
	FieldRemarks       = "remarks"
	FieldPhone         = "phone"
	FieldEmail         = "email"
)

// ReservationMailRecord is the structured result of extracting a notification body.
// Every field is optional.
type ReservationMailRecord struct {
	ExternalReservationID *string       `json:"externalReservationId"`
	Customer              *CustomerName `json:"customer"`
	PhoneNumber           *string       `json:"phoneNumber"`
	Email                 *string       `json:"email"`
	StartTime             *time.Time    `json:"startTime"`
	EndTime               *time.Time    `json:"endTime"`
	DurationMinutes       *int          `json:"durationMinutes"`
	MenuName              *string       `json:"menuName"`
	StaffName             *string       `json:"staffName"`
	Remarks               *string       `json:"remarks"`
	SourceMessageID       string        `json:"sourceMessageId,omitempty"`
	Missing               []string      `json:"missing,omitempty"`
}

// IdempotencyKey returns the key sinks use to collapse repeated deliveries.
// An empty key means the record cannot be deduplicated.
func (r *ReservationMailRecord) IdempotencyKey() string {
	if r.ExternalReservationID != nil && *r.ExternalReservationID != "" {
		return *r.ExternalReservationID
	}
	if r.SourceMessageID != "" {
		return "message:" + r.SourceMessageID
	}
	return ""
}

// Memo renders the staff-facing memo stored with the reservation
func (r *ReservationMailRecord) Memo() string {
	var sb strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&sb, "[%s: %s]\n", label, value)
	}

	if r.ExternalReservationID != nil {
		line("HPB予約番号", *r.ExternalReservationID)
	}
	if r.Customer != nil {
		line("顧客名", r.Customer.FullName())
	}
	if r.PhoneNumber != nil {
		line("電話番号", *r.PhoneNumber)
	}
	if r.MenuName != nil {
		line("メニュー", *r.MenuName)
	}
	if r.StaffName != nil {
		line("指名スタッフ", *r.StaffName)
	}
	if r.Remarks != nil {
		line("要望", *r.Remarks)
	}

	return strings.TrimSpace(sb.String())
}

// VerificationReason explains a signature verification result
type VerificationReason string

const (
	ReasonOK                 VerificationReason = "OK"
	ReasonMissingParams      VerificationReason = "MISSING_PARAMS"
	ReasonBadSignature       VerificationReason = "BAD_SIGNATURE"
	ReasonNoSecretConfigured VerificationReason = "NO_SECRET_CONFIGURED"
)

// VerificationResult is the outcome of checking a webhook signature
type VerificationResult struct {
	Valid  bool
	Reason VerificationReason
}

// State is a step of the ingestion state machine
type State string

const (
	StateReceived   State = "RECEIVED"
	StateVerified   State = "VERIFIED"
	StateClassified State = "CLASSIFIED"
	StateNormalized State = "NORMALIZED"
	StateExtracted  State = "EXTRACTED"
	StateHandedOff  State = "HANDED_OFF"
	StateAborted    State = "ABORTED"
)

// AbortReason says why a run ended in StateAborted
type AbortReason string

const (
	AbortNone               AbortReason = ""
	AbortBadSignature       AbortReason = "BAD_SIGNATURE"
	AbortMissingParams      AbortReason = "MISSING_PARAMS"
	AbortNotReservationMail AbortReason = "NOT_RESERVATION_MAIL"
	AbortSinkFailure        AbortReason = "SINK_FAILURE"
)

// ReservationStatus of a stored reservation
type ReservationStatus string

const ReservationPending ReservationStatus = "PENDING"

// BookingRouteHotPepper marks reservations created from platform mail
const BookingRouteHotPepper = "HP"

// Reservation is the entity persisted by a sink
type Reservation struct {
	ID             string
	SalonID        int64
	Status         ReservationStatus
	BookingRoute   string
	IdempotencyKey string
	ExternalID     *string
	StartTime      *time.Time
	EndTime        *time.Time
	Memo           string
	Record         *ReservationMailRecord
	CreatedAt      time.Time
}

// ReservationHandle identifies the reservation a sink created or found
type ReservationHandle struct {
	ID      string
	Created bool
}

// Outcome is the result of one pipeline run
type Outcome struct {
	State        State
	AbortReason  AbortReason
	Verification VerificationResult
	Record       *ReservationMailRecord
	Handle       *ReservationHandle
	Err          error
}

// Success reports whether the run should be answered with success=true
func (o *Outcome) Success() bool {
	switch {
	case o.State == StateHandedOff:
		return true
	case o.State == StateAborted && o.AbortReason == AbortNotReservationMail:
		return true
	default:
		return false
	}
}

// WebhookResponse is the JSON body returned to the relay
type WebhookResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	ReservationID *string `json:"reservationId"`
}

// Response converts the outcome into the relay response body
func (o *Outcome) Response() WebhookResponse {
	resp := WebhookResponse{Success: o.Success()}

	switch {
	case o.State == StateHandedOff && o.Handle != nil:
		id := o.Handle.ID
		resp.ReservationID = &id
		if o.Handle.Created {
			resp.Message = "reservation registered"
		} else {
			resp.Message = "reservation already registered"
		}
	case o.AbortReason == AbortNotReservationMail:
		resp.Message = "skipped: not a reservation notification"
	case o.AbortReason == AbortMissingParams:
		resp.Message = "signature parameters missing"
	case o.AbortReason == AbortBadSignature:
		resp.Message = "signature verification failed"
	case o.AbortReason == AbortSinkFailure:
		resp.Message = "failed to register reservation"
	default:
		resp.Message = "unexpected pipeline state: " + string(o.State)
	}

	return resp
}
