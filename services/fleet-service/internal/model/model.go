package model

import (
	"regexp"
	"strings"
	"time"
)

// AutoStatus is the cached summary of an auto's current assignments. It is
// recomputed from the assignment set on every mutation; reads derive the
// display status live and never trust this column alone.
type AutoStatus string

const (
	AutoIdle        AutoStatus = "IDLE"
	AutoPreAssigned AutoStatus = "PRE_ASSIGNED"
	AutoAssigned    AutoStatus = "ASSIGNED"
)

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "ACTIVE"
	AssignmentPrebooked AssignmentStatus = "PREBOOKED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
)

// Blocks reports whether an assignment in this status occupies its date range.
// Completed assignments never block new bookings.
func (s AssignmentStatus) Blocks() bool {
	return s == AssignmentActive || s == AssignmentPrebooked
}

type CompanyStatus string

const (
	CompanyPendingApproval CompanyStatus = "PENDING_APPROVAL"
	CompanyActive          CompanyStatus = "ACTIVE"
	CompanyRejected        CompanyStatus = "REJECTED"
	CompanyInactive        CompanyStatus = "INACTIVE"
)

type TicketStatus string

const (
	TicketPending  TicketStatus = "PENDING"
	TicketApproved TicketStatus = "APPROVED"
	TicketRejected TicketStatus = "REJECTED"
)

type Area struct {
	ID      string
	Name    string
	PinCode string
}

type Company struct {
	ID            string
	Name          string
	ContactPerson string
	Email         string
	PhoneNumber   string
	Status        CompanyStatus
	CreatedAt     time.Time
}

type Auto struct {
	ID        string
	AutoNo    string
	OwnerName string
	AreaID    string
	AreaName  string
	Status    AutoStatus
	Notes     string
	CreatedAt time.Time
	DeletedAt *time.Time
}

type Assignment struct {
	ID          string
	AutoID      string
	CompanyID   string
	CompanyName string
	StartDate   time.Time
	EndDate     time.Time
	Days        int
	Status      AssignmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Ticket struct {
	ID             string
	CompanyID      string
	CompanyName    string
	AutosRequired  int
	DaysRequired   int
	StartDate      time.Time
	AreaID         string
	AreaName       string
	Status         TicketStatus
	Notes          string
	AdminNotes     string
	RejectedReason string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// autoNoPattern matches Indian-style registration plates, e.g. KA01AA5555.
var autoNoPattern = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z]{1,2}\d{4}$`)

// NormalizeAutoNo uppercases and strips spaces from a registration number.
func NormalizeAutoNo(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
}

func ValidAutoNo(autoNo string) bool {
	return autoNoPattern.MatchString(autoNo)
}
