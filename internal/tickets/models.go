package tickets

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTicketNotFound is returned when a ticket is not found
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrPriorityNotFound is returned when a priority string cannot be parsed
	ErrPriorityNotFound = errors.New("priority not found")

	// ErrDepartmentNotFound is returned when a department string cannot be parsed
	ErrDepartmentNotFound = errors.New("department not found")

	// ErrAgentNotMember is returned when the assigned agent does not belong to the ticket's organization
	ErrAgentNotMember = errors.New("assigned agent is not a member of this organization")
)

// TicketPriority represents a ticket's urgency level
type TicketPriority string

const (
	PriorityLow      TicketPriority = "LOW"
	PriorityMedium   TicketPriority = "MEDIUM"
	PriorityHigh     TicketPriority = "HIGH"
	PriorityCritical TicketPriority = "CRITICAL"
)

var validPriorities = map[TicketPriority]struct{}{
	PriorityLow:      {},
	PriorityMedium:   {},
	PriorityHigh:     {},
	PriorityCritical: {},
}

// IsValid returns true if the priority is one of the defined variants
func (p TicketPriority) IsValid() bool {
	_, ok := validPriorities[p]
	return ok
}

// PriorityFromString parses a priority name case-insensitively.
// Returns ErrPriorityNotFound for unrecognized input.
func PriorityFromString(s string) (TicketPriority, error) {
	p := TicketPriority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", ErrPriorityNotFound
	}
	return p, nil
}

// TicketDepartment represents the department a ticket is filed under
type TicketDepartment string

const (
	DepartmentIT                      TicketDepartment = "IT"
	DepartmentHumanResources          TicketDepartment = "HUMAN_RESOURCES"
	DepartmentMarketing               TicketDepartment = "MARKETING"
	DepartmentSales                   TicketDepartment = "SALES"
	DepartmentCustomerSupport         TicketDepartment = "CUSTOMER_SUPPORT"
	DepartmentLegal                   TicketDepartment = "LEGAL"
	DepartmentEngineering             TicketDepartment = "ENGINEERING"
	DepartmentProcurement             TicketDepartment = "PROCUREMENT"
	DepartmentFinance                 TicketDepartment = "FINANCE"
	DepartmentOperations              TicketDepartment = "OPERATIONS"
	DepartmentAdministration          TicketDepartment = "ADMINISTRATION"
	DepartmentResearchAndDevelopment  TicketDepartment = "RESEARCH_AND_DEVELOPMENT"
	DepartmentProductManagement       TicketDepartment = "PRODUCT_MANAGEMENT"
	DepartmentDesign                  TicketDepartment = "DESIGN"
	DepartmentQualityAssurance        TicketDepartment = "QUALITY_ASSURANCE"
	DepartmentPublicRelations         TicketDepartment = "PUBLIC_RELATIONS"
	DepartmentEvents                  TicketDepartment = "EVENTS"
	DepartmentCorporateCommunications TicketDepartment = "CORPORATE_COMMUNICATIONS"
	DepartmentSocialMedia             TicketDepartment = "SOCIAL_MEDIA"
	DepartmentOther                   TicketDepartment = "OTHER"
)

var validDepartments = map[TicketDepartment]struct{}{
	DepartmentIT:                      {},
	DepartmentHumanResources:          {},
	DepartmentMarketing:               {},
	DepartmentSales:                   {},
	DepartmentCustomerSupport:         {},
	DepartmentLegal:                   {},
	DepartmentEngineering:             {},
	DepartmentProcurement:             {},
	DepartmentFinance:                 {},
	DepartmentOperations:              {},
	DepartmentAdministration:          {},
	DepartmentResearchAndDevelopment:  {},
	DepartmentProductManagement:       {},
	DepartmentDesign:                  {},
	DepartmentQualityAssurance:        {},
	DepartmentPublicRelations:         {},
	DepartmentEvents:                  {},
	DepartmentCorporateCommunications: {},
	DepartmentSocialMedia:             {},
	DepartmentOther:                   {},
}

// IsValid returns true if the department is one of the defined variants
func (d TicketDepartment) IsValid() bool {
	_, ok := validDepartments[d]
	return ok
}

// DepartmentFromString parses a department name case-insensitively.
// Returns ErrDepartmentNotFound for unrecognized input.
func DepartmentFromString(s string) (TicketDepartment, error) {
	d := TicketDepartment(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", ErrDepartmentNotFound
	}
	return d, nil
}

// Ticket represents one issue filed within an organization.
// PublisherID and AssignedAgentID reference org memberships, not users.
type Ticket struct {
	ID              uuid.UUID        `json:"id"`
	OrgID           uuid.UUID        `json:"org_id"`
	PublisherID     uuid.UUID        `json:"publisher_id"`
	AssignedAgentID *uuid.UUID       `json:"assigned_agent_id,omitempty"`
	Open            bool             `json:"open"`
	Title           string           `json:"title"`
	Content         string           `json:"content"`
	Priority        TicketPriority   `json:"priority"`
	Department      TicketDepartment `json:"department"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
