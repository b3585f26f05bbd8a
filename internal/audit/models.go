package audit

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Record is an immutable, append-only audit log entry describing one
// successful mutating request against a business entity.
//
// Invariants:
// - ActorID is always set; anonymous changes are never recorded.
// - OldValues is only set for UPDATE, and only when a snapshot was captured.
// - OldValues/NewValues never exceed the configured size ceiling; oversized
//   values are replaced by a {"truncated":true,"originalSize":N} placeholder.
// - Records are never updated after creation. Deletion is an administrative action.
type Record struct {
	ID string `json:"id" db:"id"`

	ActorID string `json:"actorId" db:"actor_id"`
	// RelatedEntityID links the record to a directly affected entity (usually an employee).
	RelatedEntityID string `json:"relatedEntityId,omitempty" db:"related_entity_id"`

	Module     Module `json:"module" db:"module"`
	Action     Action `json:"action" db:"action"`
	EntityType Module `json:"entityType" db:"entity_type"`
	EntityID   string `json:"entityId,omitempty" db:"entity_id"`
	EntityName string `json:"entityName,omitempty" db:"entity_name"`

	Description string `json:"description" db:"description"`

	// Serialized, bounded snapshots. nil means absent and encodes as JSON null.
	OldValues json.RawMessage `json:"oldValues" db:"old_values"`
	NewValues json.RawMessage `json:"newValues" db:"new_values"`

	IPAddress string `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent string `json:"userAgent,omitempty" db:"user_agent"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Module is the coarse business category of an audited request.
// The same vocabulary is used for Record.EntityType.
type Module string

const (
	ModuleEmployee        Module = "EMPLOYEE"
	ModuleLeave           Module = "LEAVE"
	ModuleLeaveResumption Module = "LEAVE_RESUMPTION"
	ModuleLoan            Module = "LOAN"
	ModuleAdvance         Module = "ADVANCE"
	ModuleDeduction       Module = "DEDUCTION"
	ModuleResignation     Module = "RESIGNATION"
	ModulePayroll         Module = "PAYROLL"
	ModuleUser            Module = "USER"
	ModuleGeneral         Module = "GENERAL"
)

type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionRead   Action = "READ"
	ActionOther  Action = "OTHER"
)

// ActionFromMethod maps an HTTP method to an audit action.
func ActionFromMethod(method string) Action {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	case http.MethodGet, http.MethodHead:
		return ActionRead
	default:
		return ActionOther
	}
}

// Filters narrows List results. Empty fields do not filter.
type Filters struct {
	Module          Module
	Action          Action
	EntityType      Module
	ActorID         string
	RelatedEntityID string
}

// Pagination mirrors the metadata returned by the list endpoint.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

type ListResult struct {
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
}

// Statistics aggregates record counts over [From, To].
type Statistics struct {
	Total    int            `json:"total"`
	ByModule map[Module]int `json:"byModule"`
	ByAction map[Action]int `json:"byAction"`
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
}

// RecentResult is the dashboard feed. Placeholder is true only when the
// store was unavailable and canned records were served instead.
type RecentResult struct {
	Records     []Record `json:"records"`
	Stale       bool     `json:"stale,omitempty"`
	Placeholder bool     `json:"placeholder,omitempty"`
}
