// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "noro/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing LeadID where TenantID is expected.
type (
	TenantID uuid.UUID
	LeadID   uuid.UUID
	TaskID   uuid.UUID
	UserID   uuid.UUID
)

// New functions - generate fresh random identifiers.

func NewTenantID() TenantID { return TenantID(uuid.New()) }
func NewLeadID() LeadID     { return LeadID(uuid.New()) }
func NewTaskID() TaskID     { return TaskID(uuid.New()) }
func NewUserID() UserID     { return UserID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseLeadID(s string) (LeadID, error) {
	id, err := parseUUID(s, "lead ID")
	return LeadID(id), err
}

func ParseTaskID(s string) (TaskID, error) {
	id, err := parseUUID(s, "task ID")
	return TaskID(id), err
}

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

// String methods - for logging and debugging.

func (id TenantID) String() string { return uuid.UUID(id).String() }
func (id LeadID) String() string   { return uuid.UUID(id).String() }
func (id TaskID) String() string   { return uuid.UUID(id).String() }
func (id UserID) String() string   { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id LeadID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TaskID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// Text marshaling - the distinct types do not inherit uuid.UUID's methods, so
// without these the IDs would serialize as raw byte arrays.

func (id TenantID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id LeadID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id TaskID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *LeadID) UnmarshalText(b []byte) error {
	parsed, err := ParseLeadID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TaskID) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here. Use IsNil() at the service layer for business
// validation, which lets store lookups return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
