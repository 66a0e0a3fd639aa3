package parkwatch

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// IncidentStatus is the review state of an incident. The zero value is not
// a valid status; use ParseIncidentStatus to build one from input.
type IncidentStatus uint8

const (
	StatusPending IncidentStatus = iota + 1
	StatusRejected
	StatusResolvedAndFined
	StatusResolved
)

var statusNames = map[IncidentStatus]string{
	StatusPending:          "pending",
	StatusRejected:         "rejected",
	StatusResolvedAndFined: "resolved_and_fined",
	StatusResolved:         "resolved",
}

// IncidentStatuses lists every status in declaration order.
func IncidentStatuses() []IncidentStatus {
	return []IncidentStatus{StatusPending, StatusRejected, StatusResolvedAndFined, StatusResolved}
}

// ParseIncidentStatus returns EINVALID for anything but the four known names.
func ParseIncidentStatus(s string) (IncidentStatus, error) {
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, Invalid("Invalid status value")
}

func (s IncidentStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("IncidentStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s IncidentStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsDecision reports whether s records an administrative decision. Decided
// incidents carry resolved_at and resolved_by.
func (s IncidentStatus) IsDecision() bool {
	return s == StatusRejected || s == StatusResolvedAndFined || s == StatusResolved
}

func (s IncidentStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal invalid incident status %d", uint8(s))
	}
	return json.Marshal(s.String())
}

func (s *IncidentStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return Invalid("Invalid status value")
	}
	parsed, err := ParseIncidentStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the status as its name.
func (s IncidentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("store invalid incident status %d", uint8(s))
	}
	return s.String(), nil
}

// Scan reads a status name from the database.
func (s *IncidentStatus) Scan(src any) error {
	var name string
	switch v := src.(type) {
	case string:
		name = v
	case []byte:
		name = string(v)
	default:
		return fmt.Errorf("scan incident status from %T", src)
	}
	parsed, err := ParseIncidentStatus(name)
	if err != nil {
		return fmt.Errorf("scan incident status %q: %w", name, err)
	}
	*s = parsed
	return nil
}

// Incident is a parking violation reported by a street camera.
type Incident struct {
	ID            int64          `json:"id"`
	Address       string         `json:"address"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	District      *string        `json:"district"`
	Datetime      time.Time      `json:"datetime"`
	AIDescription string         `json:"ai_description"`
	CarNumber     *string        `json:"car_number"`
	FineID        *int64         `json:"fine_id"`
	Status        IncidentStatus `json:"status"`
	AdminNotes    *string        `json:"admin_notes"`
	ResolvedAt    *time.Time     `json:"resolved_at"`
	ResolvedBy    *int64         `json:"resolved_by"`
	CreatedAt     time.Time      `json:"created_at"`

	// Joined from fines on reads.
	FineName  *string  `json:"fine_name,omitempty"`
	FineValue *float64 `json:"fine_value,omitempty"`

	// Populated by FindIncidentByID only.
	Photos []*IncidentPhoto `json:"photos,omitempty"`
}

// Validate checks the fields the camera pipeline must always provide.
func (i *Incident) Validate() error {
	switch {
	case i.Address == "", i.Datetime.IsZero(), i.AIDescription == "":
		return Invalid("Missing required fields")
	case i.Latitude < -90 || i.Latitude > 90 || i.Longitude < -180 || i.Longitude > 180:
		return Invalid("Coordinates out of range")
	}
	return nil
}

// IncidentPhoto is an evidence image attached at ingestion time.
type IncidentPhoto struct {
	ID         int64  `json:"id"`
	IncidentID int64  `json:"incident_id"`
	PhotoPath  string `json:"photo_path"`
}

// IncidentService owns the incident lifecycle.
type IncidentService interface {
	// FindIncidentByID returns the incident with its fine and photos.
	// Returns ENOTFOUND if the incident does not exist.
	FindIncidentByID(ctx context.Context, id int64) (*Incident, error)

	// FindIncidents returns incidents joined with their fine, newest first.
	FindIncidents(ctx context.Context, filter IncidentFilter) ([]*Incident, error)

	// CreateIncident stores the incident and its photos atomically. The
	// stored status is always pending whatever the caller set.
	CreateIncident(ctx context.Context, incident *Incident, photos []string) error

	// UpdateIncidentStatus overwrites status, plate, fine and notes and
	// appends an audit action in the same transaction. The actor is taken
	// from ctx.
	UpdateIncidentStatus(ctx context.Context, id int64, upd IncidentStatusUpdate) (*Incident, error)

	// DeleteIncident hard deletes the incident and its photos.
	// Returns ENOTFOUND if the incident does not exist.
	DeleteIncident(ctx context.Context, id int64) error

	// SetIncidentDistrict records a resolved district label.
	SetIncidentDistrict(ctx context.Context, id int64, district string) error

	// CountIncidentsByStatus returns one counter per status plus the total.
	CountIncidentsByStatus(ctx context.Context) (*IncidentCounts, error)
}

// IncidentFilter narrows FindIncidents.
type IncidentFilter struct {
	Status *IncidentStatus

	// MissingDistrict limits results to incidents with no district label.
	MissingDistrict bool

	Limit int
}

// IncidentStatusUpdate is an administrative decision on an incident.
type IncidentStatusUpdate struct {
	Status     IncidentStatus
	CarNumber  *string
	FineID     *int64
	AdminNotes *string
}

// Validate rejects updates whose status is not one of the declared values.
func (u IncidentStatusUpdate) Validate() error {
	if !u.Status.Valid() {
		return Invalid("Invalid status value")
	}
	return nil
}

// IncidentCounts is the per-status breakdown served by /incidents/stats.
type IncidentCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Fined    int `json:"fined"`
	Resolved int `json:"resolved"`
	Rejected int `json:"rejected"`
}
