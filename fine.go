package parkwatch

import "context"

// Fine is a named tariff that can be applied to a resolved incident.
type Fine struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Validate requires a name and a non-negative value.
func (f *Fine) Validate() error {
	if f.Name == "" {
		return Invalid("Name and value are required")
	}
	if f.Value < 0 {
		return Invalid("Value must not be negative")
	}
	return nil
}

// FineService manages the tariff catalog.
type FineService interface {
	// FindFines returns every fine, cheapest first.
	FindFines(ctx context.Context) ([]*Fine, error)

	// FindFineByID returns ENOTFOUND if the fine does not exist.
	FindFineByID(ctx context.Context, id int64) (*Fine, error)

	CreateFine(ctx context.Context, fine *Fine) error

	// UpdateFine returns ENOTFOUND if the fine does not exist.
	UpdateFine(ctx context.Context, id int64, upd FineUpdate) (*Fine, error)

	// DeleteFine refuses with EINVALID while any incident references the fine.
	DeleteFine(ctx context.Context, id int64) error
}

// FineUpdate holds changed fields. Nil means unchanged.
type FineUpdate struct {
	Name  *string
	Value *float64
}
