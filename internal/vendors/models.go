package vendors

import "time"

// Vendor is a service company the office dispatches work to.
type Vendor struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Name  string `json:"name" db:"name"`
	Trade Trade  `json:"trade" db:"trade"`
	Phone string `json:"phone" db:"phone"`
	Email string `json:"email,omitempty" db:"email"`

	// Active vendors show up in dispatch pickers; inactive ones are kept for
	// history but never offered for new work.
	Active bool `json:"active" db:"active"`

	Notes string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Trade buckets what the vendor does.
type Trade string

const (
	TradePlumbing    Trade = "plumbing"
	TradeElectrical  Trade = "electrical"
	TradeHVAC        Trade = "hvac"
	TradeRoofing     Trade = "roofing"
	TradeLandscaping Trade = "landscaping"
	TradeCleaning    Trade = "cleaning"
	TradeGeneral     Trade = "general"
)

func (t Trade) Valid() bool {
	switch t {
	case TradePlumbing, TradeElectrical, TradeHVAC, TradeRoofing,
		TradeLandscaping, TradeCleaning, TradeGeneral:
		return true
	}
	return false
}
