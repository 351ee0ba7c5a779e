package types

import "strings"

// DeliveryAddress is the snapshot of customer delivery details captured at
// order intake. Later profile edits cannot alter historical orders.
type DeliveryAddress struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Area     string `json:"area,omitempty"`
	Locality string `json:"locality,omitempty"`
}

// Complete reports whether the mandatory snapshot fields are present.
func (d DeliveryAddress) Complete() bool {
	for _, field := range []string{d.Name, d.Phone, d.Address, d.City} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}
