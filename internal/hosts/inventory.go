package hosts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Inventory is a saved target list, e.g.
//
//	username: admin
//	subnet: 192.168.10.0/24
//	hosts:
//	  - 192.168.10.5
//	  - 192.168.10.6
type Inventory struct {
	Username string   `yaml:"username,omitempty"`
	Subnet   string   `yaml:"subnet,omitempty"`
	Hosts    []string `yaml:"hosts,omitempty"`
}

// LoadInventory reads an inventory file.
func LoadInventory(path string) (Inventory, error) {
	var inv Inventory
	b, err := os.ReadFile(path)
	if err != nil {
		return inv, err
	}
	if err := yaml.Unmarshal(b, &inv); err != nil {
		return inv, fmt.Errorf("inventaire %s: %w", path, err)
	}
	return inv, nil
}

// Targets applies Enumerate to the inventory content.
func (inv Inventory) Targets() ([]string, error) {
	return Enumerate(inv.Hosts, inv.Subnet)
}
