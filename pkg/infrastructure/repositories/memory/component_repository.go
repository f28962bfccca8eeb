package memory

import (
	"fmt"
	"sort"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
)

// ComponentRepository provides in-memory component stock storage
type ComponentRepository struct {
	components map[entities.ComponentSKU]*entities.Component
}

// NewComponentRepository creates a new in-memory component repository
func NewComponentRepository() *ComponentRepository {
	return &ComponentRepository{
		components: make(map[entities.ComponentSKU]*entities.Component),
	}
}

// Verify interface compliance
var _ repositories.ComponentRepository = (*ComponentRepository)(nil)

// GetComponent returns the component with the given SKU
func (r *ComponentRepository) GetComponent(sku entities.ComponentSKU) (*entities.Component, error) {
	c, exists := r.components[sku]
	if !exists {
		return nil, fmt.Errorf("component %s not found", sku)
	}
	return c, nil
}

// GetAllComponents returns all components sorted by SKU
func (r *ComponentRepository) GetAllComponents() ([]*entities.Component, error) {
	var components []*entities.Component
	for _, c := range r.components {
		components = append(components, c)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].SKU < components[j].SKU })
	return components, nil
}

// SaveComponent stores or replaces a component
func (r *ComponentRepository) SaveComponent(component *entities.Component) error {
	if component == nil || component.SKU == "" {
		return fmt.Errorf("cannot save component without a SKU")
	}
	r.components[component.SKU] = component
	return nil
}

// LoadComponents loads components into the repository
func (r *ComponentRepository) LoadComponents(components []*entities.Component) error {
	for _, c := range components {
		if err := r.SaveComponent(c); err != nil {
			return err
		}
	}
	return nil
}

// SetPhysicalStock applies an authoritative stock figure from the stock source
func (r *ComponentRepository) SetPhysicalStock(sku entities.ComponentSKU, qty entities.Quantity) error {
	c, err := r.GetComponent(sku)
	if err != nil {
		return err
	}
	if qty < 0 {
		return fmt.Errorf("physical stock cannot be negative, got %d", qty)
	}
	c.PhysicalStock = qty
	return nil
}
