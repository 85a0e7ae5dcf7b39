package geometry

import (
	"github.com/vk/pluginrig/internal/manager"
	"github.com/vk/pluginrig/internal/proptype"
)

// Load registers the pack's modules into the manager and declares the
// pack's defaults: Rectangle for Area and Perimeter, Prism for
// PrismVolume. The property types also get string aliases that
// configuration can resolve with proptype.LookupNamed.
func Load(mm *manager.Manager) error {
	if err := mm.AddModule("Rectangle", NewRectangle()); err != nil {
		return err
	}
	if err := mm.AddModule("Prism", NewPrism()); err != nil {
		return err
	}

	if err := manager.SetDefault[Area](mm, "Rectangle"); err != nil {
		return err
	}
	if err := manager.SetDefault[Perimeter](mm, "Rectangle"); err != nil {
		return err
	}
	if err := manager.SetDefault[PrismVolume](mm, "Prism"); err != nil {
		return err
	}

	proptype.RegisterNamed("area", Area{})
	proptype.RegisterNamed("perimeter", Perimeter{})
	proptype.RegisterNamed("prism volume", PrismVolume{})
	return nil
}
