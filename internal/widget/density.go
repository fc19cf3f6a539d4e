package widget

import "sync"

// DensityToggle shows or hides the histogram panel. The timeline is redrawn
// each time the panel becomes visible.
type DensityToggle struct {
	mu      sync.Mutex
	visible bool
	onShow  func() error
}

// NewDensityToggle creates a visible panel toggle.
func NewDensityToggle(onShow func() error) *DensityToggle {
	return &DensityToggle{visible: true, onShow: onShow}
}

// Toggle flips the panel and returns its new visibility.
func (d *DensityToggle) Toggle() (bool, error) {
	d.mu.Lock()
	d.visible = !d.visible
	visible := d.visible
	d.mu.Unlock()

	if visible && d.onShow != nil {
		return visible, d.onShow()
	}
	return visible, nil
}

// Visible reports whether the panel is shown.
func (d *DensityToggle) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

// Label is the button caption.
func (d *DensityToggle) Label() string {
	if d.Visible() {
		return "Masquer la distribution temporelle"
	}
	return "Afficher la distribution temporelle"
}
