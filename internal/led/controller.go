// Package led drives a board LED as a capture indicator.
package led

// Controller abstracts LED hardware across single board computers.
type Controller interface {
	// Set turns an LED on or off. pattern is "solid", "blink" or empty to
	// leave the trigger unchanged.
	Set(name string, on bool, pattern string) error

	// Available lists the LED names this board offers.
	Available() []string

	// Patterns lists the supported patterns.
	Patterns() []string
}

// preferred is the order in which indicator LEDs are picked.
var preferred = []string{"user", "act", "blue", "green", "system"}

// PreferredLED returns the LED best suited as a capture indicator, or ""
// when the controller offers none.
func PreferredLED(c Controller) string {
	available := c.Available()
	for _, name := range preferred {
		for _, a := range available {
			if a == name {
				return name
			}
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	return ""
}
