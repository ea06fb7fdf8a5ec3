package led

// Controller abstracts the board status LEDs.
type Controller interface {
	// Set switches ledType on or off. pattern is "solid", "blink",
	// "heartbeat", a raw kernel trigger name, or empty to keep the trigger.
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the LED types known on this board.
	Available() []string

	// Patterns returns the patterns Set understands.
	Patterns() []string
}
