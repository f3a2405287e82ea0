package location

import (
	"context"
	"fmt"

	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

// Fix is a device answer already in hand, such as coordinates passed as query
// parameters. It never blocks.
type Fix struct {
	Coordinates weather.Coordinates
	// Err holds the device's error text (e.g. "permission denied").
	Err string
}

func (f Fix) Locate(context.Context) (weather.Coordinates, error) {
	if f.Err != "" {
		return weather.Coordinates{}, fmt.Errorf("%w: %s", ErrNoFix, f.Err)
	}
	return f.Coordinates, nil
}
