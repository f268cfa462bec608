// Package export persists walking-area geometry for the front end.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// DefaultFileName is the file the front end loads the current area from.
const DefaultFileName = "trunc.geojson"

// Destination is a target for exported GeoJSON.
type Destination interface {
	// Write stores the payload, replacing any previous one.
	Write(ctx context.Context, data []byte) error
	// String names the destination in logs and events.
	String() string
}

// WriteArea encodes fc once and writes it to every destination. Failures are
// joined; a failing destination does not stop the others.
func WriteArea(ctx context.Context, fc *geojson.FeatureCollection, dests ...Destination) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal area: %w", err)
	}
	var errs []error
	for _, d := range dests {
		if err := d.Write(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}
