package geocode

import (
	"context"
	"fmt"
	"os"

	"googlemaps.github.io/maps"

	"go-vigia/types"
)

// Resolver reverse-geocodes incident coordinates to a locality name and a
// formatted address, used to backfill reports submitted without a locality.
type Resolver struct {
	client *maps.Client
}

// NewResolver builds a Google Maps client from MAPS_CREDENTIALS.
func NewResolver() (*Resolver, error) {
	apiKey := os.Getenv("MAPS_CREDENTIALS")
	if apiKey == "" {
		return nil, fmt.Errorf("MAPS_CREDENTIALS environment variable not set")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Resolver{client: client}, nil
}

// LocalityFor reverse-geocodes the point. The locality comes from the first
// address component typed locality or sublocality; the address is the first
// result's formatted address.
func (r *Resolver) LocalityFor(ctx context.Context, pt types.GeoPoint) (string, string, error) {
	req := &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: pt.Latitude, Lng: pt.Longitude},
	}

	results, err := r.client.ReverseGeocode(ctx, req)
	if err != nil {
		return "", "", err
	}
	if len(results) == 0 {
		return "", "", fmt.Errorf("no reverse geocode results for (%f, %f)", pt.Longitude, pt.Latitude)
	}

	address := results[0].FormattedAddress
	locality := ""
	for _, result := range results {
		for _, comp := range result.AddressComponents {
			for _, t := range comp.Types {
				if t == "locality" || t == "sublocality" {
					locality = comp.LongName
					break
				}
			}
			if locality != "" {
				break
			}
		}
		if locality != "" {
			break
		}
	}

	if locality == "" {
		return "", address, fmt.Errorf("no locality component in reverse geocode results")
	}
	return locality, address, nil
}
