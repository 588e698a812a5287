// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Point
		wantKm  float64
		tolKm   float64
	}{
		{
			name:   "same point",
			a:      Point{Lat: 35.1796, Lon: 129.0756},
			b:      Point{Lat: 35.1796, Lon: 129.0756},
			wantKm: 0,
			tolKm:  0.001,
		},
		{
			name:   "busan station to haeundae",
			a:      Point{Lat: 35.1151, Lon: 129.0413},
			b:      Point{Lat: 35.1587, Lon: 129.1604},
			wantKm: 11.9,
			tolKm:  0.5,
		},
		{
			name:   "seoul to busan",
			a:      Point{Lat: 37.5665, Lon: 126.9780},
			b:      Point{Lat: 35.1796, Lon: 129.0756},
			wantKm: 325,
			tolKm:  5,
		},
		{
			name:   "antimeridian crossing",
			a:      Point{Lat: 0, Lon: 179.5},
			b:      Point{Lat: 0, Lon: -179.5},
			wantKm: 111.2,
			tolKm:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolKm {
				t.Errorf("DistanceKm() = %.3f, want %.3f ± %.3f", got, tt.wantKm, tt.tolKm)
			}
			// Distance is symmetric.
			rev := DistanceKm(tt.b, tt.a)
			if math.Abs(got-rev) > 1e-9 {
				t.Errorf("DistanceKm() not symmetric: %.9f vs %.9f", got, rev)
			}
		})
	}
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"origin", Point{0, 0}, true},
		{"max bounds", Point{90, 180}, true},
		{"min bounds", Point{-90, -180}, true},
		{"lat too high", Point{90.1, 0}, false},
		{"lat too low", Point{-90.1, 0}, false},
		{"lon too high", Point{0, 180.1}, false},
		{"lon too low", Point{0, -180.1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveAnchor(t *testing.T) {
	start := &Point{Lat: 35.10, Lon: 129.03}
	current := &Point{Lat: 35.16, Lon: 129.16}
	invalid := &Point{Lat: 91, Lon: 0}

	tests := []struct {
		name           string
		start, current *Point
		want           *Point
	}{
		{"start wins over current", start, current, start},
		{"current when no start", nil, current, current},
		{"nil when neither", nil, nil, nil},
		{"invalid start falls through", invalid, current, current},
		{"invalid both", invalid, invalid, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAnchor(tt.start, tt.current)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ResolveAnchor() = %v, want %v", got, tt.want)
			}
			if got != nil && (got.Lat != tt.want.Lat || got.Lon != tt.want.Lon) {
				t.Errorf("ResolveAnchor() = %v, want %v", got, tt.want)
			}
		})
	}

	// Anchor must be a copy, not an alias of the input.
	got := ResolveAnchor(start, nil)
	got.Lat = 0
	if start.Lat == 0 {
		t.Error("ResolveAnchor() aliased the input point")
	}
}
