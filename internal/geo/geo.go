// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package geo provides great-circle distance math and anchor resolution
// for location-aware quest recommendation.
package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// DistanceKm returns the haversine great-circle distance between two
// points in kilometers.
func DistanceKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// ResolveAnchor picks the reference point for distance scoring: the
// requested start location wins over the device's current location.
// Returns nil when neither is usable.
func ResolveAnchor(start, current *Point) *Point {
	if start != nil && start.Valid() {
		p := *start
		return &p
	}
	if current != nil && current.Valid() {
		p := *current
		return &p
	}
	return nil
}
