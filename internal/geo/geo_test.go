package geo

import (
	"math"
	"testing"

	"github.com/example/taxi-dispatch/internal/models"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := models.Coord{Lat: -25.7479, Lon: 28.2293}
	if d := DistanceKm(p, p); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := models.Coord{Lat: -25.7479, Lon: 28.2293}
	b := models.Coord{Lat: -25.7545, Lon: 28.2314}
	if d1, d2 := DistanceKm(a, b), DistanceKm(b, a); math.Abs(d1-d2) > 1e-12 {
		t.Fatalf("expected symmetric distance, got %f vs %f", d1, d2)
	}
}

func TestDistanceKnownPair(t *testing.T) {
	// Pretoria CBD to Hatfield, roughly 5.5 km straight-line.
	a := models.Coord{Lat: -25.7479, Lon: 28.1879}
	b := models.Coord{Lat: -25.7487, Lon: 28.2380}
	d := DistanceKm(a, b)
	if d < 4.5 || d > 6.0 {
		t.Fatalf("expected ~5 km, got %f", d)
	}
}

func TestEtaMinutes(t *testing.T) {
	if m := EtaMinutes(15, 30); m != 30 {
		t.Fatalf("expected 30 min, got %f", m)
	}
	// non-positive speed falls back to the default
	if m := EtaMinutes(30, 0); m != 60 {
		t.Fatalf("expected 60 min at default speed, got %f", m)
	}
}

func TestFormatDistance(t *testing.T) {
	if s := FormatDistance(0.25); s != "250 m" {
		t.Fatalf("got %q", s)
	}
	if s := FormatDistance(2.5); s != "2.5 km" {
		t.Fatalf("got %q", s)
	}
}

func TestFormatTime(t *testing.T) {
	if s := FormatTime(0.5); s != "less than a minute" {
		t.Fatalf("got %q", s)
	}
	if s := FormatTime(12); s != "12 min" {
		t.Fatalf("got %q", s)
	}
	if s := FormatTime(90); s != "1 hr 30 min" {
		t.Fatalf("got %q", s)
	}
}

func TestBearingNorth(t *testing.T) {
	a := models.Coord{Lat: 0, Lon: 0}
	b := models.Coord{Lat: 1, Lon: 0}
	if br := BearingDegrees(a, b); math.Abs(br) > 1e-9 {
		t.Fatalf("expected bearing 0 (north), got %f", br)
	}
}
