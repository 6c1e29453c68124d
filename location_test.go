package ardrone

import "testing"

func TestLocationDistanceZeroForSamePoint(t *testing.T) {
	l := Location{Latitude: 48.8566, Longitude: 2.3522}
	if d := l.Distance(l); d != 0 {
		t.Fatalf("distance to self = %f, want 0", d)
	}
}

func TestLocationDistanceKnownPair(t *testing.T) {
	paris := Location{Latitude: 48.8566, Longitude: 2.3522}
	london := Location{Latitude: 51.5074, Longitude: -0.1278}

	d := paris.Distance(london)
	// Great-circle distance Paris-London is ~344km; allow generous slack
	// since this only needs to catch gross formula errors.
	if d < 300000 || d > 400000 {
		t.Fatalf("distance = %f meters, want ~344000", d)
	}
}

func TestLocationHeadingRange(t *testing.T) {
	a := Location{Latitude: 0, Longitude: 0}
	b := Location{Latitude: 1, Longitude: 1}
	h := a.Heading(b)
	if h < 0 || h >= 360 {
		t.Fatalf("heading = %f, want in [0, 360)", h)
	}
}

