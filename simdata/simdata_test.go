// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package simdata

import (
	"testing"

	"github.com/riglink-foundation/riglink/internal/backendtest"
)

func fixture(t *testing.T) *SimData {
	t.Helper()
	raw := backendtest.MarshalDoc(backendtest.D{
		{Key: "active_sim", Value: "rfx"},
		{Key: "active_session", Value: "race1"},
		{Key: "sim", Value: backendtest.D{
			{Key: "name", Value: "RaceFactor X"},
		}},
		{Key: "vehicles", Value: backendtest.D{
			{Key: "gt3-a", Value: backendtest.D{
				{Key: "name", Value: "GT3 Type A"},
				{Key: "mass_kg", Value: 1240.0},
			}},
			{Key: "lmp-b", Value: backendtest.D{
				{Key: "name", Value: "LMP Type B"},
			}},
		}},
		{Key: "participants", Value: backendtest.D{
			{Key: "0001", Value: backendtest.D{
				{Key: "name", Value: "P. Driver"},
				{Key: "vehicle", Value: "gt3-a"},
			}},
			{Key: "00ff", Value: backendtest.D{
				{Key: "name", Value: "A. Nother"},
			}},
			{Key: "zzzz", Value: backendtest.D{}}, // invalid key, skipped
		}},
		{Key: "sessions", Value: backendtest.D{
			{Key: "race1", Value: backendtest.D{
				{Key: "session_type", Value: "race"},
				{Key: "player_participant_id", Value: int32(1)},
				{Key: "player_vehicle_id", Value: "gt3-a"},
				{Key: "track_id", Value: "monza"},
			}},
		}},
		{Key: "tracks", Value: backendtest.D{
			{Key: "monza", Value: backendtest.D{
				{Key: "name", Value: "Monza"},
			}},
		}},
		{Key: "tires", Value: backendtest.D{
			{Key: "0002", Value: backendtest.D{
				{Key: "name", Value: "soft"},
			}},
		}},
	})

	data, err := Parse(raw, 7)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return data
}

func TestParseSections(t *testing.T) {
	data := fixture(t)

	if data.Revision() != 7 {
		t.Errorf("Revision = %d", data.Revision())
	}
	if got := data.Sim().StringOr("name", ""); got != "RaceFactor X" {
		t.Errorf("sim name = %q", got)
	}
	if len(data.Vehicles()) != 2 {
		t.Errorf("vehicles = %d", len(data.Vehicles()))
	}
	if len(data.Participants()) != 2 {
		t.Errorf("participants = %d (invalid key should be skipped)", len(data.Participants()))
	}
	if len(data.Tires()) != 1 || data.Tires()[0].NumericID != 2 {
		t.Errorf("tires = %+v", data.Tires())
	}
}

func TestPropertyLookups(t *testing.T) {
	data := fixture(t)

	gt3 := data.Vehicle("gt3-a")
	if gt3 == nil {
		t.Fatal("gt3-a missing")
	}
	if gt3.Name() != "GT3 Type A" {
		t.Errorf("Name = %q", gt3.Name())
	}
	if mass, ok := gt3.Float64("mass_kg"); !ok || mass != 1240 {
		t.Errorf("mass_kg = %v, %v", mass, ok)
	}
	if _, ok := gt3.Float64("downforce_n"); ok {
		t.Error("absent property reported present")
	}
	if got := gt3.StringOr("livery", "default"); got != "default" {
		t.Errorf("StringOr fallback = %q", got)
	}
}

func TestPlayerResolution(t *testing.T) {
	data := fixture(t)

	current := data.CurrentSession()
	if current == nil {
		t.Fatal("no current session")
	}
	if typ, _ := current.String(SessionType); typ != "race" {
		t.Errorf("session type = %q", typ)
	}

	vehicle := data.PlayerVehicle()
	if vehicle == nil || vehicle.Name() != "GT3 Type A" {
		t.Errorf("player vehicle = %+v", vehicle)
	}

	participant := data.PlayerParticipant()
	if participant == nil || participant.NumericID != 1 {
		t.Errorf("player participant = %+v", participant)
	}
	if name, _ := participant.String("name"); name != "P. Driver" {
		t.Errorf("participant name = %q", name)
	}

	track := data.CurrentTrack()
	if track == nil || track.Name() != "Monza" {
		t.Errorf("current track = %+v", track)
	}
}

func TestNoActiveSession(t *testing.T) {
	raw := backendtest.MarshalDoc(backendtest.D{
		{Key: "vehicles", Value: backendtest.D{}},
	})
	data, err := Parse(raw, 1)
	if err != nil {
		t.Fatal(err)
	}
	if data.CurrentSession() != nil || data.PlayerVehicle() != nil || data.PlayerParticipant() != nil {
		t.Error("player resolution should be nil without an active session")
	}
}

func TestNumericKey(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"0001", 1, true},
		{"00ff", 255, true},
		{"00FF", 255, true},
		{"1000", 4096, true},
		{"12", 0, false},
		{"xyzw", 0, false},
	}
	for _, c := range cases {
		got, ok := numericKey(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("numericKey(%q) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}
