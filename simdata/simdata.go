// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package simdata

import (
	"fmt"

	"github.com/riglink-foundation/riglink/lib/codec"
)

// Known session property names.
const (
	SessionPlayerParticipantID = "player_participant_id"
	SessionPlayerVehicleID     = "player_vehicle_id"
	SessionTrackID             = "track_id"
	SessionType                = "session_type"
	SessionName                = "session_name"
)

// Known vehicle, track, and sim property names.
const (
	PropName = "name"
)

// Section is a keyed sub-document with lazily-read properties. The raw
// document aliases the SimData's buffer; sections keep their SimData
// alive through it.
type Section struct {
	id  string
	raw codec.Document
}

// ID returns the section's key in the blob.
func (s Section) ID() string { return s.id }

// String reads a string property. The second value reports presence.
func (s Section) String(name string) (string, bool) {
	return s.raw.Lookup(name).StringValueOK()
}

// StringOr reads a string property with a default.
func (s Section) StringOr(name, fallback string) string {
	if v, ok := s.String(name); ok {
		return v
	}
	return fallback
}

// Int32 reads an int32 property.
func (s Section) Int32(name string) (int32, bool) {
	return s.raw.Lookup(name).Int32OK()
}

// Float64 reads a double property.
func (s Section) Float64(name string) (float64, bool) {
	return s.raw.Lookup(name).DoubleOK()
}

// Bool reads a boolean property.
func (s Section) Bool(name string) (bool, bool) {
	return s.raw.Lookup(name).BooleanOK()
}

// Vehicle describes one vehicle the simulator knows.
type Vehicle struct{ Section }

// Name returns the vehicle's display name.
func (v Vehicle) Name() string { return v.StringOr(PropName, "") }

// Track describes one track.
type Track struct{ Section }

// Name returns the track's display name.
func (t Track) Name() string { return t.StringOr(PropName, "") }

// Tire describes one tire compound. Tires are keyed numerically.
type Tire struct {
	Section
	NumericID int
}

// Participant is one entrant in the session, keyed numerically.
type Participant struct {
	Section
	NumericID int
}

// SessionInfo describes one simulator session (practice, race, ...).
type SessionInfo struct{ Section }

// SimData is a parsed snapshot of the simulator-state blob.
type SimData struct {
	revision uint32
	raw      []byte

	sim           Section
	activeSession string
	activeSim     string

	vehicles     []Vehicle
	participants []Participant
	sessions     []SessionInfo
	tracks       []Track
	tires        []Tire
}

// Parse decodes a validated sim-data BSON document.
func Parse(raw []byte, revision uint32) (*SimData, error) {
	doc := codec.Document(raw)
	elements, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("simdata: %w", err)
	}

	data := &SimData{revision: revision, raw: raw}
	for _, element := range elements {
		value := element.Value()
		switch element.Key() {
		case "active_session":
			if id, ok := value.StringValueOK(); ok {
				data.activeSession = id
			}
		case "active_sim":
			if id, ok := value.StringValueOK(); ok {
				data.activeSim = id
			}
		case "sim":
			if sub, ok := value.DocumentOK(); ok {
				data.sim = Section{id: data.activeSim, raw: sub}
			}
		case "vehicles":
			forEachSubDoc(value, func(key string, sub codec.Document) {
				data.vehicles = append(data.vehicles, Vehicle{Section{id: key, raw: sub}})
			})
		case "participants":
			forEachSubDoc(value, func(key string, sub codec.Document) {
				id, ok := numericKey(key)
				if !ok {
					return
				}
				data.participants = append(data.participants, Participant{Section{id: key, raw: sub}, id})
			})
		case "sessions":
			forEachSubDoc(value, func(key string, sub codec.Document) {
				data.sessions = append(data.sessions, SessionInfo{Section{id: key, raw: sub}})
			})
		case "tracks":
			forEachSubDoc(value, func(key string, sub codec.Document) {
				data.tracks = append(data.tracks, Track{Section{id: key, raw: sub}})
			})
		case "tires":
			forEachSubDoc(value, func(key string, sub codec.Document) {
				id, ok := numericKey(key)
				if !ok {
					return
				}
				data.tires = append(data.tires, Tire{Section{id: key, raw: sub}, id})
			})
		}
	}
	return data, nil
}

func forEachSubDoc(value codec.Value, fn func(key string, sub codec.Document)) {
	doc, ok := value.DocumentOK()
	if !ok {
		return
	}
	elements, err := doc.Elements()
	if err != nil {
		return
	}
	for _, element := range elements {
		if sub, ok := element.Value().DocumentOK(); ok {
			fn(element.Key(), sub)
		}
	}
}

// numericKey parses the 4-hex-digit keys used for participants and
// tires.
func numericKey(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	n := 0
	for _, c := range []byte(s) {
		switch {
		case c >= '0' && c <= '9':
			n = n<<4 + int(c-'0')
		case c >= 'a' && c <= 'f':
			n = n<<4 + int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n = n<<4 + int(c-'A') + 10
		default:
			return 0, false
		}
	}
	return n, true
}

// Revision returns the shared-memory revision of this snapshot.
func (d *SimData) Revision() uint32 { return d.revision }

// Sim returns the active simulator's section.
func (d *SimData) Sim() Section { return d.sim }

// Vehicles returns every known vehicle.
func (d *SimData) Vehicles() []Vehicle { return d.vehicles }

// Vehicle returns the vehicle with the given id, or nil.
func (d *SimData) Vehicle(id string) *Vehicle {
	for i := range d.vehicles {
		if d.vehicles[i].id == id {
			return &d.vehicles[i]
		}
	}
	return nil
}

// Participants returns every participant.
func (d *SimData) Participants() []Participant { return d.participants }

// Participant returns the participant with the given numeric id, or nil.
func (d *SimData) Participant(id int) *Participant {
	for i := range d.participants {
		if d.participants[i].NumericID == id {
			return &d.participants[i]
		}
	}
	return nil
}

// Sessions returns every simulator session.
func (d *SimData) Sessions() []SessionInfo { return d.sessions }

// Session returns the session with the given id, or nil.
func (d *SimData) Session(id string) *SessionInfo {
	for i := range d.sessions {
		if d.sessions[i].id == id {
			return &d.sessions[i]
		}
	}
	return nil
}

// Tracks returns every known track.
func (d *SimData) Tracks() []Track { return d.tracks }

// Track returns the track with the given id, or nil.
func (d *SimData) Track(id string) *Track {
	for i := range d.tracks {
		if d.tracks[i].id == id {
			return &d.tracks[i]
		}
	}
	return nil
}

// Tires returns every tire compound.
func (d *SimData) Tires() []Tire { return d.tires }

// CurrentSession returns the active session, or nil when the simulator
// has not announced one.
func (d *SimData) CurrentSession() *SessionInfo {
	if d.activeSession == "" {
		return nil
	}
	return d.Session(d.activeSession)
}

// PlayerVehicle resolves the player's vehicle through the active
// session, or nil.
func (d *SimData) PlayerVehicle() *Vehicle {
	current := d.CurrentSession()
	if current == nil {
		return nil
	}
	id, ok := current.String(SessionPlayerVehicleID)
	if !ok {
		return nil
	}
	return d.Vehicle(id)
}

// PlayerParticipant resolves the player's participant entry through the
// active session, or nil.
func (d *SimData) PlayerParticipant() *Participant {
	current := d.CurrentSession()
	if current == nil {
		return nil
	}
	id, ok := current.Int32(SessionPlayerParticipantID)
	if !ok {
		return nil
	}
	return d.Participant(int(id))
}

// CurrentTrack resolves the active session's track, or nil.
func (d *SimData) CurrentTrack() *Track {
	current := d.CurrentSession()
	if current == nil {
		return nil
	}
	id, ok := current.String(SessionTrackID)
	if !ok {
		return nil
	}
	return d.Track(id)
}
