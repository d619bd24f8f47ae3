package missionfile

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/diebengay/grvc-utils/internal/mission"
)

const shared = `
name: survey
elements:
  - type: takeoff_aux
    params: {minimum_pitch: 15, aux_distance: 100, aux_height: 40}
  - type: pass
    poses:
      - position: {x: 200, y: 0, z: 60}
      - position: {x: 400, y: 100, z: 60}
    params: {acceptance_radius: 10, orbit_distance: 0}
  - type: land_aux
    params: {precision_mode: 0, abort_altitude: 0, aux_distance: 300}
`

const device = `{"name": "solo", "elements": [{"type": "loiter_unlimited", "poses": [{"position": {"x": 0, "y": 0, "z": 80}}], "params": {"radius": 60}}]}`

func write(t *testing.T, dir, name, text string) {
	t.Helper()
	if err := ioutil.WriteFile(filepath.Join(dir, name), []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFallsBackToShared(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "mission.yaml", shared)

	m, err := Load(dir, "uav-1")
	if err != nil {
		t.Fatalf("got error %v", err)
	}
	if m.Name != "survey" || len(m.Elements) != 3 {
		t.Fatalf("got %s with %d elements, expected survey with 3", m.Name, len(m.Elements))
	}
	expected := []mission.ElementType{mission.TakeoffAux, mission.Pass, mission.LandAux}
	for i, e := range m.Elements {
		if e.Type != expected[i] {
			t.Errorf("element %d: got %v, expected %v", i, e.Type, expected[i])
		}
	}
	if got := m.Elements[1].Poses[1].Position.Y; got != 100 {
		t.Errorf("got y %v, expected 100", got)
	}
	if _, err := mission.Items(m.Elements); err != nil {
		t.Errorf("got error %v", err)
	}
}

func TestLoadPrefersDeviceFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "mission.yaml", shared)
	write(t, dir, "mission-uav-1.yaml", device)

	m, err := Load(dir, "uav-1")
	if err != nil {
		t.Fatalf("got error %v", err)
	}
	if m.Name != "solo" || m.Elements[0].Type != mission.LoiterUnlimited || m.Elements[0].Params[mission.ParamRadius] != 60 {
		t.Errorf("got %+v", m)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing", ""},
		{"unknown type", "elements:\n  - type: hover\n"},
		{"no elements", "name: empty\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			if test.text != "" {
				write(t, dir, "mission.yaml", test.text)
			}
			if _, err := Load(dir, "uav-1"); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}
