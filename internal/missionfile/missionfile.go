// Package missionfile loads preplanned missions from disk.
package missionfile

import (
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/diebengay/grvc-utils/internal/mission"
)

type Preplanned struct {
	Name     string            `yaml:"name"`
	Elements []mission.Element `yaml:"elements"`
}

// Load reads mission-<device>.yaml from dir, falling back to mission.yaml when the
// device has no file of its own. JSON files are accepted as well.
func Load(dir, deviceID string) (Preplanned, error) {
	filename := filepath.Join(dir, fmt.Sprintf("mission-%s.yaml", deviceID))
	m, err := LoadFile(filename)
	if err != nil {
		log.Printf("Preplanned: %v, trying shared mission", err)
		return LoadFile(filepath.Join(dir, "mission.yaml"))
	}

	return m, nil
}

func LoadFile(filename string) (Preplanned, error) {
	text, err := ioutil.ReadFile(filename)
	if err != nil {
		return Preplanned{}, err
	}

	var m Preplanned
	err = yaml.Unmarshal(text, &m)
	if err != nil {
		return Preplanned{}, errors.WithMessagef(err, "Could not parse %s", filename)
	}
	if len(m.Elements) == 0 {
		return Preplanned{}, errors.Errorf("%s has no mission elements", filename)
	}

	return m, nil
}
