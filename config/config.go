package config

import (
	"io/ioutil"
	"log"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Import tuning shared by the tools and the web server. Scale
// multiplies bone translations, ZUp converts resolved world positions
// from the PSP convention (Y up) to Z up.
type Settings struct {
	Scale    float32 `yaml:"scale"`
	ZUp      bool    `yaml:"zup"`
	Encoding string  `yaml:"encoding"`
}

var settings = Settings{
	Scale:    1.0,
	ZUp:      true,
	Encoding: "",
}

func GetSettings() Settings {
	return settings
}

func SetSettings(s Settings) error {
	if s.Scale == 0 {
		return errors.Errorf("Zero import scale")
	}
	if s.Encoding != "" {
		if err := SetEncoding(s.Encoding); err != nil {
			return err
		}
	}
	settings = s
	return nil
}

func LoadSettings(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[config] Settings file %q not found, using defaults", path)
			return nil
		}
		return errors.Wrapf(err, "Failed to read settings %q", path)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return errors.Wrapf(err, "Failed to parse settings %q", path)
	}

	return SetSettings(s)
}

func SaveSettings(path string) error {
	data, err := yaml.Marshal(&settings)
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal settings")
	}
	if err := ioutil.WriteFile(path, data, 0666); err != nil {
		return errors.Wrapf(err, "Failed to write settings %q", path)
	}
	return nil
}
