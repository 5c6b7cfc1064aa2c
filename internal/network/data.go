package network

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed data/athens.yaml
var athensYAML []byte

// Data is the static description of a network as packaged or loaded at
// process start. Build turns it into an immutable Graph.
type Data struct {
	Name     string         `yaml:"name"`
	Stations []StationData  `yaml:"stations" validate:"required,min=1,dive"`
	Lines    []LineData     `yaml:"lines" validate:"required,min=1,dive"`
	Schedule []ScheduleData `yaml:"schedule" validate:"dive"`
}

type StationData struct {
	ID          string  `yaml:"id" validate:"required"`
	Name        string  `yaml:"name" validate:"required"`
	NameLocal   string  `yaml:"name_local"`
	Lat         float64 `yaml:"lat" validate:"latitude"`
	Lon         float64 `yaml:"lon" validate:"longitude"`
	Interchange bool    `yaml:"interchange"`
}

type LineData struct {
	ID       string   `yaml:"id" validate:"required"`
	Name     string   `yaml:"name"`
	Color    string   `yaml:"color" validate:"omitempty,hexcolor"`
	Vehicle  string   `yaml:"vehicle"`
	Stations []string `yaml:"stations" validate:"required,min=2"`
}

// ScheduleData holds minute offsets aligned with the line's station order.
// A negative offset marks a station with no scheduled time.
type ScheduleData struct {
	Line     string `yaml:"line" validate:"required"`
	Forward  []int  `yaml:"forward"`
	Backward []int  `yaml:"backward"`
}

// Embedded returns the packaged Athens metro data.
func Embedded() (*Data, error) {
	return ParseYAML(athensYAML)
}

// LoadFile reads network data from a YAML file on disk.
func LoadFile(path string) (*Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network file: %w", err)
	}
	return ParseYAML(b)
}

// ParseYAML decodes and validates network data.
func ParseYAML(b []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode network data: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks field level constraints. Cross references between
// stations, lines and schedules are checked by Build.
func (d *Data) Validate() error {
	if err := validator.New().Struct(d); err != nil {
		return fmt.Errorf("invalid network data: %w", err)
	}
	return nil
}
