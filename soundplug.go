package soundplug

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type (
	// Config holds everything about a plugin bundle that used to be baked in
	// at compile time: the name shown to the host, the plugin URI and the
	// sound bank file the instrument plays. One Config is passed at
	// instantiation and owned by the instance; there is no shared mutable
	// state between instances.
	Config struct {
		DisplayName string `yaml:"name"`
		URI         string `yaml:"uri"`
		// BankFile is the sound bank file name, resolved relative to the
		// bundle directory at instantiation.
		BankFile  string  `yaml:"bank"`
		Polyphony int     `yaml:"polyphony,omitempty"`
		Gain      float32 `yaml:"gain,omitempty"`
		Reverb    bool    `yaml:"reverb,omitempty"`
		Chorus    bool    `yaml:"chorus,omitempty"`
	}

	// PresetSlot is the (bank, program) address of one preset within a sound
	// bank. Slots are immutable once the preset table is built.
	PresetSlot struct {
		Bank    int
		Program int
	}

	// PresetTable is the dense, scan-ordered index of all populated preset
	// slots of a loaded bank. The position of a slot in the table is the flat
	// program index the host control surface selects by, so the table
	// ordering is part of the contract with the descriptor generator.
	PresetTable []PresetSlot
)

const (
	// DefaultPolyphony is the number of simultaneous voices when the config
	// does not say otherwise.
	DefaultPolyphony = 16

	// DefaultGain is the master gain when the config does not say otherwise.
	DefaultGain float32 = 1.0
)

func (c *Config) Copy() Config {
	return *c
}

// Validate fills in defaults and checks that the config identifies a bank.
func (c *Config) Validate() error {
	if c.BankFile == "" {
		return errors.New("config has no bank file")
	}
	if c.DisplayName == "" {
		c.DisplayName = "soundplug"
	}
	if c.URI == "" {
		c.URI = "https://github.com/soundplug/soundplug/" + c.DisplayName
	}
	if c.Polyphony <= 0 {
		c.Polyphony = DefaultPolyphony
	}
	if c.Gain <= 0 {
		c.Gain = DefaultGain
	}
	return nil
}

// LoadConfig reads and validates a bundle config from a YAML file.
func LoadConfig(filename string) (Config, error) {
	var c Config
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config %v: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("could not parse config %v: %w", filename, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %v: %w", filename, err)
	}
	return c, nil
}

// Save writes the config as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("could not write config %v: %w", filename, err)
	}
	return nil
}

func (t PresetTable) Copy() PresetTable {
	ret := make(PresetTable, len(t))
	copy(ret, t)
	return ret
}

// Index returns the flat program index of the given slot, or -1 if the slot
// is not in the table.
func (t PresetTable) Index(slot PresetSlot) int {
	for i, s := range t {
		if s == slot {
			return i
		}
	}
	return -1
}

// Validate checks the table invariants: non-empty and strictly increasing in
// (bank, program) order.
func (t PresetTable) Validate() error {
	if len(t) == 0 {
		return errors.New("preset table is empty")
	}
	for i := 1; i < len(t); i++ {
		a, b := t[i-1], t[i]
		if a.Bank > b.Bank || (a.Bank == b.Bank && a.Program >= b.Program) {
			return fmt.Errorf("preset table slots %v and %v are not in ascending (bank, program) order", i-1, i)
		}
	}
	return nil
}
