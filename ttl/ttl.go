// Package ttl generates the LV2 descriptor documents of a plugin bundle:
// the plugin .ttl enumerating ports and one scale point per preset, and the
// manifest.ttl referencing the binary. The port indices and the preset
// ordering here are a binding contract with the plugin package: the runtime
// and the descriptor must agree on both, which is why a Descriptor is built
// from the same preset table the runtime uses.
package ttl

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/soundplug/soundplug"
	"github.com/soundplug/soundplug/plugin"
)

//go:embed templates/*.ttl
var templateFS embed.FS

type (
	Descriptor struct {
		Name        string // sanitized name used in URIs and file names
		DisplayName string
		URI         string
		Binary      string // plugin binary referenced by the manifest
		Presets     []Preset
		Controls    []Control
	}

	// Preset is one scale point of the program port, in preset table order.
	Preset struct {
		Index int
		Bank  int
		Prog  int
		Name  string
	}

	// Control is one of the sound parameter input ports.
	Control struct {
		Index   int
		Symbol  string
		Name    string
		Default float64
	}
)

// soundControls are the optional control ports 5..10. Indices come from the
// plugin package so the two halves cannot drift apart.
var soundControls = []Control{
	{Index: int(plugin.PortCutoff), Symbol: "cutoff", Name: "Filter Cutoff", Default: 1.0},
	{Index: int(plugin.PortResonance), Symbol: "resonance", Name: "Filter Resonance"},
	{Index: int(plugin.PortAttack), Symbol: "attack", Name: "Attack Time"},
	{Index: int(plugin.PortDecay), Symbol: "decay", Name: "Decay Time"},
	{Index: int(plugin.PortSustain), Symbol: "sustain", Name: "Sustain Level"},
	{Index: int(plugin.PortRelease), Symbol: "release", Name: "Release Time"},
}

// New builds a descriptor for the given config and preset table. presetName
// resolves display names for the scale points; binary is the plugin binary
// file name the manifest references.
func New(config soundplug.Config, table soundplug.PresetTable, presetName func(bank, program int) string, binary string) *Descriptor {
	d := &Descriptor{
		Name:        Sanitize(config.DisplayName),
		DisplayName: config.DisplayName,
		URI:         config.URI,
		Binary:      binary,
		Controls:    soundControls,
	}
	for i, slot := range table {
		name := presetName(slot.Bank, slot.Program)
		if name == "" {
			name = fmt.Sprintf("Preset %d-%d", slot.Bank, slot.Program)
		}
		d.Presets = append(d.Presets, Preset{Index: i, Bank: slot.Bank, Prog: slot.Program, Name: name})
	}
	return d
}

// Files renders the descriptor documents and returns them as a map from
// file name to contents.
func (d *Descriptor) Files() (map[string]string, error) {
	if len(d.Presets) == 0 {
		return nil, fmt.Errorf("descriptor for %v has no presets", d.DisplayName)
	}
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.ttl")
	if err != nil {
		return nil, fmt.Errorf("could not parse descriptor templates: %w", err)
	}
	ret := map[string]string{}
	for templateName, fileName := range map[string]string{
		"plugin.ttl":   d.Name + ".ttl",
		"manifest.ttl": "manifest.ttl",
	} {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, templateName, d); err != nil {
			return nil, fmt.Errorf("could not execute template %v: %w", templateName, err)
		}
		ret[fileName] = buf.String()
	}
	return ret, nil
}

// Sanitize turns a display name into something usable in file names and
// URIs, the same way the bundle builder names its outputs.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.':
			return '_'
		}
		return r
	}, name)
}
