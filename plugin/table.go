package plugin

import "github.com/soundplug/soundplug"

// The bank scan range is 0..128 inclusive, one slot wider than the 0..127
// MIDI bank range: some sound banks place presets (typically percussion) in
// the extra bank slot 128 and the table exposes them as flat indices like
// any other preset.
const (
	maxBank     = 128
	numPrograms = 128
)

// BuildPresetTable scans every addressable (bank, program) slot of the
// loaded bank in ascending order and returns the populated ones as a dense
// table. The scan order defines the flat program index the host selects by,
// so both the runtime and the descriptor generator build their tables with
// this one function.
func BuildPresetTable(synth soundplug.Synth) soundplug.PresetTable {
	var table soundplug.PresetTable
	for bank := 0; bank <= maxBank; bank++ {
		for prog := 0; prog < numPrograms; prog++ {
			if synth.PresetExists(bank, prog) {
				table = append(table, soundplug.PresetSlot{Bank: bank, Program: prog})
			}
		}
	}
	return table
}
