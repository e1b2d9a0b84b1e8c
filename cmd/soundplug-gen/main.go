// Command soundplug-gen builds an LV2 plugin bundle from a SoundFont: it
// enumerates the presets of the bank, writes the descriptor .ttl and
// manifest.ttl, the bundle config and a copy of the bank file. The preset
// ordering and port indices in the descriptor are the ones the plugin
// runtime uses, because both are built from the same preset table.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soundplug/soundplug"
	"github.com/soundplug/soundplug/engine"
	"github.com/soundplug/soundplug/plugin"
	"github.com/soundplug/soundplug/ttl"
	"github.com/soundplug/soundplug/version"
)

func main() {
	outPath := flag.String("o", "builds", "Directory where to write the plugin bundles. The directory and its parents are created if needed.")
	stdout := flag.Bool("s", false, "Do not write files; write the descriptor to standard output instead.")
	safe := flag.Bool("n", false, "Never overwrite files; if a bundle already exists, give an error.")
	binary := flag.String("b", "", "Plugin binary file name referenced by the manifest. Defaults to <name>.so.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	retval := 0
	for _, bankFile := range flag.Args() {
		if err := generate(bankFile, *outPath, *binary, *stdout, *safe); err != nil {
			fmt.Fprintf(os.Stderr, "could not generate bundle for %v: %v\n", bankFile, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func generate(bankFile, outPath, binary string, stdout, safe bool) error {
	base := filepath.Base(bankFile)
	displayName := strings.TrimSuffix(base, filepath.Ext(base))
	config := soundplug.Config{
		DisplayName: displayName,
		BankFile:    base,
	}
	if err := config.Validate(); err != nil {
		return err
	}
	synth, err := engine.Synther{}.Synth(bankFile, 44100, config)
	if err != nil {
		return err
	}
	defer synth.Close()
	table := plugin.BuildPresetTable(synth)
	if len(table) == 0 {
		return fmt.Errorf("no presets found in %v", bankFile)
	}
	name := ttl.Sanitize(displayName)
	if binary == "" {
		binary = name + ".so"
	}
	files, err := ttl.New(config, table, synth.PresetName, binary).Files()
	if err != nil {
		return err
	}
	if stdout {
		for _, contents := range files {
			fmt.Print(contents)
		}
		return nil
	}
	bundleDir := filepath.Join(outPath, name+".lv2")
	if safe {
		if _, err := os.Stat(bundleDir); err == nil {
			return fmt.Errorf("bundle %v already exists", bundleDir)
		}
	}
	if err := os.MkdirAll(bundleDir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create bundle directory %v: %v", bundleDir, err)
	}
	for fileName, contents := range files {
		f := filepath.Join(bundleDir, fileName)
		if err := os.WriteFile(f, []byte(contents), 0644); err != nil {
			return fmt.Errorf("could not write file %v: %v", f, err)
		}
	}
	if err := config.Save(filepath.Join(bundleDir, name+".yml")); err != nil {
		return err
	}
	if err := copyFile(bankFile, filepath.Join(bundleDir, base)); err != nil {
		return err
	}
	fmt.Printf("generated bundle %v with %v presets\n", bundleDir, len(table))
	return nil
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("could not open %v: %v", srcPath, err)
	}
	defer src.Close()
	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("could not create %v: %v", dstPath, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("could not copy %v to %v: %v", srcPath, dstPath, err)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [soundfont.sf2 ...]\nGenerate LV2 plugin bundles from SoundFont files.\n", os.Args[0])
	flag.PrintDefaults()
}
