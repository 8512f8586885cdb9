package main

import (
	"os"
	"path/filepath"
	"strings"
)

// InputError reports a bad command-line input. Nothing has been read when
// it is returned.
type InputError struct {
	Path string
	Msg  string
}

func (e *InputError) Error() string {
	return e.Msg + ": " + e.Path
}

// validateInputs checks extensions and existence, sources first. sources is
// empty when they come from a PostGIS table.
func validateInputs(sources, blocks string) error {
	if sources != "" {
		if !hasExt(sources, ".geojson") {
			return &InputError{Path: sources, Msg: "sources file must be a .geojson"}
		}
		if !isFile(sources) {
			return &InputError{Path: sources, Msg: "sources file does not exist"}
		}
	}
	if !hasExt(blocks, ".zip") {
		return &InputError{Path: blocks, Msg: "blocks file must be a .zip"}
	}
	if !isFile(blocks) {
		return &InputError{Path: blocks, Msg: "blocks file does not exist"}
	}
	return nil
}

func hasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// defaultOutputPath derives "<sources>_blocks.<ext>" next to the sources
// file, or "<table>_blocks.<ext>" in the working directory.
func defaultOutputPath(sources, table, format string) string {
	ext := "csv"
	if format == "xlsx" {
		ext = "xlsx"
	}
	if sources != "" {
		return strings.TrimSuffix(sources, filepath.Ext(sources)) + "_blocks." + ext
	}
	name := table
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name + "_blocks." + ext
}
