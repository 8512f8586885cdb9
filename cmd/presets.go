package main

import "github.com/spf13/cobra"

// preset is a map command with fixed GeoJSON property names.
type preset struct {
	name           string
	short          string
	idProperty     string
	regionProperty string
}

var presets = []preset{
	{name: "districts", short: "Map blocks to districts (id property \"district\")", idProperty: "district", regionProperty: "state"},
	{name: "precincts", short: "Map blocks to precincts (id property \"precinct\")", idProperty: "precinct", regionProperty: "state"},
}

func (p preset) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   p.name + " <shapes.geojson> <blocks.zip>",
		Short: p.short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := mapOptionsFromFlags(cmd, args, p.idProperty, p.regionProperty)
			if err != nil {
				return err
			}
			return runMapCommand(cmd, opts)
		},
	}
	addMapFlags(cmd)
	return cmd
}

func init() {
	for _, p := range presets {
		rootCmd.AddCommand(p.command())
	}
}
