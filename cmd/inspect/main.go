package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/woozymasta/geoxchange/internal/convert"
	"github.com/woozymasta/geoxchange/internal/report"
	"github.com/woozymasta/geoxchange/internal/vector"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Output string `short:"o" long:"out"     description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format"  description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Args   struct {
		Input string `positional-arg-name:"FILE" required:"true"`
	} `positional-args:"yes"`
	Entries bool `short:"e" long:"entries" description:"Include every report entry"`
}

// Summary describes an imported document.
type Summary struct {
	Name       string         `json:"name" yaml:"name"`
	Format     string         `json:"format" yaml:"format"`
	Projection string         `json:"projection" yaml:"projection"`
	View       *vector.View   `json:"view,omitempty" yaml:"view,omitempty"`
	Bound      []float64      `json:"bbox,omitempty" yaml:"bbox,omitempty"`
	Layers     []LayerSummary `json:"layers" yaml:"layers"`
	Styles     []string       `json:"styles,omitempty" yaml:"styles,omitempty"`
	Entries    []report.Entry `json:"entries,omitempty" yaml:"entries,omitempty"`
	Nodes      int            `json:"nodes" yaml:"nodes"`
	Errors     int            `json:"errors" yaml:"errors"`
	Warnings   int            `json:"warnings" yaml:"warnings"`
}

// LayerSummary counts the objects of one layer.
type LayerSummary struct {
	Name    string         `json:"name" yaml:"name"`
	Kinds   map[string]int `json:"kinds" yaml:"kinds"`
	Classes map[string]int `json:"classes" yaml:"classes"`
	Objects int            `json:"objects" yaml:"objects"`
	Visible bool           `json:"visible" yaml:"visible"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	m, rep, err := convert.Import(opts.Args.Input, nil)
	if err != nil && (m == nil || m.ObjectCount() == 0) {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", opts.Args.Input, err)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s read partially: %v\n", opts.Args.Input, err)
	}

	s := summarize(m, rep)
	if !opts.Entries {
		s.Entries = nil
	}

	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(s)
	} else {
		outputData, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling summary: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println(string(outputData))
}

func summarize(m *vector.Map, rep *report.Report) Summary {
	m.EnsureView()
	s := Summary{
		Name:       m.Name,
		Format:     rep.Format,
		Projection: string(m.Projection),
		View:       m.View,
		Nodes:      m.Nodes.Len(),
		Errors:     rep.Errors(),
		Warnings:   rep.Warnings(),
		Entries:    rep.Entries(),
	}

	if b, ok := m.Bound(); ok {
		s.Bound = []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
	}

	for _, st := range m.Theme.Styles() {
		s.Styles = append(s.Styles, st.ID)
	}
	sort.Strings(s.Styles)

	for _, l := range m.Layers {
		ls := LayerSummary{
			Name:    l.Name,
			Objects: l.Len(),
			Visible: l.Visible,
			Kinds:   make(map[string]int),
			Classes: make(map[string]int),
		}
		for kind, n := range l.Counts() {
			ls.Kinds[kind.String()] = n
		}
		for _, o := range l.Objects {
			ls.Classes[o.Base().Class]++
		}
		s.Layers = append(s.Layers, ls)
	}
	return s
}
