// Command stencil-extract turns an object file compiled from stencil
// sources into C code that copies and patches the stencils.
//
// Usage:
//
//	stencil-extract -header stencils.h -source stencils.c [-manifest stencils.yaml] object.o
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/fatih/color"
	"github.com/xyproto/env/v2"

	"github.com/maxgio92/stencil"
	"github.com/maxgio92/stencil/internal/emit"
)

type config struct {
	object   string
	header   string
	source   string
	manifest string
	prefix   string
	listing  bool
	verbose  bool
}

func parseFlags(args []string) (*config, error) {
	// env caches the environment; pick up variables set since the last read.
	env.Load()

	fs := flag.NewFlagSet("stencil-extract", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s -header <out.h> -source <out.c> [flags] <object-file>\n", fs.Name())
		fs.PrintDefaults()
	}

	cfg := &config{}
	fs.StringVar(&cfg.header, "header", "", "path of the generated C header (required)")
	fs.StringVar(&cfg.source, "source", "", "path of the generated C source (required)")
	fs.StringVar(&cfg.manifest, "manifest", "", "path of an optional YAML description of the stencils")
	fs.StringVar(&cfg.prefix, "prefix", env.Str("STENCIL_EXTRACT_PREFIX", emit.DefaultPrefix), "prefix of generated C identifiers")
	fs.BoolVar(&cfg.listing, "listing", env.Bool("STENCIL_EXTRACT_LISTING"), "print an instruction listing of every stencil")
	fs.BoolVar(&cfg.verbose, "v", env.Bool("STENCIL_EXTRACT_VERBOSE"), "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one object file, got %d", fs.NArg())
	}
	if cfg.header == "" || cfg.source == "" {
		fs.Usage()
		return nil, fmt.Errorf("both -header and -source are required")
	}
	cfg.object = fs.Arg(0)

	return cfg, nil
}

type output struct {
	path   string
	render func() ([]byte, error)
}

func run(cfg *config) error {
	m, err := stencil.ExtractFile(cfg.object)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.object, err)
	}

	log.WithFields(log.Fields{
		"object":   cfg.object,
		"stencils": len(m.Stencils),
		"holes":    len(m.Holes),
	}).Info("extracted stencils")
	for _, s := range m.Stencils {
		log.WithFields(log.Fields{
			"size":   len(s.Code),
			"relocs": len(s.Relocs),
			"holes":  len(s.Holes),
		}).Debug(s.Name)
	}

	if cfg.verbose {
		if err := emit.Dump(os.Stdout, m); err != nil {
			return err
		}
	}
	if cfg.listing {
		if err := emit.DumpListing(os.Stdout, m); err != nil {
			return err
		}
	}

	opts := emit.Options{Prefix: cfg.prefix, HeaderPath: cfg.header}

	// Render everything before writing, so a failure leaves no output behind.
	outputs := []output{
		{cfg.header, func() ([]byte, error) { return emit.Header(m, opts) }},
		{cfg.source, func() ([]byte, error) { return emit.Source(m, opts) }},
	}
	if cfg.manifest != "" {
		outputs = append(outputs, output{cfg.manifest, func() ([]byte, error) { return emit.Manifest(m) }})
	}

	rendered := make([][]byte, len(outputs))
	for i, out := range outputs {
		if rendered[i], err = out.render(); err != nil {
			return fmt.Errorf("%s: %w", out.path, err)
		}
	}
	for i, out := range outputs {
		if err := os.WriteFile(out.path, rendered[i], 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out.path, err)
		}
		log.WithField("path", out.path).Debug("wrote")
	}

	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "stencil-extract: %s: %v\n", color.New(color.Bold, color.FgRed).Sprint("fatal"), err)
	os.Exit(1)
}

func main() {
	log.SetHandler(cli.New(os.Stderr))

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fatal(err)
	}
	if cfg.verbose {
		log.SetLevel(log.DebugLevel)
	}

	if err := run(cfg); err != nil {
		fatal(err)
	}
}
