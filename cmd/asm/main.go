// Command asm is a two-pass 6502 assembler front end over asm/assembler,
// replacing the teacher's hand_asm (an egrep/sed/cut shell-out over a
// hand-written hex listing) with a real pipeline consumer. Built with
// urfave/cli/v2, following the flag/alias shape of the chr2png tool in
// the pack (master-g-childhood/go/chr2png).
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/gregbell/lib6502-sub001/asm/assembler"
)

func main() {
	app := &cli.App{
		Name:  "asm",
		Usage: "assemble 6502 source into a C64-loadable program",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "org",
				Usage: "load address, prepended to the source as a leading .org when non-zero",
			},
			&cli.StringFlag{
				Name:    "o",
				Aliases: []string{"out"},
				Usage:   "output file (default: <input>.prg or .bin)",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "prg",
				Usage: "output format: prg (2-byte load-address header) or raw",
			},
			&cli.StringFlag{
				Name:  "symbols",
				Usage: "write the resolved symbol table to this file",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("usage: asm [flags] <source.asm>", 86)
	}
	inPath := c.Args().First()

	src, err := os.ReadFile(inPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading %s: %v", inPath, err), 1)
	}

	source := string(src)
	org := uint(c.Uint("org"))
	if org > 0 {
		source = fmt.Sprintf(".org $%04X\n%s", org, source)
	}

	out, errs := assembler.Assemble(source)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return cli.Exit(fmt.Sprintf("%d error(s)", len(errs)), 1)
	}

	format := c.String("format")
	if format != "prg" && format != "raw" {
		return cli.Exit(fmt.Sprintf("unknown format %q (want prg or raw)", format), 86)
	}

	body := out.Bytes
	if int(org) < len(body) {
		body = body[org:]
	} else {
		body = nil
	}

	outPath := c.String("o")
	if outPath == "" {
		if format == "prg" {
			outPath = inPath + ".prg"
		} else {
			outPath = inPath + ".bin"
		}
	}

	var blob []byte
	if format == "prg" {
		header := make([]byte, 2)
		binary.LittleEndian.PutUint16(header, uint16(org))
		blob = append(header, body...)
	} else {
		blob = body
	}

	if err := os.WriteFile(outPath, blob, 0644); err != nil {
		return cli.Exit(fmt.Sprintf("writing %s: %v", outPath, err), 1)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(blob))

	if symPath := c.String("symbols"); symPath != "" {
		if err := writeSymbols(symPath, out.SymbolTable); err != nil {
			return cli.Exit(fmt.Sprintf("writing %s: %v", symPath, err), 1)
		}
	}

	return nil
}

func writeSymbols(path string, symbols assembler.SymbolTable) error {
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range names {
		sym := symbols[name]
		kind := "label"
		if sym.Kind == assembler.SymbolConstant {
			kind = "const"
		}
		fmt.Fprintf(f, "%-24s $%04X  %s\n", name, sym.Value, kind)
	}
	return nil
}
