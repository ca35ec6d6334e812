// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang/glog"

	"github.com/ezrec/asm8/cpu"
	"github.com/ezrec/asm8/internal"
)

// defineList collects repeated -D NAME=VALUE flags.
type defineList [][2]string

func (dl *defineList) String() string {
	defs := make([]string, len(*dl))
	for n, def := range *dl {
		defs[n] = def[0] + "=" + def[1]
	}
	return strings.Join(defs, ",")
}

func (dl *defineList) Set(value string) error {
	name, val, ok := strings.Cut(value, "=")
	if !ok {
		val = "1"
	}
	// Local label spellings are not visible to $(...) expressions.
	if !cpu.IsLabel(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid name %q", name)
	}
	*dl = append(*dl, [2]string{name, val})
	return nil
}

// result is the -json form of a successful assembly.
type result struct {
	Code    []int          `json:"code"`
	Mapping map[int]int    `json:"mapping"`
	Labels  map[string]int `json:"labels"`
}

func writeJSON(w io.Writer, value any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(value)
	if err != nil {
		glog.Exitf("json: %v", err)
	}
}

func main() {
	var compile string
	var output string
	var listing bool
	var labels bool
	var asJSON bool
	var dump bool
	var defines defineList

	flag.StringVar(&compile, "c", "-", "Source file to assemble, - for stdin")
	flag.StringVar(&output, "o", "", "Binary output file, - for stdout")
	flag.BoolVar(&listing, "l", false, "Print a listing")
	flag.BoolVar(&labels, "labels", false, "Print the label table")
	flag.BoolVar(&asJSON, "json", false, "Print the result, or the error, as JSON")
	flag.BoolVar(&dump, "dump", false, "Dump the assembled program")
	flag.Var(&defines, "D", "Predefine NAME=VALUE for $(...) expressions (repeatable)")

	_ = flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	if flag.NArg() != 0 {
		glog.Exitf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	var input io.Reader = os.Stdin
	if compile != "-" {
		inf, err := os.Open(compile)
		if err != nil {
			glog.Exitf("%v: %v", compile, err)
		}
		defer inf.Close()
		input = inf
	}

	asm := &cpu.Assembler{Verbose: bool(glog.V(2))}
	for _, def := range defines {
		asm.Predefine(def[0], def[1])
	}
	for name, value := range asm.Predefines() {
		glog.V(1).Infof("predefine %v=%v", name, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		if asJSON {
			writeJSON(os.Stdout, cpu.Diagnose(err))
			glog.Flush()
			os.Exit(1)
		}
		glog.Exitf("%v: %v", compile, err)
	}

	if asJSON {
		res := result{
			Code:    make([]int, len(prog.Code)),
			Mapping: prog.Mapping,
			Labels:  prog.Labels,
		}
		for n, b := range prog.Code {
			res.Code[n] = int(b)
		}
		writeJSON(os.Stdout, res)
	}

	if listing {
		err = prog.Listing(os.Stdout)
		if err != nil {
			glog.Exitf("listing: %v", err)
		}
	}

	if labels {
		for label, ip := range internal.SortedByValue(prog.Labels) {
			fmt.Printf("%-16s 0x%02X\n", label, ip)
		}
	}

	if dump {
		spew.Fdump(os.Stdout, prog)
	}

	switch output {
	case "":
	case "-":
		_, err = os.Stdout.Write(prog.Binary())
		if err != nil {
			glog.Exitf("%v: %v", output, err)
		}
	default:
		err = os.WriteFile(output, prog.Binary(), 0o644)
		if err != nil {
			glog.Exitf("%v: %v", output, err)
		}
	}

	glog.V(1).Infof("%v: %d bytes", compile, len(prog.Code))
}
