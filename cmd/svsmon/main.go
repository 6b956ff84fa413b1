/*
   svsmon - interactive monitor for one SVS processor core.

   Copyright 2024, Richard Cornwell
   Copyright 2024, the svs-cpu contributors

   Permission is hereby granted, free of charge, to any person obtaining a copy
   of this software and associated documentation files (the "Software"), to deal
   in the Software without restriction, including without limitation the rights
   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
   copies of the Software, and to permit persons to whom the Software is
   furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
   SOFTWARE.
*/

// svsmon drives a single SVS processor from the command line: load a
// few words by hand or from a simple octal-pair text dump, then step
// or run it while watching registers. There is no device model and no
// binary loader here; that belongs to a separate front end.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/sergev/svs-cpu/internal/cpu"
	"github.com/sergev/svs-cpu/internal/fault"
	"github.com/sergev/svs-cpu/internal/word"
	logger "github.com/sergev/svs-cpu/util/logger"
)

func main() {
	optLoad := getopt.StringLong("load", 'l', "", "octal word dump to preload (addr word per line)")
	optLogFile := getopt.StringLong("log", 'L', "", "log file")
	optTrace := getopt.BoolLong("trace", 't', "log every instruction at debug level")
	optHelp := getopt.BoolLong("help", 'h', "help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	if *optTrace {
		level.Set(slog.LevelDebug)
	}
	log := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	mem := word.NewStore()
	proc := cpu.Allocate(0, mem, log)

	if *optLoad != "" {
		if err := loadDump(mem, *optLoad); err != nil {
			log.Error("loading dump", "path", *optLoad, "err", err)
			os.Exit(1)
		}
	}

	runMonitor(proc, mem)
}

// loadDump reads "addr word" octal pairs, one per line, poking each as
// a NUMBER-tagged word. Blank lines and lines starting with # are
// ignored.
func loadDump(mem *word.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("malformed line %q", line)
		}
		addr, err := strconv.ParseUint(fields[0], 8, 32)
		if err != nil {
			return err
		}
		value, err := strconv.ParseUint(fields[1], 8, 64)
		if err != nil {
			return err
		}
		mem.Write(uint32(addr), value, word.TagNumber48)
	}
	return scanner.Err()
}

// runMonitor is the interactive step/run/register-dump loop.
func runMonitor(proc *cpu.Processor, mem *word.Store) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("svsmon: s[tep], r[un], d <addr>, pc <addr>, regs, q[uit]")
	for {
		cmd, err := line.Prompt("svsmon> ")
		if err != nil {
			return
		}
		line.AppendHistory(cmd)

		fields := strings.Fields(cmd)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "s", "step":
			code := proc.Step()
			fmt.Printf("pc=%05o %s\n", proc.GetPC(), status(code))
		case "r", "run":
			code := proc.Run()
			fmt.Printf("stopped: %s\n", status(code))
		case "d":
			if len(fields) != 2 {
				fmt.Println("usage: d <octal addr>")
				continue
			}
			addr, err := strconv.ParseUint(fields[1], 8, 32)
			if err != nil {
				fmt.Println(err)
				continue
			}
			w := mem.ReadWord(uint32(addr))
			fmt.Printf("%05o: %016o\n", addr, w)
		case "pc":
			if len(fields) != 2 {
				fmt.Println("usage: pc <octal addr>")
				continue
			}
			addr, err := strconv.ParseUint(fields[1], 8, 32)
			if err != nil {
				fmt.Println(err)
				continue
			}
			proc.SetPC(uint32(addr))
		case "regs":
			fmt.Printf("pc=%05o acc=%016o rmr=%016o rau=%03o\n",
				proc.GetPC(), proc.ACC, proc.RMR, proc.RAU)
		case "q", "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func status(code fault.Code) string {
	if code == fault.OK {
		return "ok"
	}
	return code.String()
}
