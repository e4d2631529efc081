// Command armjit is a small host for the translate/optimize/emit/
// dispatch pipeline in this module: it loads a raw guest binary image
// into a flat in-process byte slice, wires that up as the Jit's
// callbacks, and exposes run/disasm/cache-stats as cobra subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"armjit/ir"
	"armjit/jit"
)

var (
	flagImage   string
	flagBase    uint64
	flagPC      uint64
	flagISA     string
	flagMemSize int
	flagVerbose bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "armjit",
		Short: "Host and inspect the A32/Thumb/A64-to-x86-64 dynamic binary translator",
	}
	root.PersistentFlags().StringVar(&flagImage, "image", "", "path to a raw guest binary image (required)")
	root.PersistentFlags().Uint64Var(&flagBase, "base", 0, "guest address the image's first byte is loaded at")
	root.PersistentFlags().Uint64Var(&flagPC, "pc", 0, "guest address execution/disassembly starts from (defaults to --base)")
	root.PersistentFlags().StringVar(&flagISA, "isa", "a32", "guest instruction set: a32, thumb, or a64")
	root.PersistentFlags().IntVar(&flagMemSize, "memsize", 0, "guest address space size in bytes (defaults to the image size)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable structured compiler/dispatcher logging")
	root.MarkPersistentFlagRequired("image")

	root.AddCommand(newRunCmd(), newDisasmCmd(), newCacheStatsCmd())
	return root
}

func newLogger() *zap.Logger {
	if !flagVerbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openJit loads --image into a flatMemory-backed Jit and returns the
// LocationDescriptor execution should start from, per --pc/--isa.
func openJit() (*jit.Jit, ir.LocationDescriptor, error) {
	data, err := os.ReadFile(flagImage)
	if err != nil {
		return nil, ir.LocationDescriptor{}, fmt.Errorf("armjit: read image: %w", err)
	}

	size := flagMemSize
	if size == 0 {
		size = len(data)
	}
	if size < len(data) {
		return nil, ir.LocationDescriptor{}, fmt.Errorf("armjit: --memsize %d is smaller than the %d-byte image", size, len(data))
	}

	mem := newFlatMemory(flagBase, size)
	copy(mem.bytes, data)

	pc := flagPC
	if pc == 0 {
		pc = flagBase
	}

	var loc ir.LocationDescriptor
	switch flagISA {
	case "a32":
		loc = ir.NewA32(uint32(pc), false, ir.LittleEndian, 0, 0)
	case "thumb":
		loc = ir.NewA32(uint32(pc), true, ir.LittleEndian, 0, 0)
	case "a64":
		loc = ir.NewA64(pc, 0)
	default:
		return nil, ir.LocationDescriptor{}, fmt.Errorf("armjit: unknown --isa %q (want a32, thumb, or a64)", flagISA)
	}

	j, err := jit.New(mem, mem.hostMemBase(), nil, jit.WithLogger(newLogger()))
	if err != nil {
		return nil, ir.LocationDescriptor{}, fmt.Errorf("armjit: new jit: %w", err)
	}
	return j, loc, nil
}

func newRunCmd() *cobra.Command {
	var cycles int64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Translate and execute the image starting at --pc",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, loc, err := openJit()
			if err != nil {
				return err
			}
			defer j.Close()

			j.SetPC(loc)
			consumed, runErr := j.Run(cycles)
			fmt.Printf("executed %d cycles, stopped at %s\n", consumed, j.PC())
			for n := uint8(0); n < 16; n++ {
				fmt.Printf("  r%-2d = %#010x\n", n, j.GetRegister(n))
			}
			n, z, c, v := j.GetFlags()
			fmt.Printf("  nzcv = %v %v %v %v\n", n, z, c, v)
			if runErr != nil {
				return fmt.Errorf("armjit: run: %w", runErr)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&cycles, "cycles", 1_000_000, "guest cycle budget")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm",
		Short: "Translate the block at --pc and print its emitted x86-64 machine code",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, loc, err := openJit()
			if err != nil {
				return err
			}
			defer j.Close()

			listing, err := j.Disassemble(loc)
			if err != nil {
				return fmt.Errorf("armjit: disasm: %w", err)
			}
			fmt.Print(listing)
			return nil
		},
	}
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	var cycles int64
	cmd := &cobra.Command{
		Use:   "cache-stats",
		Short: "Run the image, then report compiler/cache/profiler statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, loc, err := openJit()
			if err != nil {
				return err
			}
			defer j.Close()

			j.SetPC(loc)
			if _, runErr := j.Run(cycles); runErr != nil {
				fmt.Fprintf(os.Stderr, "armjit: run ended early: %v\n", runErr)
			}

			stats := j.GetStats()
			fmt.Printf("compiler:\n")
			fmt.Printf("  attempted  = %d\n", stats.JIT.CompilationsAttempted)
			fmt.Printf("  succeeded  = %d\n", stats.JIT.CompilationsSucceeded)
			fmt.Printf("  failed     = %d\n", stats.JIT.CompilationsFailed)
			fmt.Printf("  cache hits = %d\n", stats.JIT.CacheHits)
			fmt.Printf("  cache miss = %d\n", stats.JIT.CacheMisses)
			fmt.Printf("  time spent = %s\n", stats.JIT.CompilationTime)
			fmt.Printf("cache:\n")
			fmt.Printf("  entries    = %d/%d\n", stats.Cache.Entries, stats.Cache.MaxEntries)
			fmt.Printf("  size       = %d/%d bytes\n", stats.Cache.Size, stats.Cache.MaxSize)
			fmt.Printf("  executions = %d\n", stats.Cache.TotalExecutions)
			fmt.Printf("profiler:\n")
			fmt.Printf("  tracked blocks = %d (%d hot)\n", stats.Profile.TrackedBlocks, stats.Profile.HotBlocks)
			fmt.Printf("  dispatches     = %d\n", stats.Profile.TotalDispatches)
			fmt.Printf("  avg dispatch   = %s\n", stats.Profile.AverageDispatchTime)
			return nil
		},
	}
	cmd.Flags().Int64Var(&cycles, "cycles", 1_000_000, "guest cycle budget")
	return cmd
}
