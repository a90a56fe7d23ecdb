// Command wandelscript runs wandelscript programs:
//
//	wandelscript run <file.ws> [--nova-api URL] [--cell cell.yaml] [--trace]
//
// The API URL comes from --nova-api or the NOVA_API environment
// variable. Without a cell file a simulated single-robot cell is
// used.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"wandelscript/cell"
	"wandelscript/runner"
	"wandelscript/trace"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "run" {
		fmt.Fprintln(os.Stderr, "usage: wandelscript run <file.ws> [--nova-api URL] [--cell cell.yaml] [--trace]")
		os.Exit(1)
	}

	flags := flag.NewFlagSet("run", flag.ExitOnError)
	novaAPI := flags.String("nova-api", "", "URL to the NOVA API (defaults to the NOVA_API environment variable)")
	cellFile := flags.String("cell", "", "YAML cell configuration; without it a simulated single-robot cell is used")
	defaultRobot := flags.String("robot", "", "Default robot id")
	defaultTCP := flags.String("tcp", "", "Default tool center point")
	traceEnabled := flags.Bool("trace", false, "Enable execution tracing")
	traceFilter := flags.String("trace-filter", "", "Trace filter pattern (glob, e.g. 'move' or 'loop')")

	args := os.Args[2:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: missing program file")
		os.Exit(1)
	}
	scriptPath := args[0]
	if err := flags.Parse(args[1:]); err != nil {
		os.Exit(1)
	}

	api := *novaAPI
	if api == "" {
		api = os.Getenv("NOVA_API")
	}
	if api == "" {
		fmt.Fprintln(os.Stderr, "error: NOVA_API must be set via --nova-api or as an environment variable")
		os.Exit(1)
	}
	if !validURL(api) {
		fmt.Fprintf(os.Stderr, "error: NOVA_API value %s is not a valid URL\n", api)
		os.Exit(1)
	}

	var filters []string
	if *traceFilter != "" {
		filters = strings.Split(*traceFilter, ",")
	}
	trace.Init(*traceEnabled, filters, os.Stderr)

	robotCell, err := buildCell(*cellFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log.Printf("NOVA_API: %s", api)
	run, err := runner.RunFile(scriptPath, robotCell, runner.Options{
		DefaultRobot: *defaultRobot,
		DefaultTCP:   *defaultTCP,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	record := run.ProgramRun()
	if record.State != runner.StateCompleted {
		if record.Error != "" {
			fmt.Fprintln(os.Stderr, record.Error)
		}
		os.Exit(1)
	}
	for _, result := range record.ExecutionResults {
		total := 0
		for _, path := range result.Paths {
			total += len(path.Poses)
		}
		fmt.Printf("%s: %d paths, %d recorded states\n", result.MotionGroupID, len(result.Paths), total)
	}
}

func validURL(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

func buildCell(cellFile string) (cell.RobotCell, error) {
	if cellFile == "" {
		return cell.NewSimulatedRobotCell(), nil
	}
	config, err := cell.LoadConfig(cellFile)
	if err != nil {
		return nil, err
	}
	return config.Build(), nil
}
