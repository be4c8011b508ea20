package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "check":
		return runCheck(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "score-batch":
		return runScoreBatch(args[1:])
	case "rescore-all":
		return runRescoreAll(args[1:])
	case "score-all":
		return runScoreAll(args[1:])
	case "dedup-sweep":
		return runDedupSweep(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "skywatch CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  skywatch <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health       Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  check        Run diagnostics without mutating anything")
	fmt.Fprintln(os.Stderr, "  validate     Validate corpus snapshot JSON documents against their schemas")
	fmt.Fprintln(os.Stderr, "  score-batch  Score approved reports with no quality score")
	fmt.Fprintln(os.Stderr, "  rescore-all  Rescore reports with a stale scorer version")
	fmt.Fprintln(os.Stderr, "  score-all    Force-rescore every approved report")
	fmt.Fprintln(os.Stderr, "  dedup-sweep  Detect exact and fuzzy duplicate reports")
	fmt.Fprintln(os.Stderr, "  serve        Start the Echo admin API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"skywatch <command> -h\" for command-specific flags.")
}
