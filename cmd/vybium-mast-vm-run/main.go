// Command vybium-mast-vm-run is a thin driver over pkg/vybium-mast-vm:
// it decodes a MAST binary, executes it against stack inputs supplied on
// the command line, and prints the resulting stack outputs to stdout,
// exiting with the code declared for the failure kind if execution
// aborts. It is a thin pipe, not an assembler or a flag-parsing CLI
// framework.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	vybiummastvm "github.com/vybium/vybium-mast-vm/pkg/vybium-mast-vm"
)

func main() {
	if len(os.Args) < 2 {
		fatal("usage: vybium-mast-vm-run <program.mast> [stack_input_1,stack_input_2,...]")
	}

	path := os.Args[1]
	f, err := os.Open(path)
	if err != nil {
		fatal(fmt.Sprintf("opening %s: %v", path, err))
	}
	defer f.Close()

	prog, err := vybiummastvm.LoadProgram(f)
	if err != nil {
		reportAndExit(err)
	}

	var stackInputs []vybiummastvm.Felt
	if len(os.Args) >= 3 {
		stackInputs, err = parseStackInputs(os.Args[2])
		if err != nil {
			fatal(err.Error())
		}
	}

	logStderr(fmt.Sprintf("executing program %s with %d stack input(s)", prog.Digest(), len(stackInputs)))

	res, err := vybiummastvm.Execute(prog, nil, stackInputs, nil, vybiummastvm.DefaultExecutionOptions())
	if err != nil {
		reportAndExit(err)
	}

	fmt.Println(formatWord(res.Top16[:]))
	logStderr(fmt.Sprintf("public-inputs commitment: %d", res.Commitment.Value()))
	if len(res.Overflow) > 0 {
		logStderr(fmt.Sprintf("overflow remainder: %d element(s)", len(res.Overflow)))
	}
}

func parseStackInputs(csv string) ([]vybiummastvm.Felt, error) {
	parts := strings.Split(csv, ",")
	out := make([]vybiummastvm.Felt, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid stack input %q: %w", p, err)
		}
		out = append(out, vybiummastvm.NewFelt(v))
	}
	return out, nil
}

func formatWord(elems []vybiummastvm.Felt) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func reportAndExit(err error) {
	logStderr("execution failed: " + err.Error())
	if vmErr, ok := err.(*vybiummastvm.VMError); ok {
		os.Exit(vmErr.ExitCode())
	}
	os.Exit(1)
}

func logStderr(msg string) {
	fmt.Fprintln(os.Stderr, "vybium-mast-vm-run:", msg)
}

func fatal(msg string) {
	logStderr(msg)
	os.Exit(1)
}
