// Blok CLI - validate and run isolated code units from the command line
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/blok/agent"
	"github.com/chazu/blok/compiler"
	"github.com/chazu/blok/config"
	"github.com/chazu/blok/runtime"
	"github.com/chazu/blok/store"

	_ "github.com/tliron/commonlog/simple"
)

// bindFlags collects repeatable -bind name=value flags.
type bindFlags map[string]runtime.Value

func (b bindFlags) String() string { return fmt.Sprintf("%v", map[string]runtime.Value(b)) }

func (b bindFlags) Set(s string) error {
	name, raw, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	b[name] = parseBindValue(raw)
	return nil
}

// parseBindValue interprets a binding value as int, float, bool, null
// or, failing all of those, a plain string.
func parseBindValue(raw string) runtime.Value {
	if raw == "null" {
		return nil
	}
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func main() {
	check := flag.Bool("check", false, "Validate only; print declared captures and exit")
	captures := flag.String("capture", "", "Comma-separated explicit capture list")
	agents := flag.Int("agents", 0, "Agent pool size (overrides blok.toml)")
	runOn := flag.Int("agent", 0, "Agent index to transfer the handle to before running")
	storePath := flag.String("store", "", "Definition cache path (overrides blok.toml)")
	timeout := flag.Duration("timeout", time.Minute, "Maximum time to await the result")
	eval := flag.String("e", "", "Body source to run (instead of a file)")
	verbose := flag.Bool("v", false, "Verbose output")

	binds := bindFlags{}
	flag.Var(binds, "bind", "Capture binding name=value (repeatable)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: blok [options] [file.blk]\n\n")
		fmt.Fprintf(os.Stderr, "Validates a blok body and runs it on an agent pool.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  blok -e 'return 1+1;'\n")
		fmt.Fprintf(os.Stderr, "  blok -capture endpoint -bind endpoint=a.json fetch.blk\n")
		fmt.Fprintf(os.Stderr, "  blok -check job.blk              # validate only\n")
		fmt.Fprintf(os.Stderr, "  blok -agents 4 -agent 2 job.blk  # transfer to agent 2, run there\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fatal("loading configuration: %v", err)
	}
	if *agents > 0 {
		cfg.Pool.Agents = *agents
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}

	source, err := readSource(*eval, flag.Args())
	if err != nil {
		fatal("%v", err)
	}
	if len(source) > cfg.Limits.MaxSourceBytes {
		fatal("source exceeds limit of %d bytes", cfg.Limits.MaxSourceBytes)
	}

	var explicit []string
	if *captures != "" {
		explicit = strings.Split(*captures, ",")
		for i := range explicit {
			explicit[i] = strings.TrimSpace(explicit[i])
		}
	}

	res, err := compiler.CompileBody(source, explicit)
	if err != nil {
		fatal("%v", err)
	}
	if len(res.Declared) > cfg.Limits.MaxCaptures {
		fatal("body declares %d captures, limit is %d", len(res.Declared), cfg.Limits.MaxCaptures)
	}

	def := runtime.NewDefinition(res)

	if cfg.Store.Path != "" {
		cache, err := store.Open(cfg.Store.Path)
		if err != nil {
			fatal("opening definition cache: %v", err)
		}
		defer cache.Close()
		if err := cache.Put(def); err != nil {
			fatal("caching definition: %v", err)
		}
	}

	if *check {
		fmt.Printf("ok: %d statements\n", len(res.Body.Statements))
		fmt.Printf("declared captures: %s\n", orNone(res.Declared))
		fmt.Printf("free variables:    %s\n", orNone(res.Free))
		return
	}

	pool := agent.NewPool(cfg.Pool.Agents)
	defer pool.Stop()

	h, err := runtime.NewHandle(def, nil, pool.Agent(0))
	if err != nil {
		fatal("%v", err)
	}

	if *runOn > 0 {
		h, err = pool.Move(h, *runOn)
		if err != nil {
			fatal("%v", err)
		}
	}

	task, err := h.Reify(map[string]runtime.Value(binds))
	if err != nil {
		fatal("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	value, err := task.Invoke(ctx).Await(ctx)
	if err != nil {
		fatal("body rejected: %v", err)
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Printf("=> %s\n", runtime.Display(value))
	} else {
		fmt.Println(runtime.Display(value))
	}
}

// readSource returns the body source from -e or the single file
// argument.
func readSource(eval string, args []string) (string, error) {
	if eval != "" {
		return eval, nil
	}
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one source file (or -e); see -h")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", args[0], err)
	}
	return string(data), nil
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "blok: "+format+"\n", args...)
	os.Exit(1)
}
