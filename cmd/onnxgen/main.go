// Package main provides the onnxgen CLI, which writes the ONNX test
// fixtures and inspects, patches and verifies fixture models.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/born-ml/onnxgen/internal/backend/cpu"
	"github.com/born-ml/onnxgen/internal/fixtures"
	"github.com/born-ml/onnxgen/internal/onnx"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		handleGenerate(os.Args[2:])
	case "list":
		handleList()
	case "check":
		handleCheck(os.Args[2:])
	case "inspect":
		handleInspect(os.Args[2:])
	case "patch":
		handlePatch(os.Args[2:])
	case "verify":
		handleVerify(os.Args[2:])
	case "version":
		fmt.Printf("onnxgen %s\n", fixtures.ProducerVersion)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: onnxgen <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate   Write every fixture (model, inputs, reference output)")
	fmt.Println("  list       List fixture names in generation order")
	fmt.Println("  check      Validate ONNX model files")
	fmt.Println("  inspect    Summarize an ONNX model")
	fmt.Println("  patch      Rewrite the input dimensions of a model")
	fmt.Println("  verify     Re-run written fixtures and compare their outputs")
	fmt.Println("  version    Show version")
}

// generateFlags are the generate flags that can override the config file.
type generateFlags struct {
	dataDir, modelsDir string
	seed, opset        int64
	only, skip         string
	verify, text       bool
}

func (f *generateFlags) register(cmd *flag.FlagSet) {
	cmd.StringVar(&f.dataDir, "data", "", "directory for .npy arrays")
	cmd.StringVar(&f.modelsDir, "models", "", "directory for .onnx models")
	cmd.Int64Var(&f.seed, "seed", 0, "random seed")
	cmd.Int64Var(&f.opset, "opset", 0, "default opset")
	cmd.StringVar(&f.only, "only", "", "comma-separated fixtures to write")
	cmd.StringVar(&f.skip, "skip", "", "comma-separated fixtures not to write")
	cmd.BoolVar(&f.verify, "verify", false, "reload and re-run every written fixture")
	cmd.BoolVar(&f.text, "text", false, "also write models/<name>.pbtxt")
}

// apply copies the flags given on the command line into cfg.
func (f *generateFlags) apply(cmd *flag.FlagSet, cfg *fixtures.Config) {
	cmd.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data":
			cfg.DataDir = f.dataDir
		case "models":
			cfg.ModelsDir = f.modelsDir
		case "seed":
			cfg.Seed = f.seed
		case "opset":
			cfg.Opset = f.opset
		case "only":
			cfg.Only = splitList(f.only)
		case "skip":
			cfg.Skip = splitList(f.skip)
		case "verify":
			cfg.Verify = f.verify
		case "text":
			cfg.Text = f.text
		}
	})
}

func handleGenerate(args []string) {
	cmd := flag.NewFlagSet("generate", flag.ExitOnError)
	configFile := cmd.String("config", "", "YAML config file")
	quiet := cmd.Bool("quiet", false, "only report errors")
	var flags generateFlags
	flags.register(cmd)
	if err := cmd.Parse(args); err != nil {
		log.Fatalf("generate: %v", err)
	}

	cfg := fixtures.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = fixtures.LoadConfig(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	flags.apply(cmd, &cfg)

	logger := log.New(os.Stdout, "", 0)
	if *quiet {
		logger.SetOutput(io.Discard)
	}
	gen, err := fixtures.New(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	if err := gen.Run(); err != nil {
		log.Fatalf("generate: %v", err)
	}
}

func handleList() {
	for _, name := range fixtures.Names() {
		fmt.Println(name)
	}
}

func handleCheck(args []string) {
	cmd := flag.NewFlagSet("check", flag.ExitOnError)
	if err := cmd.Parse(args); err != nil {
		log.Fatalf("check: %v", err)
	}
	if cmd.NArg() == 0 {
		cmd.Usage()
		os.Exit(1)
	}
	failed := false
	for _, path := range cmd.Args() {
		m, err := onnx.ParseFile(path)
		if err == nil {
			err = onnx.CheckModel(m)
		}
		if err != nil {
			log.Printf("%s: %v", path, err)
			failed = true
			continue
		}
		fmt.Printf("%s: ok\n", path)
	}
	if failed {
		os.Exit(1)
	}
}

func handleInspect(args []string) {
	cmd := flag.NewFlagSet("inspect", flag.ExitOnError)
	text := cmd.Bool("text", false, "print the whole model in text format")
	if err := cmd.Parse(args); err != nil {
		log.Fatalf("inspect: %v", err)
	}
	path := cmd.Arg(0)
	if path == "" {
		cmd.Usage()
		os.Exit(1)
	}
	m, err := onnx.ParseFile(path)
	if err != nil {
		log.Fatalf("inspect: %v", err)
	}
	if *text {
		fmt.Print(onnx.Text(m))
		return
	}
	printInfo(os.Stdout, onnx.Info(m))
}

func printInfo(w io.Writer, info *onnx.ModelInfo) {
	fmt.Fprintf(w, "graph:     %s\n", info.GraphName)
	fmt.Fprintf(w, "producer:  %s %s\n", info.ProducerName, info.ProducerVersion)
	fmt.Fprintf(w, "ir:        %d\n", info.IRVersion)
	fmt.Fprintf(w, "opset:     %d\n", info.OpsetVersion)
	for _, in := range info.Inputs {
		fmt.Fprintf(w, "input:     %s %s\n", in.Name, formatDims(in))
	}
	fmt.Fprintf(w, "outputs:   %s\n", strings.Join(info.OutputNames, ", "))
	fmt.Fprintf(w, "weights:   %d\n", info.WeightCount)
	fmt.Fprintf(w, "nodes:     %d\n", info.NodeCount)

	ops := make([]string, 0, len(info.OpCounts))
	for op := range info.OpCounts {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(w, "  %-22s %d\n", op, info.OpCounts[op])
	}
}

func formatDims(vi onnx.ValueInfoProto) string {
	if vi.Type == nil || vi.Type.TensorType == nil || vi.Type.TensorType.Shape == nil {
		return "[?]"
	}
	dims := vi.Type.TensorType.Shape.Dims
	parts := make([]string, len(dims))
	for i, d := range dims {
		if d.IsSymbolic() {
			parts[i] = d.DimParam
		} else {
			parts[i] = strconv.FormatInt(d.DimValue, 10)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func handlePatch(args []string) {
	cmd := flag.NewFlagSet("patch", flag.ExitOnError)
	spec := cmd.String("dims", "", `input dims, inputs separated by ";", e.g. "3,height,width"`)
	if err := cmd.Parse(args); err != nil {
		log.Fatalf("patch: %v", err)
	}
	path := cmd.Arg(0)
	if path == "" || *spec == "" {
		cmd.Usage()
		os.Exit(1)
	}
	dims, err := parseDims(*spec)
	if err != nil {
		log.Fatalf("patch: %v", err)
	}
	if err := onnx.PostprocessModel(path, dims); err != nil {
		log.Fatalf("patch: %v", err)
	}
}

// parseDims turns "1,height,-1;2" into per-input dims. Integers become
// fixed sizes (or generated names when negative), anything else a name.
func parseDims(spec string) ([][]onnx.Dim, error) {
	var out [][]onnx.Dim
	for _, input := range strings.Split(spec, ";") {
		var dims []onnx.Dim
		for _, field := range strings.Split(input, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				return nil, fmt.Errorf("empty dimension in %q", input)
			}
			if n, err := strconv.Atoi(field); err == nil {
				dims = append(dims, n)
			} else {
				dims = append(dims, field)
			}
		}
		out = append(out, dims)
	}
	return out, nil
}

func handleVerify(args []string) {
	cmd := flag.NewFlagSet("verify", flag.ExitOnError)
	dataDir := cmd.String("data", "data", "directory with .npy arrays")
	modelsDir := cmd.String("models", "models", "directory with .onnx models")
	workers := cmd.Int("j", runtime.NumCPU(), "fixtures verified at once")
	if err := cmd.Parse(args); err != nil {
		log.Fatalf("verify: %v", err)
	}
	names := cmd.Args()
	if len(names) == 0 {
		names = fixtures.Names()
	}
	errs := fixtures.VerifyAll(*dataDir, *modelsDir, names, cpu.New(), *workers)
	failed := 0
	for i, err := range errs {
		if err != nil {
			log.Print(err)
			failed++
			continue
		}
		fmt.Printf("%s: ok\n", names[i])
	}
	if failed > 0 {
		log.Fatalf("%d of %d fixtures failed", failed, len(names))
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
