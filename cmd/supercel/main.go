// Command supercel is a CLI harness for the evaluator: it reads a YAML
// scenario file naming an expression plus its variables and declared
// device/computed catalogues, drives the pkg/supercel entry points, and
// prints the {"Ok":...}/{"Err":...} envelope, colorized when stdout is a
// terminal. Manual flag handling, no flag-parsing framework, mirroring
// funvibe-funxy/cmd/funxy/main.go's own argv handling.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/nullsafe/supercel/internal/catalog"
	"github.com/nullsafe/supercel/internal/config"
	"github.com/nullsafe/supercel/internal/hostbridge"
	"github.com/nullsafe/supercel/internal/value"
	"github.com/nullsafe/supercel/pkg/supercel"
)

// scenario is the on-disk YAML shape: a source-text expression, a loose map
// of variables (decoded through yaml.v3's native types, then converted to
// value.Value below), and the declared device/computed catalogues as
// name -> list-of-specimen-values.
type scenario struct {
	Expression string           `yaml:"expression"`
	AST        bool             `yaml:"ast"`
	Variables  map[string]any   `yaml:"variables"`
	Device     map[string][]any `yaml:"device"`
	Computed   map[string][]any `yaml:"computed"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenario.yaml>\n", os.Args[0])
		os.Exit(1)
	}
	if os.Args[1] == "-version" || os.Args[1] == "--version" {
		fmt.Println(config.Version)
		return
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading scenario file: %s\n", err)
		os.Exit(1)
	}

	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing scenario YAML: %s\n", err)
		os.Exit(1)
	}

	vars, err := scenarioMapToValue(sc.Variables)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting variables: %s\n", err)
		os.Exit(1)
	}
	decl, err := scenarioDeclaration(sc.Device, sc.Computed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting catalogues: %s\n", err)
		os.Exit(1)
	}

	bridge := loggingStubBridge{verbose: true}

	var result value.Value
	var evalErr error
	if sc.AST {
		expr, parseErr := supercel.Parse(sc.Expression)
		if parseErr != nil {
			fmt.Fprintf(os.Stderr, "Parse error: %s\n", parseErr)
			os.Exit(1)
		}
		result, evalErr = supercel.EvaluateASTExpr(expr, vars, decl, bridge)
	} else {
		result, evalErr = supercel.Evaluate(sc.Expression, vars, decl, bridge)
	}

	printEnvelope(result, evalErr)
}

// printEnvelope renders the {"Ok":...}/{"Err":...} envelope, colorized with
// ANSI codes when stdout is a terminal (isatty), exactly the purpose
// go-isatty serves in the teacher's own REPL output.
func printEnvelope(v value.Value, err error) {
	var raw []byte
	var marshalErr error
	if err != nil {
		raw, marshalErr = json.Marshal(map[string]string{"Err": err.Error()})
	} else {
		raw, marshalErr = json.Marshal(map[string]value.Value{"Ok": v})
	}
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %s\n", marshalErr)
		os.Exit(1)
	}

	colorize := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if !colorize {
		fmt.Println(string(raw))
		return
	}
	if err != nil {
		fmt.Printf("\x1b[31m%s\x1b[0m\n", raw)
	} else {
		fmt.Printf("\x1b[32m%s\x1b[0m\n", raw)
	}
}

func scenarioMapToValue(m map[string]any) (*value.MapValue, error) {
	out := value.NewMap()
	for k, v := range m {
		converted, err := anyToValue(v)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		out.Set(value.StringKey(k), converted)
	}
	return out, nil
}

func scenarioDeclaration(device, computed map[string][]any) (catalog.Declaration, error) {
	decl := catalog.Declaration{}
	var err error
	if device != nil {
		decl.Device, err = scenarioCatalogue(device)
		if err != nil {
			return decl, err
		}
	}
	if computed != nil {
		decl.Computed, err = scenarioCatalogue(computed)
		if err != nil {
			return decl, err
		}
	}
	return decl, nil
}

func scenarioCatalogue(m map[string][]any) (catalog.Catalogue, error) {
	out := make(catalog.Catalogue, len(m))
	for name, specimens := range m {
		args := make([]value.Value, len(specimens))
		for i, s := range specimens {
			v, err := anyToValue(s)
			if err != nil {
				return nil, fmt.Errorf("%s specimen %d: %w", name, i, err)
			}
			args[i] = v
		}
		out[name] = args
	}
	return out, nil
}

// anyToValue converts a YAML-decoded Go value (string/int/float64/bool/nil/
// []any/map[string]any) into the evaluator's wire Value type.
func anyToValue(v any) (value.Value, error) {
	switch t := v.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(t), nil
	case int:
		return value.Int(int64(t)), nil
	case int64:
		return value.Int(t), nil
	case float64:
		return value.Float(t), nil
	case string:
		return value.String(t), nil
	case []any:
		items := make([]value.Value, len(t))
		for i, item := range t {
			conv, err := anyToValue(item)
			if err != nil {
				return value.Null(), err
			}
			items[i] = conv
		}
		return value.List(items), nil
	case map[string]any:
		m := value.NewMap()
		for k, item := range t {
			conv, err := anyToValue(item)
			if err != nil {
				return value.Null(), err
			}
			m.Set(value.StringKey(k), conv)
		}
		return value.Map(m), nil
	default:
		return value.Null(), fmt.Errorf("unsupported scenario value type %T", v)
	}
}

// loggingStubBridge answers every device/computed call with Null and logs
// the call when verbose, standing in for a real host when a scenario file
// exercises a declared function without wiring an actual device/computed
// implementation.
type loggingStubBridge struct {
	verbose bool
}

func (b loggingStubBridge) ComputedProperty(ctx context.Context, name string, argsJSON string) (string, error) {
	if b.verbose {
		fmt.Fprintf(os.Stderr, "supercel: computed.%s(%s) -> null (no host wired)\n", name, argsJSON)
	}
	return "null", nil
}

func (b loggingStubBridge) DeviceProperty(ctx context.Context, name string, argsJSON string) (string, error) {
	if b.verbose {
		fmt.Fprintf(os.Stderr, "supercel: device.%s(%s) -> null (no host wired)\n", name, argsJSON)
	}
	return "null", nil
}

var _ hostbridge.Bridge = loggingStubBridge{}
