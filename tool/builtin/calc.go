package builtin

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/agentcouncil/tool"
)

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var functions = map[string]func(args []float64) (float64, error){
	"sqrt":  unary(math.Sqrt),
	"abs":   unary(math.Abs),
	"round": unary(math.Round),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"ln":    unary(math.Log),
	"log":   unary(math.Log10),
	"pow": func(args []float64) (float64, error) {
		if len(args) != 2 {
			return 0, errors.New("pow takes two arguments")
		}
		return math.Pow(args[0], args[1]), nil
	},
}

func unary(fn func(float64) float64) func([]float64) (float64, error) {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, errors.New("function takes one argument")
		}
		return fn(args[0]), nil
	}
}

func calculate(_ context.Context, args tool.CalculateArgs) (tool.CalcResult, error) {
	expr := strings.TrimSpace(args.Expression)

	v, err := evaluate(expr)
	if err != nil {
		return tool.CalcResult{}, fmt.Errorf("evaluate %q: %w", expr, err)
	}

	return tool.CalcResult{Expression: expr, Value: v}, nil
}

// evaluate computes an arithmetic expression using Go expression syntax.
func evaluate(expr string) (float64, error) {
	if strings.Contains(expr, "^") {
		return 0, errors.New("use pow(x, y) for exponents")
	}

	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, fmt.Errorf("syntax: %w", err)
	}

	v, err := eval(node)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("result is not a finite number")
	}

	return v, nil
}

func eval(node ast.Expr) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal %s", n.Value)
		}
		return strconv.ParseFloat(strings.ReplaceAll(n.Value, "_", ""), 64)
	case *ast.ParenExpr:
		return eval(n.X)
	case *ast.Ident:
		if v, ok := constants[strings.ToLower(n.Name)]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("unknown identifier %s", n.Name)
	case *ast.UnaryExpr:
		x, err := eval(n.X)
		if err != nil {
			return 0, err
		}

		switch n.Op {
		case token.ADD:
			return x, nil
		case token.SUB:
			return -x, nil
		}

		return 0, fmt.Errorf("unsupported operator %s", n.Op)
	case *ast.BinaryExpr:
		return evalBinary(n)
	case *ast.CallExpr:
		ident, ok := n.Fun.(*ast.Ident)
		if !ok {
			return 0, errors.New("unsupported call")
		}

		fn, ok := functions[strings.ToLower(ident.Name)]
		if !ok {
			return 0, fmt.Errorf("unknown function %s", ident.Name)
		}

		vals := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a)
			if err != nil {
				return 0, err
			}
			vals[i] = v
		}

		return fn(vals)
	default:
		return 0, fmt.Errorf("unsupported expression %T", node)
	}
}

func evalBinary(n *ast.BinaryExpr) (float64, error) {
	x, err := eval(n.X)
	if err != nil {
		return 0, err
	}

	y, err := eval(n.Y)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case token.ADD:
		return x + y, nil
	case token.SUB:
		return x - y, nil
	case token.MUL:
		return x * y, nil
	case token.QUO:
		if y == 0 {
			return 0, errors.New("division by zero")
		}
		return x / y, nil
	case token.REM:
		if y == 0 {
			return 0, errors.New("division by zero")
		}
		return math.Mod(x, y), nil
	default:
		return 0, fmt.Errorf("unsupported operator %s", n.Op)
	}
}
