/*
main.go - Command-line feasibility runner

PURPOSE:
  Runs a scenario document (YAML or JSON: site, scenario and an optional
  linked sell scenario) without a server or database, and prints the
  summary. Optionally prints the monthly flows, solves the residual land
  value, or prints a sensitivity grid.

USAGE:
  feaso [flags] scenario.yaml

  -flows                 print the monthly cashflow table
  -solve 15              solve the land value achieving this target
  -target margin|irr     metric the solver targets (default margin)
  -sensitivity x,y       print a grid over two axes (revenue, cost,
                         duration, interest)
  -steps-x / -steps-y    comma separated steps (defaults per axis)
  -json                  machine-readable output
  -log-level             debug shows solver iterations

EXAMPLES:
  feaso api/demos/townhouses-sell.yaml
  feaso -solve 20 -target irr api/demos/apartments-btr.yaml
  feaso -sensitivity revenue,cost api/demos/mixed-use-qld.yaml

SEE ALSO:
  - factory/scenario.go: Document format
  - analysis/: Solver and sensitivity
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/analysis"
	"github.com/warp/feasibility-engine/factory"
	"github.com/warp/feasibility-engine/feaso"
	"github.com/warp/feasibility-engine/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "feaso:", err)
		}
		os.Exit(1)
	}
}

// defaultSteps are used when -steps-x / -steps-y are not given. Revenue and
// cost steps are percent, duration months, interest points.
var defaultSteps = map[analysis.Axis][]float64{
	analysis.AxisRevenue:  {-10, -5, 0, 5, 10},
	analysis.AxisCost:     {-10, -5, 0, 5, 10},
	analysis.AxisDuration: {-3, 0, 3, 6},
	analysis.AxisInterest: {-1, 0, 1, 2},
}

type options struct {
	path        string
	flows       bool
	solve       float64
	solveSet    bool
	target      analysis.TargetType
	sensitivity string
	stepsX      string
	stepsY      string
	asJSON      bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var (
		o      options
		target string
		level  string
	)
	fs := flag.NewFlagSet("feaso", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: feaso [flags] scenario.yaml")
		fs.PrintDefaults()
	}
	fs.BoolVar(&o.flows, "flows", false, "print the monthly cashflow table")
	fs.Float64Var(&o.solve, "solve", 0, "solve the land value achieving this target")
	fs.StringVar(&target, "target", string(analysis.TargetMargin), "solver target: margin or irr")
	fs.StringVar(&o.sensitivity, "sensitivity", "", "two axes, e.g. revenue,cost")
	fs.StringVar(&o.stepsX, "steps-x", "", "comma separated x steps")
	fs.StringVar(&o.stepsY, "steps-y", "", "comma separated y steps")
	fs.BoolVar(&o.asJSON, "json", false, "JSON output")
	fs.StringVar(&level, "log-level", "warn", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "solve" {
			o.solveSet = true
		}
	})

	if fs.NArg() != 1 {
		fs.Usage()
		return o, errors.New("exactly one scenario file is required")
	}
	o.path = fs.Arg(0)

	switch analysis.TargetType(target) {
	case analysis.TargetMargin, analysis.TargetIRR:
		o.target = analysis.TargetType(target)
	default:
		return o, fmt.Errorf("unknown target %q", target)
	}

	logging.Setup(level)
	return o, nil
}

// report is the -json output.
type report struct {
	ScenarioID  string              `json:"scenario_id"`
	Summary     feaso.Summary       `json:"summary"`
	Flows       []feaso.MonthlyFlow `json:"flows,omitempty"`
	Solution    *analysis.Solution  `json:"solution,omitempty"`
	Sensitivity [][]analysis.Cell   `json:"sensitivity,omitempty"`
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(o.path)
	if err != nil {
		return err
	}
	b, err := factory.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("%s: %w", o.path, err)
	}

	flows := b.Simulate()
	rep := report{
		ScenarioID: string(b.Scenario.ID),
		Summary:    feaso.Summarize(flows, b.Scenario.Settings.DiscountRate),
	}
	if o.flows {
		rep.Flows = flows
	}

	if o.solveSet {
		sol, err := analysis.SolveLandValue(ctx, decimal.NewFromFloat(o.solve), o.target, b.Scenario, b.Site, b.Linked)
		if err != nil {
			return err
		}
		rep.Solution = &sol
	}

	var xAxis, yAxis analysis.Axis
	if o.sensitivity != "" {
		xAxis, yAxis, err = parseAxes(o.sensitivity)
		if err != nil {
			return err
		}
		stepsX, err := parseSteps(o.stepsX, defaultSteps[xAxis])
		if err != nil {
			return fmt.Errorf("steps-x: %w", err)
		}
		stepsY, err := parseSteps(o.stepsY, defaultSteps[yAxis])
		if err != nil {
			return fmt.Errorf("steps-y: %w", err)
		}
		grid, err := analysis.NewGenerator(0, nil).Generate(ctx, b.Scenario, b.Site, b.Linked, xAxis, yAxis, stepsX, stepsY)
		if err != nil {
			return err
		}
		rep.Sensitivity = grid
	}

	if o.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	printSummary(stdout, b, rep.Summary)
	if o.flows {
		printFlows(stdout, flows)
	}
	if rep.Solution != nil {
		printSolution(stdout, o.target, o.solve, *rep.Solution)
	}
	if rep.Sensitivity != nil {
		printGrid(stdout, xAxis, yAxis, rep.Sensitivity)
	}
	return nil
}

func parseAxes(s string) (analysis.Axis, analysis.Axis, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("sensitivity needs two axes, got %q", s)
	}
	x, err := analysis.ParseAxis(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", "", err
	}
	y, err := analysis.ParseAxis(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", err
	}
	if x == y {
		return "", "", errors.New("sensitivity axes must differ")
	}
	return x, y, nil
}

func parseSteps(s string, fallback []float64) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	var steps []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		steps = append(steps, v)
	}
	return steps, nil
}

// =============================================================================
// TEXT OUTPUT
// =============================================================================

func printSummary(w io.Writer, b feaso.Bundle, s feaso.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Scenario\t%s (%s)\n", b.Scenario.Name, b.Scenario.Settings.Strategy)
	if b.Linked != nil {
		fmt.Fprintf(tw, "Linked to\t%s\n", b.Linked.Name)
	}
	fmt.Fprintf(tw, "Site\t%s\n", b.Site.Name)
	fmt.Fprintf(tw, "Months\t%d\n", s.Months)
	fmt.Fprintf(tw, "Gross revenue\t%s\n", money(s.GrossRevenue))
	fmt.Fprintf(tw, "Net revenue\t%s\n", money(s.NetRevenue))
	fmt.Fprintf(tw, "Total cost\t%s\n", money(s.TotalCost))
	fmt.Fprintf(tw, "  of which interest\t%s\n", money(s.TotalInterest))
	fmt.Fprintf(tw, "Profit\t%s\n", money(s.Profit))
	fmt.Fprintf(tw, "Margin\t%s%%\n", s.Margin.StringFixed(2))
	fmt.Fprintf(tw, "IRR\t%s%%\n", s.IRR.StringFixed(2))
	fmt.Fprintf(tw, "NPV\t%s\n", money(s.NPV))
	fmt.Fprintf(tw, "Peak debt\t%s (month %d)\n", money(s.PeakDebt), s.PeakDebtMonth)
	fmt.Fprintf(tw, "Peak equity\t%s\n", money(s.PeakEquity))
	fmt.Fprintf(tw, "LTC / LVR\t%s%% / %s%%\n", s.LTC.StringFixed(1), s.LVR.StringFixed(1))
}

func printFlows(w io.Writer, flows []feaso.MonthlyFlow) {
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	fmt.Fprintln(tw, "Month\tPhase\tRevenue\tCosts\tInterest\tSenior\tMezz\tEquity\tCash\t")
	for _, f := range flows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			f.Month, f.Phase,
			money(f.NetRevenue), money(f.TotalCost), money(f.FinanceCharges()),
			money(f.Senior.Balance), money(f.Mezzanine.Balance), money(f.Equity.Balance),
			money(f.CashBalance))
	}
}

func printSolution(w io.Writer, target analysis.TargetType, want float64, sol analysis.Solution) {
	fmt.Fprintln(w)
	status := "converged"
	if !sol.Converged {
		status = "did not converge"
	}
	fmt.Fprintf(w, "Residual land value for %.2f%% %s: %s (stamp duty %s, achieved %s%%, %d iterations, %s)\n",
		want, target, money(sol.LandValue), money(sol.StampDuty), sol.AchievedMetric.StringFixed(2), sol.Iterations, status)
}

func printGrid(w io.Writer, xAxis, yAxis analysis.Axis, grid [][]analysis.Cell) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Margin %% by %s (columns) and %s (rows)\n", xAxis, yAxis)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	if len(grid) == 0 {
		return
	}
	fmt.Fprint(tw, "\t")
	for _, c := range grid[0] {
		fmt.Fprintf(tw, "%g\t", c.X)
	}
	fmt.Fprintln(tw)
	for _, row := range grid {
		fmt.Fprintf(tw, "%g\t", row[0].Y)
		for _, c := range row {
			fmt.Fprintf(tw, "%s\t", c.Margin.StringFixed(2))
		}
		fmt.Fprintln(tw)
	}
}

func money(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
