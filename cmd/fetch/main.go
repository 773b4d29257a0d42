// Command fetch runs one market data operation and prints the result as
// JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/verrerie/finx-sub000/internal/aggregate"
	"github.com/verrerie/finx-sub000/internal/app"
	"github.com/verrerie/finx-sub000/internal/config"
	"github.com/verrerie/finx-sub000/internal/logging"
	"github.com/verrerie/finx-sub000/internal/marketdata"
	"github.com/verrerie/finx-sub000/internal/provider"
)

type options struct {
	kind    string
	symbol  string
	period  string
	query   string
	sector  string
	metrics string
	config  string
	timeout time.Duration
	verbose bool
}

func main() {
	var o options
	flag.StringVar(&o.kind, "kind", "quote", "operation: quote, company, history, search, peers, stats")
	flag.StringVar(&o.symbol, "symbol", os.Getenv("SYMBOL"), "ticker symbol")
	flag.StringVar(&o.period, "period", "1mo", "history period (1d,5d,1mo,3mo,6mo,1y,2y,5y,10y,ytd,max)")
	flag.StringVar(&o.query, "query", "", "search keywords")
	flag.StringVar(&o.sector, "sector", "", "peer sector override")
	flag.StringVar(&o.metrics, "metrics", "", "comma-separated peer metrics")
	flag.StringVar(&o.config, "config", "", "path to a YAML config file")
	flag.DurationVar(&o.timeout, "timeout", 2*time.Minute, "overall timeout")
	flag.BoolVar(&o.verbose, "v", false, "log to stderr at debug level")
	flag.Parse()

	if err := run(o, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(o options, out io.Writer) error {
	cfg, err := config.Load(o.config)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.Log.Output = "stderr"
	cfg.Log.Format = "text"
	cfg.Log.Level = "warn"
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	v, err := execute(ctx, a.Service, o)
	if err != nil {
		return err
	}
	if cmp, ok := v.(marketdata.Comparison); ok {
		_, err = fmt.Fprintln(out, cmp.Comparison)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func execute(ctx context.Context, svc *marketdata.Service, o options) (any, error) {
	switch o.kind {
	case "quote":
		return svc.GetQuote(ctx, o.symbol)
	case "company":
		return svc.GetCompanyInfo(ctx, o.symbol)
	case "history":
		return svc.GetHistoricalData(ctx, o.symbol, provider.Period(o.period))
	case "search":
		return svc.SearchSymbol(ctx, o.query)
	case "peers":
		return svc.ComparePeers(ctx, o.symbol, o.sector, aggregate.SplitNames(o.metrics))
	case "stats":
		return svc.Stats(), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", o.kind)
	}
}
