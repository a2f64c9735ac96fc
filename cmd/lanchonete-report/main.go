// Command lanchonete-report loads the ledger, computes every dashboard
// chart for one period granularity and prints them as text tables or JSON.
// With -publish the JSON report is also sent to the configured AMQP exchange.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"lanchonete/internal/amqp"
	"lanchonete/internal/cli"
	"lanchonete/internal/config"
	"lanchonete/internal/core"
	"lanchonete/internal/log"
	"lanchonete/internal/services"
)

type options struct {
	period  string
	format  string
	publish bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("lanchonete-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.period, "period", core.DefaultGranularity.Code(), "period granularity: D, M, Q, 2Q (or day, month, quarter, halfyear)")
	fs.StringVar(&o.format, "format", "text", "output format: text or json")
	fs.BoolVar(&o.publish, "publish", false, "publish the JSON report to AMQP_EXCHANGE")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.format = strings.ToLower(o.format)
	if o.format != "text" && o.format != "json" {
		return o, fmt.Errorf("invalid -format %q: must be text or json", o.format)
	}
	return o, nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stderr)

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	if err := run(ctx, logger, cfg, opts, os.Stdout); err != nil {
		cli.Fatal(logger, "Report failed", err)
	}
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, opts options, stdout io.Writer) error {
	if opts.publish && cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required with -publish")
	}

	res, err := cli.OpenLedgerReader(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer res.Close()

	svc, err := services.Load(ctx, res.Reader, services.Options{Logger: logger})
	if err != nil {
		return err
	}
	report := svc.Report(core.ParseGranularity(opts.period), time.Now())

	switch opts.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	default:
		if err := writeText(stdout, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if opts.publish {
		pub := amqp.NewPublisher(amqp.Options{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
			MaxRetries: 2,
		})
		defer pub.Close()
		if err := pub.PublishReport(ctx, amqp.NewReportMessage(report)); err != nil {
			return err
		}
		logger.Info("Report published", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	}
	return nil
}

// writeText prints the summary and one aligned table per chart.
func writeText(w io.Writer, r services.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	s := r.Summary

	fmt.Fprintf(tw, "Relatório de vendas\t(%s)\n", r.Granularity)
	fmt.Fprintf(tw, "Pedidos\t%d\n", s.Orders)
	fmt.Fprintf(tw, "Faturamento\t%s\n", money(s.Revenue))
	fmt.Fprintf(tw, "Ticket médio\t%s\n", money(s.TicketMean))
	if s.From != "" {
		fmt.Fprintf(tw, "Período\t%s a %s\n", s.From, s.To)
	}
	if s.Load.DroppedDates > 0 || s.Load.DroppedValues > 0 {
		fmt.Fprintf(tw, "Linhas descartadas\t%d data, %d valor\n", s.Load.DroppedDates, s.Load.DroppedValues)
	}

	for _, c := range r.Charts {
		fmt.Fprintf(tw, "\n%s\n", c.Title)
		header := []string{c.XLabel}
		if header[0] == "" {
			header[0] = "Categoria"
		}
		for _, series := range c.Series {
			header = append(header, series.Name)
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for i, label := range c.Labels {
			cells := []string{label}
			for _, series := range c.Series {
				cells = append(cells, formatValue(c, series.Values[i]))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	return tw.Flush()
}

func formatValue(c services.Chart, v float64) string {
	if c.Name == services.ChartOrigin || c.Name == services.ChartPayment {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func money(v float64) string {
	return "R$ " + strconv.FormatFloat(v, 'f', 2, 64)
}
