package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	rrcuper "github.com/thebagchi/rrc-uper"
	"github.com/thebagchi/rrc-uper/internal/config"
	"github.com/thebagchi/rrc-uper/internal/observability"
	"github.com/thebagchi/rrc-uper/lib/rrc"
)

// Decoded is one output record.
type Decoded struct {
	Index int    `json:"index" yaml:"index"`
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("uperc", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		configFile = flags.String("config", "", "TOML configuration file")
		typeName   = flags.String("type", "", "PDU type, optionally with a release suffix (MeasResultNR@15)")
		hexPDU     = flags.String("hex", "", "single PDU as hex")
		filename   = flags.String("file", "", "file of hex PDUs, one per line")
		output     = flags.String("output", "json", "output format: json or yaml")
		list       = flags.Bool("list", false, "list known PDU types and exit")
	)
	if err := flags.Parse(args); nil != err {
		return 2
	}
	if *list {
		fmt.Fprintln(stdout, strings.Join(rrc.Names(), "\n"))
		return 0
	}

	cfg, err := config.Load(*configFile)
	if nil != err {
		fmt.Fprintln(stderr, "Error: ", err)
		return 1
	}
	logger, err := observability.InitLogger(stderr, "uperc", cfg.Log)
	if nil != err {
		fmt.Fprintln(stderr, "Error: ", err)
		return 1
	}

	if len(*typeName) == 0 {
		logger.Error().Msg("pdu type required (-type)")
		return 1
	}
	if *output != "json" && *output != "yaml" {
		logger.Error().Str("output", *output).Msg("unsupported output format")
		return 1
	}

	var pdus [][]byte
	switch {
	case len(*hexPDU) != 0 && len(*filename) != 0:
		logger.Error().Msg("-hex and -file are exclusive")
		return 1
	case len(*hexPDU) != 0:
		pdu, err := rrcuper.ParseHex(*hexPDU)
		if nil != err {
			logger.Error().Err(err).Msg("invalid hex")
			return 1
		}
		pdus = [][]byte{pdu}
	case len(*filename) != 0:
		pdus, err = rrcuper.ReadPDUFile(*filename)
		if nil != err {
			logger.Error().Err(err).Str("file", *filename).Msg("read failed")
			return 1
		}
	default:
		logger.Error().Msg("input required (-hex or -file)")
		return 1
	}

	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if nil != err {
		logger.Error().Err(err).Msg("metrics setup failed")
		return 1
	}
	codec, err := rrc.NewCodec(logger, metrics, cfg.Codec)
	if nil != err {
		logger.Error().Err(err).Msg("codec setup failed")
		return 1
	}
	results, err := codec.DecodeBatch(ctx, *typeName, pdus)
	if nil != err {
		logger.Error().Err(err).Str("type", *typeName).Msg("decode aborted")
		return 1
	}

	records := make([]Decoded, len(results))
	failed := 0
	for i, result := range results {
		records[i] = Decoded{Index: i, Type: *typeName}
		if nil != result.Err {
			records[i].Error = result.Err.Error()
			failed++
			continue
		}
		records[i].Value = rrcuper.Plain(result.Value)
	}
	if err := write(stdout, *output, records); nil != err {
		logger.Error().Err(err).Msg("write failed")
		return 1
	}
	logger.Info().Int("pdus", len(pdus)).Int("failed", failed).Msg("done")
	if failed > 0 {
		return 1
	}
	return 0
}

func write(out io.Writer, format string, records []Decoded) error {
	if format == "yaml" {
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(records); nil != err {
			return err
		}
		return encoder.Close()
	}
	encoder := json.NewEncoder(out)
	for _, record := range records {
		if err := encoder.Encode(record); nil != err {
			return err
		}
	}
	return nil
}
