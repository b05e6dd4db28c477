package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/fieldcomp/internal/ingest"
	"github.com/solatis/fieldcomp/internal/metrics"
	"github.com/solatis/fieldcomp/internal/types"
)

// maxRecordSize bounds one JSON line of input.
const maxRecordSize = 16 << 20

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Derive fields for JSON-lines records",
	Long: `Reads one record per line, derives its virtual and composite fields and
writes one result per line. Use - for stdin or stdout.`,
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)
	composeCmd.Flags().String("input", "-", "input records (JSON lines)")
	composeCmd.Flags().String("output", "-", "output results (JSON lines)")
	composeCmd.Flags().String("metrics-file", "", "write derivation metrics to this file in textfile format")
}

func runCompose(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	processor, err := newProcessor(cmd.Context())
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd, inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	out, closeOut, err := openOutput(cmd, outputPath)
	if err != nil {
		return err
	}

	count, err := composeStream(processor, in, out)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Info("records composed", zap.Int("records", count))

	if metricsFile != "" {
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			return err
		}
		if err := metrics.WriteTextfile(metricsFile, reg); err != nil {
			return err
		}
	}
	return nil
}

// composeStream processes every non-empty line of in and writes each result to out.
// Returns the number of records processed.
func composeStream(processor *ingest.Processor, in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	count := 0
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var rec types.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		res, err := processor.Process(rec)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		if err := enc.Encode(res); err != nil {
			return count, fmt.Errorf("line %d: write result: %w", line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read input: %w", err)
	}
	return count, nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	w := bufio.NewWriter(f)
	return w, func() error {
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}
