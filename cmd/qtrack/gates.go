package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/internal/application/usecase"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/internal/infrastructure/collector"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// errGatesFailed - код выхода 1 без дополнительного сообщения
var errGatesFailed = errors.New("quality gates failed")

func newGatesCmd() *cobra.Command {
	gates := &cobra.Command{
		Use:   "gates",
		Short: "Quality gate tools",
	}

	var metricsPath, gatesPath string
	check := &cobra.Command{
		Use:   "check",
		Short: "Evaluate quality gates against a metrics snapshot (JSON) and exit 1 on failure",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := checkGates(metricsPath, gatesPath)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if report.Summary.Failed > 0 {
				return errGatesFailed
			}
			return nil
		},
	}
	check.Flags().StringVar(&metricsPath, "metrics", "", "path to metrics snapshot JSON ('-' for stdin)")
	check.Flags().StringVar(&gatesPath, "gates", os.Getenv("QUALITY_GATES_FILE"), "gates file (yaml/json/toml)")
	_ = check.MarkFlagRequired("metrics")

	gates.AddCommand(check)
	return gates
}

func checkGates(metricsPath, gatesPath string) (*dto.QualityReportDTO, error) {
	raw, err := readInput(metricsPath)
	if err != nil {
		return nil, err
	}

	var snapshot dto.MetricsSnapshotDTO
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse metrics snapshot: %w", err)
	}

	gatesFile, err := collector.LoadGatesFile(gatesPath)
	if err != nil {
		return nil, err
	}

	entitySnapshot := snapshot.ToEntity()
	if err := service.NewSnapshotValidator().Validate(entitySnapshot); err != nil {
		return nil, fmt.Errorf("invalid metrics snapshot: %w", err)
	}

	log := logger.New("error")
	gates := usecase.NewQualityGatesUseCase(
		service.NewMetricsCollector(gatesFile.Baseline.SubCollectors(nil, log)),
		service.NewQualityGateManager(gatesFile.Gates),
		nil,
		log,
	)
	return gates.Evaluate(entitySnapshot), nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics file: %w", err)
	}
	return raw, nil
}

func printReport(out io.Writer, report *dto.QualityReportDTO) {
	pass := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	names := make(map[string]string, len(report.Gates))
	for _, g := range report.Gates {
		names[g.ID] = g.Name
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tGATE\tACTUAL\tTHRESHOLD\tMESSAGE")
	for _, res := range report.Results {
		status := pass("PASS")
		if !res.Passed {
			status = fail("FAIL")
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%s\n",
			status, names[res.GateID], res.ActualValue, res.Threshold, dim(res.Message))
	}
	_ = tw.Flush()

	summary := fmt.Sprintf("\n%d/%d gates passed, health %.2f%%",
		report.Summary.Passed, report.Summary.Total, report.Summary.OverallHealth)
	if report.Summary.Failed > 0 {
		fmt.Fprintln(out, fail(summary))
		return
	}
	fmt.Fprintln(out, pass(summary))
}
