package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/qtrack/internal/application/dto"
	"github.com/dreschagin/qtrack/pkg/logger"
)

// CloudWatch принимает не более 1000 datum за запрос
const maxMetricsPerRequest = 1000

const (
	metricGatePassed    = "GatePassed"
	metricGateValue     = "GateActualValue"
	metricOverallHealth = "OverallHealth"
	metricGatesFailed   = "GatesFailed"
)

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisherConfig holds configuration for CloudWatch metrics publishing.
type MetricsPublisherConfig struct {
	AWSConfig
	Namespace         string            // например "QTrack/Quality"
	DefaultDimensions map[string]string // добавляются ко всем datum
	BufferSize        int
	FlushInterval     time.Duration
	StorageResolution int32 // 1 или 60
	Logger            *logger.Logger
}

// MetricsPublisher буферизует результаты quality gates и отправляет их в CloudWatch.
// Каждый gate дает datum GatePassed (0/1) и GateActualValue, отчет целиком -
// OverallHealth и GatesFailed.
type MetricsPublisher struct {
	client            putMetricDataAPI
	namespace         string
	defaultDimensions map[string]string
	storageResolution int32
	logger            *logger.Logger

	buffer     []types.MetricDatum
	bufferSize int
	mu         sync.Mutex

	flushInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig) (*MetricsPublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.AWSConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg)
	p.start()
	return p, nil
}

func newMetricsPublisher(client putMetricDataAPI, cfg MetricsPublisherConfig) *MetricsPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New("error")
	}

	return &MetricsPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		storageResolution: cfg.StorageResolution,
		logger:            cfg.Logger,
		buffer:            make([]types.MetricDatum, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushInterval:     cfg.FlushInterval,
		stopCh:            make(chan struct{}),
	}
}

func (p *MetricsPublisher) start() {
	p.wg.Add(1)
	go p.flushLoop()
}

// PublishEvaluation добавляет datum отчета в буфер; при заполнении буфера отправляет сразу.
func (p *MetricsPublisher) PublishEvaluation(ctx context.Context, report *dto.QualityReportDTO) error {
	if report == nil {
		return nil
	}

	at := time.Now()
	if report.Metrics != nil && report.Metrics.Timestamp > 0 {
		at = time.UnixMilli(report.Metrics.Timestamp)
	}

	data := p.convertReport(report, at)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, data...)
	if len(p.buffer) >= p.bufferSize {
		if err := p.flushBufferUnsafe(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered metrics.
func (p *MetricsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close останавливает фоновый flush и отправляет остаток буфера.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *MetricsPublisher) flushLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil {
				// буфер не очищается, повторим на следующем тике
				p.logger.Warn("CloudWatch metrics flush failed", "error", err)
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe - вызывающий держит p.mu
func (p *MetricsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	for i := 0; i < len(p.buffer); i += maxMetricsPerRequest {
		end := min(i+maxMetricsPerRequest, len(p.buffer))

		if err := p.putWithRetry(ctx, p.buffer[i:end]); err != nil {
			// отправленные чанки из буфера убираем
			p.buffer = append(p.buffer[:0], p.buffer[i:]...)
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]
	return nil
}

func (p *MetricsPublisher) putWithRetry(ctx context.Context, data []types.MetricDatum) error {
	chunk := make([]types.MetricDatum, len(data))
	copy(chunk, data)

	return withRetry(ctx, func() error {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: chunk,
		})
		return err
	}, nil)
}

func (p *MetricsPublisher) convertReport(report *dto.QualityReportDTO, at time.Time) []types.MetricDatum {
	data := make([]types.MetricDatum, 0, len(report.Results)*2+2)

	for _, r := range report.Results {
		passed := 0.0
		if r.Passed {
			passed = 1
		}
		data = append(data,
			p.datum(metricGatePassed, passed, types.StandardUnitCount, at, r.GateID),
			p.datum(metricGateValue, r.ActualValue, types.StandardUnitNone, at, r.GateID),
		)
	}

	data = append(data,
		p.datum(metricOverallHealth, report.Summary.OverallHealth, types.StandardUnitPercent, at, ""),
		p.datum(metricGatesFailed, float64(report.Summary.Failed), types.StandardUnitCount, at, ""),
	)

	return data
}

func (p *MetricsPublisher) datum(name string, value float64, unit types.StandardUnit, at time.Time, gateID string) types.MetricDatum {
	dimensions := make([]types.Dimension, 0, len(p.defaultDimensions)+1)
	for key, v := range p.defaultDimensions {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(v),
		})
	}
	if gateID != "" {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String("GateID"),
			Value: aws.String(gateID),
		})
	}

	d := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(at),
		Dimensions: dimensions,
	}
	if p.storageResolution > 0 {
		d.StorageResolution = aws.Int32(p.storageResolution)
	}

	return d
}
