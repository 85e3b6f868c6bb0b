package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/dreschagin/qtrack/internal/application/port"
)

const (
	maxLogEventsPerRequest = 10000
	maxLogEventSize        = 256000 // 256 KB
)

type logsAPI interface {
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// LogsPublisherConfig holds configuration for CloudWatch logs publishing.
type LogsPublisherConfig struct {
	AWSConfig
	LogGroupName  string
	LogStreamName string
	BufferSize    int
	FlushInterval time.Duration
	AutoCreate    bool // создать log group/stream при старте
}

// LogsPublisher реализует port.LogPublisher поверх CloudWatch Logs.
// Сам не логирует: его ошибки уходят вызывающему логгеру.
type LogsPublisher struct {
	client        logsAPI
	logGroupName  string
	logStreamName string

	buffer     []port.LogEntry
	bufferSize int
	mu         sync.Mutex

	sequenceToken *string

	flushInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

var _ port.LogPublisher = (*LogsPublisher)(nil)

func NewLogsPublisher(ctx context.Context, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	if cfg.LogGroupName == "" {
		return nil, fmt.Errorf("log group name is required")
	}
	if cfg.LogStreamName == "" {
		return nil, fmt.Errorf("log stream name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.AWSConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newLogsPublisher(cloudwatchlogs.NewFromConfig(awsCfg), cfg)

	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			return nil, fmt.Errorf("failed to create log group/stream: %w", err)
		}
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

func newLogsPublisher(client logsAPI, cfg LogsPublisherConfig) *LogsPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	return &LogsPublisher{
		client:        client,
		logGroupName:  cfg.LogGroupName,
		logStreamName: cfg.LogStreamName,
		buffer:        make([]port.LogEntry, 0, cfg.BufferSize),
		bufferSize:    cfg.BufferSize,
		flushInterval: cfg.FlushInterval,
		stopCh:        make(chan struct{}),
	}
}

func (p *LogsPublisher) Publish(ctx context.Context, entry port.LogEntry) error {
	return p.PublishBatch(ctx, []port.LogEntry{entry})
}

func (p *LogsPublisher) PublishBatch(ctx context.Context, entries []port.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, entries...)
	if len(p.buffer) >= p.bufferSize {
		if err := p.flushBufferUnsafe(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

func (p *LogsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

func (p *LogsPublisher) Close(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *LogsPublisher) flushLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			// при ошибке записи остаются в буфере до следующего тика
			_ = p.Flush(ctx)
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

func (p *LogsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	// CloudWatch Logs требует хронологический порядок внутри запроса
	sort.SliceStable(p.buffer, func(i, j int) bool {
		return p.buffer[i].Timestamp.Before(p.buffer[j].Timestamp)
	})

	events := make([]types.InputLogEvent, 0, len(p.buffer))
	for _, entry := range p.buffer {
		event, err := convertToLogEvent(entry)
		if err != nil {
			continue
		}
		events = append(events, event)
	}

	for i := 0; i < len(events); i += maxLogEventsPerRequest {
		end := min(i+maxLogEventsPerRequest, len(events))
		if err := p.putWithRetry(ctx, events[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]
	return nil
}

func (p *LogsPublisher) putWithRetry(ctx context.Context, events []types.InputLogEvent) error {
	return withRetry(ctx, func() error {
		out, err := p.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.logGroupName),
			LogStreamName: aws.String(p.logStreamName),
			LogEvents:     events,
			SequenceToken: p.sequenceToken,
		})
		if err != nil {
			var invalidSeq *types.InvalidSequenceTokenException
			if errors.As(err, &invalidSeq) {
				p.sequenceToken = invalidSeq.ExpectedSequenceToken
			}
			return err
		}

		p.sequenceToken = out.NextSequenceToken
		return nil
	}, nil)
}

func convertToLogEvent(entry port.LogEntry) (types.InputLogEvent, error) {
	logData := map[string]interface{}{
		"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
		"level":     string(entry.Level),
		"message":   entry.Message,
	}
	if len(entry.Fields) > 0 {
		logData["fields"] = entry.Fields
	}

	raw, err := json.Marshal(logData)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	message := string(raw)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(entry.Timestamp.UnixMilli()),
	}, nil
}

func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	var exists *types.ResourceAlreadyExistsException

	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.logGroupName),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.logGroupName),
		LogStreamName: aws.String(p.logStreamName),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log stream: %w", err)
	}

	return nil
}
