package cloudmetrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const otlpScopeName = "insight.cloudmetrics"

// OTLPPusher exports the accounting registry over OTLP gRPC.
type OTLPPusher struct {
	address   string
	secure    bool
	authToken string
	resource  *resourcepb.Resource

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewOTLPPusher parses the endpoint and returns a pusher that dials
// lazily on first push. Scheme https or grpcs enables TLS.
func NewOTLPPusher(endpoint, authToken, serviceName, serviceVersion, environment string) (*OTLPPusher, error) {
	address, secure, err := parseOTLPEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	return &OTLPPusher{
		address:   address,
		secure:    secure,
		authToken: strings.TrimSpace(authToken),
		resource:  buildResource(serviceName, serviceVersion, environment),
	}, nil
}

func parseOTLPEndpoint(endpoint string) (string, bool, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", false, errors.New("cloud.metrics.endpoint is required")
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return "", false, fmt.Errorf("invalid cloud.metrics.endpoint: %w", err)
		}
		if parsed.Host == "" {
			return "", false, errors.New("cloud.metrics.endpoint host is required")
		}
		secure := parsed.Scheme == "https" || parsed.Scheme == "grpcs"
		return parsed.Host, secure, nil
	}
	return endpoint, false, nil
}

func buildResource(serviceName, serviceVersion, environment string) *resourcepb.Resource {
	attrs := make([]*commonpb.KeyValue, 0, 3)
	if serviceName != "" {
		attrs = append(attrs, &commonpb.KeyValue{
			Key:   "service.name",
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: serviceName}},
		})
	}
	if serviceVersion != "" {
		attrs = append(attrs, &commonpb.KeyValue{
			Key:   "service.version",
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: serviceVersion}},
		})
	}
	if environment != "" {
		attrs = append(attrs, &commonpb.KeyValue{
			Key:   "deployment.environment",
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: environment}},
		})
	}
	if len(attrs) == 0 {
		return &resourcepb.Resource{}
	}
	return &resourcepb.Resource{Attributes: attrs}
}

// Push converts the registry to OTLP metrics and exports them.
func (p *OTLPPusher) Push(ctx context.Context, registry *prometheus.Registry) error {
	if p == nil || registry == nil {
		return nil
	}

	families, err := registry.Gather()
	if err != nil {
		return err
	}
	if len(families) == 0 {
		return nil
	}

	metrics := buildOTLPMetrics(families, uint64(time.Now().UnixNano()))
	if len(metrics) == 0 {
		return nil
	}

	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}

	rm := &metricspb.ResourceMetrics{
		Resource: p.resource,
		ScopeMetrics: []*metricspb.ScopeMetrics{
			{
				Scope:   &commonpb.InstrumentationScope{Name: otlpScopeName},
				Metrics: metrics,
			},
		},
	}

	if p.authToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+p.authToken)
	}

	client := collectormetricspb.NewMetricsServiceClient(conn)
	_, err = client.Export(ctx, &collectormetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{rm},
	})
	return err
}

// Close tears down the gRPC connection.
func (p *OTLPPusher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *OTLPPusher) connect(ctx context.Context) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}

	var creds credentials.TransportCredentials
	if p.secure {
		creds = credentials.NewClientTLSFromCert(nil, "")
	} else {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.DialContext(ctx, p.address, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

func buildOTLPMetrics(families []*dto.MetricFamily, now uint64) []*metricspb.Metric {
	metrics := make([]*metricspb.Metric, 0, len(families))
	for _, family := range families {
		switch family.GetType() {
		case dto.MetricType_COUNTER:
			dataPoints := buildOTLPDataPoints(family.GetMetric(), now, true)
			if len(dataPoints) == 0 {
				continue
			}
			metrics = append(metrics, &metricspb.Metric{
				Name:        family.GetName(),
				Description: family.GetHelp(),
				Data: &metricspb.Metric_Sum{
					Sum: &metricspb.Sum{
						IsMonotonic:            true,
						AggregationTemporality: metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE,
						DataPoints:             dataPoints,
					},
				},
			})
		case dto.MetricType_GAUGE:
			dataPoints := buildOTLPDataPoints(family.GetMetric(), now, false)
			if len(dataPoints) == 0 {
				continue
			}
			metrics = append(metrics, &metricspb.Metric{
				Name:        family.GetName(),
				Description: family.GetHelp(),
				Data: &metricspb.Metric_Gauge{
					Gauge: &metricspb.Gauge{
						DataPoints: dataPoints,
					},
				},
			})
		default:
			continue
		}
	}
	return metrics
}

func buildOTLPDataPoints(metrics []*dto.Metric, now uint64, isCounter bool) []*metricspb.NumberDataPoint {
	points := make([]*metricspb.NumberDataPoint, 0, len(metrics))
	for _, metric := range metrics {
		value := extractMetricValueWithCounterFlag(metric, isCounter)
		if value == nil {
			continue
		}
		points = append(points, &metricspb.NumberDataPoint{
			Attributes:   buildOTLPAttributes(metric.GetLabel()),
			TimeUnixNano: now,
			Value:        &metricspb.NumberDataPoint_AsDouble{AsDouble: *value},
		})
	}
	return points
}

func buildOTLPAttributes(labels []*dto.LabelPair) []*commonpb.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]*commonpb.KeyValue, 0, len(labels))
	for _, label := range labels {
		if label == nil {
			continue
		}
		attrs = append(attrs, &commonpb.KeyValue{
			Key:   label.GetName(),
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: label.GetValue()}},
		})
	}
	return attrs
}

func extractMetricValueWithCounterFlag(metric *dto.Metric, isCounter bool) *float64 {
	if metric == nil {
		return nil
	}
	if isCounter {
		if metric.GetCounter() == nil {
			return nil
		}
		value := metric.GetCounter().GetValue()
		return &value
	}
	if metric.GetGauge() == nil {
		return nil
	}
	value := metric.GetGauge().GetValue()
	return &value
}
