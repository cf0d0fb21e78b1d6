package grpcapi

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/signal-audit/internal/api"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
)

// Client wraps a connection to the audit service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for addr. Extra options are appended after the
// defaults (insecure transport, otel stats handler).
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Track records one event.
func (c *Client) Track(ctx context.Context, event string, value float64) (api.SystemResponse, error) {
	var out api.SystemResponse
	err := c.invoke(ctx, MethodTrack, api.TrackRequest{Event: event, Value: value}, &out)
	return out, err
}

// Scan scans url, or html when non-empty.
func (c *Client) Scan(ctx context.Context, url, html string) (api.ScanResponse, error) {
	var out api.ScanResponse
	err := c.invoke(ctx, MethodScan, api.ScanRequest{URL: url, HTML: html}, &out)
	return out, err
}

// CreateDecision adds a decision.
func (c *Client) CreateDecision(ctx context.Context, nd orchestrator.NewDecision) (api.DecisionResponse, error) {
	var out api.DecisionResponse
	err := c.invoke(ctx, MethodCreateDecision, nd, &out)
	return out, err
}

// GetSystem returns the read model.
func (c *Client) GetSystem(ctx context.Context) (orchestrator.SystemView, error) {
	var out orchestrator.SystemView
	err := c.invoke(ctx, MethodGetSystem, struct{}{}, &out)
	return out, err
}

// Reset reseeds the system.
func (c *Client) Reset(ctx context.Context) (api.SystemResponse, error) {
	var out api.SystemResponse
	err := c.invoke(ctx, MethodReset, struct{}{}, &out)
	return out, err
}

func (c *Client) invoke(ctx context.Context, method string, req, out any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, resp); err != nil {
		return err
	}
	return fromStruct(resp, out)
}
