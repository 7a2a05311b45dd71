package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
)

// #region client-struct
// Client wraps the gRPC connection to a reward service.
type Client struct {
	conn   *grpc.ClientConn
	client RewardServiceClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to the reward service at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewRewardServiceClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc RewardServiceClient) *Client {
	return &Client{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region evaluate
// Evaluate scores a snapshot remotely.
func (c *Client) Evaluate(ctx context.Context, s reward.Snapshot) (float64, error) {
	return c.EvaluateParams(ctx, s.Params())
}

// EvaluateParams scores a raw parameter mapping; absent optional keys take
// their defaults on the server.
func (c *Client) EvaluateParams(ctx context.Context, p reward.Params) (float64, error) {
	req, err := structpb.NewStruct(p)
	if err != nil {
		return 0, fmt.Errorf("encode params: %w", err)
	}
	resp, err := c.client.Evaluate(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("evaluate rpc: %w", err)
	}
	return resp.GetValue(), nil
}

// #endregion evaluate

// #region explain
// Explain fetches the per-stage breakdown for a snapshot.
func (c *Client) Explain(ctx context.Context, s reward.Snapshot) (reward.Breakdown, error) {
	req, err := structpb.NewStruct(s.Params())
	if err != nil {
		return reward.Breakdown{}, fmt.Errorf("encode params: %w", err)
	}
	resp, err := c.client.Explain(ctx, req)
	if err != nil {
		return reward.Breakdown{}, fmt.Errorf("explain rpc: %w", err)
	}
	return structToBreakdown(resp), nil
}

// #endregion explain
