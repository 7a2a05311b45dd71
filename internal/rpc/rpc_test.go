package rpc

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/metrics"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/store"
)

// #region harness
func startServer(t *testing.T, srv *Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	RegisterRewardServiceServer(gs, srv)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	c, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func sampleSnapshot() reward.Snapshot {
	return reward.Snapshot{
		TrackWidth:         1.07,
		DistanceFromCenter: 0.05,
		Speed:              4.0,
		Progress:           100,
		Steps:              170,
		AllWheelsOnTrack:   true,
		SteeringAngle:      1,
		Heading:            179,
		TrackHeading:       180,
		TimeElapsed:        11.3,
		IsLeftOfCenter:     true,
	}
}

type recorderFunc func(store.StepRecord) error

func (f recorderFunc) RecordStep(rec store.StepRecord) error { return f(rec) }

// #endregion harness

// #region server-tests
func TestEvaluateOverGRPC(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := startServer(t, NewServer(nil, metrics.NewCollector(reg), nil))

	s := sampleSnapshot()
	got, err := c.Evaluate(testCtx(t), s)
	require.NoError(t, err)
	assert.Equal(t, reward.Evaluate(s), got)
	assert.InDelta(t, 87.04, got, 1e-9)
}

func TestEvaluateParamsDefaults(t *testing.T) {
	c := startServer(t, NewServer(nil, nil, nil))

	p := reward.Params{
		reward.KeyTrackWidth:         1.0,
		reward.KeyDistanceFromCenter: 0.0,
		reward.KeySpeed:              1.0,
		reward.KeyProgress:           0.0,
		reward.KeySteps:              0,
		reward.KeyAllWheelsOnTrack:   true,
		reward.KeyTrackHeading:       3.0,
	}
	got, err := c.EvaluateParams(testCtx(t), p)
	require.NoError(t, err)
	// is_left_of_center defaults to true, so the left-turn bonus applies
	assert.InDelta(t, 1.0*1.2*1.4, got, 1e-12)
}

func TestEvaluateMissingFieldIsInvalidArgument(t *testing.T) {
	c := startServer(t, NewServer(nil, nil, nil))

	_, err := c.EvaluateParams(testCtx(t), reward.Params{reward.KeyTrackWidth: 1.0})
	require.Error(t, err)
	st, ok := status.FromError(errors.Unwrap(err))
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), reward.KeyDistanceFromCenter)
}

func TestExplainOverGRPC(t *testing.T) {
	c := startServer(t, NewServer(nil, nil, nil))

	s := sampleSnapshot()
	b, err := c.Explain(testCtx(t), s)
	require.NoError(t, err)
	assert.Equal(t, reward.Explain(s), b)
}

func TestEvaluateRecordsWhenEpisodeGiven(t *testing.T) {
	var got []store.StepRecord
	rec := recorderFunc(func(r store.StepRecord) error {
		got = append(got, r)
		return nil
	})
	c := startServer(t, NewServer(nil, nil, rec))

	p := sampleSnapshot().Params()
	_, err := c.EvaluateParams(testCtx(t), p)
	require.NoError(t, err)
	assert.Empty(t, got, "no episode_id, nothing recorded")

	p[KeyEpisodeID] = "ep-1"
	p[KeyStep] = 12
	r, err := c.EvaluateParams(testCtx(t), p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ep-1", got[0].EpisodeID)
	assert.Equal(t, 12, got[0].Step)
	assert.Equal(t, r, got[0].Reward)
}

func TestEvaluateRecorderFailureStillReturnsReward(t *testing.T) {
	rec := recorderFunc(func(store.StepRecord) error { return errors.New("disk full") })
	c := startServer(t, NewServer(nil, nil, rec))

	p := sampleSnapshot().Params()
	p[KeyEpisodeID] = "ep-1"
	r, err := c.EvaluateParams(testCtx(t), p)
	require.NoError(t, err)
	assert.Equal(t, reward.Evaluate(sampleSnapshot()), r)
}

func TestEvaluateRecordsToStore(t *testing.T) {
	st, err := store.NewStore(filepath.Join(t.TempDir(), "rpc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ep, err := st.CreateEpisode("reinvent_base")
	require.NoError(t, err)

	c := startServer(t, NewServer(nil, nil, st))
	p := sampleSnapshot().Params()
	p[KeyEpisodeID] = ep.EpisodeID
	_, err = c.EvaluateParams(testCtx(t), p)
	require.NoError(t, err)

	steps, err := st.Steps(ep.EpisodeID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 170, steps[0].Step)
	assert.Equal(t, sampleSnapshot(), steps[0].Snapshot)
}

// #endregion server-tests

// #region client-tests
type mockRewardService struct {
	RewardServiceClient

	evalResp *wrapperspb.DoubleValue
	evalErr  error

	explainResp *structpb.Struct
	explainErr  error
}

func (m *mockRewardService) Evaluate(_ context.Context, _ *structpb.Struct, _ ...grpc.CallOption) (*wrapperspb.DoubleValue, error) {
	return m.evalResp, m.evalErr
}

func (m *mockRewardService) Explain(_ context.Context, _ *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	return m.explainResp, m.explainErr
}

func TestNewClientWithService(t *testing.T) {
	c := NewClientWithService(&mockRewardService{})
	require.NotNil(t, c)
	assert.NoError(t, c.Close())
}

func TestClientEvaluate_Success(t *testing.T) {
	c := NewClientWithService(&mockRewardService{evalResp: wrapperspb.Double(2.5)})
	got, err := c.Evaluate(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)
}

func TestClientEvaluate_Error(t *testing.T) {
	c := NewClientWithService(&mockRewardService{evalErr: errors.New("unavailable")})
	_, err := c.Evaluate(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluate rpc")
}

func TestClientExplain_Error(t *testing.T) {
	c := NewClientWithService(&mockRewardService{explainErr: errors.New("unavailable")})
	_, err := c.Explain(context.Background(), sampleSnapshot())
	assert.Error(t, err)
}

func TestBreakdownStructRoundTrip(t *testing.T) {
	want := reward.Explain(sampleSnapshot())
	st, err := breakdownToStruct(want)
	require.NoError(t, err)
	assert.Equal(t, want, structToBreakdown(st))
}

// #endregion client-tests
