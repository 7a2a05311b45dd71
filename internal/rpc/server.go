package rpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/logging"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/metrics"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
	"github.com/danielpatrickdp/trackreward/go-controller/internal/store"
)

// Request keys that are not reward parameters.
const (
	KeyEpisodeID = "episode_id"
	KeyStep      = "step"
)

// #region server
// Recorder persists scored steps. *store.Store satisfies it.
type Recorder interface {
	RecordStep(rec store.StepRecord) error
}

// Server implements RewardServiceServer over reward.Evaluate.
type Server struct {
	logger   *zap.Logger
	metrics  *metrics.Collector
	recorder Recorder
}

var _ RewardServiceServer = (*Server)(nil)

// NewServer creates a Server. metrics and recorder may be nil.
func NewServer(logger *zap.Logger, m *metrics.Collector, recorder Recorder) *Server {
	return &Server{
		logger:   logging.OrNop(logger),
		metrics:  m,
		recorder: recorder,
	}
}

// #endregion server

// #region evaluate
// Evaluate scores the parameters in req.
func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*wrapperspb.DoubleValue, error) {
	snap, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	r := reward.Evaluate(snap)
	s.observe(snap, r, time.Since(start))
	s.record(req, snap, r)
	return wrapperspb.Double(r), nil
}

// #endregion evaluate

// #region explain
// Explain scores the parameters in req and returns the per-stage trace.
func (s *Server) Explain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	snap, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	b := reward.Explain(snap)
	s.observe(snap, b.Reward, time.Since(start))

	out, err := breakdownToStruct(b)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode breakdown: %v", err)
	}
	return out, nil
}

// #endregion explain

// #region helpers
func (s *Server) decode(req *structpb.Struct) (reward.Snapshot, error) {
	snap, err := reward.FromParams(reward.Params(req.AsMap()))
	if err != nil {
		if s.metrics != nil {
			s.metrics.DecodeError()
		}
		s.logger.Debug("rejecting request", zap.Error(err))
		return reward.Snapshot{}, status.Errorf(codes.InvalidArgument, "decode params: %v", err)
	}
	return snap, nil
}

func (s *Server) observe(snap reward.Snapshot, r float64, d time.Duration) {
	if s.metrics != nil {
		s.metrics.Observe(snap, r, d)
	}
}

// record stores the step when the request names an episode. Failures are
// logged; the reward is still returned to the harness.
func (s *Server) record(req *structpb.Struct, snap reward.Snapshot, r float64) {
	if s.recorder == nil {
		return
	}
	fields := req.GetFields()
	episodeID := fields[KeyEpisodeID].GetStringValue()
	if episodeID == "" {
		return
	}
	step := snap.Steps
	if v, ok := fields[KeyStep]; ok {
		step = int(v.GetNumberValue())
	}
	err := s.recorder.RecordStep(store.StepRecord{
		EpisodeID: episodeID,
		Step:      step,
		Snapshot:  snap,
		Reward:    r,
	})
	if err != nil {
		s.logger.Warn("record step failed",
			zap.String("episode_id", episodeID),
			zap.Int("step", step),
			zap.Error(err))
	}
}

func breakdownToStruct(b reward.Breakdown) (*structpb.Struct, error) {
	stages := make([]interface{}, len(b.Stages))
	for i, m := range b.Stages {
		stages[i] = map[string]interface{}{
			"name":    m.Name,
			"value":   m.Value,
			"applied": m.Applied,
		}
	}
	return structpb.NewStruct(map[string]interface{}{
		"reward": b.Reward,
		"stages": stages,
	})
}

func structToBreakdown(st *structpb.Struct) reward.Breakdown {
	fields := st.GetFields()
	b := reward.Breakdown{Reward: fields["reward"].GetNumberValue()}
	for _, v := range fields["stages"].GetListValue().GetValues() {
		sf := v.GetStructValue().GetFields()
		b.Stages = append(b.Stages, reward.StageMetric{
			Name:    sf["name"].GetStringValue(),
			Value:   sf["value"].GetNumberValue(),
			Applied: sf["applied"].GetBoolValue(),
		})
	}
	return b
}

// #endregion helpers
