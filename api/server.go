// C:/workspace/go/CartPole-Simulator/api/server.go
package api

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"

	"google.golang.org/grpc"

	"CartPole-Simulator/simulation"
)

// ===================================================================
//                       环境服务的消息定义
// ===================================================================

// ResetRequest 是 Reset 方法的请求消息。
type ResetRequest struct{}

// ResetResponse 携带新回合的初始观测 (默认全零向量)。
type ResetResponse struct {
	Observation []float64 `json:"observation"`
}

// StepRequest 携带外部智能体为每台机器人选择的动作。
type StepRequest struct {
	Actions []float64 `json:"actions"`
}

// StepResponse 携带环境执行一个时间步后的完整结果。
type StepResponse struct {
	Observation  []float64 `json:"observation"`
	Reward       float64   `json:"reward"`
	Done         bool      `json:"done"`
	EpisodeScore float64   `json:"episode_score"`
	Solved       bool      `json:"solved"`
}

// EnvironmentServer 是环境服务的接口，由 Server 实现。
type EnvironmentServer interface {
	Reset(ctx context.Context, req *ResetRequest) (*ResetResponse, error)
	Step(ctx context.Context, req *StepRequest) (*StepResponse, error)
}

// Server 把监督者环境以 gRPC 服务的形式暴露给外部 (Python) 学习器,
// 由远端客户端驱动 Reset/Step 循环。
// ErrEpisodeOver 表示回合已终止, 客户端必须先调用 Reset 再继续 Step。
var ErrEpisodeOver = errors.New("回合已终止: 请先调用 Reset 开始新回合")

type Server struct {
	mutex sync.Mutex // 环境不是并发安全的，串行化全部请求
	env   *simulation.SupervisorEnv

	episodeCounter int
	episodeOver    bool // 终止后拒绝 Step, 直到下一次 Reset
}

// NewServer 是 Server 的构造函数。
func NewServer(env *simulation.SupervisorEnv) *Server {
	return &Server{env: env}
}

// Reset 开始一个新回合并返回初始观测。
func (s *Server) Reset(ctx context.Context, req *ResetRequest) (*ResetResponse, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.episodeCounter++
	s.episodeOver = false
	log.Printf("🔄 [回合 %d] 收到 Reset 请求，正在重置环境...", s.episodeCounter)
	return &ResetResponse{Observation: s.env.Reset()}, nil
}

// Step 应用一组动作并推进环境一个时间步。回合终止时自动把得分
// 计入历史，之后拒绝再次 Step，客户端必须先调用 Reset。
func (s *Server) Step(ctx context.Context, req *StepRequest) (*StepResponse, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.episodeOver {
		return nil, ErrEpisodeOver
	}

	result, err := s.env.Step(req.Actions)
	if err != nil {
		return nil, err
	}

	resp := &StepResponse{
		Observation:  result.Observation,
		Reward:       result.Reward,
		Done:         result.Done,
		EpisodeScore: s.env.EpisodeScore(),
	}
	if result.Done {
		score := s.env.EndEpisode()
		s.episodeOver = true
		log.Printf("🏁 [回合 %d] 结束: 得分 %.1f, 步数 %d", s.episodeCounter, score, s.env.StepsTaken())
	}
	resp.Solved = s.env.Solved()
	return resp, nil
}

// ===================================================================
//                    手工维护的 gRPC 服务描述符
// ===================================================================

const serviceName = "cartpole.Environment"

var environmentServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EnvironmentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reset", Handler: resetHandler},
		{MethodName: "Step", Handler: stepHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "environment.json",
}

func resetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ResetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EnvironmentServer).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Reset"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EnvironmentServer).Reset(ctx, req.(*ResetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func stepHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StepRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EnvironmentServer).Step(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Step"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EnvironmentServer).Step(ctx, req.(*StepRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterEnvironmentServer 把环境服务注册到一个 gRPC 服务器。
func RegisterEnvironmentServer(s *grpc.Server, srv EnvironmentServer) {
	s.RegisterService(&environmentServiceDesc, srv)
}

// Serve 在给定地址上启动环境服务并阻塞运行。
func Serve(addr string, env *simulation.SupervisorEnv) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	RegisterEnvironmentServer(grpcServer, NewServer(env))

	log.Printf("📡 环境服务已在 %s 启动，等待外部学习器接入...", addr)
	return grpcServer.Serve(listener)
}
