package simulation

import (
	"fmt"
	"math"
	"strconv"

	"CartPole-Simulator/config"
)

// TrackedNode 是物理引擎暴露的节点查询接口 (外部协作者)。
// GetPosition/GetVelocity 返回固定长度的数值向量。
type TrackedNode interface {
	GetPosition() []float64
	GetVelocity() []float64
}

// Respawner 是物理引擎暴露的重生接口 (外部协作者)。
// Respawn 把世界恢复到规范的起始物理构型。
type Respawner interface {
	Respawn()
}

// Stepper 是外部定步长调度器: Step 让仿真前进一个时间步，
// 并保证每个对端在该时间步内恰好被推进一次。
type Stepper interface {
	Step() error
}

// ActionSpace 区分环境接受的动作类型。
type ActionSpace int

const (
	// ActionSpaceDiscrete 表示动作为离散索引 {0, 1}。
	ActionSpaceDiscrete ActionSpace = iota
	// ActionSpaceContinuous 表示动作为连续标量。
	ActionSpaceContinuous
)

// RobotBinding 把一台机器人的信道与其在物理世界中的节点绑定在一起。
type RobotBinding struct {
	Channel      *Channel
	Cart         TrackedNode // 车体节点, 提供位置与线速度
	PoleEndpoint TrackedNode // 杆顶端节点, 提供角速度
}

// StepResult 封装了环境执行一个时间步后的完整结果。
type StepResult struct {
	Observation []float64
	Reward      float64
	Done        bool
	Info        map[string]interface{}
}

// SupervisorEnv 是监督者一侧的环境: 每个时间步从各机器人信道取走
// 最新的传感器帧，组装归一化的全局观测，计算奖励与终止信号，并把
// 下一个指令帧发送到对应信道。
type SupervisorEnv struct {
	bindings    []RobotBinding
	respawner   Respawner
	stepper     Stepper
	actionSpace ActionSpace

	// 按信道号索引的单槽信箱: 每次清空队列时整体覆写, 两次清空之间只读。
	lastAngles []float64
	haveReport []bool

	episodeScore float64
	stepsTaken   int
	scoreHistory []float64
}

// NewSupervisorEnv 是 SupervisorEnv 的构造函数。
func NewSupervisorEnv(bindings []RobotBinding, respawner Respawner, stepper Stepper, actionSpace ActionSpace) *SupervisorEnv {
	return &SupervisorEnv{
		bindings:    bindings,
		respawner:   respawner,
		stepper:     stepper,
		actionSpace: actionSpace,
		lastAngles:  make([]float64, len(bindings)),
		haveReport:  make([]bool, len(bindings)),
	}
}

// ObservationSpace 返回全局观测的固定宽度。
func (s *SupervisorEnv) ObservationSpace() int {
	return config.ObservationFieldsPerRobot * len(s.bindings)
}

// ActionCount 返回环境期望的每步动作数量 (每台机器人一个)。
func (s *SupervisorEnv) ActionCount() int {
	return len(s.bindings)
}

// Reset 把环境恢复到规范的起始构型: 重生物理世界，清空信道队列与
// 最近报文信箱，归零回合状态。由于还没有任何机器人报文到达，
// 返回全零的默认观测。
func (s *SupervisorEnv) Reset() []float64 {
	s.respawner.Respawn()
	for i := range s.bindings {
		s.bindings[i].Channel.Reset()
		s.lastAngles[i] = 0
		s.haveReport[i] = false
	}
	s.episodeScore = 0
	s.stepsTaken = 0
	return s.GetDefaultObservation()
}

// GetDefaultObservation 返回观测空间形状的全零向量。
func (s *SupervisorEnv) GetDefaultObservation() []float64 {
	return make([]float64, s.ObservationSpace())
}

// GetObservations 组装当前时间步的全局观测。
// 小车位置/速度与杆顶端速度直接读自物理接口; 杆角度取自各机器人
// 信道里最新收到的传感器帧。本步 (或从未) 没有收到帧时沿用上一个
// 已知值或零默认值，绝不报错; 但收到的帧无法解析时必须立即报错。
func (s *SupervisorEnv) GetObservations() ([]float64, error) {
	obs := make([]float64, 0, s.ObservationSpace())
	for i := range s.bindings {
		binding := &s.bindings[i]

		if frame, ok := binding.Channel.DrainReports(); ok {
			report, err := DecodeSensorReport(frame)
			if err != nil {
				return nil, fmt.Errorf("信道 %d 的传感器帧损坏: %w", binding.Channel.ID, err)
			}
			s.lastAngles[i] = report.PoleAngle
			s.haveReport[i] = true
		}

		cartPosition := NormalizeToRange(binding.Cart.GetPosition()[0],
			-config.CartPositionRange, config.CartPositionRange, -1.0, 1.0, false)
		cartVelocity := NormalizeToRange(binding.Cart.GetVelocity()[0],
			-config.CartVelocityRange, config.CartVelocityRange, -1.0, 1.0, true)

		poleAngle := 0.0
		if s.haveReport[i] {
			poleAngle = NormalizeToRange(s.lastAngles[i],
				-config.PoleAngleRange, config.PoleAngleRange, -1.0, 1.0, true)
		}

		endpointVelocity := NormalizeToRange(binding.PoleEndpoint.GetVelocity()[4],
			-config.PoleTipVelocityRange, config.PoleTipVelocityRange, -1.0, 1.0, true)

		obs = append(obs, cartPosition, cartVelocity, poleAngle, endpointVelocity)
	}
	return obs, nil
}

// GetReward 返回每个时间步的固定奖励 +1，终止步也计入。
// action 参数未使用，为扩展保留，永远不会用于惩罚。
func (s *SupervisorEnv) GetReward(action []float64) float64 {
	return 1
}

// IsDone 判定回合是否终止: 累计得分越过阈值、任一机器人的杆角度
// 越过 15 度、或任一小车到达场地边缘。角度与位置在比较前先四舍五入
// 到小数点后两位，以保持边界行为与既定契约一致。
func (s *SupervisorEnv) IsDone() bool {
	if s.episodeScore > config.ScoreThreshold {
		return true
	}

	for i := range s.bindings {
		poleAngle := 0.0
		if s.haveReport[i] {
			poleAngle = roundTo2(s.lastAngles[i])
		}
		if math.Abs(poleAngle) > config.PoleAngleThreshold {
			return true
		}

		cartPosition := roundTo2(s.bindings[i].Cart.GetPosition()[0])
		if math.Abs(cartPosition) > config.CartPositionThreshold {
			return true
		}
	}
	return false
}

// roundTo2 四舍五入到小数点后两位。
func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ApplyActions 校验一组动作并各自编码为指令帧发送到对应信道。
// 离散动作空间要求每个动作严格属于 {0, 1}，否则立即报错。
func (s *SupervisorEnv) ApplyActions(actions []float64) error {
	if len(actions) != len(s.bindings) {
		return fmt.Errorf("动作数量错误: 期望 %d, 得到 %d", len(s.bindings), len(actions))
	}
	for i, action := range actions {
		var frame string
		switch s.actionSpace {
		case ActionSpaceDiscrete:
			discrete := int(action)
			if float64(discrete) != action || (discrete != ActionForward && discrete != ActionBackward) {
				return fmt.Errorf("信道 %d 的离散动作取值非法: 期望 0 或 1, 得到 %v", s.bindings[i].Channel.ID, action)
			}
			frame = strconv.Itoa(discrete)
		case ActionSpaceContinuous:
			frame = EncodeFloats(action)
		default:
			return fmt.Errorf("未知的动作空间: %d", s.actionSpace)
		}
		s.bindings[i].Channel.SendCommand(frame)
	}
	return nil
}

// Step 执行环境的一个完整时间步: 发送指令帧, 让外部调度器推进仿真
// 一个时间步 (各机器人在其中先应用指令、后感知发送), 然后接收观测、
// 判定终止并记账。终止判定先于本步奖励入账: 得分阈值比较的是已完成
// 时间步的累计得分，本步的奖励不参与本步的判定。
func (s *SupervisorEnv) Step(actions []float64) (StepResult, error) {
	if err := s.ApplyActions(actions); err != nil {
		return StepResult{}, err
	}
	if err := s.stepper.Step(); err != nil {
		return StepResult{}, err
	}

	obs, err := s.GetObservations()
	if err != nil {
		return StepResult{}, err
	}

	reward := s.GetReward(actions)
	done := s.IsDone()
	s.episodeScore += reward
	s.stepsTaken++

	return StepResult{
		Observation: obs,
		Reward:      reward,
		Done:        done,
		Info:        s.GetInfo(),
	}, nil
}

// EndEpisode 结束当前回合: 把累计得分追加到历史并返回该得分。
func (s *SupervisorEnv) EndEpisode() float64 {
	score := s.episodeScore
	s.scoreHistory = append(s.scoreHistory, score)
	return score
}

// Solved 检查任务是否已解决: 已完成的回合超过 SolvedWindow 个，
// 且最近 SolvedWindow 个回合的平均得分超过阈值。
// 历史长度不足时恒为 false。
func (s *SupervisorEnv) Solved() bool {
	if len(s.scoreHistory) <= config.SolvedWindow {
		return false
	}
	recent := s.scoreHistory[len(s.scoreHistory)-config.SolvedWindow:]
	var sum float64
	for _, score := range recent {
		sum += score
	}
	return sum/float64(len(recent)) > config.ScoreThreshold
}

// EpisodeScore 返回当前回合的累计得分。
func (s *SupervisorEnv) EpisodeScore() float64 {
	return s.episodeScore
}

// StepsTaken 返回当前回合已执行的时间步数。
func (s *SupervisorEnv) StepsTaken() int {
	return s.stepsTaken
}

// ScoreHistory 返回全部已完成回合的得分 (只追加)。
func (s *SupervisorEnv) ScoreHistory() []float64 {
	return s.scoreHistory
}

// GetInfo 是为外部智能体契约保留的占位实现，没有语义。
func (s *SupervisorEnv) GetInfo() map[string]interface{} {
	return nil
}

// Render 是为外部智能体契约保留的占位实现，没有语义。
func (s *SupervisorEnv) Render(mode string) {
	_ = mode
}
