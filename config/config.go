// C:/workspace/go/CartPole-Simulator/config/config.go
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ===================================================================
//                           通信参数
// ===================================================================

const (
	// FrameDelimiter 定义了报文帧内字段之间的分隔符。
	// 字段内容本身不允许包含该字符（协议不支持转义）。
	FrameDelimiter = ","

	// ChannelQueueCapacity 定义了每个信道单方向报文队列的容量。
	// 队列满时丢弃最旧的一帧（有损链路）。
	ChannelQueueCapacity = 10
)

// ===================================================================
//                           机器人参数
// ===================================================================

const (
	// MotorSpeed 定义了离散动作 (0/1) 对应的车轮速度绝对值 (rad/s)。
	MotorSpeed = 5.0

	// ContinuousSpeedScale 定义了连续动作 [-1, 1] 到车轮速度的缩放系数。
	ContinuousSpeedScale = 5.0

	// WheelCount 定义了每台小车的车轮数量。
	WheelCount = 4
)

// ===================================================================
//                           环境参数
// ===================================================================

const (
	// ObservationFieldsPerRobot 定义了每台机器人贡献的观测字段数:
	// [小车位置, 小车速度, 杆角度, 杆顶端速度]
	ObservationFieldsPerRobot = 4

	// 观测归一化的原始取值范围
	CartPositionRange    = 0.4  // 小车 x 轴位置 (m)
	CartVelocityRange    = 0.2  // 小车 x 轴线速度 (m/s)
	PoleAngleRange       = 0.23 // 杆角度 (rad)
	PoleTipVelocityRange = 1.5  // 杆顶端角速度 (rad/s)

	// 终止条件
	ScoreThreshold        = 195.0       // 单回合累计得分上限
	PoleAngleThreshold    = 0.261799388 // 杆偏离竖直 15 度 (rad)
	CartPositionThreshold = 0.39        // 小车到达场地边缘 (m)

	// SolvedWindow 定义了判定任务解决所需的滑动窗口大小。
	// 最近 SolvedWindow 个回合的平均得分超过 ScoreThreshold 即判定解决。
	SolvedWindow = 100
)

// ===================================================================
//                           运行参数
// ===================================================================

// Params 结构体封装了所有可以从外部 TOML 文件配置的运行参数。
// 未在文件中给出的字段保持默认值。
type Params struct {
	RobotCount      int    `toml:"robot_count"`       // 机器人数量 (每台占用一个信道)
	MaxEpisodes     int    `toml:"max_episodes"`      // 最大训练回合数
	StepsPerEpisode int    `toml:"steps_per_episode"` // 每回合的硬性步数上限
	TimestepMs      int    `toml:"timestep_ms"`       // 仿真单步时长 (毫秒)
	ReportDir       string `toml:"report_dir"`        // Excel 报告输出目录
	ListenAddr      string `toml:"listen_addr"`       // gRPC 环境服务监听地址
	Evaluate        bool   `toml:"evaluate"`          // true: 评估模式 (不训练)
}

// DefaultParams 返回一套与经典 CartPole 设定一致的默认参数。
func DefaultParams() Params {
	return Params{
		RobotCount:      1,
		MaxEpisodes:     2000,
		StepsPerEpisode: 200,
		TimestepMs:      32,
		ReportDir:       "report",
		ListenAddr:      ":50051",
	}
}

// Load 从 TOML 文件加载运行参数并与默认值合并。
func Load(path string) (Params, error) {
	params := DefaultParams()
	if _, err := toml.DecodeFile(path, &params); err != nil {
		return Params{}, fmt.Errorf("加载配置文件 %s 失败: %w", path, err)
	}
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}

// Validate 检查参数取值是否合法。
func (p Params) Validate() error {
	if p.RobotCount < 1 {
		return fmt.Errorf("robot_count 必须至少为 1, 得到 %d", p.RobotCount)
	}
	if p.StepsPerEpisode < 1 {
		return fmt.Errorf("steps_per_episode 必须至少为 1, 得到 %d", p.StepsPerEpisode)
	}
	if p.MaxEpisodes < 1 {
		return fmt.Errorf("max_episodes 必须至少为 1, 得到 %d", p.MaxEpisodes)
	}
	if p.TimestepMs < 1 {
		return fmt.Errorf("timestep_ms 必须至少为 1, 得到 %d", p.TimestepMs)
	}
	return nil
}
