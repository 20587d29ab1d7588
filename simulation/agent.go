package simulation

import "CartPole-Simulator/config"

// BangBangAgent 是一个确定性的基线智能体: 杆往哪边倒，小车就往哪边追。
// 它只用于让仿真可以独立运行和联调; 真正的学习器通过 api 包的
// gRPC 环境服务接入。
type BangBangAgent struct{}

// NewBangBangAgent 是 BangBangAgent 的构造函数。
func NewBangBangAgent() *BangBangAgent {
	return &BangBangAgent{}
}

// SelectAction 按每台机器人观测块里的杆角度字段做符号判断。
func (a *BangBangAgent) SelectAction(observation []float64) []float64 {
	robotCount := len(observation) / config.ObservationFieldsPerRobot
	actions := make([]float64, robotCount)
	for i := 0; i < robotCount; i++ {
		poleAngle := observation[i*config.ObservationFieldsPerRobot+2]
		if poleAngle >= 0 {
			actions[i] = ActionForward
		} else {
			actions[i] = ActionBackward
		}
	}
	return actions
}

// Learn 对基线智能体是空操作。
func (a *BangBangAgent) Learn(observation []float64, actions []float64, reward float64, nextObservation []float64, done bool) {
}
