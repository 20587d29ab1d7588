package simulation

import (
	"fmt"
	"log"
)

// Mode 区分编排器的运行模式，在构造时显式传入，运行期间不变。
type Mode int

const (
	// ModeTrain 训练模式: 每步把转移样本交给智能体学习。
	ModeTrain Mode = iota
	// ModeEval 评估模式: 不做学习更新，其余输入输出完全相同。
	ModeEval
)

func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "TRAIN"
	case ModeEval:
		return "EVAL"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Agent 是外部学习算法的协作者接口，编排器每个时间步各调用一次。
type Agent interface {
	// SelectAction 根据当前观测为每台机器人各选择一个动作。
	SelectAction(observation []float64) []float64
	// Learn 接收一条完整的转移样本用于学习更新。
	Learn(observation []float64, actions []float64, reward float64, nextObservation []float64, done bool)
}

// EpisodeRecorder 在每个回合结束时接收一条回合记录 (由数据收集器实现)。
type EpisodeRecorder interface {
	RecordEpisode(episode int, score float64, steps int, solved bool)
}

// Orchestrator 是外层训练循环: 在回合之间重置环境，按时间步驱动
// 环境与外部智能体，累计回合得分，并用滑动窗口判定任务是否解决。
type Orchestrator struct {
	env         *SupervisorEnv
	agent       Agent
	mode        Mode
	maxEpisodes int
	stepLimit   int             // 每回合的硬性步数上限
	recorder    EpisodeRecorder // 可以为 nil
}

// NewOrchestrator 是 Orchestrator 的构造函数。
func NewOrchestrator(env *SupervisorEnv, agent Agent, mode Mode, maxEpisodes, stepLimit int, recorder EpisodeRecorder) *Orchestrator {
	return &Orchestrator{
		env:         env,
		agent:       agent,
		mode:        mode,
		maxEpisodes: maxEpisodes,
		stepLimit:   stepLimit,
		recorder:    recorder,
	}
}

// Run 执行训练/评估循环。任务解决后训练切换到评估模式继续运行，
// 协议违例等快速失败错误会中止循环并向上传播。
func (o *Orchestrator) Run() error {
	log.Printf("🚦 编排器启动: 模式 %s, 最多 %d 回合, 每回合上限 %d 步", o.mode, o.maxEpisodes, o.stepLimit)

	for episode := 1; episode <= o.maxEpisodes; episode++ {
		if err := o.RunEpisode(episode); err != nil {
			return fmt.Errorf("回合 %d 中止: %w", episode, err)
		}

		if o.mode == ModeTrain && o.env.Solved() {
			log.Printf("🎉 任务在回合 %d 后判定解决，切换到评估模式。", episode)
			o.mode = ModeEval
		}
	}

	log.Printf("🏁 编排器结束: 共完成 %d 回合。", len(o.env.ScoreHistory()))
	return nil
}

// RunEpisode 执行单个回合: 重置环境获取初始观测，循环到终止信号
// 或步数上限，然后把最终得分追加到历史。
func (o *Orchestrator) RunEpisode(episode int) error {
	observation := o.env.Reset()

	for step := 0; step < o.stepLimit; step++ {
		actions := o.agent.SelectAction(observation)

		result, err := o.env.Step(actions)
		if err != nil {
			return err
		}

		if o.mode == ModeTrain {
			o.agent.Learn(observation, actions, result.Reward, result.Observation, result.Done)
		}

		observation = result.Observation
		if result.Done {
			break
		}
	}

	score := o.env.EndEpisode()
	steps := o.env.StepsTaken()
	solved := o.env.Solved()
	log.Printf("🏁 [回合 %d] 结束: 得分 %.1f, 步数 %d", episode, score, steps)

	if o.recorder != nil {
		o.recorder.RecordEpisode(episode, score, steps, solved)
	}
	return nil
}

// Solved 报告环境的滑动窗口判定结果。
func (o *Orchestrator) Solved() bool {
	return o.env.Solved()
}
