package simulation

import (
	"testing"
)

// scriptedAgent 是测试用的智能体: 固定选择同一个动作并记录学习调用。
type scriptedAgent struct {
	action     float64
	learnCalls int
}

func (a *scriptedAgent) SelectAction(observation []float64) []float64 {
	return []float64{a.action}
}

func (a *scriptedAgent) Learn(observation []float64, actions []float64, reward float64, nextObservation []float64, done bool) {
	a.learnCalls++
}

// recordingRecorder 记录回合回调。
type recordingRecorder struct {
	episodes []int
	scores   []float64
}

func (r *recordingRecorder) RecordEpisode(episode int, score float64, steps int, solved bool) {
	r.episodes = append(r.episodes, episode)
	r.scores = append(r.scores, score)
}

// TestOrchestratorStepCap 验证回合在硬性步数上限处截断，得分 = 步数。
func TestOrchestratorStepCap(t *testing.T) {
	te := newTestEnv(t)
	te.stepper.onStep = func() error {
		te.channel.DrainCommands()
		te.channel.SendReport(EncodeFloats(0.01)) // 永不越界
		return nil
	}

	agent := &scriptedAgent{action: ActionForward}
	recorder := &recordingRecorder{}
	orchestrator := NewOrchestrator(te.env, agent, ModeTrain, 2, 5, recorder)

	if err := orchestrator.Run(); err != nil {
		t.Fatalf("编排器运行失败: %v", err)
	}

	history := te.env.ScoreHistory()
	if len(history) != 2 {
		t.Fatalf("完成回合数错误: 期望 2, 得到 %d", len(history))
	}
	for i, score := range history {
		if score != 5 {
			t.Errorf("回合 %d 得分错误: 期望 5 (步数上限), 得到 %v", i+1, score)
		}
	}
	if agent.learnCalls != 10 {
		t.Errorf("训练模式下每步必须学习一次: 期望 10 次, 得到 %d", agent.learnCalls)
	}
	if len(recorder.episodes) != 2 {
		t.Errorf("回合记录次数错误: 期望 2, 得到 %d", len(recorder.episodes))
	}
}

// TestOrchestratorEvalModeSkipsLearning 验证评估模式不做学习更新，
// 其余输入输出完全相同。
func TestOrchestratorEvalModeSkipsLearning(t *testing.T) {
	te := newTestEnv(t)
	te.stepper.onStep = func() error {
		te.channel.DrainCommands()
		te.channel.SendReport(EncodeFloats(0.01))
		return nil
	}

	agent := &scriptedAgent{action: ActionForward}
	orchestrator := NewOrchestrator(te.env, agent, ModeEval, 1, 5, nil)

	if err := orchestrator.Run(); err != nil {
		t.Fatalf("编排器运行失败: %v", err)
	}
	if agent.learnCalls != 0 {
		t.Errorf("评估模式不允许学习更新, 得到 %d 次", agent.learnCalls)
	}
	if len(te.env.ScoreHistory()) != 1 {
		t.Errorf("评估模式仍需记录回合得分, 得到 %d 个", len(te.env.ScoreHistory()))
	}
}

// TestOrchestratorStopsOnDone 验证终止信号先于步数上限时回合提前结束。
func TestOrchestratorStopsOnDone(t *testing.T) {
	te := newTestEnv(t)
	te.stepper.onStep = func() error {
		te.channel.DrainCommands()
		te.channel.SendReport(EncodeFloats(0.3)) // 第一步就越界
		return nil
	}

	orchestrator := NewOrchestrator(te.env, &scriptedAgent{action: ActionForward}, ModeTrain, 1, 200, nil)
	if err := orchestrator.Run(); err != nil {
		t.Fatalf("编排器运行失败: %v", err)
	}

	history := te.env.ScoreHistory()
	if len(history) != 1 || history[0] != 1 {
		t.Errorf("回合必须在第一步终止并计入终止步的奖励: 得到 %v", history)
	}
}

// TestOrchestratorPropagatesContractViolation 验证协议违例中止训练循环
// 并向上传播，绝不静默继续。
func TestOrchestratorPropagatesContractViolation(t *testing.T) {
	te := newTestEnv(t)
	orchestrator := NewOrchestrator(te.env, &scriptedAgent{action: 2}, ModeTrain, 1, 5, nil)

	if err := orchestrator.Run(); err == nil {
		t.Fatal("非法动作必须中止编排器并返回错误")
	}
}
