package simulation

import (
	"math"
	"testing"
)

// fakeNode 是测试用的物理节点。
type fakeNode struct {
	position []float64
	velocity []float64
}

func (n *fakeNode) GetPosition() []float64 { return n.position }
func (n *fakeNode) GetVelocity() []float64 { return n.velocity }

// fakeRespawner 记录重生调用次数。
type fakeRespawner struct {
	calls int
}

func (r *fakeRespawner) Respawn() { r.calls++ }

// fakeStepper 用一个可替换的回调模拟外部定步长调度器。
type fakeStepper struct {
	onStep func() error
}

func (s *fakeStepper) Step() error {
	if s.onStep == nil {
		return nil
	}
	return s.onStep()
}

type testEnv struct {
	env       *SupervisorEnv
	channel   *Channel
	cart      *fakeNode
	endpoint  *fakeNode
	respawner *fakeRespawner
	stepper   *fakeStepper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	channel := NewChannel(0)
	cart := &fakeNode{position: []float64{0, 0, 0}, velocity: []float64{0, 0, 0, 0, 0, 0}}
	endpoint := &fakeNode{position: []float64{0, 0.5, 0}, velocity: []float64{0, 0, 0, 0, 0, 0}}
	respawner := &fakeRespawner{}
	stepper := &fakeStepper{}

	bindings := []RobotBinding{{Channel: channel, Cart: cart, PoleEndpoint: endpoint}}
	return &testEnv{
		env:       NewSupervisorEnv(bindings, respawner, stepper, ActionSpaceDiscrete),
		channel:   channel,
		cart:      cart,
		endpoint:  endpoint,
		respawner: respawner,
		stepper:   stepper,
	}
}

// TestResetReturnsDefaultObservation 验证重置后返回观测空间形状的
// 全零向量，并触发物理世界重生。
func TestResetReturnsDefaultObservation(t *testing.T) {
	te := newTestEnv(t)

	obs := te.env.Reset()
	if len(obs) != te.env.ObservationSpace() {
		t.Fatalf("默认观测宽度错误: 期望 %d, 得到 %d", te.env.ObservationSpace(), len(obs))
	}
	for i, v := range obs {
		if v != 0 {
			t.Errorf("默认观测第 %d 个字段非零: %v", i, v)
		}
	}
	if te.respawner.calls != 1 {
		t.Errorf("重置必须触发一次重生, 得到 %d 次", te.respawner.calls)
	}
}

// TestObservationsWithoutReport 验证从未收到机器人报文时杆角度字段
// 使用零默认值，绝不报错。
func TestObservationsWithoutReport(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	obs, err := te.env.GetObservations()
	if err != nil {
		t.Fatalf("缺失报文不是错误, 但得到: %v", err)
	}
	if obs[2] != 0 {
		t.Errorf("无报文时杆角度必须为零默认值, 得到 %v", obs[2])
	}
}

// TestObservationsKeepLastKnownValue 验证本步没有新报文时沿用
// 上一个已知的传感器值。
func TestObservationsKeepLastKnownValue(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	// 角度 0.115 是原始区间 [-0.23, 0.23] 的中点偏上, 归一化后应为 0.5。
	te.channel.SendReport(EncodeFloats(0.115))
	obs, err := te.env.GetObservations()
	if err != nil {
		t.Fatalf("观测组装失败: %v", err)
	}
	if math.Abs(obs[2]-0.5) > 1e-9 {
		t.Errorf("杆角度归一化错误: 期望 0.5, 得到 %v", obs[2])
	}

	// 下一个时间步没有新报文: 沿用上一个已知值。
	obs, err = te.env.GetObservations()
	if err != nil {
		t.Fatalf("观测组装失败: %v", err)
	}
	if math.Abs(obs[2]-0.5) > 1e-9 {
		t.Errorf("无新报文时必须沿用上一个已知值: 期望 0.5, 得到 %v", obs[2])
	}
}

// TestObservationsNormalization 验证直接物理量的归一化: 位置不钳制，
// 速度钳制。
func TestObservationsNormalization(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	te.cart.position = []float64{0.2, 0, 0}
	te.cart.velocity = []float64{1.0, 0, 0, 0, 0, 0} // 远超 [-0.2, 0.2]
	te.endpoint.velocity = []float64{0, 0, 0, 0, -3.0, 0}

	obs, err := te.env.GetObservations()
	if err != nil {
		t.Fatalf("观测组装失败: %v", err)
	}
	if math.Abs(obs[0]-0.5) > 1e-9 {
		t.Errorf("小车位置归一化错误: 期望 0.5, 得到 %v", obs[0])
	}
	if obs[1] != 1 {
		t.Errorf("小车速度必须被钳制到 1, 得到 %v", obs[1])
	}
	if obs[3] != -1 {
		t.Errorf("杆顶端速度必须被钳制到 -1, 得到 %v", obs[3])
	}
}

// TestObservationsMalformedReport 验证损坏的报文帧必须快速失败。
func TestObservationsMalformedReport(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	te.channel.SendReport("not-a-number")
	if _, err := te.env.GetObservations(); err == nil {
		t.Fatal("损坏的报文帧必须报错，而不是静默使用默认值")
	}
}

// TestIsDoneAngleRounding 验证角度终止判定的边界行为: 比较前四舍五入
// 到小数点后两位, 0.27 越界而 0.26 不越界。
func TestIsDoneAngleRounding(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	te.channel.SendReport(EncodeFloats(0.27))
	if _, err := te.env.GetObservations(); err != nil {
		t.Fatalf("观测组装失败: %v", err)
	}
	if !te.env.IsDone() {
		t.Error("|0.27| > 0.261799388, 回合必须终止")
	}

	te.env.Reset()
	te.channel.SendReport(EncodeFloats(0.26))
	if _, err := te.env.GetObservations(); err != nil {
		t.Fatalf("观测组装失败: %v", err)
	}
	if te.env.IsDone() {
		t.Error("|0.26| <= 0.261799388, 回合不应终止")
	}
}

// TestIsDoneCartPosition 验证小车位置越界判定 (同样先四舍五入)。
func TestIsDoneCartPosition(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	te.cart.position = []float64{0.394, 0, 0} // 四舍五入到 0.39, 不越界
	if te.env.IsDone() {
		t.Error("位置 0.394 四舍五入后为 0.39, 不应终止")
	}

	te.cart.position = []float64{0.396, 0, 0} // 四舍五入到 0.40, 越界
	if !te.env.IsDone() {
		t.Error("位置 0.396 四舍五入后为 0.40, 必须终止")
	}
}

// TestIsDoneScoreThreshold 验证累计得分越过阈值触发终止。
func TestIsDoneScoreThreshold(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()
	te.env.episodeScore = 196.0

	if !te.env.IsDone() {
		t.Error("累计得分 196 > 195, 回合必须终止")
	}
}

// TestGetReward 验证奖励恒为 +1, 与动作无关。
func TestGetReward(t *testing.T) {
	te := newTestEnv(t)
	if got := te.env.GetReward(nil); got != 1 {
		t.Errorf("奖励错误: 期望 1, 得到 %v", got)
	}
	if got := te.env.GetReward([]float64{1}); got != 1 {
		t.Errorf("奖励必须与动作无关: 期望 1, 得到 %v", got)
	}
}

// TestSolved 验证滑动窗口判定: 历史不足 101 个恒为 false,
// 101 个且最近 100 个平均 196 时为 true。
func TestSolved(t *testing.T) {
	te := newTestEnv(t)

	for i := 0; i < 100; i++ {
		te.env.scoreHistory = append(te.env.scoreHistory, 200.0)
	}
	if te.env.Solved() {
		t.Error("只有 100 个回合时无论得分如何都不算解决")
	}

	te.env.scoreHistory = append([]float64{10.0}, makeScores(100, 196.0)...)
	if !te.env.Solved() {
		t.Error("101 个回合且最近 100 个平均 196 > 195, 必须判定解决")
	}

	te.env.scoreHistory = append([]float64{200.0}, makeScores(100, 100.0)...)
	if te.env.Solved() {
		t.Error("最近 100 个平均 100 <= 195, 不应判定解决")
	}
}

func makeScores(n int, value float64) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = value
	}
	return scores
}

// TestApplyActionsValidation 验证动作校验的快速失败行为。
func TestApplyActionsValidation(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	if err := te.env.ApplyActions([]float64{0, 1}); err == nil {
		t.Error("动作数量与机器人数量不符必须报错")
	}
	if err := te.env.ApplyActions([]float64{2}); err == nil {
		t.Error("离散动作 2 必须触发协议违例")
	}
	if err := te.env.ApplyActions([]float64{0.5}); err == nil {
		t.Error("非整数的离散动作必须触发协议违例")
	}

	if err := te.env.ApplyActions([]float64{1}); err != nil {
		t.Fatalf("合法动作被拒绝: %v", err)
	}
	frame, ok := te.channel.DrainCommands()
	if !ok || frame != "1" {
		t.Errorf("指令帧错误: 期望 \"1\", 得到 %q (ok=%v)", frame, ok)
	}
}

// TestStepAccumulatesScore 验证 Step 的完整时间步顺序与回合记账:
// 先发指令、再推进仿真、后收观测，奖励逐步累计。
func TestStepAccumulatesScore(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	// 调度器回调扮演机器人: 先消费指令帧, 再上报传感器帧。
	te.stepper.onStep = func() error {
		if _, ok := te.channel.DrainCommands(); !ok {
			t.Error("推进仿真时指令帧必须已经在队列里")
		}
		te.channel.SendReport(EncodeFloats(0.01))
		return nil
	}

	for i := 1; i <= 3; i++ {
		result, err := te.env.Step([]float64{0})
		if err != nil {
			t.Fatalf("第 %d 步失败: %v", i, err)
		}
		if result.Reward != 1 {
			t.Errorf("第 %d 步奖励错误: 期望 1, 得到 %v", i, result.Reward)
		}
		if result.Done {
			t.Errorf("第 %d 步不应终止", i)
		}
	}

	if te.env.EpisodeScore() != 3 {
		t.Errorf("累计得分错误: 期望 3, 得到 %v", te.env.EpisodeScore())
	}
	if te.env.StepsTaken() != 3 {
		t.Errorf("步数错误: 期望 3, 得到 %d", te.env.StepsTaken())
	}

	score := te.env.EndEpisode()
	if score != 3 {
		t.Errorf("回合得分错误: 期望 3, 得到 %v", score)
	}
	if len(te.env.ScoreHistory()) != 1 {
		t.Errorf("得分历史长度错误: 期望 1, 得到 %d", len(te.env.ScoreHistory()))
	}
}

// TestStepScoreThresholdBoundary 验证得分阈值的边界顺序: 终止判定
// 只看已完成时间步的累计得分, 本步奖励在判定之后才入账。一根永不
// 倒下的杆应当恰好在第 197 步终止, 最终得分 197。
func TestStepScoreThresholdBoundary(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	te.stepper.onStep = func() error {
		te.channel.DrainCommands()
		te.channel.SendReport(EncodeFloats(0.0))
		return nil
	}

	for step := 1; step <= 400; step++ {
		result, err := te.env.Step([]float64{0})
		if err != nil {
			t.Fatalf("第 %d 步失败: %v", step, err)
		}
		if result.Done {
			if step != 197 {
				t.Errorf("终止步数错误: 期望 197, 得到 %d", step)
			}
			if te.env.EpisodeScore() != 197 {
				t.Errorf("终止时累计得分错误: 期望 197, 得到 %v", te.env.EpisodeScore())
			}
			return
		}
	}
	t.Fatal("400 步内回合未终止")
}

// TestResetClearsMailbox 验证重置清空最近报文信箱与信道队列。
func TestResetClearsMailbox(t *testing.T) {
	te := newTestEnv(t)
	te.env.Reset()

	te.channel.SendReport(EncodeFloats(0.3)) // 远超终止阈值
	if _, err := te.env.GetObservations(); err != nil {
		t.Fatalf("观测组装失败: %v", err)
	}
	if !te.env.IsDone() {
		t.Fatal("角度 0.3 必须触发终止")
	}

	te.env.Reset()
	if te.env.IsDone() {
		t.Error("重置后缓存的报文必须被清除, 不应再触发终止")
	}
}
