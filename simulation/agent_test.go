package simulation

import "testing"

// TestBangBangAgent 验证基线智能体按杆角度符号选择动作。
func TestBangBangAgent(t *testing.T) {
	agent := NewBangBangAgent()

	// 单机器人: 杆向正方向倒 -> 前进 (0); 向负方向倒 -> 后退 (1)。
	actions := agent.SelectAction([]float64{0, 0, 0.4, 0})
	if len(actions) != 1 || actions[0] != ActionForward {
		t.Errorf("正角度应选择前进: 得到 %v", actions)
	}
	actions = agent.SelectAction([]float64{0, 0, -0.4, 0})
	if len(actions) != 1 || actions[0] != ActionBackward {
		t.Errorf("负角度应选择后退: 得到 %v", actions)
	}

	// 多机器人: 每个观测块独立判断。
	actions = agent.SelectAction([]float64{0, 0, 0.4, 0, 0, 0, -0.4, 0})
	if len(actions) != 2 {
		t.Fatalf("动作数量错误: 期望 2, 得到 %d", len(actions))
	}
	if actions[0] != ActionForward || actions[1] != ActionBackward {
		t.Errorf("多机器人动作错误: 得到 %v", actions)
	}
}
