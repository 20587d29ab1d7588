package simulation

// NormalizeToRange 把数值 v 从原始区间 [lo, hi] 仿射映射到目标区间 [a, b]。
// clip 为 true 时输出被钳制在 [a, b] 内; 为 false 时越界输入产生越界输出，
// 以便为学习器保留梯度信息。
func NormalizeToRange(v, lo, hi, a, b float64, clip bool) float64 {
	out := (v-lo)/(hi-lo)*(b-a) + a
	if clip {
		if out < a {
			return a
		}
		if out > b {
			return b
		}
	}
	return out
}
