package world

import (
	"fmt"
	"math"
	"math/rand"

	"CartPole-Simulator/config"
	"CartPole-Simulator/simulation"
)

// 物理常量。这里只是一个够用的替身世界，不追求逼真的动力学。
const (
	gravity        = 9.8  // 重力加速度 (m/s^2)
	poleLength     = 0.5  // 杆长 (m)
	wheelRadius    = 0.05 // 车轮半径 (m)
	servoGain      = 12.0 // 车轮速度伺服增益
	spawnAngleSpan = 0.05 // 重生时杆角度的随机扰动幅度 (rad)
)

// cartState 是单台小车及其杆的完整物理状态。
type cartState struct {
	x           float64 // 小车 x 轴位置 (m)
	xDot        float64 // 小车 x 轴线速度 (m/s)
	theta       float64 // 杆相对竖直方向的角度 (rad)
	thetaDot    float64 // 杆角速度 (rad/s)
	wheelTarget float64 // 车轮目标速度 (rad/s), 由执行器接口写入
}

// CartPoleWorld 是进程内的定步长仿真世界。它实现监督者与机器人
// 两侧的窄物理接口 (传感/执行/节点查询/重生)，并承担外部调度器的
// 角色: 每次 Step 先积分一个时间步，再把每个已挂载的机器人控制
// 循环恰好推进一次。
type CartPoleWorld struct {
	timestep    float64 // 仿真单步时长 (秒)
	carts       []*cartState
	controllers []*simulation.RobotController
	rng         *rand.Rand
}

// New 是 CartPoleWorld 的构造函数。
func New(robotCount int, timestep float64, seed int64) *CartPoleWorld {
	carts := make([]*cartState, robotCount)
	for i := range carts {
		carts[i] = &cartState{}
	}
	w := &CartPoleWorld{
		timestep: timestep,
		carts:    carts,
		rng:      rand.New(rand.NewSource(seed)),
	}
	w.Respawn()
	return w
}

// Attach 把一个机器人控制循环挂载到世界的步进调度里。
func (w *CartPoleWorld) Attach(rc *simulation.RobotController) {
	w.controllers = append(w.controllers, rc)
}

// Respawn 把全部小车恢复到规范的起始构型: 位置与速度归零，
// 杆角度带一个小的随机扰动，车轮目标速度归零。
func (w *CartPoleWorld) Respawn() {
	for _, cart := range w.carts {
		cart.x = 0
		cart.xDot = 0
		cart.theta = (w.rng.Float64()*2 - 1) * spawnAngleSpan
		cart.thetaDot = 0
		cart.wheelTarget = 0
	}
}

// Step 推进仿真一个时间步。先积分物理状态，再让每个机器人控制
// 循环执行一次 (清空指令队列、应用最后一帧、感知并发送)。
// 任一控制循环的契约违例会中止本步并向上传播。
func (w *CartPoleWorld) Step() error {
	for _, cart := range w.carts {
		w.integrate(cart)
	}
	for _, rc := range w.controllers {
		if err := rc.Tick(); err != nil {
			return fmt.Errorf("仿真步进失败: %w", err)
		}
	}
	return nil
}

// integrate 用简单的显式欧拉法推进单台小车的状态:
// 车轮速度伺服驱动小车，小车加速度与重力共同驱动倒立摆。
func (w *CartPoleWorld) integrate(cart *cartState) {
	targetVelocity := cart.wheelTarget * wheelRadius
	xDDot := (targetVelocity - cart.xDot) * servoGain
	thetaDDot := (gravity*math.Sin(cart.theta) - xDDot*math.Cos(cart.theta)) / poleLength

	cart.x += cart.xDot * w.timestep
	cart.xDot += xDDot * w.timestep
	cart.theta += cart.thetaDot * w.timestep
	cart.thetaDot += thetaDDot * w.timestep
}

// ===================================================================
//                 机器人一侧的设备视图 (传感器与电机)
// ===================================================================

type poleSensor struct {
	cart *cartState
}

// GetValue 返回铰链位置传感器的当前读数，即杆角度 (rad)。
func (s poleSensor) GetValue() float64 {
	return s.cart.theta
}

type wheelMotor struct {
	cart *cartState
}

// SetVelocity 设定车轮目标速度。四个车轮写的是同一个目标值，
// 与真实小车上四轮同速驱动一致。
func (m wheelMotor) SetVelocity(velocity float64) {
	m.cart.wheelTarget = velocity
}

// Sensor 返回第 i 台小车的杆位置传感器。
func (w *CartPoleWorld) Sensor(i int) simulation.PositionSensor {
	return poleSensor{cart: w.carts[i]}
}

// Wheels 返回第 i 台小车的全部车轮电机。
func (w *CartPoleWorld) Wheels(i int) []simulation.Motor {
	wheels := make([]simulation.Motor, config.WheelCount)
	for j := range wheels {
		wheels[j] = wheelMotor{cart: w.carts[i]}
	}
	return wheels
}

// ===================================================================
//                 监督者一侧的节点视图 (位置与速度)
// ===================================================================

type cartNode struct {
	cart *cartState
}

// GetPosition 返回小车的三维坐标 [x, y, z]。
func (n cartNode) GetPosition() []float64 {
	return []float64{n.cart.x, 0, 0}
}

// GetVelocity 返回小车的六维速度向量 [vx, vy, vz, wx, wy, wz]。
func (n cartNode) GetVelocity() []float64 {
	return []float64{n.cart.xDot, 0, 0, 0, 0, 0}
}

type poleEndpointNode struct {
	cart *cartState
}

// GetPosition 返回杆顶端的三维坐标。
func (n poleEndpointNode) GetPosition() []float64 {
	return []float64{
		n.cart.x + poleLength*math.Sin(n.cart.theta),
		poleLength * math.Cos(n.cart.theta),
		0,
	}
}

// GetVelocity 返回杆顶端的六维速度向量，索引 4 是 y 轴角速度。
func (n poleEndpointNode) GetVelocity() []float64 {
	return []float64{
		n.cart.xDot + poleLength*math.Cos(n.cart.theta)*n.cart.thetaDot,
		-poleLength * math.Sin(n.cart.theta) * n.cart.thetaDot,
		0, 0, n.cart.thetaDot, 0,
	}
}

// Cart 返回第 i 台小车的节点视图。
func (w *CartPoleWorld) Cart(i int) simulation.TrackedNode {
	return cartNode{cart: w.carts[i]}
}

// PoleEndpoint 返回第 i 根杆顶端的节点视图。
func (w *CartPoleWorld) PoleEndpoint(i int) simulation.TrackedNode {
	return poleEndpointNode{cart: w.carts[i]}
}
