package simulation

import (
	"fmt"
	"log"

	"CartPole-Simulator/config"
)

// PositionSensor 是物理引擎暴露的窄传感接口 (外部协作者)。
type PositionSensor interface {
	// GetValue 返回传感器最近一次测得的值。对角度位置传感器为弧度。
	GetValue() float64
}

// Motor 是物理引擎暴露的窄执行器接口 (外部协作者)。
type Motor interface {
	// SetVelocity 设定电机的目标速度 (rad/s)。
	SetVelocity(velocity float64)
}

// Peer 抽象了一个物理角色在一次时间步内的两种能力:
// 从本地物理接口读出一帧观测, 以及把一帧指令施加到本地执行器。
type Peer interface {
	// Sense 读取本地传感器并编码为一帧观测报文。
	Sense() string
	// Act 解码一帧指令报文并立即施加到执行器。
	// 指令内容违反契约时必须立即报错，不得钳制或忽略。
	Act(frame string) error
}

// RobotController 是按时间步运行的机器人控制循环，对 Peer 泛化。
// 每个时间步: 清空积压的指令队列并只应用最后一帧 (last-write-wins)，
// 然后读取传感器、发送恰好一帧观测。应用指令严格先于感知发送。
type RobotController struct {
	name    string
	channel *Channel
	peer    Peer

	commandsSeen bool // 是否收到过任何指令 (首个时间步前执行器保持初始状态)
	ticks        uint64
}

// NewRobotController 是 RobotController 的构造函数。
func NewRobotController(name string, channel *Channel, peer Peer) *RobotController {
	log.Printf("🤖 [机器人 %s] 控制循环已挂载到信道 %d，开始监听...", name, channel.ID)
	return &RobotController{name: name, channel: channel, peer: peer}
}

// Tick 执行一个时间步。队列为空时不更新执行器，这不是错误;
// Act 返回的契约违例错误会中止本机器人的时间步循环。
func (rc *RobotController) Tick() error {
	rc.ticks++
	if frame, ok := rc.channel.DrainCommands(); ok {
		if err := rc.peer.Act(frame); err != nil {
			return fmt.Errorf("机器人 %s (信道 %d) 第 %d 步应用指令失败: %w", rc.name, rc.channel.ID, rc.ticks, err)
		}
		rc.commandsSeen = true
	}
	rc.channel.SendReport(rc.peer.Sense())
	return nil
}

// ChannelID 返回本控制循环绑定的逻辑信道号。
func (rc *RobotController) ChannelID() int {
	return rc.channel.ID
}

// CommandsSeen 报告本控制循环是否收到过任何指令。
// 首个指令到达之前，执行器保持初始化时的状态 (例如零速度)。
func (rc *RobotController) CommandsSeen() bool {
	return rc.commandsSeen
}

// DiscreteCartRobot 是接收离散动作的四轮小车。
// 杆通过无动力铰链连接在车体上，铰链内的位置传感器测量杆相对
// 竖直方向的角度，作为每步上报的唯一观测字段。
type DiscreteCartRobot struct {
	sensor PositionSensor
	wheels []Motor
}

// NewDiscreteCartRobot 是 DiscreteCartRobot 的构造函数。
func NewDiscreteCartRobot(sensor PositionSensor, wheels []Motor) *DiscreteCartRobot {
	return &DiscreteCartRobot{sensor: sensor, wheels: wheels}
}

// Sense 把杆角度打包为一帧传感器报告。
func (r *DiscreteCartRobot) Sense() string {
	return SensorReport{PoleAngle: r.sensor.GetValue()}.EncodeFrame()
}

// Act 解包监督者的指令并驱动车轮。0 为前进, 1 为后退，
// 对应速度 ±MotorSpeed 施加到全部车轮；其余取值立即报错。
func (r *DiscreteCartRobot) Act(frame string) error {
	action, err := DecodeDiscreteCommand(frame)
	if err != nil {
		return err
	}
	speed := config.MotorSpeed
	if action == ActionBackward {
		speed = -config.MotorSpeed
	}
	for _, wheel := range r.wheels {
		wheel.SetVelocity(speed)
	}
	return nil
}

// ContinuousCartRobot 是接收连续动作的四轮小车。
// 指令帧携带 [-1, 1] 区间的单个数值，按比例缩放后作为车轮速度。
type ContinuousCartRobot struct {
	sensor PositionSensor
	wheels []Motor
}

// NewContinuousCartRobot 是 ContinuousCartRobot 的构造函数。
func NewContinuousCartRobot(sensor PositionSensor, wheels []Motor) *ContinuousCartRobot {
	return &ContinuousCartRobot{sensor: sensor, wheels: wheels}
}

// Sense 把杆角度打包为一帧传感器报告。
func (r *ContinuousCartRobot) Sense() string {
	return SensorReport{PoleAngle: r.sensor.GetValue()}.EncodeFrame()
}

// Act 解包连续速度指令，从 [-1, 1] 缩放到 [-5, 5] 后施加到全部车轮。
func (r *ContinuousCartRobot) Act(frame string) error {
	value, err := DecodeContinuousCommand(frame)
	if err != nil {
		return err
	}
	speed := value * config.ContinuousSpeedScale
	for _, wheel := range r.wheels {
		wheel.SetVelocity(speed)
	}
	return nil
}
