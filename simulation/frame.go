package simulation

import (
	"fmt"
	"strconv"
	"strings"

	"CartPole-Simulator/config"
)

// MessageType 定义了链路上传输的报文类型，便于识别
type MessageType string

const (
	MsgTypeSensorReport MessageType = "SENSOR_REPORT" // 机器人 -> 监督者, 传感器读数
	MsgTypeCommand      MessageType = "COMMAND"       // 监督者 -> 机器人, 执行器指令
)

// 离散动作的契约取值。0 为前进, 1 为后退, 其余一律为协议违例。
const (
	ActionForward  = 0
	ActionBackward = 1
)

// Encode 将一组有序字段编码为单行逗号分隔的报文帧。
// 协议不支持分隔符转义，字段内容不得包含逗号。
func Encode(fields []string) string {
	return strings.Join(fields, config.FrameDelimiter)
}

// EncodeFloats 将一组有序数值编码为单行报文帧。
func EncodeFloats(values ...float64) string {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return Encode(fields)
}

// Decode 将一帧报文按分隔符拆分为有序的字段序列。
// Decode 不做任何类型转换，由调用方按报文类型逐字段解析。
func Decode(payload string) []string {
	return strings.Split(payload, config.FrameDelimiter)
}

// SensorReport 是机器人每个时间步上报的传感器帧。
// 帧内字段的顺序是固定的，没有可选字段。
type SensorReport struct {
	PoleAngle float64 // 杆相对竖直方向的角度 (rad)
}

// EncodeFrame 将传感器报告编码为单行报文帧。
func (r SensorReport) EncodeFrame() string {
	return EncodeFloats(r.PoleAngle)
}

// DecodeSensorReport 从一帧报文解析传感器报告。
// 字段无法解析为数值时立即报错，绝不静默使用默认值。
func DecodeSensorReport(payload string) (SensorReport, error) {
	fields := Decode(payload)
	if len(fields) != 1 {
		return SensorReport{}, fmt.Errorf("传感器帧字段数错误: 期望 1, 得到 %d (%q)", len(fields), payload)
	}
	angle, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return SensorReport{}, fmt.Errorf("传感器帧字段 %q 无法解析为数值: %w", fields[0], err)
	}
	return SensorReport{PoleAngle: angle}, nil
}

// DecodeDiscreteCommand 从一帧报文解析离散动作指令。
// 动作必须严格属于 {0, 1}; 其余取值视为协议违例并立即报错，不做钳制。
func DecodeDiscreteCommand(payload string) (int, error) {
	fields := Decode(payload)
	if len(fields) != 1 {
		return 0, fmt.Errorf("指令帧字段数错误: 期望 1, 得到 %d (%q)", len(fields), payload)
	}
	action, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, fmt.Errorf("指令帧字段 %q 无法解析为整数: %w", fields[0], err)
	}
	if action != ActionForward && action != ActionBackward {
		return 0, fmt.Errorf("离散动作取值非法: 期望 0 或 1, 得到 %d", action)
	}
	return action, nil
}

// DecodeContinuousCommand 从一帧报文解析连续动作指令。
func DecodeContinuousCommand(payload string) (float64, error) {
	fields := Decode(payload)
	if len(fields) != 1 {
		return 0, fmt.Errorf("指令帧字段数错误: 期望 1, 得到 %d (%q)", len(fields), payload)
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("指令帧字段 %q 无法解析为数值: %w", fields[0], err)
	}
	return value, nil
}
