package simulation

import (
	"fmt"
	"sync"
	"sync/atomic"

	"CartPole-Simulator/config"
)

// frameQueue 是单方向的有界报文队列。
// 队列满时丢弃最旧的一帧，模拟有损链路：发送方永远不会被阻塞。
type frameQueue struct {
	mutex    sync.Mutex
	frames   []string
	capacity int
	dropped  uint64
}

func newFrameQueue(capacity int) *frameQueue {
	return &frameQueue{
		frames:   make([]string, 0, capacity),
		capacity: capacity,
	}
}

// push 将一帧报文入队。队列满时丢弃最旧的一帧并计数。
func (q *frameQueue) push(frame string) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.frames) >= q.capacity {
		q.frames = q.frames[1:]
		q.dropped++
	}
	q.frames = append(q.frames, frame)
}

// drainLast 清空队列并返回最后入队的一帧 (last-write-wins)。
// 这是整个协议里行为意义最重的语义: 接收方一次取走当前积压的全部报文，
// 只有最后一帧被视为权威，更早的报文被整体跳过、不产生任何副作用。
// 队列为空时返回 ok=false，调用方保持"无更新"状态，这不是错误。
func (q *frameQueue) drainLast() (frame string, ok bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.frames) == 0 {
		return "", false
	}
	frame = q.frames[len(q.frames)-1]
	q.frames = q.frames[:0]
	return frame, true
}

func (q *frameQueue) length() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.frames)
}

func (q *frameQueue) droppedCount() uint64 {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.dropped
}

func (q *frameQueue) reset() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.frames = q.frames[:0]
	q.dropped = 0
}

// Channel 模拟监督者与单台机器人之间的一条点对点逻辑信道。
// 每个方向各有一个独立的报文队列: 指令 (监督者 -> 机器人) 与
// 报告 (机器人 -> 监督者)。监督者是指令队列的唯一写者和报告队列的
// 唯一读者，机器人反之，因此跨进程不需要额外的同步原语。
type Channel struct {
	ID int // 逻辑信道号，由机器人编号派生，进程存续期内不变

	commands *frameQueue // 监督者 -> 机器人
	reports  *frameQueue // 机器人 -> 监督者

	// --- 统计字段 ---
	totalFramesSent atomic.Uint64
}

// NewChannel 是 Channel 的构造函数。
func NewChannel(id int) *Channel {
	return &Channel{
		ID:       id,
		commands: newFrameQueue(config.ChannelQueueCapacity),
		reports:  newFrameQueue(config.ChannelQueueCapacity),
	}
}

// SendCommand 由监督者调用，向机器人方向发送一帧指令。
func (c *Channel) SendCommand(frame string) {
	c.commands.push(frame)
	c.totalFramesSent.Add(1)
}

// DrainCommands 由机器人调用，清空指令队列并返回最后一帧。
func (c *Channel) DrainCommands() (string, bool) {
	return c.commands.drainLast()
}

// SendReport 由机器人调用，向监督者方向发送一帧传感器报告。
func (c *Channel) SendReport(frame string) {
	c.reports.push(frame)
	c.totalFramesSent.Add(1)
}

// DrainReports 由监督者调用，清空报告队列并返回最后一帧。
func (c *Channel) DrainReports() (string, bool) {
	return c.reports.drainLast()
}

// Reset 清空两个方向的队列和统计数据，在回合边界调用。
func (c *Channel) Reset() {
	c.commands.reset()
	c.reports.reset()
	c.totalFramesSent.Store(0)
}

// ChannelRawStats Excel自动统计需要以下结构和函数
type ChannelRawStats struct {
	TotalFramesSent uint64
	DroppedFrames   uint64
	PendingCommands int
	PendingReports  int
}

func (c *Channel) GetRawStats() ChannelRawStats {
	return ChannelRawStats{
		TotalFramesSent: c.totalFramesSent.Load(),
		DroppedFrames:   c.commands.droppedCount() + c.reports.droppedCount(),
		PendingCommands: c.commands.length(),
		PendingReports:  c.reports.length(),
	}
}

// GetStats 返回一个包含信道统计信息的可读字符串。
func (c *Channel) GetStats() string {
	stats := c.GetRawStats()
	out := fmt.Sprintf("--- 信道 %d 统计 ---\n", c.ID)
	out += fmt.Sprintf("  - 总发送帧数: %d\n", stats.TotalFramesSent)
	out += fmt.Sprintf("  - 溢出丢弃帧数: %d\n", stats.DroppedFrames)
	out += "------------------\n"
	return out
}

// Link 将一条物理消息链路按信道号复用为若干条独立的点对点信道。
// 信道号即机器人编号，分配在机器人进程的整个生命周期内保持稳定。
type Link struct {
	channels []*Channel
}

// NewLink 是 Link 的构造函数，为 robotCount 台机器人各分配一条信道。
// 单机器人配置退化为唯一的共享信道 0。
func NewLink(robotCount int) *Link {
	channels := make([]*Channel, robotCount)
	for i := range channels {
		channels[i] = NewChannel(i)
	}
	return &Link{channels: channels}
}

// Channel 按信道号返回对应的点对点信道。
func (l *Link) Channel(id int) (*Channel, error) {
	if id < 0 || id >= len(l.channels) {
		return nil, fmt.Errorf("信道号 %d 越界: 链路上只有 %d 条信道", id, len(l.channels))
	}
	return l.channels[id], nil
}

// Channels 返回链路上的全部信道，按信道号排序。
func (l *Link) Channels() []*Channel {
	return l.channels
}

// Reset 重置链路上的全部信道。
func (l *Link) Reset() {
	for _, c := range l.channels {
		c.Reset()
	}
}
