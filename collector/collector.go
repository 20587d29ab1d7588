// C:/workspace/go/CartPole-Simulator/collector/collector.go
package collector

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"CartPole-Simulator/config"
	"CartPole-Simulator/simulation"
)

// DataCollector 把训练过程按回合记录到 Excel 文件:
// 一张表记录每个回合的得分与步数，一张表记录各信道的链路统计。
type DataCollector struct {
	link     *simulation.Link
	filename string

	file         *excelize.File
	episodeRow   int
	channelRow   int
	recentScores []float64 // 滑动窗口内的得分，用于报告滑动均值
}

const (
	episodeSheet = "Episode_Stats"
	channelSheet = "Channel_Stats"
)

// NewDataCollector 创建一个新的数据收集器实例，报告输出到 reportDir
// 下带时间戳的文件。
func NewDataCollector(link *simulation.Link, reportDir string) *DataCollector {
	// 1. 创建一个带时间戳的基础文件名
	baseFilename := fmt.Sprintf("training_results_%s.xlsx", time.Now().Format("20060102_150405"))

	// 2. 使用 filepath.Join 拼接完整路径，保证跨平台兼容
	fullPath := filepath.Join(reportDir, baseFilename)

	f := excelize.NewFile()
	_, _ = f.NewSheet(episodeSheet)
	_, _ = f.NewSheet(channelSheet)
	_ = f.DeleteSheet("Sheet1")

	headersEpisode := []interface{}{"回合", "得分", "步数", fmt.Sprintf("近%d回合平均得分", config.SolvedWindow), "是否解决"}
	_ = f.SetSheetRow(episodeSheet, "A1", &headersEpisode)

	headersChannel := []interface{}{"回合", "信道号", "总发送帧数", "溢出丢弃帧数"}
	_ = f.SetSheetRow(channelSheet, "A1", &headersChannel)

	return &DataCollector{
		link:       link,
		filename:   fullPath,
		file:       f,
		episodeRow: 2,
		channelRow: 2,
	}
}

// RecordEpisode 记录一个已完成回合的数据，由编排器在回合边界调用。
func (dc *DataCollector) RecordEpisode(episode int, score float64, steps int, solved bool) {
	dc.recentScores = append(dc.recentScores, score)
	if len(dc.recentScores) > config.SolvedWindow {
		dc.recentScores = dc.recentScores[1:]
	}
	var sum float64
	for _, s := range dc.recentScores {
		sum += s
	}
	rollingMean := sum / float64(len(dc.recentScores))

	rowData := []interface{}{episode, score, steps, rollingMean, solved}
	_ = dc.file.SetSheetRow(episodeSheet, fmt.Sprintf("A%d", dc.episodeRow), &rowData)
	dc.episodeRow++

	// 信道统计在回合重置时清零，这里记录的是刚结束回合的数据快照。
	for _, ch := range dc.link.Channels() {
		stats := ch.GetRawStats()
		chRowData := []interface{}{episode, ch.ID, stats.TotalFramesSent, stats.DroppedFrames}
		_ = dc.file.SetSheetRow(channelSheet, fmt.Sprintf("A%d", dc.channelRow), &chRowData)
		dc.channelRow++
	}
}

// SaveFinalReport 把累计的记录写入磁盘并关闭文件。
func (dc *DataCollector) SaveFinalReport() {
	// 在保存文件之前，确保目标目录存在。os.MkdirAll 对已存在的目录
	// 不做任何事也不会报错。
	reportDir := filepath.Dir(dc.filename)
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		log.Printf("❌ 错误: 无法创建报告目录 '%s': %v", reportDir, err)
		// 即使创建目录失败，也尝试保存，以防根目录可写
	}

	if err := dc.file.SaveAs(dc.filename); err != nil {
		log.Printf("❌ 错误: 无法保存 Excel 文件: %v", err)
	} else {
		log.Printf("✅ 训练数据已成功保存到 %s", dc.filename)
	}

	if err := dc.file.Close(); err != nil {
		log.Printf("❌ 关闭Excel文件时出错: %v", err)
	}
}
