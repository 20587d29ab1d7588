// C:/workspace/go/CartPole-Simulator/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"CartPole-Simulator/api"
	"CartPole-Simulator/collector"
	"CartPole-Simulator/config"
	"CartPole-Simulator/simulation"
	"CartPole-Simulator/world"
)

func main() {
	configPath := flag.String("config", "", "TOML 配置文件路径 (留空使用默认参数)")
	serve := flag.Bool("serve", false, "以 gRPC 环境服务模式运行，由外部学习器驱动")
	flag.Parse()

	params := config.DefaultParams()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		params = loaded
	}

	log.Println("=============================================")
	log.Println("======  CartPole Supervisor Simulation  ======")
	log.Println("=============================================")
	log.Printf("加载配置: %d 台机器人, 每回合上限 %d 步, 单步 %d ms", params.RobotCount, params.StepsPerEpisode, params.TimestepMs)
	log.Println("=============================================")

	// --- 1. 创建链路与仿真世界 ---
	link := simulation.NewLink(params.RobotCount)
	timestep := time.Duration(params.TimestepMs) * time.Millisecond
	cartWorld := world.New(params.RobotCount, timestep.Seconds(), time.Now().UnixNano())

	// --- 2. 创建机器人并挂载控制循环 ---
	bindings := make([]simulation.RobotBinding, params.RobotCount)
	for i := 0; i < params.RobotCount; i++ {
		channel, err := link.Channel(i)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		name := fmt.Sprintf("CARTPOLE-%d", i)
		robot := simulation.NewDiscreteCartRobot(cartWorld.Sensor(i), cartWorld.Wheels(i))
		cartWorld.Attach(simulation.NewRobotController(name, channel, robot))

		bindings[i] = simulation.RobotBinding{
			Channel:      channel,
			Cart:         cartWorld.Cart(i),
			PoleEndpoint: cartWorld.PoleEndpoint(i),
		}
	}
	log.Printf("🤖 已成功创建 %d 台小车.", params.RobotCount)

	// --- 3. 创建监督者环境 ---
	env := simulation.NewSupervisorEnv(bindings, cartWorld, cartWorld, simulation.ActionSpaceDiscrete)

	// --- 4a. 服务模式: 由外部学习器通过 gRPC 驱动 Reset/Step ---
	if *serve {
		if err := api.Serve(params.ListenAddr, env); err != nil {
			log.Fatalf("❌ 环境服务异常退出: %v", err)
		}
		return
	}

	// --- 4b. 独立模式: 基线智能体 + 编排器 + 数据收集器 ---
	dataCollector := collector.NewDataCollector(link, params.ReportDir)

	mode := simulation.ModeTrain
	if params.Evaluate {
		mode = simulation.ModeEval
	}
	orchestrator := simulation.NewOrchestrator(
		env,
		simulation.NewBangBangAgent(),
		mode,
		params.MaxEpisodes,
		params.StepsPerEpisode,
		dataCollector,
	)

	runErr := orchestrator.Run()

	log.Println("... 正在保存训练报告 ...")
	dataCollector.SaveFinalReport()

	if runErr != nil {
		log.Fatalf("❌ 训练循环异常中止: %v", runErr)
	}

	log.Println("=============================================")
	log.Println("===========  SIMULATION FINISHED  ===========")
	log.Println("=============================================")
}
