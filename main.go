package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/So-1ro/digest-agent/internal/config"
	"github.com/So-1ro/digest-agent/internal/logger"
	"github.com/So-1ro/digest-agent/internal/server"
	"github.com/So-1ro/digest-agent/internal/svc"

	"github.com/joho/godotenv"
)

var configFile = flag.String("f", "etc/config.yaml", "the config file")

func main() {
	flag.Parse()

	// 先加载 .env，OPENAI_API_KEY 可以来自本地环境文件；没有 .env 也不报错
	_ = godotenv.Load()

	// 读取配置文件
	c, err := config.LoadFromFile(*configFile)
	if err != nil {
		logger.Fatalf("读取配置文件失败, %s", err)
	}

	// 创建服务上下文
	svcCtx := svc.NewServiceContext(c)

	// 启动HTTP服务
	srv := server.New(svcCtx)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatalf("[Server] HTTP服务异常退出, %s", err)
		}
	}()
	logger.Infof("[Server] %s %s 正在监听 :%d", server.ServiceName, server.ServiceVersion, c.Server.Port)

	// 等待程序退出
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	// 优雅关闭
	logger.Infof("正在关闭服务...")
	if err := srv.Shutdown(); err != nil {
		logger.Errorf("[Server] 关闭失败, %v", err)
	}
	logger.Infof("服务已停止")
}
