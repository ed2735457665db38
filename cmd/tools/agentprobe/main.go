package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nwestfall/scribe/backend/internal/config"
	"github.com/nwestfall/scribe/backend/internal/logger"
	"github.com/nwestfall/scribe/backend/internal/model/knowledge"
	"github.com/nwestfall/scribe/backend/internal/service/agent"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	message := flag.String("message", "", "待发送的用户消息")
	conversation := flag.String("conversation", "", "自定义会话ID，留空则自动生成")
	docsDir := flag.String("docs", "", "文本文件目录，目录下的文件将作为知识库全文附带")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*message) == "" {
		flag.Usage()
		log.Fatal("请通过 -message 提供待发送的消息")
	}

	conversationID := *conversation
	if conversationID == "" {
		conversationID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	docs, err := loadDocuments(*docsDir)
	if err != nil {
		log.Fatalf("加载知识库目录失败: %v", err)
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer zl.Sync()

	client := agent.NewClient(cfg.Agent, zl)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("开始发送对话请求: endpoint=%s conversation=%s docs=%d", cfg.Agent.Endpoint, conversationID, len(docs))

	reply, err := client.SendMessage(ctx, conversationID, *message, docs)
	if err != nil {
		log.Fatalf("对话请求失败: %v", err)
	}

	log.Printf("回复获取成功: source=%s chars=%d", reply.Source, len(reply.Text))
	fmt.Println(reply.Text)
}

func loadDocuments(dir string) ([]knowledge.Document, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []knowledge.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		docs = append(docs, knowledge.Document{
			Name:    entry.Name(),
			Content: string(data),
		})
	}
	return docs, nil
}
