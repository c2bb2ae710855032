package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/gin-gonic/gin"

	"storybook/internal/config"
	"storybook/internal/model"
	"storybook/internal/service"
	"storybook/internal/store"
	"storybook/internal/tools"
	"storybook/internal/volc"
	"storybook/internal/wizard"
)

func main() {
	// 初始化配置和日志
	cfg, err := config.Load(os.Getenv("STORYBOOK_CONFIG"))
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	cfg.InitLog()

	// 初始化ArkClient
	arkClient := volc.NewArkClientDefault()

	// 初始化两侧存储：文本状态走文件KV，图片走sqlite blob
	texts, err := store.NewFileStateStore(filepath.Join(cfg.DataDir, "sessions"), cfg.TextQuotaBytes)
	if err != nil {
		log.Fatalf("初始化文本存储失败: %v", err)
	}
	blobs, err := store.NewSQLiteBlobStore(filepath.Join(cfg.DataDir, "images.db"), cfg.BlobQuotaBytes)
	if err != nil {
		log.Fatalf("初始化blob存储失败: %v", err)
	}
	defer blobs.Close()

	sessions := store.NewSessionStore(texts, blobs)
	manager := wizard.NewManager(sessions)

	// 初始化生成服务
	svc := service.NewStorybookService(context.Background(), arkClient, service.Options{
		ChatModel:            cfg.ChatModel,
		ImageModel:           cfg.ImageModel,
		MaxAttempts:          cfg.RetryAttempts,
		RetryDelay:           cfg.RetryDelay(),
		PageDelay:            cfg.PageDelay(),
		Concurrency:          cfg.PageConcurrency,
		TextReferenceBaseURL: cfg.TextReferenceBaseURL,
	})

	// 初始化工具
	scriptTool := tools.NewScriptTool(svc)
	characterTool := tools.NewCharacterTool(svc)
	pageTool := tools.NewPageTool(svc)

	// 初始化Gin路由
	router := gin.Default()

	// 向导会话路由
	router.POST("/wizard/sessions", handleCreateSession(manager))
	router.GET("/wizard/sessions/:id", handleGetSession(manager))
	router.POST("/wizard/sessions/:id/advance", handleAdvance(manager))
	router.POST("/wizard/sessions/:id/back", handleBack(manager))
	router.POST("/wizard/sessions/:id/option", handleSelectOption(manager))
	router.POST("/wizard/sessions/:id/photo", handleSubmitPhoto(manager))
	router.POST("/wizard/sessions/:id/description", handleSubmitDescription(manager))
	router.POST("/wizard/sessions/:id/details", handleSubmitDetails(manager))
	router.POST("/wizard/sessions/:id/script/generate", handleGenerateScript(manager, svc))
	router.POST("/wizard/sessions/:id/script", handleCommitScript(manager))
	router.POST("/wizard/sessions/:id/illustration/generate", handleGenerateIllustration(manager, svc))
	router.POST("/wizard/sessions/:id/compile", handleCompile(manager, svc))
	router.POST("/wizard/sessions/:id/pages/:n/regenerate", handleRegeneratePage(manager, svc))
	router.POST("/wizard/sessions/:id/preview", handleCompletePages(manager))
	router.POST("/wizard/sessions/:id/finalize", handleFinalize(manager))
	router.POST("/wizard/sessions/:id/reset", handleReset(manager))

	// 工具路由
	router.POST("/tools/script-generate", handleTool(scriptTool))
	router.POST("/tools/character-generate", handleTool(characterTool))
	router.POST("/tools/page-generate", handleTool(pageTool))

	// 启动服务器
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	// 在goroutine中启动服务器
	go func() {
		log.Printf("服务器启动在 %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("启动服务器失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("关闭服务器...")

	// 优雅关闭服务器
	if err := srv.Close(); err != nil {
		log.Fatalf("服务器关闭失败: %v", err)
	}

	log.Println("服务器已关闭")
}

// stateResponse 统一的状态响应
func stateResponse(m *wizard.Machine) gin.H {
	return gin.H{
		"session_id": m.Session(),
		"state":      m.State(),
	}
}

// handleCreateSession 新建向导会话
func handleCreateSession(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := manager.Create()
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleGetSession 查询会话状态，内存中没有时从存储恢复
func handleGetSession(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := manager.Get(c.Param("id"))
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleAdvance 尝试前进到目标步骤
func handleAdvance(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Step model.Step `json:"step"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		m := manager.Get(c.Param("id"))
		if !m.GoToStep(req.Step) {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("数据不完整，无法进入%s", req.Step), "state": m.State()})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleBack 单步回退
func handleBack(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := manager.Get(c.Param("id"))
		m.GoBack()
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleSelectOption 起始步骤的输入方式选择
func handleSelectOption(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Kind model.ChildDataKind `json:"kind"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		m := manager.Get(c.Param("id"))
		if !m.SelectOption(req.Kind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("未知的输入方式%q", req.Kind)})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleSubmitPhoto 提交孩子照片
func handleSubmitPhoto(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Photo string `json:"photo"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		m := manager.Get(c.Param("id"))
		if !m.SubmitPhoto(req.Photo) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "照片不能为空"})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleSubmitDescription 提交外貌描述表单
func handleSubmitDescription(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ChildDescription
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		m := manager.Get(c.Param("id"))
		if !m.SubmitDescription(req) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "描述表单不能全部为空"})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleSubmitDetails 提交故事信息表单
func handleSubmitDetails(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.StoryDetails
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		m := manager.Get(c.Param("id"))
		if !m.SubmitStoryDetails(req) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "childName不能为空"})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleGenerateScript 生成故事脚本，返回给用户审阅，不提交步骤
func handleGenerateScript(manager *wizard.Manager, svc *service.StorybookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := manager.Get(c.Param("id"))
		st := m.State()
		if st.StoryDetails == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "尚未提交故事信息"})
			return
		}
		script, err := svc.GenerateScript(c.Request.Context(), st.StoryDetails)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("生成故事脚本失败: %v", err)})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": m.Session(),
			"title":      service.ExtractTitle(script),
			"script":     script,
			"pages":      service.FormatScriptPages(script),
		})
	}
}

// handleCommitScript 提交（可能经过编辑的）故事脚本
func handleCommitScript(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Script string `json:"script"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		m := manager.Get(c.Param("id"))
		if !m.CompleteScript(req.Script) {
			c.JSON(http.StatusConflict, gin.H{"error": "脚本不能为空且需先完成前置步骤"})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleGenerateIllustration 生成角色插画并进入compile
func handleGenerateIllustration(manager *wizard.Manager, svc *service.StorybookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := manager.Get(c.Param("id"))
		st := m.State()
		if st.ChildData == nil || !st.ChildData.Valid() {
			c.JSON(http.StatusConflict, gin.H{"error": "尚未提交孩子信息"})
			return
		}
		image, err := svc.GenerateCharacterIllustration(c.Request.Context(), st.ChildData, st.StoryDetails)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("生成角色插画失败: %v", err)})
			return
		}
		if !m.CompleteIllustration(image) {
			c.JSON(http.StatusConflict, gin.H{"error": "需先完成前置步骤", "state": m.State()})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleCompile 逐页生成绘本插画：先生成角色映射参考图，再按配置的并发度生成12页。
// 个别页失败不中断整本生成，失败页通过page_errors返回，可单独重试。
func handleCompile(manager *wizard.Manager, svc *service.StorybookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := manager.Get(c.Param("id"))
		st := m.State()
		if st.StoryScript == "" || st.CharacterIllustration == "" {
			c.JSON(http.StatusConflict, gin.H{"error": "尚未完成脚本或角色插画"})
			return
		}

		// 角色映射参考图只生成一次
		characterMap := st.CharacterMap
		if characterMap == "" {
			var err error
			characterMap, err = svc.GenerateCharacterMap(c.Request.Context(), st.CharacterIllustration, st.StoryDetails)
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("生成角色映射失败: %v", err)})
				return
			}
			m.CompleteCharacterMap(characterMap)
		}

		stanzas := service.SplitStanzas(st.StoryScript)
		pages, pageErrs, err := svc.GeneratePages(c.Request.Context(), stanzas, characterMap, st.StoryDetails, m.SetPageImage)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("生成绘本插画失败: %v", err)})
			return
		}

		errMsgs := make(map[string]string, len(pageErrs))
		for n, e := range pageErrs {
			errMsgs[strconv.Itoa(n)] = e.Error()
		}

		if !m.CompletePages(pages) {
			// 有失败页，停留在compile，等待重试
			c.JSON(http.StatusOK, gin.H{
				"session_id":  m.Session(),
				"state":       m.State(),
				"page_errors": errMsgs,
			})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleRegeneratePage 重新生成单页插画
func handleRegeneratePage(manager *wizard.Manager, svc *service.StorybookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.Param("n"))
		if err != nil || n < 1 || n > model.PageCount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "页码必须在1到12之间"})
			return
		}
		m := manager.Get(c.Param("id"))
		st := m.State()
		if st.StoryScript == "" || st.CharacterMap == "" {
			c.JSON(http.StatusConflict, gin.H{"error": "尚未完成脚本或角色映射"})
			return
		}
		stanzas := service.SplitStanzas(st.StoryScript)
		image, err := svc.RegeneratePage(c.Request.Context(), stanzas[n-1], st.CharacterMap, st.StoryDetails, n)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("重新生成第%d页失败: %v", n, err)})
			return
		}
		m.SetPageImage(n, image)
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleCompletePages 全部页就绪后进入preview
func handleCompletePages(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := manager.Get(c.Param("id"))
		if !m.CompletePages(m.State().BookIllustrations) {
			c.JSON(http.StatusConflict, gin.H{"error": "页插画不完整", "state": m.State()})
			return
		}
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleFinalize 预览确认，产出绘本记录并进入checkout
func handleFinalize(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Title string `json:"title"`
		}
		// 请求体可选
		_ = c.ShouldBindJSON(&req)
		m := manager.Get(c.Param("id"))
		book := m.Finalize(req.Title)
		if book == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "页插画不完整，无法定稿", "state": m.State()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": m.Session(),
			"book":       book,
			"state":      m.State(),
		})
	}
}

// handleReset 完整重置会话
func handleReset(manager *wizard.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := manager.Get(c.Param("id"))
		m.Reset()
		c.JSON(http.StatusOK, stateResponse(m))
	}
}

// handleTool 工具调用的统一入口，请求体原样作为工具参数
func handleTool(t einotool.InvokableTool) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求格式"})
			return
		}
		result, err := t.InvokableRun(c.Request.Context(), string(body))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("工具执行失败: %v", err)})
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(result))
	}
}
