package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/canvasflow/agents"
	"github.com/BaSui01/canvasflow/api/handlers"
	"github.com/BaSui01/canvasflow/config"
	"github.com/BaSui01/canvasflow/internal/metrics"
	"github.com/BaSui01/canvasflow/internal/server"
	"github.com/BaSui01/canvasflow/persistence"
	"github.com/BaSui01/canvasflow/workflow"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 CanvasFlow 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 核心组件
	store       *workflow.Store
	registry    *agents.Registry
	coordinator *workflow.Coordinator

	// 持久化
	snapshots    *persistence.SnapshotStore
	historyStore *persistence.HistoryStore
	manager      *persistence.Manager

	// Handlers
	workflowHandler *handlers.WorkflowHandler
	healthHandler   *handlers.HealthHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("canvasflow", s.logger)

	// 2. 初始化引擎组件
	s.initEngine()

	// 3. 初始化持久化层
	if err := s.initPersistence(); err != nil {
		return fmt.Errorf("failed to init persistence: %w", err)
	}

	// 4. 初始化 Handlers
	s.initHandlers()

	// 5. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 6. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("redis_enabled", s.cfg.Redis.Enabled),
		zap.Bool("history_enabled", s.cfg.Database.Enabled),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initEngine 初始化图存储、Agent 注册表与执行协调器
func (s *Server) initEngine() {
	s.store = workflow.NewStore(s.logger)
	s.registry = agents.NewBuiltinRegistry(s.logger)

	s.coordinator = workflow.NewCoordinator(s.store, s.registry, agents.Stringify, s.logger)
	s.coordinator.SetStepDelay(s.cfg.Engine.StepDelay)
	s.coordinator.SetMetrics(s.metricsCollector)

	// 图变更时同步节点/边数量指标
	s.store.Subscribe(func(workflow.ChangeEvent) {
		nodes, edges := s.store.Snapshot()
		s.metricsCollector.SetGraphSize(len(nodes), len(edges))
	})

	s.logger.Info("Engine initialized",
		zap.Int("agent_types", len(s.registry.Types())),
		zap.Duration("step_delay", s.cfg.Engine.StepDelay),
	)
}

// initPersistence 初始化 Redis 快照存储与执行历史数据库
func (s *Server) initPersistence() error {
	if s.cfg.Redis.Enabled {
		snapshots, err := persistence.NewSnapshotStore(persistence.RedisConfig{
			Addr:       s.cfg.Redis.Addr,
			Password:   s.cfg.Redis.Password,
			DB:         s.cfg.Redis.DB,
			MaxRetries: s.cfg.Redis.MaxRetries,
			PoolSize:   s.cfg.Redis.PoolSize,
		}, s.logger)
		if err != nil {
			// Redis 不可用时降级运行，保存/加载接口返回错误
			s.logger.Warn("Redis not available, snapshot persistence disabled", zap.Error(err))
		} else {
			s.snapshots = snapshots
			s.logger.Info("Snapshot store connected", zap.String("addr", s.cfg.Redis.Addr))
		}
	} else {
		s.logger.Info("Redis disabled, snapshot persistence unavailable")
	}

	s.manager = persistence.NewManager(s.store, s.snapshots, s.logger)

	if s.cfg.Database.Enabled {
		db, err := gorm.Open(sqlite.Open(s.cfg.Database.Path), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			s.logger.Warn("Database not available, execution history disabled", zap.Error(err))
		} else {
			historyStore, err := persistence.NewHistoryStore(db, s.logger)
			if err != nil {
				return fmt.Errorf("failed to init history store: %w", err)
			}
			s.historyStore = historyStore
			s.coordinator.SetHistorySink(historyStore)
			s.logger.Info("Execution history enabled", zap.String("path", s.cfg.Database.Path))
		}
	}

	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	var history handlers.HistoryReader
	if s.historyStore != nil {
		history = s.historyStore
	}

	s.workflowHandler = handlers.NewWorkflowHandler(
		s.store,
		s.coordinator,
		s.manager,
		s.registry,
		history,
		s.cfg.Engine.RunTimeout,
		s.logger,
	)

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.snapshots != nil {
		s.healthHandler.RegisterCheck(pingCheck{name: "redis", ping: s.snapshots.Ping})
	}
	if s.historyStore != nil {
		s.healthHandler.RegisterCheck(pingCheck{name: "database", ping: s.historyStore.Ping})
	}

	s.logger.Info("Handlers initialized")
}

// pingCheck 把一个 ping 函数适配为健康检查
type pingCheck struct {
	name string
	ping func(ctx context.Context) error
}

func (c pingCheck) Name() string                    { return c.name }
func (c pingCheck) Check(ctx context.Context) error { return c.ping(ctx) }

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 工作流 API
	s.workflowHandler.Register(mux)

	// 中间件链
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version"}
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
	}
	if s.cfg.Auth.Enabled {
		middlewares = append(middlewares, JWTAuth(s.cfg.Auth, skipAuthPaths, s.logger))
	}
	handler := Chain(mux, middlewares...)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
