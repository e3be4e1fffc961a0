package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/canvasflow/persistence"
	"github.com/BaSui01/canvasflow/types"
	"github.com/BaSui01/canvasflow/workflow"
)

// maxImportSize bounds the import payload; canvases are small documents.
const maxImportSize = 4 << 20

// Runner starts a full workflow run.
type Runner interface {
	Run(ctx context.Context) (*workflow.RunReport, error)
}

// AgentCatalog lists the registered agent types.
type AgentCatalog interface {
	Types() []types.AgentType
}

// HistoryReader queries stored execution histories.
type HistoryReader interface {
	ListRecent(ctx context.Context, limit int) ([]persistence.ExecutionRecord, error)
	GetByExecutionID(ctx context.Context, executionID string) (*persistence.ExecutionRecord, error)
}

// =============================================================================
// 🎨 工作流 Handler
// =============================================================================

// WorkflowHandler 画布工作流处理器
type WorkflowHandler struct {
	store      *workflow.Store
	runner     Runner
	manager    *persistence.Manager
	catalog    AgentCatalog
	history    HistoryReader
	logger     *zap.Logger
	runTimeout time.Duration
}

// NewWorkflowHandler 创建工作流处理器。history 与 catalog 可为 nil，
// 对应端点将返回 404。
func NewWorkflowHandler(
	store *workflow.Store,
	runner Runner,
	manager *persistence.Manager,
	catalog AgentCatalog,
	history HistoryReader,
	runTimeout time.Duration,
	logger *zap.Logger,
) *WorkflowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &WorkflowHandler{
		store:      store,
		runner:     runner,
		manager:    manager,
		catalog:    catalog,
		history:    history,
		logger:     logger.With(zap.String("component", "workflow_handler")),
		runTimeout: runTimeout,
	}
}

// Register 注册全部路由
func (h *WorkflowHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/workflow", h.HandleWorkflow)
	mux.HandleFunc("/api/workflow/name", h.HandleName)
	mux.HandleFunc("/api/workflow/run", h.HandleRun)
	mux.HandleFunc("/api/workflow/save", h.HandleSave)
	mux.HandleFunc("/api/workflow/load", h.HandleLoad)
	mux.HandleFunc("/api/workflow/export", h.HandleExport)
	mux.HandleFunc("/api/workflow/import", h.HandleImport)
	mux.HandleFunc("/api/workflow/clear", h.HandleClear)
	mux.HandleFunc("/api/workflow/nodes", h.HandleNodes)
	mux.HandleFunc("/api/workflow/nodes/", h.HandleNodeByID)
	mux.HandleFunc("/api/workflow/edges", h.HandleEdges)
	mux.HandleFunc("/api/workflow/edges/", h.HandleEdgeByID)
	mux.HandleFunc("/api/workflow/history", h.HandleHistory)
	mux.HandleFunc("/api/workflow/history/", h.HandleHistoryByID)
	mux.HandleFunc("/api/agents", h.HandleAgentTypes)
}

// =============================================================================
// 🎯 图读取与编辑
// =============================================================================

// HandleWorkflow 处理 GET /api/workflow（返回完整文档）
func (h *WorkflowHandler) HandleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	WriteSuccess(w, h.store.Document())
}

// HandleName 处理 PUT /api/workflow/name（重命名）
func (h *WorkflowHandler) HandleName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "name must not be empty"), h.logger)
		return
	}

	h.store.SetName(req.Name)
	WriteSuccess(w, map[string]string{"name": req.Name})
}

type addNodeRequest struct {
	ID        string          `json:"id"`
	AgentType types.AgentType `json:"agentType"`
	Label     string          `json:"label"`
	Position  types.Position  `json:"position"`
	Input     string          `json:"input"`
}

// HandleNodes 处理 POST /api/workflow/nodes（添加节点）
func (h *WorkflowHandler) HandleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	var req addNodeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.AgentType == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "agentType is required"), h.logger)
		return
	}
	if h.catalog != nil {
		if !containsAgentType(h.catalog.Types(), req.AgentType) {
			WriteError(w, types.NewError(types.ErrUnknownAgentType,
				fmt.Sprintf("unknown agent type: %s", req.AgentType)), h.logger)
			return
		}
	}

	if req.ID == "" {
		req.ID = "node_" + uuid.NewString()
	}
	if req.Label == "" {
		req.Label = string(req.AgentType)
	}
	node := types.NewNode(req.ID, req.AgentType, req.Label, req.Position)
	if req.Input != "" {
		node.Data.Input = req.Input
	}
	if err := h.store.AddNode(node); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, node)
}

type updateNodeRequest struct {
	Label     *string           `json:"label"`
	Input     *string           `json:"input"`
	Status    *types.NodeStatus `json:"status"`
	ShowInput *bool             `json:"showInput"`
	Position  *types.Position   `json:"position"`
}

// HandleNodeByID 处理 PATCH/DELETE /api/workflow/nodes/{id}
func (h *WorkflowHandler) HandleNodeByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/workflow/nodes/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "invalid node id"), h.logger)
		return
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var req updateNodeRequest
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
		if _, ok := h.store.Node(id); !ok {
			WriteError(w, types.NewError(types.ErrNotFound, "node not found: "+id), h.logger)
			return
		}
		if req.Status != nil && !req.Status.Valid() {
			WriteError(w, types.NewError(types.ErrInvalidRequest, "invalid node status"), h.logger)
			return
		}
		h.store.UpdateNode(id, workflow.NodePatch{
			Label:     req.Label,
			Input:     req.Input,
			Status:    req.Status,
			ShowInput: req.ShowInput,
			Position:  req.Position,
		})
		node, _ := h.store.Node(id)
		WriteSuccess(w, node)

	case http.MethodDelete:
		if _, ok := h.store.Node(id); !ok {
			WriteError(w, types.NewError(types.ErrNotFound, "node not found: "+id), h.logger)
			return
		}
		h.store.RemoveNode(id)
		WriteSuccess(w, map[string]string{"removed": id})

	default:
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
	}
}

type connectRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// HandleEdges 处理 POST /api/workflow/edges（连线）
func (h *WorkflowHandler) HandleEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	var req connectRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Source == "" || req.Target == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "source and target are required"), h.logger)
		return
	}

	edge := types.Edge{ID: req.ID, Source: req.Source, Target: req.Target}
	if err := h.store.Connect(edge); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, h.store.Document().Edges)
}

// HandleEdgeByID 处理 DELETE /api/workflow/edges/{id}
func (h *WorkflowHandler) HandleEdgeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/workflow/edges/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "invalid edge id"), h.logger)
		return
	}

	h.store.Disconnect(id)
	WriteSuccess(w, map[string]string{"removed": id})
}

// =============================================================================
// ▶️ 执行
// =============================================================================

// HandleRun 处理 POST /api/workflow/run（全图执行）
func (h *WorkflowHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.runTimeout)
	defer cancel()

	report, err := h.runner.Run(ctx)
	if err != nil {
		// 失败的执行也返回报告，前端据此标注失败节点
		if apiErr := types.AsError(err); apiErr != nil && report != nil {
			status := mapErrorCodeToHTTPStatus(types.GetErrorCode(err))
			WriteJSON(w, status, Response{
				Success: false,
				Data:    report,
				Error: &ErrorInfo{
					Code:    string(apiErr.Code),
					Message: apiErr.Message,
					NodeID:  apiErr.NodeID,
				},
				Timestamp: time.Now(),
			})
			return
		}
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, report)
}

// =============================================================================
// 💾 持久化
// =============================================================================

// HandleSave 处理 POST /api/workflow/save
func (h *WorkflowHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	doc, err := h.manager.SaveSnapshot(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, doc)
}

// HandleLoad 处理 POST /api/workflow/load
func (h *WorkflowHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	doc, err := h.manager.LoadSnapshot(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, doc)
}

// HandleExport 处理 GET /api/workflow/export（文件下载）
func (h *WorkflowHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	payload, filename, err := h.manager.Export()
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// HandleImport 处理 POST /api/workflow/import（?force=true 确认覆盖）
func (h *WorkflowHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "failed to read request body").WithCause(err), h.logger)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	doc, err := h.manager.Import(r.Context(), payload, force)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, doc)
}

// HandleClear 处理 POST /api/workflow/clear（?force=true 确认清空）
func (h *WorkflowHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := h.manager.Clear(force); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]bool{"cleared": true})
}

// =============================================================================
// 📜 执行历史与 Agent 目录
// =============================================================================

// HandleHistory 处理 GET /api/workflow/history
func (h *WorkflowHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	if h.history == nil {
		WriteError(w, types.NewError(types.ErrNotFound, "execution history not configured"), h.logger)
		return
	}

	records, err := h.history.ListRecent(r.Context(), 20)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, records)
}

// HandleHistoryByID 处理 GET /api/workflow/history/{execution_id}
func (h *WorkflowHandler) HandleHistoryByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	if h.history == nil {
		WriteError(w, types.NewError(types.ErrNotFound, "execution history not configured"), h.logger)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/workflow/history/")
	record, err := h.history.GetByExecutionID(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, record)
}

// HandleAgentTypes 处理 GET /api/agents
func (h *WorkflowHandler) HandleAgentTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	agentTypes := types.BuiltinAgentTypes()
	if h.catalog != nil {
		agentTypes = h.catalog.Types()
	}
	WriteSuccess(w, agentTypes)
}

func containsAgentType(haystack []types.AgentType, needle types.AgentType) bool {
	for _, t := range haystack {
		if t == needle {
			return true
		}
	}
	return false
}
