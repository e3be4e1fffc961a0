// Copyright (c) CanvasFlow Authors.
// Licensed under the MIT License.

/*
Package persistence 提供工作流文档的持久化与交换能力。

# 概述

persistence 包覆盖三条持久化路径：

  - SnapshotStore — 基于 Redis 的单槽快照（保存 / 加载 / 删除），
    对应画布的 Save / Load 按钮语义：固定键，整体覆盖写
  - 导出 / 导入 — 带 exportedAt 时间戳的缩进 JSON 文件交换格式，
    文件名由工作流名派生（空白折叠为连字符）
  - HistoryStore — 基于 GORM 的执行历史落盘，实现 workflow.HistorySink

Manager 将以上能力与活动图（workflow.Store）绑定：加载与导入以整体
替换的方式刷新画布，绝不合并；非空画布上的导入与清空需要显式确认。
*/
package persistence
