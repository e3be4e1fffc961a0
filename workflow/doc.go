// Copyright (c) CanvasFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供画布工作流的图存储、调度与执行引擎。

# 概述

workflow 包实现了 CanvasFlow 的核心引擎：节点/边的唯一事实源（Store）、
基于 Kahn 算法的拓扑调度器（ExecutionOrder）以及按依赖顺序串行执行
Agent 节点的协调器（Coordinator）。渲染层与 Agent 调用后端通过两个
窄接口接入：Store 的订阅机制与 Invoker。

# 核心接口与类型

  - Store              — 节点/边集合 + 变更订阅（同步通知，保持插入序）
  - NodePatch          — UpdateNode 的部分更新载体
  - ExecutionOrder     — 纯函数拓扑排序（环上节点返回可解析前缀）
  - Coordinator        — 全图执行：重置 → 逐节点聚合输入 → 调用 Agent
  - Invoker            — 外部 Agent 调用接口 Invoke(ctx, type, input)
  - HistorySink        — 执行历史落盘接口（由 persistence 实现）
  - ExecutionHistory   — 单次执行的全链路记录

# 执行语义

  - 串行执行，绝不并发；失败即中止（fail-fast），未执行节点保持 idle
  - 每步从 Store 重新读取上游输出，空输出跳过并告警
  - 上游输出序列化为文本，以空行分隔拼接后前置于节点自身输入
  - 同一时刻至多一次执行在途（running 标志强制）
  - 含环图整体拒绝执行（CYCLIC_GRAPH），而非静默执行部分序
*/
package workflow
