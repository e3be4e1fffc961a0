// Copyright (c) CanvasFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 CanvasFlow 引擎的全局共享类型定义。

# 概述

types 是引擎最底层的公共包，不依赖任何内部包，为 workflow、agents、
persistence、api 等上层模块提供统一的类型契约。所有跨包共享的结构体、
枚举和错误码均定义于此，以避免循环依赖。

# 核心类型

  - Node / NodeData      — 画布节点（位置 + 可变执行数据）
  - Edge                 — 有向依赖边（source 输出喂给 target 输入）
  - AgentType            — Agent 能力枚举（strategy / copywriting / visual / research / media）
  - NodeStatus           — 节点状态机（idle → running → success | error）
  - WorkflowDocument     — 可持久化的工作流文档（name + nodes + edges）
  - Error / ErrorCode    — 结构化错误体系，含节点归因与 HTTP 状态映射

# 主要能力

  - 错误工具链：AsError / IsErrorCode / IsNotFound
  - 状态校验：NodeStatus.Valid、AgentType.Valid
  - 文档工具：WorkflowDocument.Clone 深拷贝
*/
package types
