// Copyright (c) CanvasFlow Authors.
// Licensed under the MIT License.

/*
Package agents 提供 Agent 注册表与内置营销 Agent 实现。

# 概述

agents 包是执行引擎的 Agent 调用后端：Registry 按 AgentType 分发调用，
实现 workflow.Invoker 接口；内置五种营销 Agent（strategy / copywriting /
visual / research / media）返回确定性的结构化结果，便于离线开发与测试。
接入真实模型后端时，只需注册实现了 Agent 接口的自定义类型即可逐个替换。

# 输出格式化

Agent 返回值可以是纯文本或结构化数据（map / slice）。FormatOutput 将
结构化结果渲染为 Markdown 文本：已知 Agent 类型使用专属版式，其余走
通用版式（键名排序保证确定性）。Stringify 是引擎拼接下游输入时使用的
通用序列化入口。
*/
package agents
