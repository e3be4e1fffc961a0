// Copyright (c) CanvasFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 CanvasFlow 的 HTTP API 处理器。

# 概述

handlers 包实现画布前端使用的全部 REST 端点：图的读取与编辑
（节点/边 CRUD、重命名）、执行（run）、持久化（save / load /
export / import / clear）、执行历史查询以及健康检查。所有响应
使用统一的 Response 信封，错误通过 types.Error 的错误码映射为
HTTP 状态码。
*/
package handlers
