// Copyright (c) CanvasFlow Authors.
// Licensed under the MIT License.

/*
Package config 提供 CanvasFlow 的统一配置加载。

# 概述

配置来源按优先级叠加：默认值 → YAML 文件 → 环境变量（前缀
CANVASFLOW，按嵌套结构拼接，如 CANVASFLOW_SERVER_HTTP_PORT）。

	cfg, err := config.NewLoader().
	    WithConfigPath("config.yaml").
	    Load()
*/
package config
