package autoload

import (
	configx "github.com/erabu-ai/agentcore/pkg/config"
	logx "github.com/erabu-ai/agentcore/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
