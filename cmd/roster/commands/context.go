// Package commands roster 命令行的子命令
package commands

import (
	"context"
	"time"

	"github.com/paiban/monthroster/pkg/holiday"
	"github.com/paiban/monthroster/pkg/scheduler"
)

// AppContext 子命令共享的依赖
type AppContext struct {
	Ctx context.Context
	// Engine 为空时使用默认引擎
	Engine *scheduler.Engine
	// NewProvider 为空时使用带 SQLite 缓存的节假日 HTTP 客户端
	NewProvider func(baseURL, cacheDSN string) (holiday.Provider, error)
}

func (a *AppContext) engine() *scheduler.Engine {
	if a.Engine == nil {
		a.Engine = scheduler.NewEngine()
	}
	return a.Engine
}

func (a *AppContext) runContext() context.Context {
	if a.Ctx == nil {
		return context.Background()
	}
	return a.Ctx
}

func (a *AppContext) provider(baseURL, cacheDSN string) (holiday.Provider, error) {
	if a.NewProvider != nil {
		return a.NewProvider(baseURL, cacheDSN)
	}
	client := holiday.NewClient(baseURL, 10*time.Second)
	if cacheDSN == "" {
		return client, nil
	}
	db, err := holiday.OpenDB(cacheDSN)
	if err != nil {
		return nil, err
	}
	return holiday.NewCache(db, client), nil
}
